package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"sync"
	"time"
)

// webhookTemplate renders the JSON payload for each notifier lifecycle
// point, mirroring the original's WEBHOOK_TEMPLATES table.
type webhookTemplate struct {
	start         func(filePath string, totalStages int) any
	progress      func(e ProgressEvent) any
	finishSuccess func(message string, duration time.Duration) any
	finishError   func(message string, duration time.Duration) any
}

func discordEmbed(title, description string, color int, footer string) map[string]any {
	embed := map[string]any{"title": title, "description": description, "color": color}
	if footer != "" {
		embed["footer"] = map[string]any{"text": footer}
	}
	return map[string]any{"embeds": []any{embed}}
}

var webhookTemplates = map[string]webhookTemplate{
	"discord": {
		start: func(fp string, _ int) any {
			return discordEmbed("\U0001F4DA Indexing Started", "**File:** `"+fp+"`", 3447003, "")
		},
		progress: func(e ProgressEvent) any {
			return discordEmbed(e.Emoji()+" "+e.StageDescription(), e.Message, 16776960, "")
		},
		finishSuccess: func(msg string, dur time.Duration) any {
			return discordEmbed("✅ Indexing Complete", orDefault(msg, "Success"), 5763719, durationFooter(dur))
		},
		finishError: func(msg string, dur time.Duration) any {
			return discordEmbed("❌ Indexing Failed", orDefault(msg, "Error"), 15548997, durationFooter(dur))
		},
	},
	"slack": {
		start: func(fp string, _ int) any {
			return slackSection("\U0001F4DA *Indexing Started*\n`" + fp + "`")
		},
		progress: func(e ProgressEvent) any {
			return slackSection(e.Emoji() + " *" + e.StageDescription() + "*\n" + e.Message)
		},
		finishSuccess: func(msg string, dur time.Duration) any {
			return slackSection("✅ *Complete*\n" + msg + "\n_Duration: " + seconds(dur) + "_")
		},
		finishError: func(msg string, dur time.Duration) any {
			return slackSection("❌ *Failed*\n" + msg + "\n_Duration: " + seconds(dur) + "_")
		},
	},
	"teams": {
		start: func(fp string, _ int) any {
			return teamsCard("0076D7", "Indexing Started", "\U0001F4DA Indexing Started", map[string]any{"facts": []any{map[string]any{"name": "File", "value": fp}}})
		},
		progress: func(e ProgressEvent) any {
			return teamsCard("FFCC00", e.StageDescription(), e.Emoji()+" "+e.StageDescription(), map[string]any{"text": e.Message})
		},
		finishSuccess: func(msg string, dur time.Duration) any {
			return teamsCard("00FF00", "Complete", "✅ Complete", map[string]any{"text": msg + " (" + seconds(dur) + ")"})
		},
		finishError: func(msg string, dur time.Duration) any {
			return teamsCard("FF0000", "Failed", "❌ Failed", map[string]any{"text": msg + " (" + seconds(dur) + ")"})
		},
	},
	"generic": {
		start: func(fp string, totalStages int) any {
			return map[string]any{"event": "indexing_start", "file_path": fp, "total_stages": totalStages}
		},
		progress: func(e ProgressEvent) any {
			m := e.ToMap()
			m["event"] = "indexing_progress"
			return m
		},
		finishSuccess: func(msg string, dur time.Duration) any {
			return map[string]any{"event": "indexing_complete", "success": true, "message": msg, "duration_seconds": dur.Seconds()}
		},
		finishError: func(msg string, dur time.Duration) any {
			return map[string]any{"event": "indexing_complete", "success": false, "message": msg, "duration_seconds": dur.Seconds()}
		},
	},
}

func slackSection(text string) map[string]any {
	return map[string]any{"blocks": []any{map[string]any{"type": "section", "text": map[string]any{"type": "mrkdwn", "text": text}}}}
}

func teamsCard(themeColor, summary, activityTitle string, section map[string]any) map[string]any {
	section["activityTitle"] = activityTitle
	return map[string]any{"@type": "MessageCard", "themeColor": themeColor, "summary": summary, "sections": []any{section}}
}

func durationFooter(dur time.Duration) string {
	return fmt.Sprintf("Duration: %.1fs", dur.Seconds())
}

func seconds(dur time.Duration) string {
	return fmt.Sprintf("%.1fs", dur.Seconds())
}

var envVarRe = regexp.MustCompile(`\$\{([^}]+)\}`)

func substituteEnvVars(url string) string {
	return envVarRe.ReplaceAllStringFunc(url, func(match string) string {
		name := envVarRe.FindStringSubmatch(match)[1]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return match
	})
}

// WebhookNotifier POSTs templated JSON payloads to a URL, rate-limited per
// instance and respecting an optional stage allow-list.
type WebhookNotifier struct {
	url          string
	template     webhookTemplate
	notifyStages map[Stage]bool // nil means "all stages"
	minInterval  time.Duration
	headers      map[string]string
	client       *http.Client

	mu        sync.Mutex
	lastSend  time.Time
	startTime time.Time
}

// NewWebhookNotifier builds a WebhookNotifier. An unrecognized template
// name falls back to "generic", matching the original's dict .get default.
func NewWebhookNotifier(url, template string, notifyStages []Stage, minInterval time.Duration, headers map[string]string, timeout time.Duration) *WebhookNotifier {
	tmpl, ok := webhookTemplates[template]
	if !ok {
		tmpl = webhookTemplates["generic"]
	}

	var stageSet map[Stage]bool
	if notifyStages != nil {
		stageSet = make(map[Stage]bool, len(notifyStages))
		for _, s := range notifyStages {
			stageSet[s] = true
		}
	}

	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &WebhookNotifier{
		url:          substituteEnvVars(url),
		template:     tmpl,
		notifyStages: stageSet,
		minInterval:  minInterval,
		headers:      headers,
		client:       &http.Client{Timeout: timeout},
	}
}

func (w *WebhookNotifier) shouldNotify(stage Stage) bool {
	if w.notifyStages == nil {
		return true
	}
	return w.notifyStages[stage]
}

func (w *WebhookNotifier) send(payload any) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		return false
	}
	req, err := http.NewRequest(http.MethodPost, w.url, bytes.NewReader(data))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 400
}

func (w *WebhookNotifier) sendAsync(payload any) {
	go w.send(payload)
}

func (w *WebhookNotifier) Start(filePath string, totalStages int) {
	w.mu.Lock()
	w.startTime = time.Now()
	w.mu.Unlock()

	if w.shouldNotify(StageLoading) {
		w.sendAsync(w.template.start(filePath, totalStages))
	}
}

// Notify rate-limits progress events per instance; COMPLETE/ERROR never
// flow through Notify (they're delivered via Finish).
func (w *WebhookNotifier) Notify(e ProgressEvent) {
	if !w.shouldNotify(e.Stage) || e.IsComplete() || e.IsError() {
		return
	}

	w.mu.Lock()
	now := time.Now()
	if now.Sub(w.lastSend) < w.minInterval {
		w.mu.Unlock()
		return
	}
	w.lastSend = now
	w.mu.Unlock()

	w.sendAsync(w.template.progress(e))
}

func (w *WebhookNotifier) Finish(success bool, message string) {
	w.mu.Lock()
	started := w.startTime
	w.startTime = time.Time{}
	w.mu.Unlock()

	var duration time.Duration
	if !started.IsZero() {
		duration = time.Since(started)
	}

	target := StageComplete
	if !success {
		target = StageError
	}
	if !w.shouldNotify(target) {
		return
	}

	if success {
		w.send(w.template.finishSuccess(message, duration))
	} else {
		w.send(w.template.finishError(message, duration))
	}
}

var _ Notifier = (*WebhookNotifier)(nil)
