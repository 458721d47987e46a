package notify

import (
	"time"

	"github.com/vexrag/vexrag/config"
)

// FromConfig builds a Notifier from the notifications section of the
// resolved config: console, webhook, both composed, or NullNotifier if
// neither is enabled.
func FromConfig(cfg config.NotificationsConfig) Notifier {
	var notifiers []Notifier

	if cfg.Console.Enabled {
		notifiers = append(notifiers, NewConsoleNotifier(true, false))
	}

	if cfg.Webhook.Enabled && cfg.Webhook.URL != "" {
		interval := cfg.Webhook.MinIntervalSeconds
		if interval <= 0 {
			interval = 2.0
		}
		notifiers = append(notifiers, NewWebhookNotifier(
			cfg.Webhook.URL,
			cfg.Webhook.Template,
			nil,
			time.Duration(interval*float64(time.Second)),
			nil,
			10*time.Second,
		))
	}

	switch len(notifiers) {
	case 0:
		return NullNotifier{}
	case 1:
		return notifiers[0]
	default:
		return NewCompositeNotifier(notifiers...)
	}
}
