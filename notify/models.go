// Package notify implements the pluggable progress-notification sinks used
// during indexing: null, console, webhook, and composite fan-out.
package notify

import "time"

// Stage identifies a pipeline phase a ProgressEvent belongs to.
type Stage string

const (
	StageLoading  Stage = "LOADING"
	StageSecurity Stage = "SECURITY"
	StageChunking Stage = "CHUNKING"
	StageContext  Stage = "CONTEXT"
	StageEmbed    Stage = "EMBEDDING"
	StageIndexing Stage = "INDEXING"
	StageComplete Stage = "COMPLETE"
	StageError    Stage = "ERROR"
)

var stageInfo = map[Stage]struct {
	emoji       string
	description string
}{
	StageLoading:  {"\U0001F4C4", "Loading document"},
	StageSecurity: {"\U0001F512", "Security scan"},
	StageChunking: {"✂️", "Chunking"},
	StageContext:  {"\U0001F9E0", "Generating context"},
	StageEmbed:    {"\U0001F522", "Embedding"},
	StageIndexing: {"\U0001F4BE", "Indexing"},
	StageComplete: {"✅", "Complete"},
	StageError:    {"❌", "Error"},
}

// ProgressEvent is one notification emitted during indexing.
type ProgressEvent struct {
	Stage     Stage
	Message   string
	Current   int
	Total     int
	Timestamp time.Time
	FilePath  string
	Error     string
}

// Emoji returns the display glyph for the event's stage.
func (e ProgressEvent) Emoji() string { return stageInfo[e.Stage].emoji }

// StageDescription returns the human-readable label for the event's stage.
func (e ProgressEvent) StageDescription() string { return stageInfo[e.Stage].description }

// IsComplete reports whether this event signals pipeline completion.
func (e ProgressEvent) IsComplete() bool { return e.Stage == StageComplete }

// IsError reports whether this event signals a pipeline failure.
func (e ProgressEvent) IsError() bool { return e.Stage == StageError }

// ToMap renders the event as a plain map, used by the generic webhook
// template and by JSON-based sinks.
func (e ProgressEvent) ToMap() map[string]any {
	m := map[string]any{
		"stage":   string(e.Stage),
		"message": e.Message,
		"current": e.Current,
		"total":   e.Total,
	}
	if !e.Timestamp.IsZero() {
		m["timestamp"] = e.Timestamp.Format(time.RFC3339)
	}
	if e.FilePath != "" {
		m["file_path"] = e.FilePath
	}
	if e.Error != "" {
		m["error"] = e.Error
	}
	return m
}

// Notifier is the interface every sink implements.
type Notifier interface {
	Notify(event ProgressEvent)
	Start(filePath string, totalStages int)
	Finish(success bool, message string)
}
