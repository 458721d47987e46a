package notify

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ConsoleNotifier prints human-readable progress to an io.Writer (stderr by
// default), with an optional ASCII progress bar and ANSI colors.
type ConsoleNotifier struct {
	Output          io.Writer
	ShowProgressBar bool
	Verbose         bool
	UseColors       bool

	mu        sync.Mutex
	startTime time.Time
	filePath  string
}

// NewConsoleNotifier creates a ConsoleNotifier writing to stderr.
func NewConsoleNotifier(showProgressBar, verbose bool) *ConsoleNotifier {
	return &ConsoleNotifier{
		Output:          os.Stderr,
		ShowProgressBar: showProgressBar,
		Verbose:         verbose,
		UseColors:       isTerminal(os.Stderr),
	}
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

func (c *ConsoleNotifier) color(text, code string) string {
	if !c.UseColors {
		return text
	}
	return "\x1b[" + code + "m" + text + "\x1b[0m"
}

func (c *ConsoleNotifier) green(s string) string { return c.color(s, "32") }
func (c *ConsoleNotifier) red(s string) string   { return c.color(s, "31") }
func (c *ConsoleNotifier) cyan(s string) string  { return c.color(s, "36") }
func (c *ConsoleNotifier) dim(s string) string   { return c.color(s, "90") }

func progressBar(current, total, width int) string {
	if total == 0 {
		return ""
	}
	filled := width * current / total
	if filled > width {
		filled = width
	}
	return fmt.Sprintf("[%s%s] %d/%d", strings.Repeat("█", filled), strings.Repeat("░", width-filled), current, total)
}

func (c *ConsoleNotifier) Start(filePath string, totalStages int) {
	c.mu.Lock()
	c.startTime = time.Now()
	c.filePath = filePath
	c.mu.Unlock()

	fmt.Fprintf(c.Output, "\n\U0001F4DA Indexing: %s\n", c.cyan(filepath.Base(filePath)))
}

func (c *ConsoleNotifier) Notify(e ProgressEvent) {
	if e.IsError() {
		fmt.Fprintf(c.Output, "   %s %s\n", c.red("❌"), c.red(orDefault(e.Error, e.Message)))
		return
	}
	if e.IsComplete() {
		return
	}

	var line string
	if e.Total > 0 && c.ShowProgressBar {
		line = fmt.Sprintf("   %s %s %s", e.Emoji(), e.Message, c.dim(progressBar(e.Current, e.Total, 20)))
	} else {
		line = fmt.Sprintf("   %s %s", e.Emoji(), e.Message)
	}

	if e.Total > 1 && e.Current < e.Total {
		fmt.Fprintf(c.Output, "\r%s", line)
	} else {
		fmt.Fprintf(c.Output, "\r%s\n", line)
	}
}

func orDefault(primary, fallback string) string {
	if primary != "" {
		return primary
	}
	return fallback
}

func (c *ConsoleNotifier) Finish(success bool, message string) {
	c.mu.Lock()
	started := c.startTime
	c.startTime = time.Time{}
	c.filePath = ""
	c.mu.Unlock()

	var duration time.Duration
	if !started.IsZero() {
		duration = time.Since(started)
	}
	durStr := fmt.Sprintf("(%.1fs)", duration.Seconds())

	if success {
		fmt.Fprintf(c.Output, "   %s %s %s\n", c.green("✅"), orDefault(message, "Complete"), c.dim(durStr))
	} else {
		fmt.Fprintf(c.Output, "   %s %s %s\n", c.red("❌"), orDefault(message, "Failed"), c.dim(durStr))
	}
}

var _ Notifier = (*ConsoleNotifier)(nil)
