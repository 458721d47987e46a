package notify

// CompositeNotifier fans out to multiple sinks, swallowing any per-sink
// panic or failure so one broken sink never blocks the others.
type CompositeNotifier struct {
	Notifiers []Notifier
}

func NewCompositeNotifier(notifiers ...Notifier) *CompositeNotifier {
	return &CompositeNotifier{Notifiers: notifiers}
}

func (c *CompositeNotifier) Notify(e ProgressEvent) {
	for _, n := range c.Notifiers {
		safeCall(func() { n.Notify(e) })
	}
}

func (c *CompositeNotifier) Start(filePath string, totalStages int) {
	for _, n := range c.Notifiers {
		safeCall(func() { n.Start(filePath, totalStages) })
	}
}

func (c *CompositeNotifier) Finish(success bool, message string) {
	for _, n := range c.Notifiers {
		safeCall(func() { n.Finish(success, message) })
	}
}

func safeCall(f func()) {
	defer func() { recover() }()
	f()
}

var _ Notifier = (*CompositeNotifier)(nil)
