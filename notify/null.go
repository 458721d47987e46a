package notify

// NullNotifier discards every event. It's the default when no notifier is
// configured.
type NullNotifier struct{}

func (NullNotifier) Notify(ProgressEvent)         {}
func (NullNotifier) Start(string, int)            {}
func (NullNotifier) Finish(bool, string)           {}

var _ Notifier = NullNotifier{}
