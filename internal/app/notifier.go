package app

// Notifier is how the controller talks to the user. The GUI implements it
// with dialogs and a status bar, the CLI with terminal output and prompts.
// Every method is called on the consumer loop.
type Notifier interface {
	// Status replaces the one-line status text. busy reports whether an
	// operation is still running.
	Status(msg string, busy bool)
	Info(title, msg string)
	Error(title, msg string)
	// Confirm asks a yes/no question. fn may be called later, but on the
	// consumer loop.
	Confirm(title, msg string, fn func(ok bool))
	TreeChanged()
	DocumentChanged()
}

// NopNotifier ignores everything and declines every confirmation.
type NopNotifier struct{}

func (NopNotifier) Status(string, bool)                {}
func (NopNotifier) Info(string, string)                {}
func (NopNotifier) Error(string, string)               {}
func (NopNotifier) Confirm(_, _ string, fn func(bool)) { fn(false) }
func (NopNotifier) TreeChanged()                       {}
func (NopNotifier) DocumentChanged()                   {}

var _ Notifier = NopNotifier{}
