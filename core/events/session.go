package events

const (
	// KindSessionStateChanged identifies IVR session state transitions.
	KindSessionStateChanged Kind = "session.state_changed"
	// KindSessionMenuEntered identifies entry into a menu.
	KindSessionMenuEntered Kind = "session.menu_entered"
	// KindSessionCommandResolved identifies a command handed to the host.
	KindSessionCommandResolved Kind = "session.command_resolved"
	// KindSessionInputUnmatched identifies input that resolved nothing.
	KindSessionInputUnmatched Kind = "session.input_unmatched"
)

// SessionStateChanged carries an IVR session state transition.
type SessionStateChanged struct {
	Base
	From string
	To   string
	Menu string
}

// NewSessionStateChanged creates a session state change event.
func NewSessionStateChanged(from, to, menu string) SessionStateChanged {
	return SessionStateChanged{Base: NewBase(KindSessionStateChanged), From: from, To: to, Menu: menu}
}

// SessionMenuEntered carries the menu entered and the prompt presented.
type SessionMenuEntered struct {
	Base
	Menu   string
	Prompt string
}

// NewSessionMenuEntered creates a menu entered event.
func NewSessionMenuEntered(menu, prompt string) SessionMenuEntered {
	return SessionMenuEntered{Base: NewBase(KindSessionMenuEntered), Menu: menu, Prompt: prompt}
}

// SessionCommandResolved carries a command resolved from user input.
type SessionCommandResolved struct {
	Base
	Menu   string
	Action string
	Value  string
}

// NewSessionCommandResolved creates a command resolved event.
func NewSessionCommandResolved(menu, action, value string) SessionCommandResolved {
	return SessionCommandResolved{Base: NewBase(KindSessionCommandResolved), Menu: menu, Action: action, Value: value}
}

// SessionInputUnmatched carries input that matched no option or pattern.
// Attempt counts consecutive misses in the same menu, starting at 1.
type SessionInputUnmatched struct {
	Base
	Menu       string
	Transcript string
	Attempt    int
}

// NewSessionInputUnmatched creates an input unmatched event.
func NewSessionInputUnmatched(menu, transcript string, attempt int) SessionInputUnmatched {
	return SessionInputUnmatched{Base: NewBase(KindSessionInputUnmatched), Menu: menu, Transcript: transcript, Attempt: attempt}
}
