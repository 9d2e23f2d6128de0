package ivr

type State int

const (
	Disconnected State = iota
	// AtMenu is connected with the current menu's prompt playing.
	AtMenu
	// AwaitingInput is listening for the caller's choice.
	AwaitingInput
	// Processing is matching the caller's input against the current menu.
	Processing
	// Confirming is waiting for the host to act on a resolved command.
	Confirming
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case AtMenu:
		return "at_menu"
	case AwaitingInput:
		return "awaiting_input"
	case Processing:
		return "processing"
	case Confirming:
		return "confirming"
	default:
		return "unknown"
	}
}
