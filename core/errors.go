package voice

import "errors"

var (
	// ErrUnsupportedEnvironment is returned when no recognizer or synthesizer
	// is available. Voice features are disabled; text input keeps working.
	ErrUnsupportedEnvironment = errors.New("speech features are not supported in this environment")
)

const (
	UnsupportedCaptureMessage  = "Voice input is not available here. Please type your message instead."
	UnsupportedPlaybackMessage = "Spoken replies are not available here. Replies are shown as text."
)
