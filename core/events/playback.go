package events

const (
	// KindPlaybackStarted identifies the start of an utterance.
	KindPlaybackStarted Kind = "playback.started"
	// KindPlaybackEnded identifies an utterance played to completion.
	KindPlaybackEnded Kind = "playback.ended"
	// KindPlaybackCancelled identifies an utterance stopped before completion.
	KindPlaybackCancelled Kind = "playback.cancelled"
	// KindPlaybackFailed identifies an utterance that could not be played.
	KindPlaybackFailed Kind = "playback.failed"
)

// PlaybackStarted marks the start of an utterance.
type PlaybackStarted struct {
	Base
	Text string
}

// NewPlaybackStarted creates a playback started event.
func NewPlaybackStarted(text string) PlaybackStarted {
	return PlaybackStarted{Base: NewBase(KindPlaybackStarted), Text: text}
}

// PlaybackEnded marks an utterance played to completion.
type PlaybackEnded struct {
	Base
	Text string
}

// NewPlaybackEnded creates a playback ended event.
func NewPlaybackEnded(text string) PlaybackEnded {
	return PlaybackEnded{Base: NewBase(KindPlaybackEnded), Text: text}
}

// PlaybackCancelled marks an utterance stopped by Stop, by a newer utterance
// or by disabling playback.
type PlaybackCancelled struct {
	Base
	Text string
}

// NewPlaybackCancelled creates a playback cancelled event.
func NewPlaybackCancelled(text string) PlaybackCancelled {
	return PlaybackCancelled{Base: NewBase(KindPlaybackCancelled), Text: text}
}

// PlaybackFailed carries the error of an utterance that could not be played.
type PlaybackFailed struct {
	Base
	Text string
	Err  error
}

// NewPlaybackFailed creates a playback failed event.
func NewPlaybackFailed(text string, err error) PlaybackFailed {
	return PlaybackFailed{Base: NewBase(KindPlaybackFailed), Text: text, Err: err}
}
