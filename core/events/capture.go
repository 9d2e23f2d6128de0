package events

const (
	// KindCaptureStarted identifies the start of a listening session.
	KindCaptureStarted Kind = "capture.started"
	// KindCaptureUnavailable identifies a start attempt without recognition support.
	KindCaptureUnavailable Kind = "capture.unavailable"
	// KindCaptureTranscriptUpdated identifies live transcript snapshots.
	KindCaptureTranscriptUpdated Kind = "capture.transcript_updated"
	// KindCaptureSpeechEnded identifies an end of utterance detected by the recognizer.
	KindCaptureSpeechEnded Kind = "capture.speech_ended"
	// KindCaptureTranscriptFinal identifies the finalized transcript of a session.
	KindCaptureTranscriptFinal Kind = "capture.transcript_final"
	// KindCaptureStopped identifies the end of a listening session.
	KindCaptureStopped Kind = "capture.stopped"
	// KindCaptureFailed identifies a recognition failure.
	KindCaptureFailed Kind = "capture.failed"
)

// CaptureStarted marks the start of a listening session.
type CaptureStarted struct {
	Base
	Locale string
}

// NewCaptureStarted creates a capture started event.
func NewCaptureStarted(locale string) CaptureStarted {
	return CaptureStarted{Base: NewBase(KindCaptureStarted), Locale: locale}
}

// CaptureUnavailable carries the user-facing warning shown when speech
// recognition is not supported.
type CaptureUnavailable struct {
	Base
	Message string
}

// NewCaptureUnavailable creates a capture unavailable event.
func NewCaptureUnavailable(message string) CaptureUnavailable {
	return CaptureUnavailable{Base: NewBase(KindCaptureUnavailable), Message: message}
}

// CaptureTranscriptUpdated carries the mutable live transcript snapshot.
type CaptureTranscriptUpdated struct {
	Base
	Transcript string
}

// NewCaptureTranscriptUpdated creates a live transcript update event.
func NewCaptureTranscriptUpdated(transcript string) CaptureTranscriptUpdated {
	return CaptureTranscriptUpdated{Base: NewBase(KindCaptureTranscriptUpdated), Transcript: transcript}
}

// CaptureSpeechEnded marks an end of utterance detected while listening.
type CaptureSpeechEnded struct{ Base }

// NewCaptureSpeechEnded creates a capture speech ended event.
func NewCaptureSpeechEnded() CaptureSpeechEnded {
	return CaptureSpeechEnded{Base: NewBase(KindCaptureSpeechEnded)}
}

// CaptureTranscriptFinal carries the trimmed, non-empty transcript of a
// finished listening session.
type CaptureTranscriptFinal struct {
	Base
	Transcript string
}

// NewCaptureTranscriptFinal creates a final transcript event.
func NewCaptureTranscriptFinal(transcript string) CaptureTranscriptFinal {
	return CaptureTranscriptFinal{Base: NewBase(KindCaptureTranscriptFinal), Transcript: transcript}
}

// CaptureStopped marks the end of a listening session.
type CaptureStopped struct{ Base }

// NewCaptureStopped creates a capture stopped event.
func NewCaptureStopped() CaptureStopped {
	return CaptureStopped{Base: NewBase(KindCaptureStopped)}
}

// CaptureFailed carries a recognition failure. PermissionDenied is set when
// microphone access was refused.
type CaptureFailed struct {
	Base
	Err              error
	PermissionDenied bool
}

// NewCaptureFailed creates a capture failed event.
func NewCaptureFailed(err error, permissionDenied bool) CaptureFailed {
	return CaptureFailed{Base: NewBase(KindCaptureFailed), Err: err, PermissionDenied: permissionDenied}
}
