package audio

import "context"

// Source is a capture device that pushes raw audio frames until stopped.
type Source interface {
	EncodingInfo() EncodingInfo
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
	StopCapture() error
}

// Sink is a playback device fed with synthesized audio.
//
// Mark registers callback to run once all audio sent before the mark has been
// played. ClearBuffer drops queued audio and pending marks without calling
// them.
type Sink interface {
	EncodingInfo() EncodingInfo
	SendAudio(audio []byte) error
	Mark(name string, callback func(name string)) error
	ClearBuffer()
}
