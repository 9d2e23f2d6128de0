package speechtotext

import (
	"errors"

	"github.com/koscakluka/ema-ivr/core/audio"
)

var (
	// ErrPermissionDenied is reported through the error callback when the
	// microphone or the recognition service refuses access.
	ErrPermissionDenied = errors.New("speech recognition permission denied")
)

const DefaultLocale = "en-US"

type RecognitionOptions struct {
	// Locale is the BCP 47 tag of the spoken language, e.g. "bn-BD".
	Locale string

	// SegmentCallback receives each finalized transcript segment in order.
	SegmentCallback func(segment string)
	// InterimCallback receives the mutable tail that follows the last
	// finalized segment. An empty string clears it.
	InterimCallback func(interim string)
	// SpeechEndedCallback is called when the recognizer detects the end of an
	// utterance.
	SpeechEndedCallback func()
	// ErrorCallback is called when recognition fails after Start returned.
	// Recognition is over once it has been called.
	ErrorCallback func(error)

	EncodingInfo audio.EncodingInfo
}

type RecognitionOption func(*RecognitionOptions)

func NewRecognitionOptions(opts ...RecognitionOption) RecognitionOptions {
	options := RecognitionOptions{
		Locale:              DefaultLocale,
		SegmentCallback:     func(string) {},
		InterimCallback:     func(string) {},
		SpeechEndedCallback: func() {},
		ErrorCallback:       func(error) {},
		EncodingInfo:        audio.GetDefaultEncodingInfo(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

func WithLocale(locale string) RecognitionOption {
	return func(o *RecognitionOptions) {
		if locale != "" {
			o.Locale = locale
		}
	}
}

func WithSegmentCallback(callback func(segment string)) RecognitionOption {
	return func(o *RecognitionOptions) {
		if callback != nil {
			o.SegmentCallback = callback
		}
	}
}

func WithInterimCallback(callback func(interim string)) RecognitionOption {
	return func(o *RecognitionOptions) {
		if callback != nil {
			o.InterimCallback = callback
		}
	}
}

func WithSpeechEndedCallback(callback func()) RecognitionOption {
	return func(o *RecognitionOptions) {
		if callback != nil {
			o.SpeechEndedCallback = callback
		}
	}
}

func WithErrorCallback(callback func(error)) RecognitionOption {
	return func(o *RecognitionOptions) {
		if callback != nil {
			o.ErrorCallback = callback
		}
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) RecognitionOption {
	return func(o *RecognitionOptions) {
		if !encodingInfo.IsZero() {
			o.EncodingInfo = encodingInfo
		}
	}
}
