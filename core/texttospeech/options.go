package texttospeech

import "github.com/koscakluka/ema-ivr/core/audio"

const (
	DefaultRate   = 1.0
	DefaultPitch  = 1.0
	DefaultVolume = 1.0
)

type UtteranceOptions struct {
	// Voice is the voice to speak with. The zero Voice selects the engine
	// default.
	Voice Voice

	Rate   float64
	Pitch  float64
	Volume float64

	// StartedCallback is called once when audio for the utterance starts.
	StartedCallback func()
	// EndedCallback is called once the utterance played to completion.
	EndedCallback func()
	// ErrorCallback is called when synthesis or playback fails. Cancelled
	// utterances report neither an end nor an error.
	ErrorCallback func(error)

	EncodingInfo audio.EncodingInfo
}

type UtteranceOption func(*UtteranceOptions)

func NewUtteranceOptions(opts ...UtteranceOption) UtteranceOptions {
	options := UtteranceOptions{
		Rate:            DefaultRate,
		Pitch:           DefaultPitch,
		Volume:          DefaultVolume,
		StartedCallback: func() {},
		EndedCallback:   func() {},
		ErrorCallback:   func(error) {},
		EncodingInfo:    audio.GetDefaultEncodingInfo(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

func WithVoice(voice Voice) UtteranceOption {
	return func(o *UtteranceOptions) { o.Voice = voice }
}

func WithProsody(rate, pitch, volume float64) UtteranceOption {
	return func(o *UtteranceOptions) {
		o.Rate, o.Pitch, o.Volume = rate, pitch, volume
	}
}

func WithStartedCallback(callback func()) UtteranceOption {
	return func(o *UtteranceOptions) {
		if callback != nil {
			o.StartedCallback = callback
		}
	}
}

func WithEndedCallback(callback func()) UtteranceOption {
	return func(o *UtteranceOptions) {
		if callback != nil {
			o.EndedCallback = callback
		}
	}
}

func WithErrorCallback(callback func(error)) UtteranceOption {
	return func(o *UtteranceOptions) {
		if callback != nil {
			o.ErrorCallback = callback
		}
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) UtteranceOption {
	return func(o *UtteranceOptions) {
		if !encodingInfo.IsZero() {
			o.EncodingInfo = encodingInfo
		}
	}
}

// Utterance is one piece of text being spoken.
type Utterance interface {
	// Cancel stops the utterance immediately. Repeated calls are ignored.
	Cancel() error
}
