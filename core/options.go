package voice

import (
	"context"

	"github.com/koscakluka/ema-ivr/core/events"
	"github.com/koscakluka/ema-ivr/core/speechtotext"
	"github.com/koscakluka/ema-ivr/core/texttospeech"
)

// Recognizer is a continuous speech recognition engine.
type Recognizer interface {
	Start(ctx context.Context, opts ...speechtotext.RecognitionOption) error
	Stop() error
}

// Synthesizer is a text-to-speech engine.
type Synthesizer interface {
	Voices(ctx context.Context) ([]texttospeech.Voice, error)
	Speak(ctx context.Context, text string, opts ...texttospeech.UtteranceOption) (texttospeech.Utterance, error)
}

type CaptureOption func(*Capture)

func WithCaptureEventHandler(handler events.Handler) CaptureOption {
	return func(c *Capture) { c.emitEvent = emitterOrNoop(handler) }
}

// ListenOption configures a single listening session.
type ListenOption func(*listenOptions)

type listenOptions struct {
	onSpeechEnded func()
}

// OnSpeechEnded registers a callback for the end of an utterance detected by
// the recognizer during this listening session.
func OnSpeechEnded(callback func()) ListenOption {
	return func(o *listenOptions) { o.onSpeechEnded = callback }
}

type PlaybackOption func(*Playback)

func WithPlaybackEventHandler(handler events.Handler) PlaybackOption {
	return func(p *Playback) { p.emitEvent = emitterOrNoop(handler) }
}

// WithLanguage sets the language used to pick the synthesis voice.
func WithLanguage(language texttospeech.Language) PlaybackOption {
	return func(p *Playback) { p.language = language }
}

func WithProsody(rate, pitch, volume float64) PlaybackOption {
	return func(p *Playback) {
		p.rate, p.pitch, p.volume = rate, pitch, volume
	}
}

func WithPlaybackEnabled(enabled bool) PlaybackOption {
	return func(p *Playback) { p.enabled = enabled }
}

// SpeakOption configures a single utterance.
type SpeakOption func(*speakOptions)

type speakOptions struct {
	onEnded  func()
	onFailed func(error)
}

// OnEnded registers a callback for the utterance playing to completion.
func OnEnded(callback func()) SpeakOption {
	return func(o *speakOptions) { o.onEnded = callback }
}

// OnFailed registers a callback for the utterance failing. Cancelled
// utterances call neither OnEnded nor OnFailed.
func OnFailed(callback func(error)) SpeakOption {
	return func(o *speakOptions) { o.onFailed = callback }
}
