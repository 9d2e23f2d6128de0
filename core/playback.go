package voice

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/koscakluka/ema-ivr/core/bridge"
	"github.com/koscakluka/ema-ivr/core/events"
	"github.com/koscakluka/ema-ivr/core/texttospeech"
	"go.opentelemetry.io/otel/codes"
)

// DefaultLanguage is the language voices are picked for when none is
// configured.
var DefaultLanguage = texttospeech.Language{Code: "bn", Names: []string{"bangla", "bengali"}}

// Playback speaks text one utterance at a time. A new utterance cancels the
// one in flight.
type Playback struct {
	mu          sync.Mutex
	synthesizer Synthesizer
	enabled     bool

	language            texttospeech.Language
	rate, pitch, volume float64
	voice               texttospeech.Voice
	voiceSelected       bool

	current *activeUtterance
	// generation identifies the current utterance. It changes on every Speak
	// and Stop so callbacks of superseded utterances can be dropped.
	generation uint64

	emitEvent events.Handler
}

type activeUtterance struct {
	generation uint64
	text       string
	utterance  texttospeech.Utterance
}

func NewPlayback(synthesizer Synthesizer, opts ...PlaybackOption) *Playback {
	p := &Playback{
		synthesizer: synthesizer,
		enabled:     true,
		language:    DefaultLanguage,
		rate:        texttospeech.DefaultRate,
		pitch:       texttospeech.DefaultPitch,
		volume:      texttospeech.DefaultVolume,
		emitEvent:   events.Noop,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Speak cancels any utterance in flight and starts speaking text. Blank text
// only cancels. When playback is disabled Speak does nothing and returns nil.
func (p *Playback) Speak(ctx context.Context, text string, opts ...SpeakOption) error {
	if p == nil {
		return nil
	}

	speak := speakOptions{}
	for _, opt := range opts {
		opt(&speak)
	}

	p.mu.Lock()
	enabled, synthesizer := p.enabled, p.synthesizer
	p.mu.Unlock()
	if !enabled {
		return nil
	}
	if synthesizer == nil {
		p.emitEvent(events.NewPlaybackFailed(text, ErrUnsupportedEnvironment))
		return ErrUnsupportedEnvironment
	}
	if strings.TrimSpace(text) == "" {
		return p.stop()
	}

	ctx, span := tracer.Start(ctx, "speak")
	defer span.End()

	p.stop()
	voice := p.selectVoice(ctx, synthesizer)

	p.mu.Lock()
	p.generation++
	generation := p.generation
	p.current = &activeUtterance{generation: generation, text: text}
	rate, pitch, volume := p.rate, p.pitch, p.volume
	p.mu.Unlock()

	utterance, err := synthesizer.Speak(ctx, text,
		texttospeech.WithVoice(voice),
		texttospeech.WithProsody(rate, pitch, volume),
		texttospeech.WithStartedCallback(func() { p.started(generation) }),
		texttospeech.WithEndedCallback(func() { p.ended(generation, speak.onEnded) }),
		texttospeech.WithErrorCallback(func(err error) { p.failed(generation, err, speak.onFailed) }),
	)
	if err != nil {
		err = fmt.Errorf("failed to speak: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.failed(generation, err, speak.onFailed)
		return err
	}

	p.mu.Lock()
	superseded := p.generation != generation
	if !superseded && p.current != nil && p.current.generation == generation {
		p.current.utterance = utterance
	}
	p.mu.Unlock()

	// Stop or another Speak ran while the engine was starting this one
	if superseded {
		if err := utterance.Cancel(); err != nil {
			logger.Warn("failed to cancel superseded utterance", "error", err)
		}
	}
	return nil
}

// Stop cancels the utterance in flight. It succeeds when nothing is playing.
func (p *Playback) Stop() error {
	if p == nil {
		return nil
	}
	return p.stop()
}

func (p *Playback) stop() error {
	p.mu.Lock()
	current := p.current
	p.current = nil
	p.generation++
	p.mu.Unlock()

	if current == nil {
		return nil
	}

	p.emitEvent(events.NewPlaybackCancelled(current.text))
	if current.utterance == nil {
		return nil
	}
	if err := current.utterance.Cancel(); err != nil {
		logger.Warn("failed to cancel utterance", "error", err)
	}
	return nil
}

// SetEnabled turns playback on or off. Turning it off stops the utterance in
// flight.
func (p *Playback) SetEnabled(enabled bool) {
	if p == nil {
		return
	}

	p.mu.Lock()
	p.enabled = enabled
	p.mu.Unlock()

	if !enabled {
		_ = p.stop()
	}
}

func (p *Playback) Enabled() bool {
	if p == nil {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// IsSupported reports whether a synthesizer is configured.
func (p *Playback) IsSupported() bool {
	return p != nil && p.synthesizer != nil
}

// IsSpeaking reports whether an utterance is in flight.
func (p *Playback) IsSpeaking() bool {
	if p == nil {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current != nil
}

// Attach subscribes the playback to b so published text is spoken. The
// returned function detaches it and must be called on teardown.
func (p *Playback) Attach(ctx context.Context, b *bridge.Bridge) (detach func()) {
	return b.Subscribe(func(text string) {
		if err := p.Speak(ctx, text); err != nil {
			logger.Warn("failed to speak published text", "error", err)
		}
	})
}

// selectVoice picks the voice once, as soon as the engine lists any voices.
func (p *Playback) selectVoice(ctx context.Context, synthesizer Synthesizer) texttospeech.Voice {
	p.mu.Lock()
	if p.voiceSelected {
		voice := p.voice
		p.mu.Unlock()
		return voice
	}
	language := p.language
	p.mu.Unlock()

	voices, err := synthesizer.Voices(ctx)
	if err != nil {
		logger.Warn("failed to list voices, using engine default", "error", err)
		return texttospeech.Voice{}
	}
	if len(voices) == 0 {
		return texttospeech.Voice{}
	}

	voice := texttospeech.SelectVoice(voices, language)
	p.mu.Lock()
	p.voice, p.voiceSelected = voice, true
	p.mu.Unlock()

	logger.Debug("selected voice", "id", voice.ID, "name", voice.Name, "lang", voice.Lang)
	return voice
}

func (p *Playback) currentText(generation uint64) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil || p.current.generation != generation {
		return "", false
	}
	return p.current.text, true
}

func (p *Playback) finish(generation uint64) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil || p.current.generation != generation {
		return "", false
	}
	text := p.current.text
	p.current = nil
	return text, true
}

func (p *Playback) started(generation uint64) {
	if text, ok := p.currentText(generation); ok {
		p.emitEvent(events.NewPlaybackStarted(text))
	}
}

func (p *Playback) ended(generation uint64, callback func()) {
	text, ok := p.finish(generation)
	if !ok {
		return
	}

	p.emitEvent(events.NewPlaybackEnded(text))
	if callback != nil {
		callback()
	}
}

func (p *Playback) failed(generation uint64, err error, callback func(error)) {
	text, ok := p.finish(generation)
	if !ok {
		return
	}

	logger.Warn("speech playback failed", "error", err)
	p.emitEvent(events.NewPlaybackFailed(text, err))
	if callback != nil {
		callback(err)
	}
}
