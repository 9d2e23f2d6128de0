// Package voicetest provides scriptable recognition and synthesis engines for
// tests of code built on the voice package.
package voicetest

import (
	"context"
	"sync"

	"github.com/koscakluka/ema-ivr/core/events"
	"github.com/koscakluka/ema-ivr/core/speechtotext"
	"github.com/koscakluka/ema-ivr/core/texttospeech"
)

// Recognizer records Start and Stop calls and lets tests deliver results
// through the callbacks of the most recent Start. Callbacks keep working
// after Stop so tests can deliver late results.
type Recognizer struct {
	// StartErr is returned by Start when set.
	StartErr error

	mu      sync.Mutex
	starts  int
	stops   int
	active  bool
	options *speechtotext.RecognitionOptions
}

func (r *Recognizer) Start(_ context.Context, opts ...speechtotext.RecognitionOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.starts++
	if r.StartErr != nil {
		return r.StartErr
	}
	options := speechtotext.NewRecognitionOptions(opts...)
	r.options = &options
	r.active = true
	return nil
}

func (r *Recognizer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stops++
	r.active = false
	return nil
}

func (r *Recognizer) Starts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.starts
}

func (r *Recognizer) Stops() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stops
}

func (r *Recognizer) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Locale returns the locale requested by the most recent Start.
func (r *Recognizer) Locale() string {
	if options := r.current(); options != nil {
		return options.Locale
	}
	return ""
}

func (r *Recognizer) Segment(segment string) {
	if options := r.current(); options != nil {
		options.SegmentCallback(segment)
	}
}

func (r *Recognizer) Interim(interim string) {
	if options := r.current(); options != nil {
		options.InterimCallback(interim)
	}
}

func (r *Recognizer) EndSpeech() {
	if options := r.current(); options != nil {
		options.SpeechEndedCallback()
	}
}

func (r *Recognizer) Fail(err error) {
	if options := r.current(); options != nil {
		options.ErrorCallback(err)
	}
}

// Say delivers text as a single final segment followed by the end of speech.
func (r *Recognizer) Say(text string) {
	r.Segment(text)
	r.EndSpeech()
}

func (r *Recognizer) current() *speechtotext.RecognitionOptions {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.options
}

// Synthesizer records utterances. With AutoComplete set every utterance
// starts and ends before Speak returns.
type Synthesizer struct {
	VoiceList    []texttospeech.Voice
	VoicesErr    error
	SpeakErr     error
	AutoComplete bool

	mu         sync.Mutex
	voiceCalls int
	utterances []*Utterance
}

func (s *Synthesizer) Voices(context.Context) ([]texttospeech.Voice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.voiceCalls++
	if s.VoicesErr != nil {
		return nil, s.VoicesErr
	}
	return append([]texttospeech.Voice(nil), s.VoiceList...), nil
}

func (s *Synthesizer) Speak(_ context.Context, text string, opts ...texttospeech.UtteranceOption) (texttospeech.Utterance, error) {
	s.mu.Lock()
	if s.SpeakErr != nil {
		err := s.SpeakErr
		s.mu.Unlock()
		return nil, err
	}
	u := &Utterance{Text: text, Options: texttospeech.NewUtteranceOptions(opts...)}
	s.utterances = append(s.utterances, u)
	autoComplete := s.AutoComplete
	s.mu.Unlock()

	if autoComplete {
		u.Start()
		u.End()
	}
	return u, nil
}

// VoiceCalls returns how many times the voice list was requested.
func (s *Synthesizer) VoiceCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voiceCalls
}

func (s *Synthesizer) Utterances() []*Utterance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Utterance(nil), s.utterances...)
}

// Last returns the most recent utterance or nil.
func (s *Synthesizer) Last() *Utterance {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.utterances) == 0 {
		return nil
	}
	return s.utterances[len(s.utterances)-1]
}

// Texts returns the text of every utterance in order.
func (s *Synthesizer) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	texts := make([]string, 0, len(s.utterances))
	for _, u := range s.utterances {
		texts = append(texts, u.Text)
	}
	return texts
}

type Utterance struct {
	Text    string
	Options texttospeech.UtteranceOptions

	mu        sync.Mutex
	cancelled int
}

func (u *Utterance) Start()         { u.Options.StartedCallback() }
func (u *Utterance) End()           { u.Options.EndedCallback() }
func (u *Utterance) Fail(err error) { u.Options.ErrorCallback(err) }

func (u *Utterance) Cancel() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.cancelled++
	return nil
}

func (u *Utterance) Cancelled() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.cancelled > 0
}

// Recorder collects emitted events.
type Recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *Recorder) Handle(event events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *Recorder) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

func (r *Recorder) Kinds() []events.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]events.Kind, 0, len(r.events))
	for _, event := range r.events {
		kinds = append(kinds, event.Kind())
	}
	return kinds
}

// Count returns how many events of kind were recorded.
func (r *Recorder) Count(kind events.Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, event := range r.events {
		if event.Kind() == kind {
			count++
		}
	}
	return count
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
