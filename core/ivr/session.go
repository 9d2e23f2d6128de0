package ivr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	voice "github.com/koscakluka/ema-ivr/core"
	"github.com/koscakluka/ema-ivr/core/events"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrNotConnected     = errors.New("ivr session is not connected")
	ErrNotAwaitingInput = errors.New("ivr session is not waiting for input")
	ErrUnknownMenu      = errors.New("unknown menu")
)

// Command is a resolved caller choice reported to the host.
type Command struct {
	Action string
	// Option is the picked option. It is zero for free-text menus and for
	// escalation.
	Option Option
	Menu   string
	// Value is the value extracted by a free-text menu.
	Value      string
	Transcript string
	CallID     string
}

// CommandHandler acts on a resolved command and tells the session where to go
// next. It runs on the goroutine that resolved the command.
type CommandHandler func(ctx context.Context, cmd Command) Transition

type transitionKind int

const (
	transitionFollow transitionKind = iota
	transitionStay
	transitionGoTo
	transitionReprompt
	transitionHangup
)

// Transition is the host's answer to a Command. The zero value is Follow.
type Transition struct {
	kind    transitionKind
	menu    string
	preface string
}

// Announcing speaks text before the transition takes effect: ahead of the
// next menu's prompt, or before the line is hung up.
func (t Transition) Announcing(text string) Transition {
	t.preface = strings.TrimSpace(text)
	return t
}

// Follow enters the picked option's next menu. Without one the session stays
// in Confirming.
func Follow() Transition { return Transition{kind: transitionFollow} }

// Stay keeps the session in Confirming until the host calls GoTo or
// Disconnect.
func Stay() Transition { return Transition{kind: transitionStay} }

func GoTo(menu string) Transition { return Transition{kind: transitionGoTo, menu: menu} }

// Reprompt enters the current menu again.
func Reprompt() Transition { return Transition{kind: transitionReprompt} }

func Hangup() Transition { return Transition{kind: transitionHangup} }

// Session drives one caller through the menus: it plays a menu's prompt,
// listens for the answer, matches it and reports the resolved command to the
// host.
type Session struct {
	id       string
	listener Listener
	speaker  Speaker
	dialer   Dialer

	handleCommand  CommandHandler
	menus          MenuSet
	extractors     map[string]Extractor
	maxRetries     int
	escalateAction string
	listenTimeout  time.Duration
	locale         string
	emitEvent      events.Handler

	mu         sync.Mutex
	state      State
	connecting bool
	menu       Menu
	callID     string
	retries    int
	// turn identifies the current step of the session. Every step that can
	// be interrupted captures it, and callbacks from earlier steps are
	// dropped.
	turn        uint64
	listenTimer *time.Timer
}

func NewSession(listener Listener, speaker Speaker, opts ...SessionOption) (*Session, error) {
	if listener == nil || speaker == nil {
		return nil, fmt.Errorf("ivr session needs a listener and a speaker")
	}

	s := &Session{
		id:             uuid.NewString(),
		listener:       listener,
		speaker:        speaker,
		menus:          DefaultMenus(),
		extractors:     DefaultExtractors(),
		maxRetries:     DefaultMaxRetries,
		escalateAction: DefaultEscalateAction,
		locale:         DefaultLocale,
		emitEvent:      events.Noop,
		state:          Disconnected,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.menus.Validate(s.extractors); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentMenu returns the menu the session is at. It reports false while
// disconnected.
func (s *Session) CurrentMenu() (Menu, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Disconnected {
		return Menu{}, false
	}
	return s.menu, true
}

func (s *Session) CallID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callID
}

// Connect places the call, when a dialer is configured, and enters the main
// menu. Connecting a connected session is a no-op.
func (s *Session) Connect(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "connect ivr session", trace.WithAttributes(attribute.String("session.id", s.id)))
	defer span.End()

	s.mu.Lock()
	if s.state != Disconnected || s.connecting {
		s.mu.Unlock()
		return nil
	}
	s.connecting = true
	s.turn++
	turn := s.turn
	s.mu.Unlock()

	var callID string
	if s.dialer != nil {
		id, err := s.dialer.Dial(ctx)
		if err != nil {
			s.mu.Lock()
			if s.turn == turn {
				s.connecting = false
			}
			s.mu.Unlock()

			err = fmt.Errorf("failed to dial: %w", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		callID = id
		span.SetAttributes(attribute.String("call.id", callID))
	}

	s.mu.Lock()
	if s.turn != turn {
		s.mu.Unlock()
		if err := s.hangup(ctx, callID); err != nil {
			logger.Warn("failed to hang up abandoned call", "error", err)
		}
		return fmt.Errorf("%w: disconnected while dialing", ErrNotConnected)
	}
	s.connecting = false
	s.callID = callID
	s.mu.Unlock()

	logger.Info("ivr session connected", "session_id", s.id, "call_id", callID)
	return s.enter(ctx, turn, MainMenu, "")
}

// Disconnect stops listening and playback, hangs up and returns the session
// to Disconnected from any state.
func (s *Session) Disconnect(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "disconnect ivr session", trace.WithAttributes(attribute.String("session.id", s.id)))
	defer span.End()

	s.mu.Lock()
	if s.state == Disconnected && !s.connecting {
		s.mu.Unlock()
		return nil
	}
	s.turn++
	s.connecting = false
	callID := s.callID
	s.callID = ""
	s.retries = 0
	s.stopListenTimerLocked()
	changed := s.setStateLocked(Disconnected)
	s.menu = Menu{}
	s.mu.Unlock()

	s.listener.Stop()
	if err := s.speaker.Stop(); err != nil {
		logger.Warn("failed to stop prompt", "error", err)
	}
	s.emit(changed)

	if err := s.hangup(ctx, callID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	logger.Info("ivr session disconnected", "session_id", s.id, "call_id", callID)
	return nil
}

// GoTo enters menu and plays its prompt.
func (s *Session) GoTo(ctx context.Context, menu string) error {
	s.mu.Lock()
	if s.state == Disconnected {
		s.mu.Unlock()
		return ErrNotConnected
	}
	turn := s.turn
	s.mu.Unlock()

	return s.enter(ctx, turn, menu, "")
}

// StopListening ends the caller's answer and processes what was heard.
func (s *Session) StopListening(ctx context.Context) error {
	s.mu.Lock()
	state, turn := s.state, s.turn
	s.mu.Unlock()

	switch state {
	case Disconnected:
		return ErrNotConnected
	case AwaitingInput:
		s.finishListening(ctx, turn)
		return nil
	default:
		return ErrNotAwaitingInput
	}
}

// SubmitInput processes typed input as the caller's answer. It is accepted
// while the prompt is still playing and stops it.
func (s *Session) SubmitInput(ctx context.Context, text string) error {
	s.mu.Lock()
	switch s.state {
	case Disconnected:
		s.mu.Unlock()
		return ErrNotConnected
	case AtMenu, AwaitingInput:
	default:
		s.mu.Unlock()
		return ErrNotAwaitingInput
	}
	s.turn++
	turn := s.turn
	s.stopListenTimerLocked()
	changed := s.setStateLocked(Processing)
	s.mu.Unlock()

	s.emit(changed)
	if err := s.speaker.Stop(); err != nil {
		logger.Warn("failed to stop prompt", "error", err)
	}
	s.listener.Stop()
	s.process(ctx, turn, text)
	return nil
}

func (s *Session) enter(ctx context.Context, turn uint64, name, preface string) error {
	ctx, span := tracer.Start(ctx, "enter menu", trace.WithAttributes(attribute.String("menu", name)))
	defer span.End()

	menu, ok := s.menus.Menu(name)
	if !ok {
		err := fmt.Errorf("%w: %q", ErrUnknownMenu, name)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	s.mu.Lock()
	if s.turn != turn {
		s.mu.Unlock()
		return nil
	}
	s.turn++
	turn = s.turn
	if s.menu.Name != name {
		s.retries = 0
	}
	s.menu = menu
	s.stopListenTimerLocked()
	changed := s.setStateLocked(AtMenu)
	s.mu.Unlock()

	s.listener.Stop()
	s.emit(changed)
	s.emitEvent(events.NewSessionMenuEntered(menu.Name, menu.Prompt.Spoken()))

	if !s.speaker.Enabled() {
		s.awaitInput(ctx, turn)
		return nil
	}

	promptDone := func() { s.awaitInput(ctx, turn) }
	text := strings.TrimSpace(preface + " " + menu.Prompt.Spoken())
	err := s.speaker.Speak(ctx, text,
		voice.OnEnded(promptDone),
		voice.OnFailed(func(err error) {
			logger.Warn("menu prompt failed, waiting for input", "menu", menu.Name, "error", err)
			promptDone()
		}),
	)
	if err != nil {
		logger.Warn("failed to play menu prompt", "menu", menu.Name, "error", err)
		promptDone()
	}
	return nil
}

func (s *Session) awaitInput(ctx context.Context, turn uint64) {
	s.mu.Lock()
	if s.turn != turn || s.state != AtMenu {
		s.mu.Unlock()
		return
	}
	changed := s.setStateLocked(AwaitingInput)
	locale := s.locale
	s.mu.Unlock()

	s.emit(changed)
	if err := s.listener.Start(ctx, locale, voice.OnSpeechEnded(func() { s.finishListening(ctx, turn) })); err != nil {
		// Typed input has no deadline.
		logger.Warn("voice input unavailable, waiting for typed input", "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listenTimeout > 0 && s.turn == turn && s.state == AwaitingInput {
		s.listenTimer = time.AfterFunc(s.listenTimeout, func() { s.finishListening(ctx, turn) })
	}
}

func (s *Session) finishListening(ctx context.Context, turn uint64) {
	s.mu.Lock()
	if s.turn != turn || s.state != AwaitingInput {
		s.mu.Unlock()
		return
	}
	s.turn++
	turn = s.turn
	s.stopListenTimerLocked()
	changed := s.setStateLocked(Processing)
	s.mu.Unlock()

	s.emit(changed)
	transcript := s.listener.Stop()
	s.process(ctx, turn, transcript)
}

func (s *Session) process(ctx context.Context, turn uint64, input string) {
	s.mu.Lock()
	if s.turn != turn {
		s.mu.Unlock()
		return
	}
	menu := s.menu
	s.mu.Unlock()

	if !menu.IsFreeText() {
		option, ok := Match(menu.Options, input)
		if !ok {
			s.unmatched(ctx, turn, menu, input, Prompt{})
			return
		}
		s.resolve(ctx, turn, Command{Action: option.Action, Option: option, Menu: menu.Name, Transcript: input}, option.Next)
		return
	}

	value, ok := s.extractors[menu.Extract](input)
	if !ok {
		s.unmatched(ctx, turn, menu, input, NotUnderstood)
		return
	}
	s.resolve(ctx, turn, Command{Action: menu.Action, Menu: menu.Name, Value: value, Transcript: input}, "")
}

func (s *Session) unmatched(ctx context.Context, turn uint64, menu Menu, input string, notice Prompt) {
	s.mu.Lock()
	if s.turn != turn {
		s.mu.Unlock()
		return
	}
	s.retries++
	attempt := s.retries
	escalate := s.maxRetries > 0 && attempt >= s.maxRetries
	s.mu.Unlock()

	s.emitEvent(events.NewSessionInputUnmatched(menu.Name, input, attempt))
	if escalate {
		logger.Info("escalating after unmatched input", "menu", menu.Name, "attempts", attempt)
		s.resolve(ctx, turn, Command{Action: s.escalateAction, Menu: menu.Name, Transcript: input}, "")
		return
	}

	if err := s.enter(ctx, turn, menu.Name, notice.Spoken()); err != nil {
		logger.Warn("failed to re-enter menu", "menu", menu.Name, "error", err)
	}
}

func (s *Session) resolve(ctx context.Context, turn uint64, cmd Command, next string) {
	ctx, span := tracer.Start(ctx, "resolve command", trace.WithAttributes(
		attribute.String("menu", cmd.Menu),
		attribute.String("action", cmd.Action),
	))
	defer span.End()

	s.mu.Lock()
	if s.turn != turn {
		s.mu.Unlock()
		return
	}
	s.turn++
	turn = s.turn
	s.retries = 0
	cmd.CallID = s.callID
	changed := s.setStateLocked(Confirming)
	handler := s.handleCommand
	s.mu.Unlock()

	s.emit(changed)
	s.emitEvent(events.NewSessionCommandResolved(cmd.Menu, cmd.Action, cmd.Value))
	logger.Info("resolved ivr command", "menu", cmd.Menu, "action", cmd.Action, "value", cmd.Value)

	transition := Follow()
	if handler != nil {
		transition = handler(ctx, cmd)
	}
	s.apply(ctx, turn, transition, next)
}

func (s *Session) apply(ctx context.Context, turn uint64, transition Transition, next string) {
	s.mu.Lock()
	current := s.menu.Name
	stale := s.turn != turn
	s.mu.Unlock()
	if stale {
		return
	}

	var target string
	switch transition.kind {
	case transitionFollow:
		target = next
	case transitionGoTo:
		target = transition.menu
	case transitionReprompt:
		target = current
	case transitionHangup:
		s.hangupAfter(ctx, turn, transition.preface)
		return
	}
	if target == "" {
		if transition.preface != "" && s.speaker.Enabled() {
			if err := s.speaker.Speak(ctx, transition.preface); err != nil {
				logger.Warn("failed to play announcement", "error", err)
			}
		}
		return
	}

	if err := s.enter(ctx, turn, target, transition.preface); err != nil {
		logger.Warn("failed to enter menu", "menu", target, "error", err)
	}
}

// hangupAfter disconnects once announcement has been played. A disconnect or
// menu change in the meantime wins.
func (s *Session) hangupAfter(ctx context.Context, turn uint64, announcement string) {
	disconnect := func() {
		s.mu.Lock()
		stale := s.turn != turn
		s.mu.Unlock()
		if stale {
			return
		}
		if err := s.Disconnect(ctx); err != nil {
			logger.Warn("failed to hang up", "error", err)
		}
	}

	if announcement == "" || !s.speaker.Enabled() {
		disconnect()
		return
	}
	err := s.speaker.Speak(ctx, announcement,
		voice.OnEnded(disconnect),
		voice.OnFailed(func(error) { disconnect() }),
	)
	if err != nil {
		logger.Warn("failed to play announcement", "error", err)
		disconnect()
	}
}

func (s *Session) hangup(ctx context.Context, callID string) error {
	if s.dialer == nil || callID == "" {
		return nil
	}
	if err := s.dialer.Hangup(ctx, callID); err != nil {
		return fmt.Errorf("failed to hang up call %s: %w", callID, err)
	}
	return nil
}

func (s *Session) setStateLocked(to State) events.Event {
	from := s.state
	if from == to {
		return nil
	}
	s.state = to
	return events.NewSessionStateChanged(from.String(), to.String(), s.menu.Name)
}

func (s *Session) stopListenTimerLocked() {
	if s.listenTimer != nil {
		s.listenTimer.Stop()
		s.listenTimer = nil
	}
}

func (s *Session) emit(event events.Event) {
	if event != nil {
		s.emitEvent(event)
	}
}
