package ivr

import (
	"context"
	"time"

	voice "github.com/koscakluka/ema-ivr/core"
	"github.com/koscakluka/ema-ivr/core/events"
)

const (
	DefaultLocale         = "bn-BD"
	DefaultMaxRetries     = 3
	DefaultEscalateAction = "escalate_to_agent"
)

// Listener captures one spoken answer at a time.
type Listener interface {
	Start(ctx context.Context, locale string, opts ...voice.ListenOption) error
	Stop() string
}

// Speaker plays prompts.
type Speaker interface {
	Speak(ctx context.Context, text string, opts ...voice.SpeakOption) error
	Stop() error
	Enabled() bool
}

// Dialer places the telephony leg of a session.
type Dialer interface {
	Dial(ctx context.Context) (callID string, err error)
	Hangup(ctx context.Context, callID string) error
}

type SessionOption func(*Session)

func WithMenus(menus MenuSet) SessionOption {
	return func(s *Session) { s.menus = menus }
}

// WithExtractor registers an extractor for free-text menus under name.
func WithExtractor(name string, extractor Extractor) SessionOption {
	return func(s *Session) {
		if extractor != nil {
			s.extractors[name] = extractor
		}
	}
}

// WithMaxRetries sets how many unmatched answers a menu accepts before the
// session escalates. Zero re-prompts forever.
func WithMaxRetries(maxRetries int) SessionOption {
	return func(s *Session) {
		if maxRetries >= 0 {
			s.maxRetries = maxRetries
		}
	}
}

func WithEscalateAction(action string) SessionOption {
	return func(s *Session) {
		if action != "" {
			s.escalateAction = action
		}
	}
}

// WithListenTimeout stops listening after timeout even when the recognizer
// never detects the end of speech. Zero disables the timeout.
func WithListenTimeout(timeout time.Duration) SessionOption {
	return func(s *Session) { s.listenTimeout = timeout }
}

func WithLocale(locale string) SessionOption {
	return func(s *Session) {
		if locale != "" {
			s.locale = locale
		}
	}
}

func WithEventHandler(handler events.Handler) SessionOption {
	return func(s *Session) {
		if handler != nil {
			s.emitEvent = handler
		}
	}
}

func WithDialer(dialer Dialer) SessionOption {
	return func(s *Session) { s.dialer = dialer }
}

func WithCommandHandler(handler CommandHandler) SessionOption {
	return func(s *Session) { s.handleCommand = handler }
}
