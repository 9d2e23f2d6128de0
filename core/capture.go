package voice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/koscakluka/ema-ivr/core/events"
	"github.com/koscakluka/ema-ivr/core/speechtotext"
	"go.opentelemetry.io/otel/codes"
)

// Capture turns a continuous recognition stream into one transcript per
// listening session.
//
// The transcript is reset when listening starts and finalized when it stops.
// Results delivered by the recognizer after Stop, or for a superseded session,
// are dropped.
type Capture struct {
	mu         sync.Mutex
	recognizer Recognizer

	capturing bool
	// generation identifies the current listening session. It changes on
	// every start, stop and failure.
	generation uint64

	segments []string
	interim  string

	emitEvent events.Handler
}

func NewCapture(recognizer Recognizer, opts ...CaptureOption) *Capture {
	c := &Capture{
		recognizer: recognizer,
		emitEvent:  events.Noop,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins listening in locale. Starting while already listening is a
// no-op. Without a recognizer Start emits a warning event and returns
// ErrUnsupportedEnvironment.
func (c *Capture) Start(ctx context.Context, locale string, opts ...ListenOption) error {
	if c == nil {
		return ErrUnsupportedEnvironment
	}

	ctx, span := tracer.Start(ctx, "start capture")
	defer span.End()

	listen := listenOptions{}
	for _, opt := range opts {
		opt(&listen)
	}

	c.mu.Lock()
	if c.capturing {
		c.mu.Unlock()
		return nil
	}
	recognizer := c.recognizer
	if recognizer == nil {
		c.mu.Unlock()
		c.emitEvent(events.NewCaptureUnavailable(UnsupportedCaptureMessage))
		return ErrUnsupportedEnvironment
	}

	c.generation++
	generation := c.generation
	c.segments = nil
	c.interim = ""
	c.capturing = true
	c.mu.Unlock()

	err := recognizer.Start(ctx,
		speechtotext.WithLocale(locale),
		speechtotext.WithSegmentCallback(func(segment string) { c.addSegment(generation, segment) }),
		speechtotext.WithInterimCallback(func(interim string) { c.setInterim(generation, interim) }),
		speechtotext.WithSpeechEndedCallback(func() { c.speechEnded(generation, listen.onSpeechEnded) }),
		speechtotext.WithErrorCallback(func(err error) { c.fail(generation, err) }),
	)
	if err != nil {
		c.mu.Lock()
		if c.generation == generation {
			c.capturing = false
			c.generation++
		}
		c.mu.Unlock()

		err = fmt.Errorf("failed to start speech recognition: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.emitEvent(events.NewCaptureFailed(err, errors.Is(err, speechtotext.ErrPermissionDenied)))
		return err
	}

	c.mu.Lock()
	superseded := c.generation != generation
	c.mu.Unlock()

	// Stop ran while the engine was starting
	if superseded {
		if err := recognizer.Stop(); err != nil {
			logger.Warn("failed to stop superseded speech recognition", "error", err)
		}
		return nil
	}

	c.emitEvent(events.NewCaptureStarted(locale))
	return nil
}

// Stop ends listening and returns the transcript trimmed of surrounding
// whitespace. Without an active session it returns "" and does nothing.
func (c *Capture) Stop() string {
	if c == nil {
		return ""
	}

	c.mu.Lock()
	if !c.capturing {
		c.mu.Unlock()
		return ""
	}
	c.capturing = false
	c.generation++
	transcript := strings.TrimSpace(c.transcriptLocked())
	recognizer := c.recognizer
	c.mu.Unlock()

	if err := recognizer.Stop(); err != nil {
		logger.Warn("failed to stop speech recognition", "error", err)
	}

	c.emitEvent(events.NewCaptureStopped())
	if transcript != "" {
		c.emitEvent(events.NewCaptureTranscriptFinal(transcript))
	}
	return transcript
}

// Transcript returns the live transcript of the current or last session.
func (c *Capture) Transcript() string {
	if c == nil {
		return ""
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcriptLocked()
}

func (c *Capture) IsCapturing() bool {
	if c == nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capturing
}

// IsSupported reports whether a recognizer is configured.
func (c *Capture) IsSupported() bool {
	return c != nil && c.recognizer != nil
}

func (c *Capture) transcriptLocked() string {
	parts := c.segments
	if c.interim != "" {
		parts = append(parts[:len(parts):len(parts)], c.interim)
	}
	return strings.Join(parts, " ")
}

func (c *Capture) isCurrent(generation uint64) bool {
	return c.capturing && c.generation == generation
}

func (c *Capture) addSegment(generation uint64, segment string) {
	c.mu.Lock()
	if !c.isCurrent(generation) {
		c.mu.Unlock()
		return
	}
	if segment = strings.TrimSpace(segment); segment != "" {
		c.segments = append(c.segments, segment)
	}
	c.interim = ""
	transcript := c.transcriptLocked()
	c.mu.Unlock()

	c.emitEvent(events.NewCaptureTranscriptUpdated(transcript))
}

func (c *Capture) setInterim(generation uint64, interim string) {
	c.mu.Lock()
	if !c.isCurrent(generation) {
		c.mu.Unlock()
		return
	}
	c.interim = strings.TrimSpace(interim)
	transcript := c.transcriptLocked()
	c.mu.Unlock()

	c.emitEvent(events.NewCaptureTranscriptUpdated(transcript))
}

func (c *Capture) speechEnded(generation uint64, callback func()) {
	c.mu.Lock()
	current := c.isCurrent(generation)
	c.mu.Unlock()
	if !current {
		return
	}

	c.emitEvent(events.NewCaptureSpeechEnded())
	if callback != nil {
		callback()
	}
}

func (c *Capture) fail(generation uint64, err error) {
	c.mu.Lock()
	if !c.isCurrent(generation) {
		c.mu.Unlock()
		return
	}
	c.capturing = false
	c.generation++
	c.mu.Unlock()

	permissionDenied := errors.Is(err, speechtotext.ErrPermissionDenied)
	logger.Warn("speech recognition failed", "error", err, "permission_denied", permissionDenied)
	c.emitEvent(events.NewCaptureFailed(err, permissionDenied))
}
