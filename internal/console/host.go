// Package console hosts the voice session for a terminal user: typed and
// spoken chat with the support backend, and the IVR call.
package console

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	voice "github.com/koscakluka/ema-ivr/core"
	"github.com/koscakluka/ema-ivr/core/backend"
	"github.com/koscakluka/ema-ivr/core/bridge"
	"github.com/koscakluka/ema-ivr/core/events"
	"github.com/koscakluka/ema-ivr/core/ivr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// IVR actions handled by the host.
const (
	ActionCheckOrder    = "check_order"
	ActionOrderLookup   = "order_lookup"
	ActionProductInfo   = "product_info"
	ActionProductLookup = "product_lookup"
	ActionTalkToAgent   = "talk_to_agent"
)

var ErrCallActive = errors.New("an ivr call is in progress")

var (
	handoffPrompt = ivr.Prompt{
		Local:   "আপনাকে একজন এজেন্টের সাথে সংযুক্ত করা হচ্ছে। ধন্যবাদ।",
		English: "Connecting you to an agent. Thank you.",
	}
	unavailablePrompt = ivr.Prompt{
		Local:   "দুঃখিত, এই মুহূর্তে তথ্য পাওয়া যাচ্ছে না।",
		English: "Sorry, that information is not available right now.",
	}
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleMenu      Role = "menu"
	RoleSystem    Role = "system"
	RoleError     Role = "error"
)

// Entry is a line of the conversation shown to the user.
type Entry struct {
	Role Role
	Text string
}

// Backend answers chat messages.
type Backend interface {
	Chat(ctx context.Context, agentID string, request backend.ChatRequest) (backend.ChatResponse, error)
}

type Host struct {
	capture  *voice.Capture
	playback *voice.Playback
	bridge   *bridge.Bridge
	session  *ivr.Session
	backend  Backend
	detach   func()

	agentID      string
	locale       string
	onEntry      func(Entry)
	onTranscript func(string)
	onEvent      events.Handler
	sessionOpts  []ivr.SessionOption
	playbackOpts []voice.PlaybackOption

	mu             sync.Mutex
	conversationID string
}

type HostOption func(*Host)

func WithAgentID(agentID string) HostOption {
	return func(h *Host) { h.agentID = agentID }
}

// WithLocale sets the recognition locale for chat and IVR alike.
func WithLocale(locale string) HostOption {
	return func(h *Host) { h.locale = locale }
}

// WithEntryHandler receives every conversation line. It may be called from
// engine goroutines.
func WithEntryHandler(handler func(Entry)) HostOption {
	return func(h *Host) { h.onEntry = handler }
}

// WithTranscriptHandler receives the finished transcript of voice input in
// chat mode.
func WithTranscriptHandler(handler func(string)) HostOption {
	return func(h *Host) { h.onTranscript = handler }
}

// WithEventHandler receives every capture, playback and session event.
func WithEventHandler(handler events.Handler) HostOption {
	return func(h *Host) { h.onEvent = handler }
}

func WithSessionOptions(opts ...ivr.SessionOption) HostOption {
	return func(h *Host) { h.sessionOpts = append(h.sessionOpts, opts...) }
}

func WithPlaybackOptions(opts ...voice.PlaybackOption) HostOption {
	return func(h *Host) { h.playbackOpts = append(h.playbackOpts, opts...) }
}

// NewHost wires capture, playback and the IVR session around the given
// engines. A nil recognizer or synthesizer leaves that side text-only.
func NewHost(recognizer voice.Recognizer, synthesizer voice.Synthesizer, client Backend, opts ...HostOption) (*Host, error) {
	if client == nil {
		return nil, fmt.Errorf("console host needs a backend")
	}

	h := &Host{
		backend: client,
		agentID: "default",
		locale:  ivr.DefaultLocale,
		onEntry: func(Entry) {},
		onEvent: events.Noop,
		bridge:  bridge.New(),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.capture = voice.NewCapture(recognizer, voice.WithCaptureEventHandler(h.handleEvent))
	h.playback = voice.NewPlayback(synthesizer, append(h.playbackOpts, voice.WithPlaybackEventHandler(h.handleEvent))...)
	if !h.playback.IsSupported() {
		h.playback.SetEnabled(false)
	}
	h.detach = h.playback.Attach(context.Background(), h.bridge)

	sessionOpts := append([]ivr.SessionOption{
		ivr.WithLocale(h.locale),
		ivr.WithEventHandler(h.handleEvent),
		ivr.WithCommandHandler(h.handleCommand),
	}, h.sessionOpts...)
	session, err := ivr.NewSession(h.capture, h.playback, sessionOpts...)
	if err != nil {
		h.detach()
		return nil, fmt.Errorf("failed to create ivr session: %w", err)
	}
	h.session = session

	return h, nil
}

// Bridge is where chat replies are published for playback.
func (h *Host) Bridge() *bridge.Bridge { return h.bridge }

// Send handles a typed or dictated message. During a call it answers the
// current menu, otherwise it goes to the backend. On a backend failure the
// error is returned so the caller can keep the input for a retry.
func (h *Host) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if h.InCall() {
		h.onEntry(Entry{Role: RoleUser, Text: text})
		if err := h.session.SubmitInput(ctx, text); err != nil {
			h.onEntry(Entry{Role: RoleSystem, Text: "Please wait for the menu to finish."})
			return err
		}
		return nil
	}

	h.onEntry(Entry{Role: RoleUser, Text: text})
	reply, err := h.ask(ctx, text, nil)
	if err != nil {
		h.onEntry(Entry{Role: RoleError, Text: failureMessage(err)})
		return err
	}

	h.onEntry(Entry{Role: RoleAssistant, Text: reply})
	h.bridge.Publish(reply)
	return nil
}

func (h *Host) ask(ctx context.Context, message string, metadata map[string]string) (string, error) {
	ctx, span := tracer.Start(ctx, "ask backend", trace.WithAttributes(attribute.String("agent.id", h.agentID)))
	defer span.End()

	h.mu.Lock()
	conversationID := h.conversationID
	h.mu.Unlock()

	channel := "chat"
	if h.InCall() {
		channel = "ivr"
	}
	response, err := h.backend.Chat(ctx, h.agentID, backend.ChatRequest{
		Message:        message,
		ConversationID: conversationID,
		Channel:        channel,
		Language:       h.locale,
		Metadata:       metadata,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	if response.ConversationID != "" {
		h.mu.Lock()
		h.conversationID = response.ConversationID
		h.mu.Unlock()
	}

	reply := response.Text()
	if reply == "" {
		return "", fmt.Errorf("%w: empty reply", backend.ErrTransportFailure)
	}
	return reply, nil
}

// StartVoiceInput starts dictating a chat message. The transcript goes to the
// transcript handler when the speaker pauses or StopVoiceInput is called.
func (h *Host) StartVoiceInput(ctx context.Context) error {
	if h.InCall() {
		return ErrCallActive
	}

	if err := h.playback.Stop(); err != nil {
		logger.Warn("failed to stop playback before listening", "error", err)
	}
	err := h.capture.Start(ctx, h.locale, voice.OnSpeechEnded(func() { h.StopVoiceInput() }))
	if errors.Is(err, voice.ErrUnsupportedEnvironment) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to start voice input: %w", err)
	}
	return nil
}

// StopVoiceInput ends dictation and returns the transcript.
func (h *Host) StopVoiceInput() string {
	if h.InCall() || !h.capture.IsCapturing() {
		return ""
	}

	transcript := h.capture.Stop()
	if transcript != "" && h.onTranscript != nil {
		h.onTranscript(transcript)
	}
	return transcript
}

func (h *Host) IsListening() bool { return h.capture.IsCapturing() }

// SetSpeechEnabled turns spoken replies and prompts on or off. Without a
// synthesizer speech stays off.
func (h *Host) SetSpeechEnabled(enabled bool) {
	h.playback.SetEnabled(enabled && h.playback.IsSupported())
}

func (h *Host) SpeechEnabled() bool { return h.playback.Enabled() }

// StartCall connects the IVR session. Dictation in progress is discarded.
func (h *Host) StartCall(ctx context.Context) error {
	if h.capture.IsCapturing() {
		h.capture.Stop()
	}

	h.onEntry(Entry{Role: RoleSystem, Text: "Call started."})
	if err := h.session.Connect(ctx); err != nil {
		h.onEntry(Entry{Role: RoleError, Text: fmt.Sprintf("Could not start the call: %v", err)})
		return err
	}
	return nil
}

func (h *Host) EndCall(ctx context.Context) error {
	if !h.InCall() {
		return nil
	}
	return h.session.Disconnect(ctx)
}

func (h *Host) InCall() bool { return h.session.State() != ivr.Disconnected }

func (h *Host) CallState() ivr.State { return h.session.State() }

// Close ends the call and detaches playback from the bridge.
func (h *Host) Close(ctx context.Context) {
	if err := h.session.Disconnect(ctx); err != nil {
		logger.Warn("failed to end call on close", "error", err)
	}
	h.capture.Stop()
	if err := h.playback.Stop(); err != nil {
		logger.Warn("failed to stop playback on close", "error", err)
	}
	h.detach()
}

func (h *Host) handleCommand(ctx context.Context, cmd ivr.Command) ivr.Transition {
	switch cmd.Action {
	case ActionCheckOrder, ActionProductInfo:
		return ivr.Follow()

	case ActionOrderLookup:
		return h.answer(ctx, cmd, fmt.Sprintf("What is the status of order %s?", cmd.Value))

	case ActionProductLookup:
		return h.answer(ctx, cmd, fmt.Sprintf("Tell me about the product %s.", cmd.Value))

	case ActionTalkToAgent, ivr.DefaultEscalateAction:
		h.onEntry(Entry{Role: RoleSystem, Text: "Transferring to an agent."})
		return ivr.Hangup().Announcing(handoffPrompt.Spoken())

	default:
		logger.Warn("unhandled ivr action", "action", cmd.Action, "menu", cmd.Menu)
		return ivr.Reprompt()
	}
}

// answer asks the backend and speaks its reply ahead of the main menu.
func (h *Host) answer(ctx context.Context, cmd ivr.Command, question string) ivr.Transition {
	reply, err := h.ask(ctx, question, map[string]string{
		"action":  cmd.Action,
		"value":   cmd.Value,
		"call_id": cmd.CallID,
	})
	if err != nil {
		logger.Warn("backend lookup failed", "action", cmd.Action, "error", err)
		h.onEntry(Entry{Role: RoleError, Text: failureMessage(err)})
		return ivr.GoTo(ivr.MainMenu).Announcing(unavailablePrompt.Spoken())
	}

	h.onEntry(Entry{Role: RoleAssistant, Text: reply})
	return ivr.GoTo(ivr.MainMenu).Announcing(reply)
}

func (h *Host) handleEvent(event events.Event) {
	switch e := event.(type) {
	case events.CaptureUnavailable:
		h.onEntry(Entry{Role: RoleSystem, Text: "Voice input is not available. Type your message instead."})
	case events.CaptureFailed:
		if e.PermissionDenied {
			h.onEntry(Entry{Role: RoleError, Text: "Microphone access was denied. Allow it and turn voice input on again."})
		} else {
			h.onEntry(Entry{Role: RoleError, Text: fmt.Sprintf("Voice input stopped: %v", e.Err)})
		}
	case events.PlaybackFailed:
		if errors.Is(e.Err, voice.ErrUnsupportedEnvironment) {
			h.onEntry(Entry{Role: RoleSystem, Text: "Speech output is not available. Replies are shown as text."})
		}
	case events.SessionMenuEntered:
		h.onEntry(Entry{Role: RoleMenu, Text: e.Prompt})
	case events.SessionInputUnmatched:
		h.onEntry(Entry{Role: RoleSystem, Text: fmt.Sprintf("No option matched %q (attempt %d).", e.Transcript, e.Attempt)})
	}
	h.onEvent(event)
}

func failureMessage(err error) string {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		return "The assistant could not answer: " + apiErr.Message()
	}
	return "The assistant is not reachable. Your message was kept, try again."
}
