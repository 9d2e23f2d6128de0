package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-ivr/core/audio"
	"github.com/koscakluka/ema-ivr/core/speechtotext"
)

const (
	defaultListenURL = "wss://api.deepgram.com/v1/listen"
	defaultModel     = "nova-2"

	keepAliveInterval = 5 * time.Second
)

// Recognizer streams microphone audio to Deepgram's live transcription
// endpoint. One recognition runs at a time.
type Recognizer struct {
	apiKey    string
	model     string
	listenURL string
	source    audio.Source
	dialer    *websocket.Dialer

	mu     sync.Mutex
	active *recognition
}

type RecognizerOption func(*Recognizer)

func WithModel(model string) RecognizerOption {
	return func(r *Recognizer) {
		if model != "" {
			r.model = model
		}
	}
}

func WithListenURL(listenURL string) RecognizerOption {
	return func(r *Recognizer) {
		if listenURL != "" {
			r.listenURL = listenURL
		}
	}
}

func NewRecognizer(apiKey string, source audio.Source, opts ...RecognizerOption) (*Recognizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("deepgram api key not set")
	}
	if source == nil {
		return nil, fmt.Errorf("audio source not set")
	}

	r := &Recognizer{
		apiKey:    apiKey,
		model:     defaultModel,
		listenURL: defaultListenURL,
		source:    source,
		dialer:    websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Recognizer) Start(ctx context.Context, opts ...speechtotext.RecognitionOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		return nil
	}

	options := speechtotext.NewRecognitionOptions(
		append([]speechtotext.RecognitionOption{speechtotext.WithEncodingInfo(r.source.EncodingInfo())}, opts...)...,
	)
	encoding, err := convertEncoding(options.EncodingInfo)
	if err != nil {
		return fmt.Errorf("invalid encoding: %w", err)
	}

	listenURL, err := r.buildListenURL(encoding, options.Locale)
	if err != nil {
		return err
	}

	conn, resp, err := r.dialer.DialContext(ctx, listenURL, http.Header{"Authorization": {"Token " + r.apiKey}})
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return fmt.Errorf("deepgram refused connection (%s): %w", resp.Status, speechtotext.ErrPermissionDenied)
		}
		return fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	rec := &recognition{
		conn:    conn,
		options: options,
		cancel:  cancel,
	}

	if err := r.source.StartCapture(runCtx, rec.sendAudio); err != nil {
		cancel()
		_ = conn.Close()
		return fmt.Errorf("failed to start audio capture: %w", err)
	}

	r.active = rec
	go rec.readMessages(func() { r.release(rec) })
	go rec.keepAlive(runCtx)

	return nil
}

func (r *Recognizer) Stop() error {
	r.mu.Lock()
	rec := r.active
	r.active = nil
	r.mu.Unlock()
	if rec == nil {
		return nil
	}

	var stopErr error
	if err := r.source.StopCapture(); err != nil {
		stopErr = errors.Join(stopErr, fmt.Errorf("failed to stop audio capture: %w", err))
	}
	if err := rec.close(); err != nil {
		stopErr = errors.Join(stopErr, err)
	}
	return stopErr
}

// release forgets a recognition that ended on its own.
func (r *Recognizer) release(rec *recognition) {
	r.mu.Lock()
	owned := r.active == rec
	if owned {
		r.active = nil
	}
	r.mu.Unlock()

	if owned {
		if err := r.source.StopCapture(); err != nil {
			logger.Warn("failed to stop audio capture", "error", err)
		}
	}
}

func (r *Recognizer) buildListenURL(encoding encodingInfo, locale string) (string, error) {
	listenURL, err := url.Parse(r.listenURL)
	if err != nil {
		return "", fmt.Errorf("invalid listen url: %w", err)
	}

	queryParams := listenURL.Query()
	queryParams.Set("encoding", encoding.format)
	queryParams.Set("sample_rate", strconv.Itoa(encoding.sampleRate))
	queryParams.Set("channels", "1")
	queryParams.Set("model", r.model)
	queryParams.Set("language", locale)
	queryParams.Set("smart_format", "true")
	queryParams.Set("interim_results", "true")
	queryParams.Set("utterance_end_ms", "1000")
	queryParams.Set("endpointing", "300")
	queryParams.Set("vad_events", "true")
	listenURL.RawQuery = queryParams.Encode()

	return listenURL.String(), nil
}

type recognition struct {
	conn   *websocket.Conn
	connMu sync.Mutex

	options speechtotext.RecognitionOptions
	cancel  context.CancelFunc

	closed    atomic.Bool
	lastAudio atomic.Int64

	// unendedSegment is only touched from the read loop.
	unendedSegment bool
}

func (r *recognition) sendAudio(frame []byte) {
	if r.closed.Load() {
		return
	}

	r.connMu.Lock()
	defer r.connMu.Unlock()
	r.lastAudio.Store(time.Now().UnixNano())
	if err := r.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		logger.Debug("failed to write audio to deepgram", "error", err)
	}
}

func (r *recognition) writeControl(msgType api.TypeResponse) error {
	r.connMu.Lock()
	defer r.connMu.Unlock()
	return r.conn.WriteJSON(struct {
		Type string `json:"type"`
	}{Type: string(msgType)})
}

func (r *recognition) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if time.Since(time.Unix(0, r.lastAudio.Load())) < keepAliveInterval {
				continue
			}
			if err := r.writeControl("KeepAlive"); err != nil {
				logger.Debug("failed to send deepgram keep alive", "error", err)
			}
		}
	}
}

func (r *recognition) close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	r.cancel()

	if err := r.writeControl(api.TypeCloseStreamResponse); err != nil {
		if closeErr := r.conn.Close(); closeErr != nil {
			return fmt.Errorf("failed to close deepgram stream: %w", errors.Join(err, closeErr))
		}
	}
	return nil
}

func (r *recognition) readMessages(onEnded func()) {
	defer onEnded()
	defer r.conn.Close()

	for {
		msgType, msg, err := r.conn.ReadMessage()
		if err != nil {
			if !r.closed.Load() && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				r.options.ErrorCallback(fmt.Errorf("deepgram stream failed: %w", err))
			}
			r.closed.Store(true)
			r.cancel()
			return
		}
		if msgType == websocket.TextMessage {
			r.handleMessage(msg)
		}
	}
}

func (r *recognition) handleMessage(msg []byte) {
	var parsedMsg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		logger.Warn("failed to unmarshal deepgram message", "error", err)
		return
	}

	switch api.TypeResponse(parsedMsg.Type) {
	case api.TypeMessageResponse:
		var msgResp api.MessageResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			logger.Warn("failed to unmarshal deepgram results", "error", err)
			return
		}

		transcript := ""
		if len(msgResp.Channel.Alternatives) > 0 {
			transcript = strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript)
		}

		if msgResp.IsFinal {
			r.options.InterimCallback("")
			if transcript != "" {
				r.options.SegmentCallback(transcript)
			}
			if msgResp.SpeechFinal {
				r.speechEnded()
			}
		} else if transcript != "" {
			r.options.InterimCallback(transcript)
		}

	case api.TypeSpeechStartedResponse:
		r.unendedSegment = true

	case api.TypeUtteranceEndResponse:
		if r.unendedSegment {
			r.speechEnded()
		}
	}
}

func (r *recognition) speechEnded() {
	r.unendedSegment = false
	r.options.SpeechEndedCallback()
}
