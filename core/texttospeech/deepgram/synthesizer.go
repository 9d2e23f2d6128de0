package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-ivr/core/audio"
	"github.com/koscakluka/ema-ivr/core/texttospeech"
)

const defaultSpeakURL = "wss://api.deepgram.com/v1/speak"

// Synthesizer speaks text through Deepgram's streaming speak endpoint and
// plays the audio on a Sink. Deepgram has no prosody controls, so Rate, Pitch
// and Volume are not forwarded.
type Synthesizer struct {
	apiKey   string
	speakURL string
	sink     audio.Sink
	dialer   *websocket.Dialer
}

type SynthesizerOption func(*Synthesizer)

func WithSpeakURL(speakURL string) SynthesizerOption {
	return func(s *Synthesizer) {
		if speakURL != "" {
			s.speakURL = speakURL
		}
	}
}

func NewSynthesizer(apiKey string, sink audio.Sink, opts ...SynthesizerOption) (*Synthesizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("deepgram api key not set")
	}
	if sink == nil {
		return nil, fmt.Errorf("audio sink not set")
	}

	s := &Synthesizer{
		apiKey:   apiKey,
		speakURL: defaultSpeakURL,
		sink:     sink,
		dialer:   websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Synthesizer) Voices(context.Context) ([]texttospeech.Voice, error) {
	return GetAvailableVoices(), nil
}

func (s *Synthesizer) Speak(ctx context.Context, text string, opts ...texttospeech.UtteranceOption) (texttospeech.Utterance, error) {
	options := texttospeech.NewUtteranceOptions(
		append([]texttospeech.UtteranceOption{texttospeech.WithEncodingInfo(s.sink.EncodingInfo())}, opts...)...,
	)

	voice := options.Voice.ID
	if voice == "" {
		voice = defaultVoice
	}

	speakURL, err := s.buildSpeakURL(voice, options.EncodingInfo)
	if err != nil {
		return nil, err
	}

	conn, _, err := s.dialer.DialContext(ctx, speakURL, http.Header{"Authorization": {"Token " + s.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	u := &utterance{
		id:      uuid.NewString(),
		conn:    conn,
		sink:    s.sink,
		options: options,
	}

	if err := u.writeJSON(speakMessage{Type: "Speak", Text: text}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to send text to deepgram: %w", err)
	}
	if err := u.writeJSON(controlMessage{Type: "Flush"}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to flush deepgram buffer: %w", err)
	}

	go u.readMessages()
	return u, nil
}

func (s *Synthesizer) buildSpeakURL(voice string, encodingInfo audio.EncodingInfo) (string, error) {
	speakURL, err := url.Parse(s.speakURL)
	if err != nil {
		return "", fmt.Errorf("invalid speak url: %w", err)
	}

	urlValues := speakURL.Query()
	urlValues.Set("encoding", encodingInfo.Format.Name())
	urlValues.Set("sample_rate", strconv.Itoa(encodingInfo.SampleRate))
	urlValues.Set("model", voice)
	urlValues.Set("container", "none")
	speakURL.RawQuery = urlValues.Encode()

	return speakURL.String(), nil
}

type speakMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type controlMessage struct {
	Type string `json:"type"`
}

type utterance struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
	sink audio.Sink

	options texttospeech.UtteranceOptions

	started   atomic.Bool
	finished  atomic.Bool
	cancelled atomic.Bool
	closeOnce sync.Once
}

func (u *utterance) writeJSON(msg any) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.conn.WriteJSON(msg)
}

func (u *utterance) readMessages() {
	for {
		msgType, msg, err := u.conn.ReadMessage()
		if err != nil {
			if !u.cancelled.Load() && !u.finished.Load() && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				u.fail(fmt.Errorf("deepgram speak stream failed: %w", err))
			}
			u.close()
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			if u.cancelled.Load() {
				continue
			}
			if err := u.sink.SendAudio(msg); err != nil {
				u.fail(fmt.Errorf("failed to play synthesized audio: %w", err))
				u.close()
				return
			}
			if u.started.CompareAndSwap(false, true) {
				u.options.StartedCallback()
			}

		case websocket.TextMessage:
			var parsedMsg controlMessage
			if err := json.Unmarshal(msg, &parsedMsg); err != nil {
				logger.Warn("failed to unmarshal deepgram message", "error", err)
				continue
			}
			if parsedMsg.Type != "Flushed" {
				continue
			}

			// everything has been synthesized, the utterance ends once the
			// sink has played it
			u.finished.Store(true)
			if err := u.sink.Mark(u.id, func(string) { u.end() }); err != nil {
				u.fail(fmt.Errorf("failed to mark end of speech: %w", err))
			}
			_ = u.writeJSON(controlMessage{Type: "Close"})
		}
	}
}

func (u *utterance) end() {
	if u.cancelled.Load() {
		return
	}
	if !u.started.Load() {
		u.started.Store(true)
		u.options.StartedCallback()
	}
	u.options.EndedCallback()
}

func (u *utterance) fail(err error) {
	if u.cancelled.Load() {
		return
	}
	u.options.ErrorCallback(err)
}

func (u *utterance) Cancel() error {
	if !u.cancelled.CompareAndSwap(false, true) {
		return nil
	}

	u.sink.ClearBuffer()
	var cancelErr error
	if err := u.writeJSON(controlMessage{Type: "Clear"}); err != nil && !u.finished.Load() {
		cancelErr = fmt.Errorf("failed to clear deepgram buffer: %w", err)
	}
	if err := u.writeJSON(controlMessage{Type: "Close"}); err != nil {
		if closeErr := u.conn.Close(); closeErr != nil && cancelErr == nil {
			cancelErr = fmt.Errorf("failed to close websocket: %w", errors.Join(err, closeErr))
		}
	}
	return cancelErr
}

func (u *utterance) close() {
	u.closeOnce.Do(func() { _ = u.conn.Close() })
}
