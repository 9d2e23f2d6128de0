package deepgram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-ivr/core/audio"
	"github.com/koscakluka/ema-ivr/core/texttospeech"
)

type testSink struct {
	mu      sync.Mutex
	audio   []byte
	marks   []string
	cleared int
}

func (s *testSink) EncodingInfo() audio.EncodingInfo { return audio.GetDefaultEncodingInfo() }

func (s *testSink) SendAudio(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audio = append(s.audio, frame...)
	return nil
}

func (s *testSink) Mark(name string, callback func(string)) error {
	s.mu.Lock()
	s.marks = append(s.marks, name)
	s.mu.Unlock()
	callback(name)
	return nil
}

func (s *testSink) ClearBuffer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared++
	s.audio = nil
}

func newSpeakServer(t *testing.T, received chan<- string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("model"); got == "" {
			t.Errorf("expected model query parameter")
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		for {
			var msg struct {
				Type string `json:"type"`
				Text string `json:"text"`
			}
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			received <- msg.Type
			switch msg.Type {
			case "Flush":
				_ = conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3, 4})
				_ = conn.WriteJSON(map[string]any{"type": "Flushed", "sequence_id": 0})
			case "Close":
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
		}
	}))
}

func TestSpeakPlaysAudioAndReportsLifecycle(t *testing.T) {
	received := make(chan string, 10)
	server := newSpeakServer(t, received)
	defer server.Close()

	sink := &testSink{}
	synthesizer, err := NewSynthesizer("key", sink, WithSpeakURL("ws"+strings.TrimPrefix(server.URL, "http")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	started := make(chan struct{}, 1)
	ended := make(chan struct{}, 1)
	_, err = synthesizer.Speak(context.Background(), "hello",
		texttospeech.WithStartedCallback(func() { started <- struct{}{} }),
		texttospeech.WithEndedCallback(func() { ended <- struct{}{} }),
		texttospeech.WithErrorCallback(func(err error) { t.Errorf("unexpected error callback: %v", err) }),
	)
	if err != nil {
		t.Fatalf("unexpected speak error: %v", err)
	}

	for _, expected := range []string{"Speak", "Flush"} {
		select {
		case got := <-received:
			if got != expected {
				t.Fatalf("expected %q message, got %q", expected, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %q message", expected)
		}
	}

	for name, ch := range map[string]chan struct{}{"started": started, "ended": ended} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s callback", name)
		}
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.audio) != 4 {
		t.Fatalf("expected 4 bytes of audio sent to sink, got %d", len(sink.audio))
	}
	if len(sink.marks) != 1 {
		t.Fatalf("expected one end mark, got %d", len(sink.marks))
	}
}

func TestCancelClearsSinkAndIsIdempotent(t *testing.T) {
	received := make(chan string, 10)
	server := newSpeakServer(t, received)
	defer server.Close()

	sink := &testSink{}
	synthesizer, err := NewSynthesizer("key", sink, WithSpeakURL("ws"+strings.TrimPrefix(server.URL, "http")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	utterance, err := synthesizer.Speak(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected speak error: %v", err)
	}

	_ = utterance.Cancel()
	_ = utterance.Cancel()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.cleared != 1 {
		t.Fatalf("expected sink to be cleared once, got %d", sink.cleared)
	}
}

func TestVoicesIncludesDefault(t *testing.T) {
	synthesizer, err := NewSynthesizer("key", &testSink{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	voices, err := synthesizer.Voices(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	defaults := 0
	for _, voice := range voices {
		if voice.Default {
			defaults++
			if voice.ID != defaultVoice {
				t.Fatalf("expected default voice %q, got %q", defaultVoice, voice.ID)
			}
		}
	}
	if defaults != 1 {
		t.Fatalf("expected exactly one default voice, got %d", defaults)
	}
}
