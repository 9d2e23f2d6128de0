package twilio

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestDialer(t *testing.T, handler http.HandlerFunc, opts ...DialerOption) *Dialer {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts = append([]DialerOption{WithBaseURL(server.URL), WithHTTPClient(server.Client())}, opts...)
	dialer, err := NewDialer("AC123", "secret", "+15550001", "+8801700000000", opts...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return dialer
}

func TestDialCreatesCall(t *testing.T) {
	dialer := newTestDialer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/Accounts/AC123/Calls.json" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "AC123" || pass != "secret" {
			t.Errorf("expected basic auth, got %q %q", user, pass)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse form: %v", err)
		}
		if r.PostForm.Get("To") != "+8801700000000" || r.PostForm.Get("From") != "+15550001" {
			t.Errorf("unexpected numbers %v", r.PostForm)
		}
		if r.PostForm.Get("Twiml") == "" || r.PostForm.Get("Url") != "" {
			t.Errorf("expected inline twiml, got %v", r.PostForm)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"sid":"CA1","status":"queued"}`)
	})

	callID, err := dialer.Dial(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if callID != "CA1" {
		t.Fatalf("expected call sid CA1, got %q", callID)
	}
}

func TestDialWithCallbackURL(t *testing.T) {
	dialer := newTestDialer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("Url") != "https://example.com/voice" || r.PostForm.Get("Twiml") != "" {
			t.Errorf("expected callback url, got %v", r.PostForm)
		}
		_, _ = io.WriteString(w, `{"sid":"CA2"}`)
	}, WithCallbackURL("https://example.com/voice"))

	if _, err := dialer.Dial(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDialReportsAPIError(t *testing.T) {
	dialer := newTestDialer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"code":21211,"message":"Invalid 'To' Phone Number","status":400}`)
	})

	_, err := dialer.Dial(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected API error, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Code != 21211 {
		t.Fatalf("unexpected API error %+v", apiErr)
	}
}

func TestHangupCompletesCall(t *testing.T) {
	dialer := newTestDialer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Accounts/AC123/Calls/CA1.json" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_ = r.ParseForm()
		if r.PostForm.Get("Status") != "completed" {
			t.Errorf("expected completed status, got %v", r.PostForm)
		}
		_, _ = io.WriteString(w, `{"sid":"CA1","status":"completed"}`)
	})

	if err := dialer.Hangup(context.Background(), "CA1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHangupWithoutCallIsNoop(t *testing.T) {
	dialer := newTestDialer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	})

	if err := dialer.Hangup(context.Background(), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewDialerRequiresCredentials(t *testing.T) {
	if _, err := NewDialer("", "", "+1", "+2"); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected missing credentials, got %v", err)
	}
	if _, err := NewDialer("AC", "tok", "", "+2"); err == nil {
		t.Fatalf("expected error without from number")
	}
}
