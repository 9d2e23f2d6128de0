package console

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/koscakluka/ema-ivr/core/events"
)

func readyModel(t *testing.T) model {
	t.Helper()
	m := newModel(context.Background(), nil)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return updated.(model)
}

func update(m model, msg tea.Msg) model {
	updated, _ := m.Update(msg)
	return updated.(model)
}

func TestEntriesAreRendered(t *testing.T) {
	m := readyModel(t)
	m = update(m, entryMsg{Role: RoleAssistant, Text: "Your order ships tomorrow."})

	if !strings.Contains(m.contentView(), "Your order ships tomorrow.") {
		t.Fatalf("expected entry in transcript view, got %q", m.contentView())
	}
}

func TestFailedSendKeepsInput(t *testing.T) {
	m := readyModel(t)
	m.input.SetValue("where is my order")
	m.sending = true

	m = update(m, sentMsg{text: "where is my order", err: errors.New("offline")})
	if got := m.input.Value(); got != "where is my order" {
		t.Fatalf("expected input to be kept, got %q", got)
	}
	if m.sending {
		t.Fatalf("expected sending to finish")
	}

	m = update(m, sentMsg{text: "where is my order"})
	if got := m.input.Value(); got != "" {
		t.Fatalf("expected input to be cleared, got %q", got)
	}
}

func TestTranscriptFillsInput(t *testing.T) {
	m := readyModel(t)
	m = update(m, eventMsg{event: events.NewCaptureTranscriptUpdated("আমার অর্ডার")})
	if m.interim != "আমার অর্ডার" {
		t.Fatalf("expected interim transcript, got %q", m.interim)
	}

	m = update(m, transcriptMsg("আমার অর্ডার কোথায়"))
	if m.interim != "" || m.input.Value() != "আমার অর্ডার কোথায়" {
		t.Fatalf("expected transcript in input, got %q (interim %q)", m.input.Value(), m.interim)
	}
}

func TestStatusFollowsSessionState(t *testing.T) {
	m := readyModel(t)
	m = update(m, eventMsg{event: events.NewSessionStateChanged("at_menu", "awaiting_input", "main")})
	if !strings.Contains(m.status, "main") || !strings.Contains(m.status, "awaiting_input") {
		t.Fatalf("expected call status, got %q", m.status)
	}

	m = update(m, eventMsg{event: events.NewSessionStateChanged("awaiting_input", "disconnected", "")})
	if m.status != "chat" {
		t.Fatalf("expected chat status, got %q", m.status)
	}
}

func TestEnterWithEmptyInputDoesNothing(t *testing.T) {
	m := readyModel(t)
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil || updated.(model).sending {
		t.Fatalf("expected no send for empty input")
	}
}
