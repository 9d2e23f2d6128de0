package logging

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/koscakluka/ema-ivr/core/backend"
)

func TestNewHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(New(&buf, log.WarnLevel))

	logger.Info("menu entered", "menu", "main")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %q", buf.String())
	}

	logger.Warn("input unmatched", "attempt", 2)
	if !strings.Contains(buf.String(), "input unmatched") || !strings.Contains(buf.String(), "attempt=2") {
		t.Fatalf("expected warning with attributes, got %q", buf.String())
	}
}

func TestSetupWritesToFile(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	path := filepath.Join(t.TempDir(), "ema-ivr.log")
	closeFn, err := Setup(path, "debug")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	slog.Debug("session connected", "session", "s1")
	if err := closeFn(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	if !strings.Contains(string(content), "session connected") {
		t.Fatalf("expected log line in file, got %q", content)
	}
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	if _, err := Setup(filepath.Join(t.TempDir(), "x.log"), "loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestSetupReceivesLibraryLogs(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)
	client, err := backend.NewClient(server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "ema-ivr.log")
	closeFn, err := Setup(path, "debug")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := client.Stats(context.Background()); err == nil {
		t.Fatalf("expected stats to fail")
	}
	if err := closeFn(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	for _, expected := range []string{"backend request failed", "status=500", "core/backend"} {
		if !strings.Contains(string(content), expected) {
			t.Fatalf("expected %q in log file, got %q", expected, content)
		}
	}
}

func TestLibraryLogsStopAfterClose(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	path := filepath.Join(t.TempDir(), "ema-ivr.log")
	closeFn, err := Setup(path, "debug")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := closeFn(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// a failing backend call after close must not write to the closed file
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)
	client, err := backend.NewClient(server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, _ = client.Stats(context.Background())

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	if strings.Contains(string(content), "backend request failed") {
		t.Fatalf("expected no records after close, got %q", content)
	}
}
