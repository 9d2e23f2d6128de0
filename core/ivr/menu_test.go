package ivr

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultMenusAreValid(t *testing.T) {
	if err := DefaultMenus().Validate(DefaultExtractors()); err != nil {
		t.Fatalf("expected default menus to be valid, got %v", err)
	}
}

func TestDefaultMenusReturnsIndependentCopies(t *testing.T) {
	first := DefaultMenus()
	first.Menus[0].Options[0].Key = "changed"
	first.Menus[0].Options[0].Aliases[0] = "changed"
	first.Menus[0].Prompt.English = "changed"

	second := DefaultMenus()
	if second.Menus[0].Options[0].Key == "changed" || second.Menus[0].Options[0].Aliases[0] == "changed" {
		t.Fatalf("expected option changes not to leak into later copies")
	}
	if second.Menus[0].Prompt.English == "changed" {
		t.Fatalf("expected prompt changes not to leak into later copies")
	}
}

func TestPromptSpokenJoinsLanguages(t *testing.T) {
	tests := []struct {
		prompt   Prompt
		expected string
	}{
		{Prompt{Local: "স্বাগতম।", English: "Welcome."}, "স্বাগতম। Welcome."},
		{Prompt{English: " Welcome. "}, "Welcome."},
		{Prompt{Local: "স্বাগতম।"}, "স্বাগতম।"},
		{Prompt{}, ""},
	}

	for _, tt := range tests {
		if got := tt.prompt.Spoken(); got != tt.expected {
			t.Fatalf("expected %q, got %q", tt.expected, got)
		}
	}
}

func TestParseMenus(t *testing.T) {
	data := []byte(`
menus:
  - name: main
    prompt:
      english: Say billing or support.
    options:
      - key: billing
        action: billing
        next: account
      - key: support
        action: talk_to_agent
  - name: account
    prompt:
      english: Say your order number.
    extract: order_id
    action: order_lookup
`)

	menus, err := ParseMenus(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	account, ok := menus.Menu("account")
	if !ok {
		t.Fatalf("expected account menu")
	}
	if !account.IsFreeText() || account.Extract != "order_id" {
		t.Fatalf("expected free-text order id menu, got %+v", account)
	}
}

func TestParseMenusRejectsInvalidSets(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		problem string
	}{
		{
			name:    "missing main",
			data:    "menus:\n  - name: other\n    prompt: {english: hi}\n    extract: order_id\n    action: a\n",
			problem: `missing "main" menu`,
		},
		{
			name:    "unknown next",
			data:    "menus:\n  - name: main\n    prompt: {english: hi}\n    options:\n      - {key: a, action: a, next: nowhere}\n",
			problem: `unknown next menu "nowhere"`,
		},
		{
			name:    "unknown extractor",
			data:    "menus:\n  - name: main\n    prompt: {english: hi}\n    extract: zip_code\n    action: a\n",
			problem: `unknown extractor "zip_code"`,
		},
		{
			name:    "duplicate menu",
			data:    "menus:\n  - name: main\n    prompt: {english: hi}\n    options: [{key: a, action: a}]\n  - name: main\n    prompt: {english: hi}\n    options: [{key: a, action: a}]\n",
			problem: `duplicate menu "main"`,
		},
		{
			name:    "empty option key",
			data:    "menus:\n  - name: main\n    prompt: {english: hi}\n    options: [{key: '', action: a}]\n",
			problem: "empty key",
		},
		{
			name:    "malformed yaml",
			data:    "menus: [",
			problem: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMenus([]byte(tt.data))
			if !errors.Is(err, ErrInvalidMenus) {
				t.Fatalf("expected invalid menus error, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.problem) {
				t.Fatalf("expected error to mention %q, got %v", tt.problem, err)
			}
		})
	}
}

func TestLoadMenusReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "menus.yaml")
	data := "menus:\n  - name: main\n    prompt: {english: hi}\n    options: [{key: agent, action: talk_to_agent}]\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("failed to write menus: %v", err)
	}

	menus, err := LoadMenus(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(menus.Menus) != 1 {
		t.Fatalf("expected one menu, got %d", len(menus.Menus))
	}

	if _, err := LoadMenus(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestSchemaDescribesMenus(t *testing.T) {
	data, err := json.Marshal(Schema())
	if err != nil {
		t.Fatalf("failed to marshal schema: %v", err)
	}

	for _, field := range []string{`"menus"`, `"options"`, `"extract"`, `"order_id"`} {
		if !strings.Contains(string(data), field) {
			t.Fatalf("expected schema to mention %s, got %s", field, data)
		}
	}
}
