package telegram

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/mtzanidakis/feescope/internal/state"
)

func TestChunkMessage(t *testing.T) {
	// Short message
	chunks := chunkMessage("hello", 4096)
	if len(chunks) != 1 {
		t.Errorf("expected 1 chunk, got %d", len(chunks))
	}

	// Exact limit
	msg := make([]byte, 4096)
	for i := range msg {
		msg[i] = 'a'
	}
	chunks = chunkMessage(string(msg), 4096)
	if len(chunks) != 1 {
		t.Errorf("expected 1 chunk for exact limit, got %d", len(chunks))
	}

	// Over limit
	msg = make([]byte, 8192)
	for i := range msg {
		msg[i] = 'a'
	}
	chunks = chunkMessage(string(msg), 4096)
	if len(chunks) != 2 {
		t.Errorf("expected 2 chunks, got %d", len(chunks))
	}

	// Split at newline
	msg = make([]byte, 5000)
	for i := range msg {
		msg[i] = 'a'
	}
	msg[3000] = '\n'
	chunks = chunkMessage(string(msg), 4096)
	if len(chunks) != 2 {
		t.Errorf("expected 2 chunks with newline split, got %d", len(chunks))
	}
	if len(chunks[0]) != 3001 { // Up to and including the newline
		t.Errorf("expected first chunk length 3001, got %d", len(chunks[0]))
	}
}

func TestChunkMessageKeepsRunesIntact(t *testing.T) {
	// Multi-byte runes with no newlines force the rune-boundary backoff.
	msg := strings.Repeat("→", 2000) // 6000 bytes, 4096 is not a boundary
	chunks := chunkMessage(msg, 4096)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}

	var rejoined strings.Builder
	for i, chunk := range chunks {
		if !utf8.ValidString(chunk) {
			t.Errorf("chunk %d is invalid UTF-8 (len %d)", i, len(chunk))
		}
		if len(chunk) > 4096 {
			t.Errorf("chunk %d exceeds limit: %d bytes", i, len(chunk))
		}
		rejoined.WriteString(chunk)
	}
	if rejoined.String() != msg {
		t.Error("chunks do not rejoin to the original message")
	}

	// A newline split also lands on a valid boundary.
	msg = strings.Repeat("é", 1800) + "\n" + strings.Repeat("é", 500)
	for i, chunk := range chunkMessage(msg, 4096) {
		if !utf8.ValidString(chunk) {
			t.Errorf("newline-split chunk %d is invalid UTF-8", i)
		}
	}
}

func TestRenderOutcome(t *testing.T) {
	a := state.New("12345678-abcd", []string{"base"}, state.Timeframe7d)
	a.Task = state.TaskDone
	a.Synthesis = &state.Synthesis{
		ExecutiveSummary: "Base leads revenue.",
		Recommendations:  []string{"watch mantle"},
	}

	out := renderOutcome(a)
	if !strings.Contains(out, "Base leads revenue.") {
		t.Errorf("expected summary in output: %s", out)
	}
	if !strings.Contains(out, "- watch mantle") {
		t.Errorf("expected recommendations in output: %s", out)
	}
	if strings.Contains(out, "**") {
		t.Errorf("expected telegram markdown, got %s", out)
	}

	a.Task = state.TaskFailed
	a.Synthesis = nil
	a.Errors = []string{"unknown chain"}
	out = renderOutcome(a)
	if !strings.Contains(out, "failed") || !strings.Contains(out, "unknown chain") {
		t.Errorf("expected failure message, got %s", out)
	}
}

func TestToTelegramMarkdown(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"**bold**", "*bold*"},
		{"hello **world**!", "hello *world*!"},
		{"**a** and **b**", "*a* and *b*"},
		{"no bold here", "no bold here"},
		{"*already single*", "*already single*"},
	}
	for _, tt := range tests {
		got := toTelegramMarkdown(tt.in)
		if got != tt.want {
			t.Errorf("toTelegramMarkdown(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
