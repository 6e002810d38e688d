package model

import (
	"log/slog"
	"testing"
	"time"
)

func TestNewLogEntry(t *testing.T) {
	raw := []byte("test message")
	entry := NewLogEntry("stdin", raw)

	if entry.Source != "stdin" {
		t.Errorf("expected source 'stdin', got %q", entry.Source)
	}

	if string(entry.Raw) != "test message" {
		t.Errorf("expected raw 'test message', got %q", string(entry.Raw))
	}

	if entry.Level != slog.LevelInfo {
		t.Errorf("expected default level INFO, got %v", entry.Level)
	}

	if entry.Parsed == nil {
		t.Error("expected Parsed map to be initialized")
	}

	if entry.Metadata == nil {
		t.Error("expected Metadata map to be initialized")
	}

	if entry.Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}
}

func TestLogEntry_Clone(t *testing.T) {
	original := &LogEntry{
		Timestamp: time.Now(),
		Source:    "original",
		Raw:       []byte("original message"),
		Level:     slog.LevelWarn,
		Parsed:    map[string]any{"key": "value"},
		Metadata:  map[string]string{"host": "localhost"},
	}

	clone := original.Clone()

	if clone.Source != original.Source {
		t.Errorf("expected source %q, got %q", original.Source, clone.Source)
	}

	if clone.Level != slog.LevelWarn {
		t.Errorf("expected level WARN, got %v", clone.Level)
	}

	clone.Parsed["new"] = "field"
	if _, exists := original.Parsed["new"]; exists {
		t.Error("modifying clone.Parsed should not affect original")
	}

	clone.Metadata["new"] = "meta"
	if _, exists := original.Metadata["new"]; exists {
		t.Error("modifying clone.Metadata should not affect original")
	}

	clone.Raw[0] = 'X'
	if original.Raw[0] == 'X' {
		t.Error("modifying clone.Raw should not affect original")
	}
}

func TestLogEntry_Message(t *testing.T) {
	tests := []struct {
		name  string
		entry *LogEntry
		want  string
	}{
		{
			name:  "raw line only",
			entry: &LogEntry{Raw: []byte("plain line")},
			want:  "plain line",
		},
		{
			name: "metadata folded in",
			entry: &LogEntry{
				Raw:      []byte("plain line"),
				Metadata: map[string]string{"hostname": "web-1"},
			},
			want: `{"hostname":"web-1","message":"plain line"}`,
		},
		{
			name: "json line drops raw and internal fields",
			entry: &LogEntry{
				Raw:    []byte(`{"msg":"hi"}`),
				Parsed: map[string]any{"msg": "hi", "_parsed_format": "json"},
			},
			want: `{"msg":"hi"}`,
		},
		{
			name: "regex fields kept with raw",
			entry: &LogEntry{
				Raw:    []byte("INFO: started"),
				Parsed: map[string]any{"level": "INFO", "_parsed_format": "regex"},
			},
			want: `{"level":"INFO","message":"INFO: started"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.Message(); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}
