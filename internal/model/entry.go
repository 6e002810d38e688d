// Package model defines the data shipped to the log service: the LogEntry
// flowing through the ship pipeline and the binary LogGroupList batch.
package model

import (
	"log/slog"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// LogEntry represents a single log event flowing through the pipeline.
// It carries both the raw log data and any parsed/enriched metadata.
type LogEntry struct {
	// Timestamp is when the log entry was ingested.
	Timestamp time.Time

	// Source identifies which ingestor produced this entry.
	Source string

	// Raw contains the original log line as received.
	Raw []byte

	// Level is the severity the entry is shipped with. Parsers set it; the
	// zero value is slog.LevelInfo.
	Level slog.Level

	// Parsed holds structured fields extracted during processing.
	// Keys are field names, values can be any JSON-compatible type.
	Parsed map[string]any

	// Metadata contains enrichment data like hostname, environment labels, etc.
	Metadata map[string]string
}

// NewLogEntry creates a new LogEntry with initialized maps and current timestamp.
func NewLogEntry(source string, raw []byte) *LogEntry {
	return &LogEntry{
		Timestamp: time.Now(),
		Source:    source,
		Raw:       raw,
		Level:     slog.LevelInfo,
		Parsed:    make(map[string]any),
		Metadata:  make(map[string]string),
	}
}

// Clone creates a deep copy of the LogEntry.
func (e *LogEntry) Clone() *LogEntry {
	clone := &LogEntry{
		Timestamp: e.Timestamp,
		Source:    e.Source,
		Level:     e.Level,
		Raw:       make([]byte, len(e.Raw)),
		Parsed:    make(map[string]any, len(e.Parsed)),
		Metadata:  make(map[string]string, len(e.Metadata)),
	}
	copy(clone.Raw, e.Raw)
	for k, v := range e.Parsed {
		clone.Parsed[k] = v
	}
	for k, v := range e.Metadata {
		clone.Metadata[k] = v
	}
	return clone
}

// Message renders the text stored as the record's content value.
// An entry with no parsed fields or metadata ships its raw line. Otherwise the
// line, parsed fields and metadata are folded into one JSON object with sorted
// keys. Internal fields prefixed with '_' are dropped.
func (e *LogEntry) Message() string {
	if len(e.Parsed) == 0 && len(e.Metadata) == 0 {
		return string(e.Raw)
	}

	data := make(map[string]any, len(e.Parsed)+len(e.Metadata)+1)
	// A JSON line already carries its own fields.
	if e.Parsed["_parsed_format"] != "json" {
		data["message"] = string(e.Raw)
	}
	for k, v := range e.Parsed {
		if strings.HasPrefix(k, "_") {
			continue
		}
		data[k] = v
	}
	for k, v := range e.Metadata {
		data[k] = v
	}

	b, err := json.Marshal(data)
	if err != nil {
		return string(e.Raw)
	}
	return string(b)
}
