package resource

import (
	"context"
	"fmt"

	"github.com/GabrielNunesIT/cls-shipper/internal/transport"
)

// Index is the search index configuration of a topic.
type Index struct {
	TopicID   string `json:"topic_id,omitempty"`
	Effective bool   `json:"effective"`
	// Rule is only returned while Effective is true.
	Rule *IndexRule `json:"rule,omitempty"`
}

// IndexRule combines full-text and key/value indexing.
type IndexRule struct {
	FullText *FullTextIndex `json:"full_text,omitempty"`
	KeyValue *KeyValueIndex `json:"key_value,omitempty"`
}

// FullTextIndex configures full-text search.
type FullTextIndex struct {
	CaseSensitive bool   `json:"case_sensitive"`
	Tokenizer     string `json:"tokenizer,omitempty"`
}

// KeyValueIndex configures per-key search. Keys, Types and Tokenizer line up
// by position; Types holds long, double or text, and Tokenizer is empty for
// anything but text.
type KeyValueIndex struct {
	CaseSensitive bool     `json:"case_sensitive"`
	Keys          []string `json:"keys,omitempty"`
	Types         []string `json:"types,omitempty"`
	Tokenizer     []string `json:"tokenizer,omitempty"`
}

// GetIndex fetches the index of a topic.
func GetIndex(ctx context.Context, c Caller, topicID string) (*Index, error) {
	idx := &Index{}
	if err := c.Get(ctx, buildPath("index", "topic_id", topicID), transport.FormatJSON, idx); err != nil {
		return nil, fmt.Errorf("getting index of %s: %w", topicID, err)
	}
	return idx, nil
}

// UpdateIndex replaces the index of idx.TopicID.
func UpdateIndex(ctx context.Context, c Caller, idx Index) error {
	if err := c.Update(ctx, "index", idx); err != nil {
		return fmt.Errorf("updating index of %s: %w", idx.TopicID, err)
	}
	return nil
}
