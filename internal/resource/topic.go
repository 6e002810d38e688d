package resource

import (
	"context"
	"fmt"

	"github.com/GabrielNunesIT/cls-shipper/internal/transport"
)

// Log types accepted by Topic.LogType.
const (
	LogTypeJSON       = "json_log"
	LogTypeDelimiter  = "delimiter_log"
	LogTypeMinimalist = "minimalist_log"
)

// Topic is a log stream inside a log set.
type Topic struct {
	LogSetID     string       `json:"logset_id,omitempty"`
	ID           string       `json:"topic_id,omitempty"`
	Name         string       `json:"topic_name,omitempty"`
	Path         string       `json:"path,omitempty"`
	GroupID      string       `json:"group_id,omitempty"`
	Collection   bool         `json:"collection"`
	Index        bool         `json:"index"`
	LogType      string       `json:"log_type,omitempty"`
	ExtractRule  *ExtractRule `json:"extract_rule,omitempty"`
	MachineGroup *HostGroup   `json:"machine_group,omitempty"`
	CreateTime   string       `json:"create_time,omitempty"`
}

// ExtractRule tells the collector agent how to split a topic's lines into
// fields.
type ExtractRule struct {
	// TimeKey and TimeFormat (strftime) must be set together.
	TimeKey    string `json:"time_key,omitempty"`
	TimeFormat string `json:"time_format,omitempty"`

	// Delimiter and Keys apply to delimiter_log only. An empty key drops
	// the field at that position.
	Delimiter string   `json:"delimiter,omitempty"`
	Keys      []string `json:"keys,omitempty"`

	// FilterKeys and FilterRegex pair up one to one, at most five entries.
	FilterKeys  []string `json:"filter_keys,omitempty"`
	FilterRegex []string `json:"filter_regex,omitempty"`
}

type topicList struct {
	Topics []Topic `json:"topics"`
}

// CreateTopic creates a topic and returns its id.
func CreateTopic(ctx context.Context, c Caller, t Topic) (string, error) {
	var created Topic
	if err := c.Create(ctx, "topic", transport.FormatJSON, t, &created); err != nil {
		return "", fmt.Errorf("creating topic %q: %w", t.Name, err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("creating topic %q: %w", t.Name, ErrEmptyID)
	}
	return created.ID, nil
}

// GetTopic fetches one topic by id.
func GetTopic(ctx context.Context, c Caller, id string) (*Topic, error) {
	t := &Topic{}
	if err := c.Get(ctx, buildPath("topic", "topic_id", id), transport.FormatJSON, t); err != nil {
		return nil, fmt.Errorf("getting topic %s: %w", id, err)
	}
	return t, nil
}

// ListTopics returns the topics of one log set.
func ListTopics(ctx context.Context, c Caller, logSetID string) ([]Topic, error) {
	var list topicList
	if err := c.Get(ctx, buildPath("topics", "logset_id", logSetID), transport.FormatJSON, &list); err != nil {
		return nil, fmt.Errorf("listing topics of %s: %w", logSetID, err)
	}
	return list.Topics, nil
}

// UpdateTopic changes the topic identified by t.ID.
func UpdateTopic(ctx context.Context, c Caller, t Topic) error {
	if err := c.Update(ctx, "topic", t); err != nil {
		return fmt.Errorf("updating topic %s: %w", t.ID, err)
	}
	return nil
}

// DeleteTopic removes a topic.
func DeleteTopic(ctx context.Context, c Caller, id string) error {
	if err := c.Delete(ctx, buildPath("topic", "topic_id", id)); err != nil {
		return fmt.Errorf("deleting topic %s: %w", id, err)
	}
	return nil
}

// EnsureTopic returns the id of the topic called name in logSetID, creating
// it when none exists.
func EnsureTopic(ctx context.Context, c Caller, logSetID, name string) (string, error) {
	topics, err := ListTopics(ctx, c, logSetID)
	if err != nil {
		return "", err
	}
	for _, t := range topics {
		if t.Name == name {
			return t.ID, nil
		}
	}
	return CreateTopic(ctx, c, Topic{LogSetID: logSetID, Name: name})
}
