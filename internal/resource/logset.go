package resource

import (
	"context"
	"fmt"

	"github.com/GabrielNunesIT/cls-shipper/internal/transport"
)

// LogSet is a named group of topics sharing one retention period.
type LogSet struct {
	ID         string `json:"logset_id,omitempty"`
	Name       string `json:"logset_name,omitempty"`
	Period     int    `json:"period"`
	CreateTime string `json:"create_time,omitempty"`
}

type logSetList struct {
	LogSets []LogSet `json:"logsets"`
}

// CreateLogSet creates a log set and returns its id.
func CreateLogSet(ctx context.Context, c Caller, ls LogSet) (string, error) {
	var created LogSet
	if err := c.Create(ctx, "logset", transport.FormatJSON, ls, &created); err != nil {
		return "", fmt.Errorf("creating log set %q: %w", ls.Name, err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("creating log set %q: %w", ls.Name, ErrEmptyID)
	}
	return created.ID, nil
}

// GetLogSet fetches one log set by id.
func GetLogSet(ctx context.Context, c Caller, id string) (*LogSet, error) {
	ls := &LogSet{}
	if err := c.Get(ctx, buildPath("logset", "logset_id", id), transport.FormatJSON, ls); err != nil {
		return nil, fmt.Errorf("getting log set %s: %w", id, err)
	}
	return ls, nil
}

// ListLogSets returns every log set of the account.
func ListLogSets(ctx context.Context, c Caller) ([]LogSet, error) {
	var list logSetList
	if err := c.Get(ctx, "logsets", transport.FormatJSON, &list); err != nil {
		return nil, fmt.Errorf("listing log sets: %w", err)
	}
	return list.LogSets, nil
}

// UpdateLogSet changes the name or period of ls.ID.
func UpdateLogSet(ctx context.Context, c Caller, ls LogSet) error {
	if err := c.Update(ctx, "logset", ls); err != nil {
		return fmt.Errorf("updating log set %s: %w", ls.ID, err)
	}
	return nil
}

// DeleteLogSet removes a log set.
func DeleteLogSet(ctx context.Context, c Caller, id string) error {
	if err := c.Delete(ctx, buildPath("logset", "logset_id", id)); err != nil {
		return fmt.Errorf("deleting log set %s: %w", id, err)
	}
	return nil
}

// EnsureLogSet returns the id of the log set called name, creating it with
// the given retention period when none exists. A created log set is read back
// before its id is returned.
func EnsureLogSet(ctx context.Context, c Caller, name string, period int) (string, error) {
	sets, err := ListLogSets(ctx, c)
	if err != nil {
		return "", err
	}
	for _, ls := range sets {
		if ls.Name == name {
			return ls.ID, nil
		}
	}

	id, err := CreateLogSet(ctx, c, LogSet{Name: name, Period: period})
	if err != nil {
		return "", err
	}

	ls, err := GetLogSet(ctx, c, id)
	if err != nil {
		return "", err
	}
	if ls.ID != "" {
		return ls.ID, nil
	}
	return id, nil
}
