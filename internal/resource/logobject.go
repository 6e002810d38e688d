package resource

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/GabrielNunesIT/cls-shipper/internal/model"
	"github.com/GabrielNunesIT/cls-shipper/internal/transport"
)

// DefaultDownloadCount is the page size of DownloadLogs.
const DefaultDownloadCount = 10

// LogObject is one record returned by a search.
type LogObject struct {
	TopicID   string `json:"topic_id"`
	TopicName string `json:"topic_name"`
	Timestamp string `json:"timestamp"`
	Content   string `json:"content"`
}

// SearchQuery selects records of one or more topics in a time range.
type SearchQuery struct {
	LogSetID string
	TopicIDs []string
	Start    time.Time
	End      time.Time
	// Query is the search expression; empty matches everything.
	Query string
	// Limit caps the page size; zero leaves it to the service.
	Limit int
	// Context continues a previous search.
	Context string
	// Sort is "asc" or "desc"; empty leaves it to the service.
	Sort string
}

// SearchResult is one page of search results.
type SearchResult struct {
	Context  string      `json:"context"`
	ListOver bool        `json:"listover"`
	Results  []LogObject `json:"results"`
}

type cursorResponse struct {
	Cursor string `json:"cursor"`
}

// UploadLogs sends a binary batch to a topic.
func UploadLogs(ctx context.Context, c Caller, topicID string, list *model.LogGroupList) error {
	path := buildPath("structuredlog", "topic_id", topicID)
	if err := c.Create(ctx, path, transport.FormatProtobuf, list, nil); err != nil {
		return fmt.Errorf("uploading logs to %s: %w", topicID, err)
	}
	return nil
}

// Cursor returns the read position of a topic at start.
func Cursor(ctx context.Context, c Caller, topicID string, start time.Time) (string, error) {
	path := buildPath("cursor", "topic_id", topicID, "start", formatTime(start))
	var resp cursorResponse
	if err := c.Get(ctx, path, transport.FormatJSON, &resp); err != nil {
		return "", fmt.Errorf("getting cursor of %s: %w", topicID, err)
	}
	return resp.Cursor, nil
}

// SearchLogs runs a search over q.TopicIDs.
func SearchLogs(ctx context.Context, c Caller, q SearchQuery) (*SearchResult, error) {
	kv := []string{
		"logset_id", q.LogSetID,
		"topic_ids", strings.Join(q.TopicIDs, ","),
		"start_time", formatTime(q.Start),
		"end_time", formatTime(q.End),
		"query_string", q.Query,
	}
	if q.Limit > 0 {
		kv = append(kv, "limit", strconv.Itoa(q.Limit))
	}
	if q.Context != "" {
		kv = append(kv, "context", q.Context)
	}
	if q.Sort != "" {
		kv = append(kv, "sort", q.Sort)
	}

	res := &SearchResult{}
	if err := c.Get(ctx, buildPath("searchlog", kv...), transport.FormatJSON, res); err != nil {
		return nil, fmt.Errorf("searching logs: %w", err)
	}
	return res, nil
}

// DownloadLogs reads up to count records of a topic from cursor. A
// non-positive count uses DefaultDownloadCount.
func DownloadLogs(ctx context.Context, c Caller, topicID, cursor string, count int) (*model.LogGroupList, error) {
	if count <= 0 {
		count = DefaultDownloadCount
	}

	path := buildPath("log", "topic_id", topicID, "cursor", cursor, "count", strconv.Itoa(count))
	list := &model.LogGroupList{}
	if err := c.Get(ctx, path, transport.FormatProtobuf, list); err != nil {
		return nil, fmt.Errorf("downloading logs of %s: %w", topicID, err)
	}
	return list, nil
}
