package resource

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/GabrielNunesIT/cls-shipper/internal/transport"
)

// Shipper list paging defaults.
const (
	DefaultShipperOffset = 0
	DefaultShipperCount  = 50
)

// Task states reported in ShipTask.Status.
const (
	TaskSuccess = "success"
	TaskRunning = "running"
	TaskFailed  = "failed"
	TaskWaiting = "wait"
)

// Shipper periodically exports a topic to an object storage bucket.
type Shipper struct {
	ID      string `json:"shipper_id,omitempty"`
	TopicID string `json:"topic_id,omitempty"`
	// Bucket is "{bucketName}-{appid}".
	Bucket string `json:"bucket,omitempty"`
	Prefix string `json:"prefix,omitempty"`
	Name   string `json:"shipper_name,omitempty"`
	// Interval in seconds, 60 to 3600 (service default 300).
	Interval int `json:"interval,omitempty"`
	// MaxSize in MB, 100 to 10240 (service default 256).
	MaxSize   int  `json:"max_size,omitempty"`
	Effective bool `json:"effective"`
	// FilterRules are ANDed, at most five. None ships everything.
	FilterRules []FilterRule `json:"filter_rules,omitempty"`
	CreateTime  string       `json:"create_time,omitempty"`
	// Partition is a strftime layout for the object key.
	Partition string        `json:"partition,omitempty"`
	Compress  *FormatConfig `json:"compress,omitempty"`
	Content   *FormatConfig `json:"content,omitempty"`
}

// FilterRule selects records whose Key, matched by Regex, equals Value.
// Key "__CONTENT__" matches the whole record.
type FilterRule struct {
	Key   string `json:"key"`
	Regex string `json:"regex"`
	Value string `json:"value"`
}

// FormatConfig names a compression or content format.
type FormatConfig struct {
	Format string `json:"format"`
}

// ShipTask is one export run of a shipper.
type ShipTask struct {
	ID         string `json:"task_id"`
	ShipperID  string `json:"shipper_id"`
	TopicID    string `json:"topic_id"`
	RangeStart string `json:"range_start"`
	RangeEnd   string `json:"range_end"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
}

type shipperList struct {
	Shippers []Shipper `json:"shippers"`
}

type shipTaskList struct {
	Tasks []ShipTask `json:"tasks"`
}

type retryRequest struct {
	ShipperID string `json:"shipper_id"`
	TaskID    string `json:"task_id"`
}

// CreateShipper creates a shipper and returns its id.
func CreateShipper(ctx context.Context, c Caller, s Shipper) (string, error) {
	var created Shipper
	if err := c.Create(ctx, "shipper", transport.FormatJSON, s, &created); err != nil {
		return "", fmt.Errorf("creating shipper %q: %w", s.Name, err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("creating shipper %q: %w", s.Name, ErrEmptyID)
	}
	return created.ID, nil
}

// GetShipper fetches one shipper by id.
func GetShipper(ctx context.Context, c Caller, id string) (*Shipper, error) {
	s := &Shipper{}
	if err := c.Get(ctx, buildPath("shipper", "shipper_id", id), transport.FormatJSON, s); err != nil {
		return nil, fmt.Errorf("getting shipper %s: %w", id, err)
	}
	return s, nil
}

// ListShippers pages through the shippers of a topic. A negative offset or
// non-positive count falls back to the defaults.
func ListShippers(ctx context.Context, c Caller, topicID string, offset, count int) ([]Shipper, error) {
	if offset < 0 {
		offset = DefaultShipperOffset
	}
	if count <= 0 {
		count = DefaultShipperCount
	}

	path := buildPath("shippers",
		"topic_id", topicID,
		"offset", strconv.Itoa(offset),
		"count", strconv.Itoa(count),
	)
	var list shipperList
	if err := c.Get(ctx, path, transport.FormatJSON, &list); err != nil {
		return nil, fmt.Errorf("listing shippers of %s: %w", topicID, err)
	}
	return list.Shippers, nil
}

// ListShipTasks returns the runs of a shipper between start and end. The
// service only keeps the last three days.
func ListShipTasks(ctx context.Context, c Caller, shipperID string, start, end time.Time) ([]ShipTask, error) {
	path := buildPath("tasks",
		"shipper_id", shipperID,
		"start_time", formatTime(start),
		"end_time", formatTime(end),
	)
	var list shipTaskList
	if err := c.Get(ctx, path, transport.FormatJSON, &list); err != nil {
		return nil, fmt.Errorf("listing tasks of shipper %s: %w", shipperID, err)
	}
	return list.Tasks, nil
}

// RetryShipTask reruns a failed task.
func RetryShipTask(ctx context.Context, c Caller, shipperID, taskID string) error {
	if err := c.Update(ctx, "task", retryRequest{ShipperID: shipperID, TaskID: taskID}); err != nil {
		return fmt.Errorf("retrying task %s of shipper %s: %w", taskID, shipperID, err)
	}
	return nil
}

// UpdateShipper changes the shipper identified by s.ID.
func UpdateShipper(ctx context.Context, c Caller, s Shipper) error {
	if err := c.Update(ctx, "shipper", s); err != nil {
		return fmt.Errorf("updating shipper %s: %w", s.ID, err)
	}
	return nil
}

// DeleteShipper removes a shipper.
func DeleteShipper(ctx context.Context, c Caller, id string) error {
	if err := c.Delete(ctx, buildPath("shipper", "shipper_id", id)); err != nil {
		return fmt.Errorf("deleting shipper %s: %w", id, err)
	}
	return nil
}
