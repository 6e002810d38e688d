// Package emitter ships log records to the log service, one batch per record.
package emitter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/GabrielNunesIT/go-libs/logger"
	"golang.org/x/time/rate"

	"github.com/GabrielNunesIT/cls-shipper/internal/metrics"
	"github.com/GabrielNunesIT/cls-shipper/internal/model"
	"github.com/GabrielNunesIT/cls-shipper/internal/resource"
)

// ContextFlow tags every batch produced by this package.
const ContextFlow = "cls-shipper"

var (
	// ErrNilFormatter is returned by Log when no formatter is given.
	ErrNilFormatter = errors.New("emitter: nil formatter")
	// ErrNilCaller is returned by New when no caller is given.
	ErrNilCaller = errors.New("emitter: nil caller")
	// ErrNilCache is returned by New when no id cache is given.
	ErrNilCache = errors.New("emitter: nil id cache")
	// ErrClosed is returned by Log once Close has been called.
	ErrClosed = errors.New("emitter: closed")
)

// Formatter renders the message of a record. It is only called for records
// that pass the severity gate.
type Formatter func() string

// Emitter sends records of one category to the log service.
// It is safe for concurrent use.
type Emitter struct {
	name     string
	caller   resource.Caller
	cache    *IDCache
	minLevel slog.Level
	source   string
	now      func() time.Time
	onError  func(error)
	logger   logger.ILogger

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithMinLevel sets the lowest severity that is shipped. Defaults to info.
func WithMinLevel(l slog.Level) Option {
	return func(e *Emitter) {
		e.minLevel = l
	}
}

// WithSource overrides the batch source, which defaults to the local IPv4 address.
func WithSource(source string) Option {
	return func(e *Emitter) {
		e.source = source
	}
}

// WithLogger sets the logger used for delivery failures.
func WithLogger(log logger.ILogger) Option {
	return func(e *Emitter) {
		e.logger = log
	}
}

// WithErrorHandler receives every failed delivery in addition to its Delivery.
func WithErrorHandler(fn func(error)) Option {
	return func(e *Emitter) {
		e.onError = fn
	}
}

// WithClock sets the time source used for batch filenames.
func WithClock(now func() time.Time) Option {
	return func(e *Emitter) {
		e.now = now
	}
}

// New creates an emitter for the category name. Records go to the ids
// resolved by cache through caller.
func New(name string, caller resource.Caller, cache *IDCache, opts ...Option) (*Emitter, error) {
	if caller == nil {
		return nil, ErrNilCaller
	}
	if cache == nil {
		return nil, ErrNilCache
	}
	return newEmitter(name, caller, cache, opts...), nil
}

func newEmitter(name string, caller resource.Caller, cache *IDCache, opts ...Option) *Emitter {
	e := &Emitter{
		name:     name,
		caller:   caller,
		cache:    cache,
		minLevel: slog.LevelInfo,
		now:      time.Now,
		logger:   logger.NewConsoleLogger(io.Discard),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.source == "" {
		e.source = LocalIPv4()
	}
	e.logger = e.logger.SubLogger("Emitter %s", name)
	if e.onError == nil {
		// An unreachable service fails every record; keep the first few and
		// then one per interval.
		sometimes := &rate.Sometimes{First: 3, Interval: 10 * time.Second}
		e.onError = func(err error) {
			sometimes.Do(func() {
				e.logger.Errorf("failed to deliver log record: %v", err)
			})
		}
	}
	return e
}

// Name returns the category name.
func (e *Emitter) Name() string {
	return e.name
}

// IsEnabled reports whether records at level are shipped.
func (e *Emitter) IsEnabled(level slog.Level) bool {
	return level >= e.minLevel
}

// Log ships one record. Records below the minimum level and records whose
// message is empty are dropped and yield a nil Delivery. Submission happens
// on its own goroutine and is not cancelled by ctx.
func (e *Emitter) Log(ctx context.Context, level slog.Level, at time.Time, format Formatter) (*Delivery, error) {
	if !e.IsEnabled(level) {
		metrics.EmitterEvents.WithLabelValues(metrics.ResultSkipped).Inc()
		return nil, nil
	}
	if format == nil {
		return nil, ErrNilFormatter
	}

	msg := format()
	if msg == "" {
		metrics.EmitterEvents.WithLabelValues(metrics.ResultSkipped).Inc()
		return nil, nil
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrClosed
	}
	e.inflight.Add(1)
	e.mu.Unlock()

	batch := e.batch(level, at, msg)
	d := newDelivery()
	metrics.EmitterEvents.WithLabelValues(metrics.ResultDispatched).Inc()

	go func(ctx context.Context) {
		defer e.inflight.Done()
		err := e.submit(ctx, batch)
		if err != nil {
			metrics.EmitterEvents.WithLabelValues(metrics.ResultFailed).Inc()
			e.onError(err)
		} else {
			metrics.EmitterEvents.WithLabelValues(metrics.ResultDelivered).Inc()
		}
		d.finish(err)
	}(context.WithoutCancel(ctx))

	return d, nil
}

func (e *Emitter) submit(ctx context.Context, batch *model.LogGroupList) error {
	ids, err := e.cache.Resolve(ctx, e.caller)
	if err != nil {
		return err
	}
	if err := resource.UploadLogs(ctx, e.caller, ids.TopicID, batch); err != nil {
		return fmt.Errorf("upload to topic %s: %w", ids.TopicID, err)
	}
	return nil
}

// batch wraps a single record in its own log group.
func (e *Emitter) batch(level slog.Level, at time.Time, msg string) *model.LogGroupList {
	return &model.LogGroupList{
		LogGroups: []*model.LogGroup{{
			ContextFlow: ContextFlow,
			Filename:    fmt.Sprintf("%s-%d", e.name, e.now().Unix()),
			Source:      e.source,
			Logs: []*model.Log{{
				Time: at.Unix(),
				Contents: []*model.LogContent{{
					Key:   level.String(),
					Value: msg,
				}},
			}},
		}},
	}
}

// Close stops accepting records and waits for in-flight deliveries until ctx
// is done.
func (e *Emitter) Close(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("emitter %s: %w", e.name, ctx.Err())
	}
}
