package processor

import (
	"context"
	"maps"
	"os"
	"time"

	"github.com/GabrielNunesIT/cls-shipper/internal/config"
	"github.com/GabrielNunesIT/cls-shipper/internal/model"
)

// Metadata keys set by the Enricher.
const (
	MetaHostname    = "hostname"
	MetaProcessedAt = "processed_at"
)

// Enricher stamps entries with the shipping host, the processing time and
// the static labels of the configuration.
type Enricher struct {
	enabled     bool
	addHostname bool
	addStamp    bool
	hostname    string
	labels      map[string]string
	now         func() time.Time
}

// EnricherOption configures an Enricher.
type EnricherOption func(*Enricher)

// WithEnricherHostname overrides the detected hostname.
func WithEnricherHostname(hostname string) EnricherOption {
	return func(e *Enricher) {
		e.hostname = hostname
	}
}

// WithEnricherClock replaces time.Now for processed_at.
func WithEnricherClock(now func() time.Time) EnricherOption {
	return func(e *Enricher) {
		e.now = now
	}
}

// NewEnricher creates a new enrichment processor.
func NewEnricher(cfg config.EnricherConfig, opts ...EnricherOption) *Enricher {
	e := &Enricher{
		enabled:     cfg.Enabled,
		addHostname: cfg.AddHostname,
		addStamp:    cfg.AddTimestamp,
		labels:      maps.Clone(cfg.StaticLabels),
		now:         time.Now,
	}

	if cfg.AddHostname {
		e.hostname, _ = os.Hostname()
	}

	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the processor identifier.
func (e *Enricher) Name() string {
	return "enricher"
}

// Process enriches the entry metadata. Static labels are applied last and
// win over the computed keys.
func (e *Enricher) Process(ctx context.Context, entry *model.LogEntry) error {
	if !e.enabled {
		return nil
	}

	if e.addHostname && e.hostname != "" {
		entry.Metadata[MetaHostname] = e.hostname
	}

	if e.addStamp {
		entry.Metadata[MetaProcessedAt] = e.now().UTC().Format(time.RFC3339Nano)
	}

	maps.Copy(entry.Metadata, e.labels)
	return nil
}
