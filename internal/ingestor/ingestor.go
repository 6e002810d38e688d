// Package ingestor defines the line sources read by the ship command.
package ingestor

import (
	"context"

	"github.com/GabrielNunesIT/go-libs/logger"

	"github.com/GabrielNunesIT/cls-shipper/internal/config"
	"github.com/GabrielNunesIT/cls-shipper/internal/model"
)

// Ingestor defines the contract for log sources.
// Each ingestor runs in its own goroutine and pushes log entries to the output channel.
type Ingestor interface {
	// Start begins ingesting logs and sends them to the output channel.
	// It blocks until the context is cancelled, the source is exhausted or an
	// unrecoverable error occurs.
	// The implementation must close the output channel when done.
	Start(ctx context.Context, out chan<- *model.LogEntry) error

	// Name returns a unique identifier for this ingestor instance.
	Name() string
}

// New returns a file tailer when cfg names files and a stdin reader otherwise.
func New(cfg config.InputConfig, log logger.ILogger) Ingestor {
	if len(cfg.Files) > 0 {
		return NewFileIngestor(cfg, log)
	}
	return NewStdinIngestor(log)
}
