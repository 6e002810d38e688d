// Package processor prepares ingested lines for shipping: parsing structure
// and severity out of the raw text and attaching host metadata.
package processor

import (
	"context"
	"fmt"

	"github.com/GabrielNunesIT/cls-shipper/internal/metrics"
	"github.com/GabrielNunesIT/cls-shipper/internal/model"
)

// Processor transforms a LogEntry in place before it is emitted.
type Processor interface {
	// Process returns an error only when the entry must be dropped.
	Process(ctx context.Context, entry *model.LogEntry) error

	// Name returns a unique identifier for this processor.
	Name() string
}

// Chain runs processors in order and stops at the first one that drops the
// entry.
type Chain struct {
	processors []Processor
}

// NewChain creates a new processor chain.
func NewChain(processors ...Processor) *Chain {
	return &Chain{processors: processors}
}

// Process applies all processors in sequence. A drop is counted against the
// processor that caused it and the error names that processor.
func (c *Chain) Process(ctx context.Context, entry *model.LogEntry) error {
	for _, p := range c.processors {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := p.Process(ctx, entry); err != nil {
			metrics.ProcessorDrops.WithLabelValues(p.Name()).Inc()
			return fmt.Errorf("%s: %w", p.Name(), err)
		}
	}
	return nil
}

// Name returns the chain identifier.
func (c *Chain) Name() string {
	return "chain"
}

// Add appends a processor to the chain.
func (c *Chain) Add(p Processor) {
	c.processors = append(c.processors, p)
}

// Len returns the number of processors in the chain.
func (c *Chain) Len() int {
	return len(c.processors)
}

// Names lists the processors in execution order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.processors))
	for i, p := range c.processors {
		names[i] = p.Name()
	}
	return names
}
