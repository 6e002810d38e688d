// Package pipeline orchestrates the ship flow: ingestor -> processors -> CLS emitter.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/GabrielNunesIT/go-libs/logger"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/GabrielNunesIT/cls-shipper/internal/config"
	"github.com/GabrielNunesIT/cls-shipper/internal/emitter"
	"github.com/GabrielNunesIT/cls-shipper/internal/ingestor"
	"github.com/GabrielNunesIT/cls-shipper/internal/metrics"
	"github.com/GabrielNunesIT/cls-shipper/internal/model"
	"github.com/GabrielNunesIT/cls-shipper/internal/processor"
)

// Entry stages counted in metrics.PipelineEntries.
const (
	StageRead    = "read"
	StageDropped = "dropped"
	StageSkipped = "skipped"
	StageEmitted = "emitted"
	StageFailed  = "failed"
)

// ErrShuttingDown is returned by Reconfigure once Run has started shutting down.
var ErrShuttingDown = errors.New("pipeline: shutting down")

// ProviderFactory builds the emitter provider for a CLS configuration.
type ProviderFactory func(cfg config.CLSConfig) (*emitter.Provider, error)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithIngestor replaces the ingestor derived from the input configuration.
func WithIngestor(ing ingestor.Ingestor) Option {
	return func(p *Pipeline) {
		p.ingestor = ing
	}
}

// WithProviderFactory replaces emitter.Build.
func WithProviderFactory(f ProviderFactory) Option {
	return func(p *Pipeline) {
		p.newProvider = f
	}
}

// Pipeline reads entries from one ingestor, runs them through the processor
// chain and ships them through the emitter of the configured category.
type Pipeline struct {
	logger      logger.ILogger
	ingestor    ingestor.Ingestor
	newProvider ProviderFactory

	mu       sync.RWMutex
	cfg      *config.Config
	chain    *processor.Chain
	provider *emitter.Provider
	emitter  *emitter.Emitter
	closing  bool

	// retired providers still draining after a reconfigure
	retired sync.WaitGroup

	emitWarn *rate.Sometimes
}

// New creates a new pipeline from configuration.
func New(cfg *config.Config, log logger.ILogger, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		cfg:      cfg,
		logger:   log.SubLogger("Pipeline"),
		emitWarn: &rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
	p.newProvider = func(c config.CLSConfig) (*emitter.Provider, error) {
		return emitter.Build(c, log)
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.ingestor == nil {
		p.ingestor = ingestor.New(cfg.Input, log)
	}

	chain, err := buildProcessorChain(cfg.Processor)
	if err != nil {
		return nil, fmt.Errorf("building processors: %w", err)
	}
	p.chain = chain

	provider, err := p.newProvider(cfg.CLS)
	if err != nil {
		return nil, fmt.Errorf("building emitter: %w", err)
	}
	p.provider = provider
	p.emitter = provider.Emitter(cfg.CLS.Category)

	p.logger.Debugf("pipeline built: ingestor=%s, processors=%v, category=%s",
		p.ingestor.Name(), chain.Names(), cfg.CLS.Category)
	return p, nil
}

// buildProcessorChain creates a processor chain from config.
func buildProcessorChain(cfg config.ProcessorConfig) (*processor.Chain, error) {
	chain := processor.NewChain()

	if cfg.Parser.Enabled {
		parser, err := processor.NewParser(cfg.Parser)
		if err != nil {
			return nil, fmt.Errorf("creating parser: %w", err)
		}
		chain.Add(parser)
	}

	if cfg.Enricher.Enabled {
		chain.Add(processor.NewEnricher(cfg.Enricher))
	}

	return chain, nil
}

// Run ships entries until the ingestor is exhausted or ctx is cancelled, then
// waits for in-flight deliveries within the shutdown timeout.
func (p *Pipeline) Run(ctx context.Context) error {
	rawChan := make(chan *model.LogEntry, p.config().Pipeline.BufferSize)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		p.logger.Debugf("started ingestor: %s", p.ingestor.Name())
		return p.ingestor.Start(gCtx, rawChan)
	})

	// Entries already read are shipped even after cancellation.
	drainCtx := context.WithoutCancel(ctx)
	g.Go(func() error {
		for entry := range rawChan {
			p.handle(drainCtx, entry)
		}
		return nil
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		err = nil
	}

	if shutdownErr := p.shutdown(); shutdownErr != nil {
		p.logger.Warningf("deliveries still in flight at shutdown: %v", shutdownErr)
	}
	return err
}

// handle processes one entry and hands it to the current emitter.
func (p *Pipeline) handle(ctx context.Context, entry *model.LogEntry) {
	metrics.PipelineEntries.WithLabelValues(StageRead).Inc()

	p.mu.RLock()
	chain := p.chain
	p.mu.RUnlock()

	if err := chain.Process(ctx, entry); err != nil {
		metrics.PipelineEntries.WithLabelValues(StageDropped).Inc()
		p.logger.Debugf("processor error, entry dropped: %v", err)
		return
	}

	d, err := p.currentEmitter().Log(ctx, entry.Level, entry.Timestamp, entry.Message)
	if errors.Is(err, emitter.ErrClosed) {
		// Swapped out by Reconfigure between lookup and Log
		d, err = p.currentEmitter().Log(ctx, entry.Level, entry.Timestamp, entry.Message)
	}
	switch {
	case err != nil:
		metrics.PipelineEntries.WithLabelValues(StageFailed).Inc()
		p.emitWarn.Do(func() {
			p.logger.Warningf("emit error: %v", err)
		})
	case d == nil:
		metrics.PipelineEntries.WithLabelValues(StageSkipped).Inc()
	default:
		metrics.PipelineEntries.WithLabelValues(StageEmitted).Inc()
	}
}

// shutdown drains the current and any retired providers.
func (p *Pipeline) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), p.config().Pipeline.ShutdownTimeout)
	defer cancel()

	p.mu.Lock()
	p.closing = true
	provider := p.provider
	p.mu.Unlock()

	err := provider.Close(shutdownCtx)

	done := make(chan struct{})
	go func() {
		p.retired.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		err = errors.Join(err, shutdownCtx.Err())
	}

	p.logger.Debug("emitter drained")
	return err
}

// Reconfigure applies a new configuration. A changed CLS section builds a
// fresh emitter provider, which also discards the cached log set and topic
// ids; the old provider drains in the background. Input changes only take
// effect on restart.
func (p *Pipeline) Reconfigure(newCfg *config.Config) error {
	p.mu.RLock()
	oldCfg, closing := p.cfg, p.closing
	p.mu.RUnlock()
	if closing {
		return ErrShuttingDown
	}

	var chain *processor.Chain
	var err error
	if !equalProcessorConfig(oldCfg.Processor, newCfg.Processor) {
		chain, err = buildProcessorChain(newCfg.Processor)
		if err != nil {
			return fmt.Errorf("reconfiguring processors: %w", err)
		}
	}

	var provider *emitter.Provider
	if oldCfg.CLS != newCfg.CLS {
		provider, err = p.newProvider(newCfg.CLS)
		if err != nil {
			return fmt.Errorf("reconfiguring emitter: %w", err)
		}
	}

	if !equalInputConfig(oldCfg.Input, newCfg.Input) {
		p.logger.Warning("input changes take effect on restart")
	}

	p.mu.Lock()
	if p.closing {
		p.mu.Unlock()
		if provider != nil {
			// Never handed out, nothing in flight.
			_ = provider.Close(context.Background())
		}
		return ErrShuttingDown
	}
	p.cfg = newCfg
	if chain != nil {
		p.chain = chain
	}
	var old *emitter.Provider
	if provider != nil {
		old = p.provider
		p.provider = provider
		p.emitter = provider.Emitter(newCfg.CLS.Category)
		// Counted under the lock so shutdown waits for it.
		p.retired.Add(1)
	}
	p.mu.Unlock()

	if old != nil {
		p.retire(old, newCfg.Pipeline.ShutdownTimeout)
	}

	p.logger.Infof("configuration applied: processors_changed=%t, emitter_changed=%t", chain != nil, provider != nil)
	return nil
}

// retire drains old in the background. The caller has already added it to
// p.retired.
func (p *Pipeline) retire(old *emitter.Provider, timeout time.Duration) {
	go func() {
		defer p.retired.Done()
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := old.Close(ctx); err != nil {
			p.logger.Warningf("previous emitter did not drain: %v", err)
		}
	}()
}

func (p *Pipeline) currentEmitter() *emitter.Emitter {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.emitter
}

func (p *Pipeline) config() *config.Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg
}

// Provider returns the current emitter provider.
func (p *Pipeline) Provider() *emitter.Provider {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.provider
}

// ProcessorCount returns the number of processors in the current chain.
func (p *Pipeline) ProcessorCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.chain.Len()
}

func equalProcessorConfig(a, b config.ProcessorConfig) bool {
	return a.Parser.Enabled == b.Parser.Enabled &&
		a.Parser.JSONAutoDetect == b.Parser.JSONAutoDetect &&
		a.Parser.DetectLevel == b.Parser.DetectLevel &&
		slices.Equal(a.Parser.Patterns, b.Parser.Patterns) &&
		a.Enricher.Enabled == b.Enricher.Enabled &&
		a.Enricher.AddHostname == b.Enricher.AddHostname &&
		a.Enricher.AddTimestamp == b.Enricher.AddTimestamp &&
		maps.Equal(a.Enricher.StaticLabels, b.Enricher.StaticLabels)
}

func equalInputConfig(a, b config.InputConfig) bool {
	return a.FromStart == b.FromStart && slices.Equal(a.Files, b.Files) && slices.Equal(a.Exclude, b.Exclude)
}
