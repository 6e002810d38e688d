package emitter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/GabrielNunesIT/go-libs/logger"

	"github.com/GabrielNunesIT/cls-shipper/internal/config"
	"github.com/GabrielNunesIT/cls-shipper/internal/resource"
	"github.com/GabrielNunesIT/cls-shipper/internal/transport"
)

// ErrDisabled is returned by Build when the CLS output is switched off.
var ErrDisabled = errors.New("cls emitter disabled")

// Provider hands out one Emitter per category. All emitters share the caller
// and the id cache, so the log set and topic are resolved once per provider.
type Provider struct {
	caller resource.Caller
	cache  *IDCache
	opts   []Option

	mu       sync.Mutex
	closed   bool
	emitters map[string]*Emitter
}

// NewProvider creates a provider. opts apply to every emitter it creates.
func NewProvider(caller resource.Caller, cache *IDCache, opts ...Option) (*Provider, error) {
	if caller == nil {
		return nil, ErrNilCaller
	}
	if cache == nil {
		return nil, ErrNilCache
	}
	return &Provider{
		caller:   caller,
		cache:    cache,
		opts:     opts,
		emitters: make(map[string]*Emitter),
	}, nil
}

// Build wires a transport client, id cache and provider from cfg.
func Build(cfg config.CLSConfig, log logger.ILogger, topts ...transport.Option) (*Provider, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}

	base := []transport.Option{transport.WithLogger(log)}
	if cfg.Scheme != "" {
		base = append(base, transport.WithScheme(cfg.Scheme))
	}
	if cfg.Timeout > 0 {
		base = append(base, transport.WithTimeout(cfg.Timeout))
	}
	topts = append(base, topts...)
	client, err := transport.New(cfg.Endpoint, cfg.Credentials(), topts...)
	if err != nil {
		return nil, fmt.Errorf("create cls client: %w", err)
	}

	cache := NewIDCache(cfg.LogSetName, cfg.TopicName, cfg.Period)
	return NewProvider(client, cache, WithMinLevel(level), WithLogger(log))
}

// Emitter returns the emitter for name, creating it on first use.
func (p *Provider) Emitter(name string) *Emitter {
	p.mu.Lock()
	defer p.mu.Unlock()

	if e, ok := p.emitters[name]; ok {
		return e
	}
	e := newEmitter(name, p.caller, p.cache, p.opts...)
	// Emitters handed out after Close reject every record.
	e.closed = p.closed
	p.emitters[name] = e
	return e
}

// Logger returns a slog.Logger that ships through the emitter for name.
func (p *Provider) Logger(name string) *slog.Logger {
	return slog.New(NewHandler(p.Emitter(name)))
}

// Cache returns the shared id cache.
func (p *Provider) Cache() *IDCache {
	return p.cache
}

// Close closes every emitter, waiting for in-flight deliveries until ctx is done.
func (p *Provider) Close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	emitters := make([]*Emitter, 0, len(p.emitters))
	for _, e := range p.emitters {
		emitters = append(emitters, e)
	}
	p.mu.Unlock()

	var errs []error
	for _, e := range emitters {
		if err := e.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
