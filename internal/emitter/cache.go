package emitter

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/GabrielNunesIT/cls-shipper/internal/metrics"
	"github.com/GabrielNunesIT/cls-shipper/internal/resource"
)

// State is the lifecycle of an IDCache.
type State int

const (
	StateUninitialized State = iota
	StateResolving
	StateReady
)

func (s State) String() string {
	switch s {
	case StateResolving:
		return "resolving"
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

// ResourceIDs is the resolved destination of every emitted batch.
type ResourceIDs struct {
	LogSetID string
	TopicID  string
}

// IDCache resolves the log set and topic ids once and publishes them for the
// lifetime of the process. Concurrent first resolutions may each create the
// resources, but only the first published pair is ever used.
type IDCache struct {
	ids       atomic.Pointer[ResourceIDs]
	resolving atomic.Int32

	logSetName string
	topicName  string
	period     int
}

// NewIDCache creates an empty cache for the named log set and topic. period is
// the retention in days used when the log set has to be created.
func NewIDCache(logSetName, topicName string, period int) *IDCache {
	return &IDCache{
		logSetName: logSetName,
		topicName:  topicName,
		period:     period,
	}
}

// Resolve returns the cached ids, resolving them through c on first use.
// A failed resolution leaves the cache untouched so a later call retries.
func (ic *IDCache) Resolve(ctx context.Context, c resource.Caller) (ResourceIDs, error) {
	if ids := ic.ids.Load(); ids != nil {
		return *ids, nil
	}

	ic.resolving.Add(1)
	defer ic.resolving.Add(-1)

	logSetID, err := resource.EnsureLogSet(ctx, c, ic.logSetName, ic.period)
	if err != nil {
		metrics.EmitterResolutions.WithLabelValues(metrics.ResolutionFailed).Inc()
		return ResourceIDs{}, fmt.Errorf("resolve log set %q: %w", ic.logSetName, err)
	}
	topicID, err := resource.EnsureTopic(ctx, c, logSetID, ic.topicName)
	if err != nil {
		metrics.EmitterResolutions.WithLabelValues(metrics.ResolutionFailed).Inc()
		return ResourceIDs{}, fmt.Errorf("resolve topic %q: %w", ic.topicName, err)
	}

	ids := &ResourceIDs{LogSetID: logSetID, TopicID: topicID}
	if ic.ids.CompareAndSwap(nil, ids) {
		metrics.EmitterResolutions.WithLabelValues(metrics.ResolutionResolved).Inc()
		return *ids, nil
	}

	// Another resolver published first.
	metrics.EmitterResolutions.WithLabelValues(metrics.ResolutionAdopted).Inc()
	if winner := ic.ids.Load(); winner != nil {
		return *winner, nil
	}
	// Reset raced the publish; ours is as good as any.
	return *ids, nil
}

// Cached returns the published ids, if any.
func (ic *IDCache) Cached() (ResourceIDs, bool) {
	if ids := ic.ids.Load(); ids != nil {
		return *ids, true
	}
	return ResourceIDs{}, false
}

// State reports where the cache is in its lifecycle.
func (ic *IDCache) State() State {
	if ic.ids.Load() != nil {
		return StateReady
	}
	if ic.resolving.Load() > 0 {
		return StateResolving
	}
	return StateUninitialized
}

// Reset drops the published ids. The next Resolve looks them up again.
func (ic *IDCache) Reset() {
	ic.ids.Store(nil)
}
