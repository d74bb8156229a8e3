package sources

import (
	"context"
	"sort"
	"sync"

	"multascan/internal/logging"
)

// Dispatcher routes lookups to registered adapters by source id. An unknown
// or empty source id silently falls through to the default adapter so that
// new portals can be rolled out behind ids without breaking existing
// callers.
type Dispatcher struct {
	mu        sync.RWMutex
	adapters  map[string]Adapter
	defaultID string
	logger    logging.Logger
}

// NewDispatcher creates a dispatcher with defaultID as the fallback source.
// The default adapter must be registered before the first Dispatch call.
func NewDispatcher(defaultID string) *Dispatcher {
	return &Dispatcher{
		adapters:  make(map[string]Adapter),
		defaultID: defaultID,
		logger:    logging.GetGlobalLogger().WithField("component", "dispatcher"),
	}
}

// Register adds an adapter under its own ID, replacing any prior registration
func (d *Dispatcher) Register(adapter Adapter) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.adapters[adapter.ID()] = adapter
}

// Resolve maps a source id to its adapter. Unknown ids resolve to the
// default adapter; the substitution is logged but not surfaced to the caller.
func (d *Dispatcher) Resolve(sourceID string) Adapter {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if sourceID != "" {
		if adapter, ok := d.adapters[sourceID]; ok {
			return adapter
		}
		d.logger.Warn("Unknown source id, using default adapter", map[string]interface{}{
			"source_id": sourceID,
			"default":   d.defaultID,
		})
	}
	return d.adapters[d.defaultID]
}

// Dispatch resolves the source and runs the lookup. Whatever the adapter
// returns, a failed result always carries the resolved source's id.
func (d *Dispatcher) Dispatch(ctx context.Context, sourceID string, query Query) Result {
	adapter := d.Resolve(sourceID)
	if adapter == nil {
		return Failed(Fail(d.defaultID, CodeSessionError, "default adapter is not registered"))
	}

	result := adapter.Fetch(ctx, query)
	if result.Kind == KindFailed && result.Err != nil && result.Err.Source == "" {
		result.Err.Source = adapter.ID()
	}
	return result
}

// Sources lists the registered adapters sorted by id, with the default
// flagged
func (d *Dispatcher) Sources() []SourceDescriptor {
	d.mu.RLock()
	defer d.mu.RUnlock()

	descriptors := make([]SourceDescriptor, 0, len(d.adapters))
	for id, adapter := range d.adapters {
		descriptors = append(descriptors, SourceDescriptor{
			ID:           id,
			Jurisdiction: adapter.Jurisdiction(),
			Default:      id == d.defaultID,
		})
	}
	sort.Slice(descriptors, func(i, j int) bool { return descriptors[i].ID < descriptors[j].ID })
	return descriptors
}

// SourceDescriptor describes one registered source for discovery endpoints
type SourceDescriptor struct {
	ID           string `json:"id"`
	Jurisdiction string `json:"jurisdiction"`
	Default      bool   `json:"default"`
}
