package corpus

import (
	"context"
	"log/slog"
	"sync"

	"darwinawards/internal/synced"
)

// Distributor propagates corpus versions. The authoritative peer calls
// Publish; every peer, the authoritative one included, rebuilds its Store
// when a version reaches it through the registry.
type Distributor struct {
	store    *Store
	registry *synced.Registry
	source   *synced.Source // nil on non-authoritative peers
	logger   *slog.Logger

	mu         sync.RWMutex
	publishers []synced.Publisher

	publishMu sync.Mutex // one version in flight at a time
}

// NewDistributor registers the corpus handler on registry.
func NewDistributor(store *Store, registry *synced.Registry, logger *slog.Logger) *Distributor {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Distributor{
		store:    store,
		registry: registry,
		logger:   logger,
	}
	registry.Handle(synced.CorpusKey, d.OnVersionReceived)
	return d
}

// WithSource makes this distributor authoritative.
func (d *Distributor) WithSource(source *synced.Source) *Distributor {
	d.source = source
	return d
}

// AddPublisher registers a transport new versions are fanned out to.
func (d *Distributor) AddPublisher(p synced.Publisher) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.publishers = append(d.publishers, p)
}

// Publish assigns raw as the next corpus version, sends it to every peer and
// delivers it locally. Transport failures are logged; peers that miss a
// version catch up on their next subscribe.
func (d *Distributor) Publish(ctx context.Context, raw []byte) (synced.Value, bool) {
	if d.source == nil {
		d.logger.Warn("corpus_publish_not_authoritative")
		return synced.Value{}, false
	}

	d.publishMu.Lock()
	defer d.publishMu.Unlock()

	v := d.source.Assign(synced.CorpusKey, raw)
	d.logger.Info("corpus_published",
		"version", v.Version,
		"bytes", len(v.Data),
	)

	d.mu.RLock()
	publishers := append([]synced.Publisher(nil), d.publishers...)
	d.mu.RUnlock()

	for _, p := range publishers {
		if err := p.PublishValue(ctx, v); err != nil {
			d.logger.Warn("corpus_publish_failed",
				"version", v.Version,
				"error", err.Error(),
			)
		}
	}

	d.registry.Deliver(v)
	return v, true
}

// OnVersionReceived rebuilds the local snapshot from the received bytes.
func (d *Distributor) OnVersionReceived(v synced.Value) {
	c := d.store.Rebuild(v.Data)
	d.logger.Debug("corpus_version_applied",
		"version", v.Version,
		"categories", c.Len(),
	)
}

// Version returns the version of the snapshot currently applied.
func (d *Distributor) Version() int64 {
	return d.registry.Version(synced.CorpusKey)
}
