package synced

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"
)

// Names of the values the authoritative peer propagates.
const (
	CorpusKey   = "deathTexts"
	SettingsKey = "settings"
)

// Value is one version of a synchronized value.
type Value struct {
	Name    string `json:"name"`
	Version int64  `json:"version"`
	Data    []byte `json:"data"`
}

// Publisher propagates a value to remote peers.
type Publisher interface {
	PublishValue(ctx context.Context, v Value) error
}

// Source is the authoritative side: it owns the current value per name and
// hands out strictly increasing versions.
type Source struct {
	mu     sync.RWMutex
	values map[string]Value
	now    func() time.Time
}

func NewSource() *Source {
	return &Source{
		values: make(map[string]Value),
		now:    time.Now,
	}
}

// Seed raises the version floor for name, e.g. from persisted history,
// so versions keep increasing across restarts.
func (s *Source) Seed(name string, version int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.values[name]
	if version > v.Version {
		v.Name = name
		v.Version = version
		s.values[name] = v
	}
}

// Assign stores data as the next version of name and returns it.
// Versions start from wall-clock milliseconds so a restarted source without
// history still outranks what peers saw before.
func (s *Source) Assign(name string, data []byte) Value {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.values[name]
	version := s.now().UnixMilli()
	if version <= prev.Version {
		version = prev.Version + 1
	}
	if data == nil {
		data = []byte{}
	}
	v := Value{Name: name, Version: version, Data: slices.Clone(data)}
	s.values[name] = v
	return v
}

// Get returns the current value of name.
func (s *Source) Get(name string) (Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[name]
	if !ok || v.Data == nil {
		return Value{}, false
	}
	return v, true
}

// Snapshot returns every assigned value, ordered by name.
func (s *Source) Snapshot() []Value {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Value, 0, len(s.values))
	for _, v := range s.values {
		if v.Data != nil {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Registry dispatches received values to per-name handlers, dropping
// versions that are not newer than the last one delivered. Values may
// arrive over several transports; each version is applied once.
type Registry struct {
	mu       sync.Mutex
	versions map[string]int64
	handlers map[string]func(Value)
}

func NewRegistry() *Registry {
	return &Registry{
		versions: make(map[string]int64),
		handlers: make(map[string]func(Value)),
	}
}

// Handle registers the handler for name, replacing any previous one.
func (r *Registry) Handle(name string, fn func(Value)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = fn
}

// Deliver applies v if it is newer than what was last delivered for its name.
// It reports whether the handler ran.
func (r *Registry) Deliver(v Value) bool {
	r.mu.Lock()
	fn, ok := r.handlers[v.Name]
	if !ok || v.Version <= r.versions[v.Name] {
		r.mu.Unlock()
		return false
	}
	r.versions[v.Name] = v.Version
	r.mu.Unlock()

	fn(v)
	return true
}

// Version returns the last delivered version of name.
func (r *Registry) Version(name string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.versions[name]
}
