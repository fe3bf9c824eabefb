package corpus

import (
	"context"
	"errors"
	"sync"
	"testing"

	"darwinawards/internal/synced"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	values []synced.Value
	err    error
}

func (p *recordingPublisher) PublishValue(ctx context.Context, v synced.Value) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values = append(p.values, v)
	return p.err
}

func TestDistributor_PublishRebuildsLocallyAndFansOut(t *testing.T) {
	store := NewStore(nil)
	reg := synced.NewRegistry()
	d := NewDistributor(store, reg, nil).WithSource(synced.NewSource())

	ok1 := &recordingPublisher{}
	failing := &recordingPublisher{err: errors.New("peer unreachable")}
	d.AddPublisher(failing)
	d.AddPublisher(ok1)

	v, ok := d.Publish(context.Background(), []byte(sampleYAML))
	require.True(t, ok)

	assert.Equal(t, 3, store.Current().Len())
	assert.Equal(t, v.Version, d.Version())
	require.Len(t, ok1.values, 1)
	assert.Equal(t, synced.CorpusKey, ok1.values[0].Name)
	assert.Len(t, failing.values, 1, "a failing transport does not stop the others")
}

func TestDistributor_MalformedPublishEmptiesCorpus(t *testing.T) {
	store := NewStore(nil)
	d := NewDistributor(store, synced.NewRegistry(), nil).WithSource(synced.NewSource())

	d.Publish(context.Background(), []byte(sampleYAML))
	require.Equal(t, 3, store.Current().Len())

	assert.NotPanics(t, func() {
		d.Publish(context.Background(), []byte("general: [unclosed"))
	})
	assert.Equal(t, 0, store.Current().Len())
}

func TestDistributor_NonAuthoritativeCannotPublish(t *testing.T) {
	store := NewStore(nil)
	d := NewDistributor(store, synced.NewRegistry(), nil)

	_, ok := d.Publish(context.Background(), []byte(sampleYAML))

	assert.False(t, ok)
	assert.Equal(t, 0, store.Current().Len())
}

func TestDistributor_RemotePeerAppliesOnlyNewerVersions(t *testing.T) {
	store := NewStore(nil)
	reg := synced.NewRegistry()
	NewDistributor(store, reg, nil)

	reg.Deliver(synced.Value{Name: synced.CorpusKey, Version: 2, Data: []byte(sampleYAML)})
	reg.Deliver(synced.Value{Name: synced.CorpusKey, Version: 1, Data: []byte("general: [old]")})

	assert.Equal(t, 3, store.Current().Len())
}
