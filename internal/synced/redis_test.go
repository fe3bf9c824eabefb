package synced

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)

	client, err := Connect(context.Background(), mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return NewRedisStore(client, nil)
}

func TestRedisStore_PublishAndLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, found, err := store.Load(ctx, CorpusKey)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.PublishValue(ctx, Value{Name: CorpusKey, Version: 5, Data: []byte("general: [hi]")}))
	// an older version must not overwrite the stored one
	require.NoError(t, store.PublishValue(ctx, Value{Name: CorpusKey, Version: 4, Data: []byte("old")}))

	v, found, err := store.Load(ctx, CorpusKey)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(5), v.Version)
	assert.Equal(t, []byte("general: [hi]"), v.Data)
}

func TestRedisStore_ConcurrentPublishKeepsNewest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for version := int64(1); version <= 40; version++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data := []byte(fmt.Sprintf(`{"number_of_deaths":%d}`, version%26))
			assert.NoError(t, store.PublishValue(ctx, Value{Name: SettingsKey, Version: version, Data: data}))
		}()
	}
	wg.Wait()

	v, found, err := store.Load(ctx, SettingsKey)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(40), v.Version)
	assert.Equal(t, []byte(`{"number_of_deaths":14}`), v.Data)
}

func TestRedisStore_StaleValueIsNotAnnounced(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, store.PublishValue(ctx, Value{Name: CorpusKey, Version: 9, Data: []byte("new")}))

	got := make(chan Value, 4)
	go store.Subscribe(ctx, func(v Value) { got <- v }, CorpusKey)

	select {
	case v := <-got:
		assert.Equal(t, int64(9), v.Version)
	case <-time.After(2 * time.Second):
		t.Fatal("stored value not delivered")
	}

	require.NoError(t, store.PublishValue(ctx, Value{Name: CorpusKey, Version: 3, Data: []byte("old")}))
	require.NoError(t, store.PublishValue(ctx, Value{Name: CorpusKey, Version: 10, Data: []byte("newer")}))

	select {
	case v := <-got:
		assert.Equal(t, int64(10), v.Version, "the stale version must not be announced")
	case <-time.After(2 * time.Second):
		t.Fatal("newer value not announced")
	}
}

func TestRedisStore_SubscribeCatchesUpAndFollows(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, store.PublishValue(ctx, Value{Name: SettingsKey, Version: 1, Data: []byte(`{"locked":true}`)}))

	received := make(chan Value, 4)
	done := make(chan error, 1)
	go func() {
		done <- store.Subscribe(ctx, func(v Value) { received <- v }, SettingsKey, CorpusKey)
	}()

	select {
	case v := <-received:
		assert.Equal(t, SettingsKey, v.Name)
		assert.Equal(t, int64(1), v.Version)
	case <-time.After(2 * time.Second):
		t.Fatal("stored value was not delivered on subscribe")
	}

	require.NoError(t, store.PublishValue(ctx, Value{Name: CorpusKey, Version: 7, Data: []byte("x: [y]")}))

	select {
	case v := <-received:
		assert.Equal(t, CorpusKey, v.Name)
		assert.Equal(t, int64(7), v.Version)
	case <-time.After(2 * time.Second):
		t.Fatal("published value was not delivered")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("subscribe did not return after cancel")
	}
}
