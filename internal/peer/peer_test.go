package peer

import (
	"context"
	"net"
	"testing"
	"time"

	"darwinawards/internal/classifier"
	udp "darwinawards/internal/microservices/udp-server"
	"darwinawards/internal/settings"
	"darwinawards/internal/shared"
	"darwinawards/internal/synced"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCorpus = `death by fire: ["Burned to a crisp by {enemy}"]`

type session struct {
	server *udp.Server
	source *synced.Source
}

func startSession(t *testing.T) *session {
	t.Helper()
	source := synced.NewSource()
	source.Assign(synced.CorpusKey, []byte(testCorpus))
	data, err := settings.Encode(settings.Settings{Locked: true, NumberOfDeaths: 5, TimerForDeaths: 0})
	require.NoError(t, err)
	source.Assign(synced.SettingsKey, data)

	server, err := udp.NewServer("127.0.0.1:0", source, time.Minute, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		server.Start(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return &session{server: server, source: source}
}

func startPeer(t *testing.T, s *session, id, player string) *Peer {
	t.Helper()
	p := New(Options{
		PeerID:        id,
		Player:        player,
		SessionAddr:   s.server.Addr().String(),
		Initial:       settings.Default(),
		SweepInterval: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx, nil)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return p
}

func texts(p *Peer) []string {
	var out []string
	for _, e := range p.Queue.Snapshot() {
		out = append(out, e.Message.Text)
	}
	return out
}

func TestPeer_DeathReachesEveryPeerOnce(t *testing.T) {
	s := startSession(t)
	a := startPeer(t, s, "peer-a", "Erik")
	b := startPeer(t, s, "peer-b", "Astrid")

	// both peers apply the session's corpus and settings on subscribe
	for _, p := range []*Peer{a, b} {
		require.Eventually(t, func() bool {
			return p.Corpus.Current().Has("death by fire") && p.Settings.Effective().NumberOfDeaths == 5
		}, 2*time.Second, 10*time.Millisecond)
	}

	msg, ok := a.Node.HandleDeath(classifier.DeathSignal{Hit: &classifier.Hit{
		Attacker: &classifier.Attacker{Name: "Troll", Kind: classifier.AttackerCreature},
		Damage:   classifier.Damage{Fire: 5},
	}})
	require.True(t, ok)
	assert.Equal(t, shared.DeathMessage{Category: "death by fire", Text: "Burned to a crisp by Troll"}, msg)

	require.Eventually(t, func() bool { return len(texts(b)) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"Burned to a crisp by Troll"}, texts(b))

	// the origin shows its own death once, not echoed back
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []string{"Burned to a crisp by Troll"}, texts(a))
	assert.Equal(t, 1, a.Client.Stats().DeathsSent)
	assert.Equal(t, 1, b.Client.Stats().DeathsReceived)
}

func TestPeer_NewCorpusVersionReplacesSnapshot(t *testing.T) {
	s := startSession(t)
	p := startPeer(t, s, "peer-a", "Erik")
	require.Eventually(t, func() bool { return p.Corpus.Current().Has("death by fire") }, 2*time.Second, 10*time.Millisecond)

	v := s.source.Assign(synced.CorpusKey, []byte(`death by frost: ["{player} became a popsicle"]`))
	require.NoError(t, s.server.PublishValue(context.Background(), v))

	require.Eventually(t, func() bool { return p.Corpus.Current().Has("death by frost") }, 2*time.Second, 10*time.Millisecond)
	assert.False(t, p.Corpus.Current().Has("death by fire"))
	assert.Equal(t, v.Version, p.Registry.Version(synced.CorpusKey))
}

func TestPeer_StaleVersionIgnored(t *testing.T) {
	s := startSession(t)
	p := startPeer(t, s, "peer-a", "Erik")
	require.Eventually(t, func() bool { return p.Corpus.Current().Has("death by fire") }, 2*time.Second, 10*time.Millisecond)

	current := p.Registry.Version(synced.CorpusKey)
	stale := synced.Value{Name: synced.CorpusKey, Version: current - 1, Data: []byte(`general: ["old"]`)}
	require.NoError(t, s.server.PublishValue(context.Background(), stale))

	time.Sleep(100 * time.Millisecond)
	assert.True(t, p.Corpus.Current().Has("death by fire"))
	assert.False(t, p.Corpus.Current().Has("general"))
}

func TestPeer_LockedSettingsReconfigureQueue(t *testing.T) {
	s := startSession(t)
	p := startPeer(t, s, "peer-a", "Erik")
	require.Eventually(t, func() bool { return p.Settings.Effective().NumberOfDeaths == 5 }, 2*time.Second, 10*time.Millisecond)

	for i := 0; i < 5; i++ {
		p.Node.Receive(shared.DeathMessage{Category: "general", Text: "R.I.P."})
	}
	require.Equal(t, 5, p.Queue.Len())

	data, err := settings.Encode(settings.Settings{Locked: true, NumberOfDeaths: 2, TimerForDeaths: 10})
	require.NoError(t, err)
	require.NoError(t, s.server.PublishValue(context.Background(), s.source.Assign(synced.SettingsKey, data)))

	require.Eventually(t, func() bool { return p.Queue.Len() == 2 }, 2*time.Second, 10*time.Millisecond)

	_, err = p.Settings.SetLocal(settings.Update{NumberOfDeaths: ptr(7)}, false)
	assert.ErrorIs(t, err, settings.ErrLocked)
}

func TestClient_SuppressesDuplicateDeliveries(t *testing.T) {
	s := startSession(t)
	b := startPeer(t, s, "peer-b", "Astrid")
	require.Eventually(t, func() bool { return s.server.SubscriberCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	// a raw sender that is subscribed but replays the same DEATH twice
	conn, err := net.DialUDP("udp", nil, s.server.Addr())
	require.NoError(t, err)
	defer conn.Close()
	write := func(m *udp.Message) {
		data, err := m.ToJSON()
		require.NoError(t, err)
		_, err = conn.Write(data)
		require.NoError(t, err)
	}
	write(udp.NewSubscribe("peer-raw", "Bjorn"))
	require.Eventually(t, func() bool { return s.server.SubscriberCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	death := udp.NewDeath("dup-1", "peer-raw", shared.DeathMessage{Category: "general", Text: "R.I.P. Bjorn"})
	write(death)
	write(death)

	require.Eventually(t, func() bool { return b.Client.Stats().Duplicates == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"R.I.P. Bjorn"}, texts(b))
}

func TestRecentIDs_Evicts(t *testing.T) {
	r := newRecentIDs(2)
	add := func(id string) bool {
		seen, _ := r.ContainsOrAdd(id, struct{}{})
		return !seen
	}
	assert.True(t, add("a"))
	assert.False(t, add("a"))
	assert.True(t, add("b"))
	assert.True(t, add("c"))
	assert.True(t, add("a"), "a was evicted")
}

func ptr[T any](v T) *T { return &v }

func TestPeer_ReceivesValuesOverRedis(t *testing.T) {
	s := startSession(t)
	mr := miniredis.RunT(t)
	store := synced.NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), nil)
	t.Cleanup(func() { store.Close() })

	p := New(Options{
		PeerID:      "peer-r",
		Player:      "Erik",
		SessionAddr: s.server.Addr().String(),
		Initial:     settings.Default(),
		Redis:       store,
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx, nil)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	require.Eventually(t, func() bool { return p.Corpus.Current().Has("death by fire") }, 2*time.Second, 10*time.Millisecond)

	v := s.source.Assign(synced.CorpusKey, []byte(`death by tree: ["{player} lost to a birch"]`))
	require.NoError(t, store.PublishValue(context.Background(), v))

	require.Eventually(t, func() bool { return p.Corpus.Current().Has("death by tree") }, 2*time.Second, 10*time.Millisecond)

	// the same version arriving over UDP afterwards changes nothing
	require.NoError(t, s.server.PublishValue(context.Background(), v))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, v.Version, p.Registry.Version(synced.CorpusKey))
}
