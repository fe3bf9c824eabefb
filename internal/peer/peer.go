package peer

import (
	"context"
	"log/slog"
	"time"

	"darwinawards/internal/corpus"
	"darwinawards/internal/display"
	"darwinawards/internal/selector"
	"darwinawards/internal/settings"
	"darwinawards/internal/synced"

	"golang.org/x/sync/errgroup"
)

const DefaultSweepInterval = 250 * time.Millisecond

// Options configure a peer.
type Options struct {
	PeerID      string
	Player      string
	SessionAddr string

	// Settings in force until the relay pushes its own.
	Initial settings.Settings

	// Redis is an optional second path for synced values.
	Redis *synced.RedisStore

	PingInterval  time.Duration
	SweepInterval time.Duration
	Logger        *slog.Logger
}

// Peer wires one player's node to the session: synced values and
// settings are applied on the loop, deaths flow through the node.
type Peer struct {
	Node     *Node
	Client   *Client
	Loop     *Loop
	Corpus   *corpus.Store
	Registry *synced.Registry
	Settings *settings.Manager
	Queue    *display.Queue

	redis         *synced.RedisStore
	sweepInterval time.Duration
	logger        *slog.Logger
}

func New(opts Options) *Peer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sweep := opts.SweepInterval
	if sweep <= 0 {
		sweep = DefaultSweepInterval
	}

	store := corpus.NewStore(logger)
	registry := synced.NewRegistry()
	corpus.NewDistributor(store, registry, logger)

	manager := settings.NewManager(opts.Initial)
	queue := display.NewQueue(opts.Initial.NumberOfDeaths, opts.Initial.MaxAge())

	client := NewClient(opts.SessionAddr, opts.PeerID, opts.Player, logger)
	if opts.PingInterval > 0 {
		client.WithPingInterval(opts.PingInterval)
	}

	p := &Peer{
		Client:        client,
		Loop:          NewLoop(64),
		Corpus:        store,
		Registry:      registry,
		Settings:      manager,
		Queue:         queue,
		redis:         opts.Redis,
		sweepInterval: sweep,
		logger:        logger,
	}
	p.Node = NewNode(opts.Player, selector.New(store), queue, client, logger)

	registry.Handle(synced.SettingsKey, p.applySettings)
	manager.OnChange(func(s settings.Settings) {
		queue.Reconfigure(s.NumberOfDeaths, s.MaxAge())
		// a shorter timer hides expired entries right away
		queue.Tick(time.Now())
		logger.Info("settings_applied",
			"locked", s.Locked,
			"number_of_deaths", s.NumberOfDeaths,
			"timer_for_deaths", s.TimerForDeaths,
		)
	})
	client.OnSync(p.deliver)
	return p
}

// deliver hands a received value to the loop; stale versions are dropped there.
func (p *Peer) deliver(v synced.Value) {
	p.Loop.Do(func() {
		if !p.Registry.Deliver(v) {
			p.logger.Debug("synced_value_ignored", "name", v.Name, "version", v.Version)
		}
	})
}

func (p *Peer) applySettings(v synced.Value) {
	s, err := settings.Decode(v.Data)
	if err != nil {
		p.logger.Warn("settings_malformed", "version", v.Version, "error", err.Error())
		return
	}
	p.Settings.ApplySynced(s)
}

// Run connects to the session and runs until ctx is done. onDisplay, when
// set, receives the visible entries whenever they change.
func (p *Peer) Run(ctx context.Context, onDisplay func([]display.Entry)) error {
	if err := p.Client.Connect(); err != nil {
		return err
	}
	defer p.Client.Disconnect()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p.Loop.Run(ctx)
		return nil
	})
	g.Go(func() error {
		return p.Client.Listen(ctx)
	})
	g.Go(func() error {
		p.Queue.Run(ctx, p.sweepInterval, onDisplay)
		return nil
	})
	if p.redis != nil {
		g.Go(func() error {
			err := p.redis.Subscribe(ctx, p.deliver, synced.CorpusKey, synced.SettingsKey)
			if err != nil && ctx.Err() == nil {
				// the relay path still carries synced values
				p.logger.Warn("redis_subscription_lost", "error", err.Error())
			}
			return nil
		})
	}
	return g.Wait()
}
