package peer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	udp "darwinawards/internal/microservices/udp-server"
	"darwinawards/internal/shared"
	"darwinawards/internal/synced"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	DefaultPingInterval = 30 * time.Second

	// deliveries seen within this window are suppressed
	recentIDCapacity = 512
)

// Channel carries deaths between peers. Send is fire-and-forget.
type Channel interface {
	Send(msg shared.DeathMessage)
	OnReceive(fn func(shared.DeathMessage))
}

// Stats holds UDP connection statistics
type Stats struct {
	ConnectedAt    time.Time
	DeathsSent     int
	DeathsReceived int
	Duplicates     int
	SyncsReceived  int
	LastMessage    time.Time
	LastPing       time.Time
	Uptime         time.Duration
}

// Client is a peer's connection to the session relay.
type Client struct {
	serverAddr   string
	peerID       string
	player       string
	pingInterval time.Duration
	logger       *slog.Logger

	mu        sync.RWMutex
	conn      *net.UDPConn
	connected bool
	stats     Stats
	onReceive func(shared.DeathMessage)
	onSync    func(synced.Value)
	recent    *lru.Cache[string, struct{}]
}

func NewClient(serverAddr, peerID, player string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		serverAddr:   serverAddr,
		peerID:       peerID,
		player:       player,
		pingInterval: DefaultPingInterval,
		logger:       logger,
		recent:       newRecentIDs(recentIDCapacity),
	}
}

// WithPingInterval sets how often the client pings the relay.
func (c *Client) WithPingInterval(d time.Duration) *Client {
	c.pingInterval = d
	return c
}

func (c *Client) PeerID() string { return c.peerID }

// OnReceive sets the handler for deaths of other peers. It runs on the
// listener goroutine.
func (c *Client) OnReceive(fn func(shared.DeathMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onReceive = fn
}

// OnSync sets the handler for synced values pushed by the relay.
func (c *Client) OnSync(fn func(synced.Value)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSync = fn
}

// Connect dials the relay and subscribes.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	udpAddr, err := net.ResolveUDPAddr("udp", c.serverAddr)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return fmt.Errorf("failed to connect to session server: %w", err)
	}

	c.conn = conn
	c.connected = true
	c.stats.ConnectedAt = time.Now()

	if err := c.writeLocked(udp.NewSubscribe(c.peerID, c.player)); err != nil {
		c.conn.Close()
		c.connected = false
		return fmt.Errorf("failed to send subscribe request: %w", err)
	}

	c.logger.Info("session_subscribed", "peer_id", c.peerID, "server", c.serverAddr)
	return nil
}

// Send relays msg to the other peers. Errors are logged and dropped.
func (c *Client) Send(msg shared.DeathMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		c.logger.Debug("death_not_sent", "reason", "not connected")
		return
	}
	out := udp.NewDeath(uuid.NewString(), c.peerID, msg)
	if err := c.writeLocked(out); err != nil {
		c.logger.Warn("death_send_failed", "id", out.ID, "error", err.Error())
		return
	}
	c.stats.DeathsSent++
}

func (c *Client) writeLocked(msg *udp.Message) error {
	data, err := msg.ToJSON()
	if err != nil {
		return err
	}
	_, err = c.conn.Write(data)
	return err
}

// Listen reads datagrams and keeps the subscription alive until ctx is
// done or the client disconnects.
func (c *Client) Listen(ctx context.Context) error {
	c.mu.RLock()
	conn := c.conn
	connected := c.connected
	c.mu.RUnlock()
	if !connected {
		return errors.New("not connected to session server")
	}

	go c.pingRoutine(ctx)

	buffer := make([]byte, udp.MaxDatagramSize)
	for {
		if ctx.Err() != nil {
			return nil
		}

		// a short deadline lets the loop observe ctx
		conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, err := conn.Read(buffer)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			c.logger.Debug("udp_read_failed", "error", err.Error())
			continue
		}
		c.handleDatagram(buffer[:n])
	}
}

func (c *Client) handleDatagram(data []byte) {
	msg, err := udp.ParseMessage(data)
	if err != nil {
		c.logger.Warn("invalid_datagram", "error", err.Error())
		return
	}

	c.mu.Lock()
	c.stats.LastMessage = time.Now()
	var (
		onReceive func(shared.DeathMessage)
		onSync    func(synced.Value)
	)
	switch msg.Type {
	case udp.MessageDeath:
		if msg.Origin == c.peerID {
			c.mu.Unlock()
			return
		}
		if seen, _ := c.recent.ContainsOrAdd(msg.ID, struct{}{}); seen {
			c.stats.Duplicates++
			c.mu.Unlock()
			return
		}
		c.stats.DeathsReceived++
		onReceive = c.onReceive
	case udp.MessageSync:
		c.stats.SyncsReceived++
		onSync = c.onSync
	}
	c.mu.Unlock()

	switch {
	case onReceive != nil:
		onReceive(msg.DeathMessage())
	case onSync != nil:
		onSync(msg.Value())
	}
}

// pingRoutine pings the relay and resubscribes when it has gone quiet,
// which covers a relay restart.
func (c *Client) pingRoutine(ctx context.Context) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.mu.Lock()
			if !c.connected {
				c.mu.Unlock()
				return
			}
			msg := udp.NewControl(udp.MessagePing, c.peerID)
			if now.Sub(c.stats.LastMessage) > 3*c.pingInterval {
				msg = udp.NewSubscribe(c.peerID, c.player)
			}
			if err := c.writeLocked(msg); err == nil {
				c.stats.LastPing = now
			}
			c.mu.Unlock()
		}
	}
}

// Disconnect unsubscribes and closes the connection.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil
	}
	_ = c.writeLocked(udp.NewControl(udp.MessageUnsubscribe, c.peerID))

	c.connected = false
	err := c.conn.Close()
	c.logger.Info("session_unsubscribed", "peer_id", c.peerID)
	return err
}

// Stats returns the current connection statistics
func (c *Client) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := c.stats
	if c.connected {
		stats.Uptime = time.Since(c.stats.ConnectedAt)
	}
	return stats
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// newRecentIDs returns a set holding the last n message IDs.
func newRecentIDs(n int) *lru.Cache[string, struct{}] {
	cache, _ := lru.New[string, struct{}](max(n, 1))
	return cache
}
