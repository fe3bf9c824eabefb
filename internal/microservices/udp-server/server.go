package udp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"darwinawards/internal/synced"
)

const DefaultCleanupInterval = time.Minute

// Server is the session relay: it relays DEATH datagrams between peers and
// pushes the synced values it is authoritative for.
type Server struct {
	conn            *net.UDPConn
	subManager      *SubscriberManager
	broadcaster     *Broadcaster
	source          *synced.Source
	logger          *slog.Logger
	cleanupInterval time.Duration
}

// NewServer listens on addr (host:port, port 0 picks a free one). source
// holds the values sent to every peer on subscribe; it may be nil.
func NewServer(addr string, source *synced.Source, subscriberTimeout time.Duration, logger *slog.Logger) (*Server, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on UDP: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	subManager := NewSubscriberManager(subscriberTimeout)

	return &Server{
		conn:            conn,
		subManager:      subManager,
		broadcaster:     NewBroadcaster(conn, subManager, logger),
		source:          source,
		logger:          logger,
		cleanupInterval: DefaultCleanupInterval,
	}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() *net.UDPAddr {
	return s.conn.LocalAddr().(*net.UDPAddr)
}

// Start serves until ctx is done, then closes the socket.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("session_server_listening", "addr", s.Addr().String())

	go s.subManager.StartCleanupRoutine(ctx, s.cleanupInterval, func(peerID string) {
		s.logger.Info("peer_expired", "peer_id", peerID)
	})

	go func() {
		<-ctx.Done()
		s.conn.Close()
	}()

	err := s.handleIncomingMessages()
	s.logger.Info("session_server_stopped")
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (s *Server) handleIncomingMessages() error {
	buffer := make([]byte, MaxDatagramSize)

	for {
		n, addr, err := s.conn.ReadFromUDP(buffer)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			s.logger.Warn("udp_read_failed", "error", err.Error())
			continue
		}

		data := make([]byte, n)
		copy(data, buffer[:n])
		go s.processMessage(data, addr)
	}
}

func (s *Server) processMessage(data []byte, addr *net.UDPAddr) {
	msg, err := ParseMessage(data)
	if err != nil {
		s.logger.Warn("invalid_datagram", "addr", addr.String(), "error", err.Error())
		return
	}

	switch msg.Type {
	case MessageSubscribe:
		s.subManager.Add(msg.PeerID, msg.Player, addr)
		s.logger.Info("peer_subscribed",
			"peer_id", msg.PeerID,
			"player", msg.Player,
			"addr", addr.String(),
		)

		confirmation := NewControl(MessageSubscribed, msg.PeerID)
		confirmation.Info = "subscribed to session"
		if err := s.broadcaster.SendTo(addr, confirmation); err != nil {
			s.logger.Warn("peer_unreachable", "peer_id", msg.PeerID, "error", err.Error())
			return
		}
		s.syncValues(msg.PeerID, addr)

	case MessageUnsubscribe:
		s.subManager.Remove(msg.PeerID)
		s.logger.Info("peer_unsubscribed", "peer_id", msg.PeerID)

		confirmation := NewControl(MessageUnsubscribed, msg.PeerID)
		if err := s.broadcaster.SendTo(addr, confirmation); err != nil {
			s.logger.Debug("unsubscribe_confirmation_failed", "peer_id", msg.PeerID, "error", err.Error())
		}

	case MessagePing:
		if !s.subManager.UpdateActivity(msg.PeerID) {
			s.logger.Debug("ping_from_unknown_peer", "peer_id", msg.PeerID)
		}
		if err := s.broadcaster.SendTo(addr, NewControl(MessagePong, msg.PeerID)); err != nil {
			s.logger.Debug("pong_failed", "peer_id", msg.PeerID, "error", err.Error())
		}

	case MessageDeath:
		s.relayDeath(msg)

	default:
		s.logger.Warn("unexpected_message_type", "addr", addr.String(), "type", msg.Type)
	}
}

// relayDeath forwards a death to every peer except its origin; the origin
// has already displayed it.
func (s *Server) relayDeath(msg *Message) {
	if !s.subManager.Allow(msg.Origin) {
		s.logger.Warn("death_dropped",
			"peer_id", msg.Origin,
			"id", msg.ID,
			"reason", "rate limited or not subscribed",
		)
		return
	}
	s.subManager.UpdateActivity(msg.Origin)

	delivered, err := s.broadcaster.BroadcastExcept(msg, msg.Origin)
	if err != nil {
		s.logger.Warn("death_relay_failed", "id", msg.ID, "error", err.Error())
		return
	}
	s.logger.Info("death_relayed",
		"id", msg.ID,
		"origin", msg.Origin,
		"category", msg.Category,
		"delivered", delivered,
	)
}

// syncValues sends a newly subscribed peer the current synced values.
// Deaths that happened before the subscribe are not replayed.
func (s *Server) syncValues(peerID string, addr *net.UDPAddr) {
	if s.source == nil {
		return
	}
	for _, v := range s.source.Snapshot() {
		if err := s.broadcaster.SendTo(addr, NewSync(v)); err != nil {
			s.logger.Warn("sync_failed",
				"peer_id", peerID,
				"name", v.Name,
				"version", v.Version,
				"error", err.Error(),
			)
		}
	}
}

// PublishValue broadcasts v to every subscriber.
func (s *Server) PublishValue(_ context.Context, v synced.Value) error {
	_, err := s.broadcaster.BroadcastToAll(NewSync(v))
	return err
}

// Broadcaster returns the broadcaster instance
func (s *Server) Broadcaster() *Broadcaster {
	return s.broadcaster
}

func (s *Server) SubscriberCount() int {
	return s.subManager.Count()
}

// Subscribers returns the active peers.
func (s *Server) Subscribers() []Subscriber {
	return s.subManager.GetAll()
}

// Shutdown closes the socket; Start returns afterwards.
func (s *Server) Shutdown() error {
	return s.conn.Close()
}
