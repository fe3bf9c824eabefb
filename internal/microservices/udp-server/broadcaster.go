package udp

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
)

// Broadcaster fans datagrams out to subscribed peers. Delivery is best
// effort: a failed send marks the peer inactive and is not retried.
type Broadcaster struct {
	conn       *net.UDPConn
	subManager *SubscriberManager
	logger     *slog.Logger
}

func NewBroadcaster(conn *net.UDPConn, subManager *SubscriberManager, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		conn:       conn,
		subManager: subManager,
		logger:     logger,
	}
}

// BroadcastToAll sends msg to every active subscriber and returns how many
// sends succeeded.
func (b *Broadcaster) BroadcastToAll(msg *Message) (int, error) {
	return b.BroadcastExcept(msg, "")
}

// BroadcastExcept sends msg to every active subscriber other than peerID.
func (b *Broadcaster) BroadcastExcept(msg *Message, peerID string) (int, error) {
	data, err := msg.ToJSON()
	if err != nil {
		return 0, fmt.Errorf("failed to marshal message: %w", err)
	}

	subscribers := b.subManager.GetAllExcept(peerID)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		delivered int
	)
	for _, sub := range subscribers {
		wg.Add(1)
		go func(s Subscriber) {
			defer wg.Done()
			if err := b.sendToSubscriber(s, data); err != nil {
				return
			}
			mu.Lock()
			delivered++
			mu.Unlock()
		}(sub)
	}
	wg.Wait()

	b.logger.Debug("broadcast_sent",
		"type", msg.Type,
		"subscribers", len(subscribers),
		"delivered", delivered,
	)
	return delivered, nil
}

// SendTo sends msg to a single address.
func (b *Broadcaster) SendTo(addr *net.UDPAddr, msg *Message) error {
	data, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	_, err = b.conn.WriteToUDP(data, addr)
	return err
}

func (b *Broadcaster) sendToSubscriber(sub Subscriber, data []byte) error {
	if _, err := b.conn.WriteToUDP(data, sub.Addr); err != nil {
		b.subManager.MarkInactive(sub.PeerID)
		b.logger.Warn("peer_unreachable",
			"peer_id", sub.PeerID,
			"addr", sub.Addr.String(),
			"error", err.Error(),
		)
		return err
	}
	return nil
}
