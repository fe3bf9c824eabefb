package peer

import (
	"log/slog"

	"darwinawards/internal/classifier"
	"darwinawards/internal/display"
	"darwinawards/internal/selector"
	"darwinawards/internal/shared"
)

// Node turns the local player's deaths into messages and collects the
// messages of everyone else.
type Node struct {
	player   string
	selector *selector.Selector
	queue    *display.Queue
	channel  Channel
	logger   *slog.Logger
}

func NewNode(player string, sel *selector.Selector, queue *display.Queue, channel Channel, logger *slog.Logger) *Node {
	if logger == nil {
		logger = slog.Default()
	}
	n := &Node{
		player:   player,
		selector: sel,
		queue:    queue,
		channel:  channel,
		logger:   logger,
	}
	channel.OnReceive(n.Receive)
	return n
}

// HandleDeath classifies the local player's death, shows the selected
// message locally and sends it to the other peers. Deaths without any
// category produce nothing.
func (n *Node) HandleDeath(sig classifier.DeathSignal) (shared.DeathMessage, bool) {
	categories := classifier.Classify(sig)
	if categories.Len() == 0 {
		n.logger.Debug("death_unclassified", "player", n.player)
		return shared.DeathMessage{}, false
	}

	enemy, hasEnemy := classifier.Enemy(sig)
	msg := n.selector.Select(categories, hasEnemy, enemy, n.player)

	// the relay never echoes to the origin, so the sender shows its own death
	n.queue.Push(msg)
	n.channel.Send(msg)

	n.logger.Info("death_announced",
		"player", n.player,
		"category", msg.Category,
		"categories", categories.Sorted(),
	)
	return msg, true
}

// Receive shows a death announced by another peer.
func (n *Node) Receive(msg shared.DeathMessage) {
	n.queue.Push(msg)
}

func (n *Node) Player() string { return n.player }
