package udp

import (
	"context"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Per-peer DEATH budget: 10 msgs/sec with burst of 20.
const (
	deathRate  = rate.Limit(10)
	deathBurst = 20
)

// Subscriber represents a connected peer
type Subscriber struct {
	PeerID   string
	Player   string
	Addr     *net.UDPAddr
	LastSeen time.Time
	Active   bool

	limiter *rate.Limiter
}

// SubscriberManager manages all subscribed peers
type SubscriberManager struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber // peerID -> Subscriber
	timeout     time.Duration
}

func NewSubscriberManager(timeout time.Duration) *SubscriberManager {
	return &SubscriberManager{
		subscribers: make(map[string]*Subscriber),
		timeout:     timeout,
	}
}

// Add registers a peer or refreshes its address. A resubscribing peer keeps
// its rate budget.
func (sm *SubscriberManager) Add(peerID, player string, addr *net.UDPAddr) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	limiter := rate.NewLimiter(deathRate, deathBurst)
	if prev, ok := sm.subscribers[peerID]; ok {
		limiter = prev.limiter
	}
	sm.subscribers[peerID] = &Subscriber{
		PeerID:   peerID,
		Player:   player,
		Addr:     addr,
		LastSeen: time.Now(),
		Active:   true,
		limiter:  limiter,
	}
}

func (sm *SubscriberManager) Remove(peerID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.subscribers, peerID)
}

// UpdateActivity refreshes the last seen time of a known peer
func (sm *SubscriberManager) UpdateActivity(peerID string) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sub, exists := sm.subscribers[peerID]
	if exists {
		sub.LastSeen = time.Now()
		sub.Active = true
	}
	return exists
}

// MarkInactive excludes a peer from fan-out until its next PING or SUBSCRIBE.
func (sm *SubscriberManager) MarkInactive(peerID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sub, exists := sm.subscribers[peerID]; exists {
		sub.Active = false
	}
}

// Allow reports whether peerID may relay another DEATH now. Unknown peers
// are refused.
func (sm *SubscriberManager) Allow(peerID string) bool {
	sm.mu.RLock()
	sub, exists := sm.subscribers[peerID]
	sm.mu.RUnlock()
	if !exists {
		return false
	}
	return sub.limiter.Allow()
}

// GetAll returns copies of all active subscribers
func (sm *SubscriberManager) GetAll() []Subscriber {
	return sm.GetAllExcept("")
}

// GetAllExcept returns copies of active subscribers other than peerID
func (sm *SubscriberManager) GetAllExcept(peerID string) []Subscriber {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	subs := make([]Subscriber, 0, len(sm.subscribers))
	for id, sub := range sm.subscribers {
		if sub.Active && id != peerID {
			subs = append(subs, *sub)
		}
	}
	return subs
}

func (sm *SubscriberManager) GetByPeerID(peerID string) (Subscriber, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sub, exists := sm.subscribers[peerID]
	if !exists {
		return Subscriber{}, false
	}
	return *sub, true
}

// CleanupInactive removes peers not seen within the timeout and returns their IDs.
func (sm *SubscriberManager) CleanupInactive(now time.Time) []string {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	var removed []string
	for peerID, sub := range sm.subscribers {
		if now.Sub(sub.LastSeen) > sm.timeout {
			delete(sm.subscribers, peerID)
			removed = append(removed, peerID)
		}
	}
	return removed
}

func (sm *SubscriberManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers)
}

// StartCleanupRoutine periodically drops inactive peers until ctx is done.
func (sm *SubscriberManager) StartCleanupRoutine(ctx context.Context, interval time.Duration, onRemoved func(peerID string)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			for _, peerID := range sm.CleanupInactive(now) {
				if onRemoved != nil {
					onRemoved(peerID)
				}
			}
		case <-ctx.Done():
			return
		}
	}
}
