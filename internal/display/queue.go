package display

import (
	"context"
	"slices"
	"sync"
	"time"

	"darwinawards/internal/shared"
)

// Entry is a received message with the time it arrived. Entries are never
// mutated after creation.
type Entry struct {
	Message    shared.DeathMessage `json:"message"`
	ReceivedAt time.Time           `json:"received_at"`
}

// Queue holds the recently received deaths of one peer, oldest first.
// maxCount == 0 disables the display; maxAge == 0 disables expiry.
// Safe for concurrent use.
type Queue struct {
	mu       sync.Mutex
	entries  []Entry
	maxCount int
	maxAge   time.Duration
	now      func() time.Time
}

func NewQueue(maxCount int, maxAge time.Duration) *Queue {
	return &Queue{
		maxCount: max(maxCount, 0),
		maxAge:   max(maxAge, 0),
		now:      time.Now,
	}
}

// WithClock replaces the clock used to stamp pushed entries.
func (q *Queue) WithClock(now func() time.Time) *Queue {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.now = now
	return q
}

// Push appends msg as the newest entry. It is a no-op while the display is disabled.
func (q *Queue) Push(msg shared.DeathMessage) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.maxCount == 0 {
		return
	}
	q.entries = append(q.entries, Entry{Message: msg, ReceivedAt: q.now()})
	q.evictOverflow()
}

// Tick removes expired and overflowing entries and returns the visible ones.
func (q *Queue) Tick(now time.Time) []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.maxCount == 0 {
		q.entries = nil
		return []Entry{}
	}

	if q.maxAge > 0 {
		// entries are ordered by arrival, so expired ones form a prefix
		i := 0
		for i < len(q.entries) && now.Sub(q.entries[i].ReceivedAt) >= q.maxAge {
			i++
		}
		q.entries = q.entries[i:]
	}
	q.evictOverflow()

	return slices.Clone(q.entries)
}

// Reconfigure changes the bounds; they are enforced on the next Tick.
func (q *Queue) Reconfigure(maxCount int, maxAge time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.maxCount = max(maxCount, 0)
	q.maxAge = max(maxAge, 0)
}

// Snapshot returns the entries currently held without sweeping.
func (q *Queue) Snapshot() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.entries)
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// evictOverflow drops the oldest entries beyond maxCount. Caller holds mu.
func (q *Queue) evictOverflow() {
	if q.maxCount > 0 && len(q.entries) > q.maxCount {
		q.entries = slices.Clone(q.entries[len(q.entries)-q.maxCount:])
	}
}

// Run sweeps the queue every interval until ctx is done, calling onChange
// with the visible entries whenever they differ from the previous sweep.
func (q *Queue) Run(ctx context.Context, interval time.Duration, onChange func([]Entry)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last []Entry
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			visible := q.Tick(now)
			if !slices.Equal(visible, last) {
				last = visible
				if onChange != nil {
					onChange(visible)
				}
			}
		}
	}
}
