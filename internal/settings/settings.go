package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"
)

const (
	MaxNumberOfDeaths = 25

	DefaultNumberOfDeaths = 3
	DefaultTimerForDeaths = 10 // seconds

	// longest timer that still fits a time.Duration
	MaxTimerForDeaths = uint(math.MaxInt64 / int64(time.Second))
)

var (
	ErrLocked  = errors.New("configuration is locked by the server")
	ErrInvalid = errors.New("invalid settings")
)

// Settings are the peer-wide display settings propagated by the authoritative peer.
type Settings struct {
	Locked         bool `json:"locked"`
	NumberOfDeaths int  `json:"number_of_deaths"` // deaths shown at the same time, 0 disables the log
	TimerForDeaths uint `json:"timer_for_deaths"` // seconds a death stays visible, 0 means no limit
}

func Default() Settings {
	return Settings{
		Locked:         true,
		NumberOfDeaths: DefaultNumberOfDeaths,
		TimerForDeaths: DefaultTimerForDeaths,
	}
}

func (s Settings) Validate() error {
	if s.NumberOfDeaths < 0 || s.NumberOfDeaths > MaxNumberOfDeaths {
		return fmt.Errorf("%w: number_of_deaths must be between 0 and %d", ErrInvalid, MaxNumberOfDeaths)
	}
	if s.TimerForDeaths > MaxTimerForDeaths {
		return fmt.Errorf("%w: timer_for_deaths must be at most %d", ErrInvalid, MaxTimerForDeaths)
	}
	return nil
}

// MaxAge converts the timer to the display queue's age bound.
// Timers beyond MaxTimerForDeaths saturate instead of wrapping.
func (s Settings) MaxAge() time.Duration {
	if s.TimerForDeaths > MaxTimerForDeaths {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(s.TimerForDeaths) * time.Second
}

func Encode(s Settings) ([]byte, error) {
	return json.Marshal(s)
}

func Decode(data []byte) (Settings, error) {
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Update is a partial local change; nil fields are left alone.
type Update struct {
	NumberOfDeaths *int  `json:"number_of_deaths,omitempty"`
	TimerForDeaths *uint `json:"timer_for_deaths,omitempty"`
}

// Manager combines the synced settings with local overrides. Overrides only
// apply while the configuration is unlocked; admins may change it regardless.
type Manager struct {
	mu        sync.RWMutex
	synced    Settings
	local     Update
	listeners []func(Settings)
}

func NewManager(initial Settings) *Manager {
	return &Manager{synced: initial}
}

// Effective returns the settings currently in force.
func (m *Manager) Effective() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.effectiveLocked()
}

func (m *Manager) effectiveLocked() Settings {
	eff := m.synced
	if m.local.NumberOfDeaths != nil {
		eff.NumberOfDeaths = *m.local.NumberOfDeaths
	}
	if m.local.TimerForDeaths != nil {
		eff.TimerForDeaths = *m.local.TimerForDeaths
	}
	return eff
}

// OnChange registers fn to run after every change of the effective settings.
func (m *Manager) OnChange(fn func(Settings)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// ApplySynced installs settings received from the authoritative peer.
// Locking discards local overrides.
func (m *Manager) ApplySynced(s Settings) {
	m.mu.Lock()
	before := m.effectiveLocked()
	m.synced = s
	if s.Locked {
		m.local = Update{}
	}
	after := m.effectiveLocked()
	listeners := slices.Clone(m.listeners)
	m.mu.Unlock()

	if after != before {
		notify(listeners, after)
	}
}

// SetLocal applies a local override. It fails with ErrLocked while the
// configuration is locked unless admin is set.
func (m *Manager) SetLocal(u Update, admin bool) (Settings, error) {
	m.mu.Lock()
	if m.synced.Locked && !admin {
		m.mu.Unlock()
		return Settings{}, ErrLocked
	}

	before := m.effectiveLocked()
	next := m.local
	if u.NumberOfDeaths != nil {
		n := *u.NumberOfDeaths
		next.NumberOfDeaths = &n
	}
	if u.TimerForDeaths != nil {
		t := *u.TimerForDeaths
		next.TimerForDeaths = &t
	}

	prev := m.local
	m.local = next
	after := m.effectiveLocked()
	if err := after.Validate(); err != nil {
		m.local = prev
		m.mu.Unlock()
		return Settings{}, err
	}
	listeners := slices.Clone(m.listeners)
	m.mu.Unlock()

	if after != before {
		notify(listeners, after)
	}
	return after, nil
}

func notify(listeners []func(Settings), s Settings) {
	for _, fn := range listeners {
		fn(s)
	}
}
