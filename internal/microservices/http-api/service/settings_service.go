package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"darwinawards/internal/settings"
	"darwinawards/internal/synced"
)

// SettingsService owns the session-wide display settings and publishes
// every change as a new synced version.
type SettingsService struct {
	source *synced.Source
	logger *slog.Logger

	mu         sync.Mutex
	current    settings.Settings
	publishers []synced.Publisher
}

// NewSettingsService assigns initial as the first version in source.
func NewSettingsService(initial settings.Settings, source *synced.Source, logger *slog.Logger) (*SettingsService, error) {
	if logger == nil {
		logger = slog.Default()
	}
	data, err := settings.Encode(initial)
	if err != nil {
		return nil, err
	}
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	source.Assign(synced.SettingsKey, data)

	return &SettingsService{
		source:  source,
		logger:  logger,
		current: initial,
	}, nil
}

func (s *SettingsService) AddPublisher(p synced.Publisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishers = append(s.publishers, p)
}

func (s *SettingsService) Current() settings.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Update applies the change, publishes it and returns the new settings.
// Nil fields keep their value.
func (s *SettingsService) Update(ctx context.Context, locked *bool, u settings.Update) (settings.Settings, error) {
	s.mu.Lock()
	next := s.current
	if locked != nil {
		next.Locked = *locked
	}
	if u.NumberOfDeaths != nil {
		next.NumberOfDeaths = *u.NumberOfDeaths
	}
	if u.TimerForDeaths != nil {
		next.TimerForDeaths = *u.TimerForDeaths
	}
	if err := next.Validate(); err != nil {
		s.mu.Unlock()
		return settings.Settings{}, err
	}
	data, err := settings.Encode(next)
	if err != nil {
		s.mu.Unlock()
		return settings.Settings{}, fmt.Errorf("failed to encode settings: %w", err)
	}
	s.current = next
	v := s.source.Assign(synced.SettingsKey, data)
	publishers := append([]synced.Publisher(nil), s.publishers...)
	s.mu.Unlock()

	s.logger.Info("settings_published",
		"version", v.Version,
		"locked", next.Locked,
		"number_of_deaths", next.NumberOfDeaths,
		"timer_for_deaths", next.TimerForDeaths,
	)
	for _, p := range publishers {
		if err := p.PublishValue(ctx, v); err != nil {
			s.logger.Warn("settings_publish_failed", "version", v.Version, "error", err.Error())
		}
	}
	return next, nil
}
