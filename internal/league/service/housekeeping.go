package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/league/internal/league/store"
)

// HousekeepingService periodically deletes expired one-shot link records and
// RSVP tokens so neither table grows without bound.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration
	Clock    Clock

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. A non-positive
// interval defaults to 1 hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs cleanup now and then every Interval until Stop.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until any in-progress cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup deletes expired records. Each deletion is independent; a failure in
// one does not stop the other.
func (s *HousekeepingService) Cleanup(ctx context.Context) {
	now := s.Clock.now()

	links, err := s.Store.UsedLinks().DeleteExpiredUsedLinks(ctx, now)
	if err != nil {
		s.Logger.Error("failed to delete expired used links", "error", err)
	}

	tokens, err := s.Store.RSVPTokens().DeleteExpiredRSVPTokens(ctx, now)
	if err != nil {
		s.Logger.Error("failed to delete expired rsvp tokens", "error", err)
	}

	s.Logger.Info("housekeeping cleanup completed",
		slog.Int64("used_links", links),
		slog.Int64("rsvp_tokens", tokens),
	)
}
