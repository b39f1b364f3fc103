package service

import (
	"log/slog"
	"sort"
	"time"
)

// Pruner drops entries that expired before now and reports how many went
type Pruner interface {
	Prune(now time.Time) int
}

// HousekeepingService periodically prunes expired in-process nonces and
// revoked session ids. Redis backed stores expire on their own and need no pruner.
type HousekeepingService struct {
	pruners  map[string]Pruner
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. A non-positive
// interval defaults to one minute.
func NewHousekeepingService(pruners map[string]Pruner, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HousekeepingService{
		pruners:  pruners,
		logger:   logger,
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the cleanup loop in the background until Stop is called
func (s *HousekeepingService) Start() {
	go s.run()
	s.logger.Info("housekeeping service started", "interval", s.interval, "pruners", len(s.pruners))
}

// Stop ends the loop and waits for an in-progress cleanup to finish
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup runs every pruner once and returns the number of removed entries
func (s *HousekeepingService) Cleanup() int {
	names := make([]string, 0, len(s.pruners))
	for name := range s.pruners {
		names = append(names, name)
	}
	sort.Strings(names)

	now := s.now()
	total := 0
	for _, name := range names {
		n := s.pruners[name].Prune(now)
		if n > 0 {
			s.logger.Debug("pruned expired entries", "store", name, "count", n)
		}
		total += n
	}
	return total
}
