/*
scheduler.go - Automated petty-cash month close

PURPOSE:
  Periodically closes every finished petty-cash month that has not been
  closed yet, so the next month's opening balance is frozen.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Delegates to pettycash.Service.CloseDue, which is idempotent: already
    closed months are skipped
  - Runs once immediately on Start

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour, CLOSE_INTERVAL)
  - Enabled: Whether scheduler is active (default: true, AUTO_CLOSE)

USAGE:
  scheduler := NewMonthCloseScheduler(pettyCashService, log)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - pettycash_handlers.go: CloseMonths endpoint (manual close)
  - pettycash/service.go: CloseDue
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/warp/expense-engine/generic"
	"github.com/warp/expense-engine/pettycash"
)

// SchedulerActor is recorded as the closer of months closed automatically.
const SchedulerActor generic.ActorID = "system:month-close"

// MonthCloseScheduler handles automated petty-cash month closes.
type MonthCloseScheduler struct {
	PettyCash     *pettycash.Service
	CheckInterval time.Duration
	Enabled       bool
	Log           zerolog.Logger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewMonthCloseScheduler creates a new scheduler.
func NewMonthCloseScheduler(svc *pettycash.Service, log zerolog.Logger) *MonthCloseScheduler {
	return &MonthCloseScheduler{
		PettyCash:     svc,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		Log:           log.With().Str("component", "month-close").Logger(),
	}
}

// Start begins the scheduler.
func (s *MonthCloseScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.Log.Info().Msg("scheduler disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.stop = make(chan struct{})
	s.wg.Add(1)

	go s.run(s.ticker, s.stop)

	s.Log.Info().Dur("interval", s.CheckInterval).Msg("scheduler started")
}

// Stop stops the scheduler and waits for a running check to finish.
func (s *MonthCloseScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		s.ticker = nil
		s.Log.Info().Msg("scheduler stopped")
	}
}

func (s *MonthCloseScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	// Run immediately on start
	s.RunNow(context.Background())

	for {
		select {
		case <-ticker.C:
			s.RunNow(context.Background())
		case <-stop:
			return
		}
	}
}

// RunNow performs one check and returns the months it closed.
func (s *MonthCloseScheduler) RunNow(ctx context.Context) []pettycash.MonthClose {
	closes, err := s.PettyCash.CloseDue(ctx, SchedulerActor)
	if err != nil {
		s.Log.Error().Err(err).Int("closed", len(closes)).Msg("month close failed")
		return closes
	}

	for _, c := range closes {
		s.Log.Info().
			Str("office_id", string(c.Scope.OfficeID)).
			Str("month", c.Scope.Month.String()).
			Str("closing_balance", generic.FormatMoney(c.ClosingBalance)).
			Msg("month closed")
	}
	return closes
}

// NextRunTime returns when the next scheduled check will occur.
func (s *MonthCloseScheduler) NextRunTime() time.Time {
	return time.Now().Add(s.CheckInterval)
}
