package trust

import (
	"context"
	"sync"
	"time"
)

// RecoveryScheduler drives the time-gated tail of the emergency access
// lifecycle on fixed-interval timers, decoupled from request handling. The
// timeout and reminder jobs run on independent tickers; ticks of the same
// job are processed in sequence by their loop goroutine, so runs of one
// job type never overlap.
type RecoveryScheduler struct {
	repo     RepositoryManager
	machine  EmergencyAccessStateMachine
	interval time.Duration
	logger   Logger

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// RecoverySchedulerOption customizes scheduler construction.
type RecoverySchedulerOption func(*RecoveryScheduler)

// WithRecoverySchedulerLogger overrides the default logger.
func WithRecoverySchedulerLogger(logger Logger) RecoverySchedulerOption {
	return func(s *RecoveryScheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecoverySchedulerInterval overrides the configured tick interval.
func WithRecoverySchedulerInterval(interval time.Duration) RecoverySchedulerOption {
	return func(s *RecoveryScheduler) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

const defaultJobInterval = 5 * time.Minute

// NewRecoveryScheduler builds a scheduler from the configured job interval.
// It does not start ticking until Start is called.
func NewRecoveryScheduler(cfg Config, repo RepositoryManager, machine EmergencyAccessStateMachine, opts ...RecoverySchedulerOption) *RecoveryScheduler {
	interval := defaultJobInterval
	if cfg != nil && cfg.GetJobInterval() > 0 {
		interval = cfg.GetJobInterval()
	}

	s := &RecoveryScheduler{
		repo:     repo,
		machine:  machine,
		interval: interval,
		logger:   defLogger{},
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// Start launches the timeout and reminder loops. It is safe to call once;
// subsequent calls are no-ops.
func (s *RecoveryScheduler) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.wg.Add(2)
		go s.loop(ctx, "recovery timeout", s.RunTimeoutJob)
		go s.loop(ctx, "recovery reminder", s.RunReminderJob)
	})
}

// Stop halts both loops and waits for any in-flight run to finish.
func (s *RecoveryScheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
}

func (s *RecoveryScheduler) loop(ctx context.Context, name string, job func(ctx context.Context)) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			job(ctx)
		case <-s.done:
			s.logger.Debug("%s job stopped", name)
			return
		case <-ctx.Done():
			s.logger.Debug("%s job stopped: %v", name, ctx.Err())
			return
		}
	}
}

// RunTimeoutJob scans records with recovery in progress and auto-approves
// those whose waiting period has elapsed. A failure on one record is logged
// and does not abort the rest of the run.
func (s *RecoveryScheduler) RunTimeoutJob(ctx context.Context) {
	records, err := s.repo.EmergencyAccesses().FindAllRecoveries(ctx)
	if err != nil {
		s.logger.Error("recovery timeout job: listing records: %v", err)
		return
	}

	if len(records) == 0 {
		s.logger.Debug("recovery timeout job: nothing to approve")
		return
	}

	for _, record := range records {
		approved, err := s.machine.ApproveTimedOut(ctx, record)
		if err != nil {
			s.logger.Error("recovery timeout job: record %s: %v", record.ID, err)
			continue
		}
		if approved {
			s.logger.Info("recovery timeout job: auto-approved record %s", record.ID)
		}
	}
}

// RunReminderJob scans records with recovery in progress and sends the
// grantor a reminder when one is due.
func (s *RecoveryScheduler) RunReminderJob(ctx context.Context) {
	records, err := s.repo.EmergencyAccesses().FindAllRecoveries(ctx)
	if err != nil {
		s.logger.Error("recovery reminder job: listing records: %v", err)
		return
	}

	if len(records) == 0 {
		s.logger.Debug("recovery reminder job: nothing to remind")
		return
	}

	for _, record := range records {
		sent, err := s.machine.SendReminderIfDue(ctx, record)
		if err != nil {
			s.logger.Error("recovery reminder job: record %s: %v", record.ID, err)
			continue
		}
		if sent {
			s.logger.Info("recovery reminder job: reminder sent for record %s", record.ID)
		}
	}
}
