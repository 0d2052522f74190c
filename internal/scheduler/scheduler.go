package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/conky-dev/numba-blasta-sub001/pkg/logger"
)

// campaignRunner is a minimal internal interface for the scheduler. It
// matches CampaignService and lets us unit test the scheduler with a small
// fake implementation.
type campaignRunner interface {
	ActivateDue(ctx context.Context, now time.Time) (int, error)
	FinalizeRunning(ctx context.Context) (int, error)
}

type jobPurger interface {
	PurgeDone(ctx context.Context, olderThan time.Time) (int64, error)
	PurgeFailed(ctx context.Context, olderThan time.Time) (int64, error)
}

type Scheduler struct {
	campaigns campaignRunner
	jobs      jobPurger
	interval  time.Duration
	retention time.Duration

	// Internal state
	running  bool
	stopChan chan struct{}
	doneChan chan struct{}
	mu       sync.RWMutex

	// Statistics
	lastRunAt          time.Time
	runsCount          int64
	campaignsActivated int64
	campaignsFinalized int64
	jobsPurged         int64
}

func NewScheduler(campaigns campaignRunner, jobs jobPurger, interval, retention time.Duration) *Scheduler {
	return &Scheduler{
		campaigns: campaigns,
		jobs:      jobs,
		interval:  interval,
		retention: retention,
		running:   false,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()

	if s.running {
		s.mu.Unlock()
		logger.Warnf("Scheduler is already running")
		return nil
	}

	s.running = true
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})
	s.mu.Unlock()

	logger.Infof("Starting scheduler with interval: %v", s.interval)

	go s.run(ctx)

	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneChan)

	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)

		case <-s.stopChan:
			logger.Warnf("Scheduler received stop signal")
			return

		case <-ctx.Done():
			logger.Warnf("Scheduler context cancelled")
			return
		}
	}
}

// tick runs one scheduler pass: activate due campaigns, finalize campaigns
// whose jobs are all terminal, and purge expired jobs. Failed jobs are kept
// twice as long as done ones so operators can inspect them.
func (s *Scheduler) tick(ctx context.Context) {
	s.mu.Lock()
	s.lastRunAt = time.Now()
	s.runsCount++
	runNumber := s.runsCount
	s.mu.Unlock()

	now := time.Now()

	activated, err := s.campaigns.ActivateDue(ctx, now)
	if err != nil {
		logger.Errorf("[Run #%d] Error activating due campaigns: %v", runNumber, err)
	} else if activated > 0 {
		logger.Infof("[Run #%d] Activated %d scheduled campaigns", runNumber, activated)
	}

	finalized, err := s.campaigns.FinalizeRunning(ctx)
	if err != nil {
		logger.Errorf("[Run #%d] Error finalizing campaigns: %v", runNumber, err)
	} else if finalized > 0 {
		logger.Infof("[Run #%d] Finalized %d campaigns", runNumber, finalized)
	}

	var purged int64
	if n, err := s.jobs.PurgeDone(ctx, now.Add(-s.retention)); err != nil {
		logger.Errorf("[Run #%d] Error purging done jobs: %v", runNumber, err)
	} else {
		purged += n
	}
	if n, err := s.jobs.PurgeFailed(ctx, now.Add(-2*s.retention)); err != nil {
		logger.Errorf("[Run #%d] Error purging failed jobs: %v", runNumber, err)
	} else {
		purged += n
	}
	if purged > 0 {
		logger.Debugf("[Run #%d] Purged %d expired jobs", runNumber, purged)
	}

	s.mu.Lock()
	s.campaignsActivated += int64(activated)
	s.campaignsFinalized += int64(finalized)
	s.jobsPurged += purged
	s.mu.Unlock()
}

func (s *Scheduler) Stop() error {
	s.mu.Lock()

	if !s.running {
		s.mu.Unlock()
		logger.Warnf("Scheduler is not running")
		return nil
	}

	s.running = false
	stopChan := s.stopChan
	doneChan := s.doneChan
	s.mu.Unlock()

	// Send stop signal
	close(stopChan)

	// Wait for goroutine to finish
	<-doneChan

	logger.Infof("Scheduler stopped")
	return nil
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Scheduler) GetStatus() SchedulerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := SchedulerStatus{
		Running:            s.running,
		LastRunAt:          s.lastRunAt,
		RunsCount:          s.runsCount,
		Interval:           s.interval,
		CampaignsActivated: s.campaignsActivated,
		CampaignsFinalized: s.campaignsFinalized,
		JobsPurged:         s.jobsPurged,
	}

	if s.running && !s.lastRunAt.IsZero() {
		status.NextRunAt = s.lastRunAt.Add(s.interval)
	}

	return status
}

type SchedulerStatus struct {
	Running            bool          `json:"running"`
	LastRunAt          time.Time     `json:"lastRunAt,omitempty"`
	NextRunAt          time.Time     `json:"nextRunAt,omitempty"`
	RunsCount          int64         `json:"runsCount"`
	Interval           time.Duration `json:"interval"`
	CampaignsActivated int64         `json:"campaignsActivated"`
	CampaignsFinalized int64         `json:"campaignsFinalized"`
	JobsPurged         int64         `json:"jobsPurged"`
}
