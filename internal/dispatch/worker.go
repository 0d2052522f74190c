package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/conky-dev/numba-blasta-sub001/environments"
	"github.com/conky-dev/numba-blasta-sub001/internal/domain"
	"github.com/conky-dev/numba-blasta-sub001/internal/ratelimit"
	"github.com/conky-dev/numba-blasta-sub001/internal/sms"
	"github.com/conky-dev/numba-blasta-sub001/pkg/logger"
)

// Consumer-side interfaces so the pool is testable with in-memory fakes.
type claimQueue interface {
	ClaimNext(ctx context.Context, workerID string) (*domain.Job, error)
	MarkDone(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, reason string) error
}

type senderResolver interface {
	Resolve(ctx context.Context, orgID int64, explicit *string) (*domain.SenderNumber, error)
}

type sendCharger interface {
	ChargeForSend(ctx context.Context, orgID int64, segments int, messageID, campaignID *int64) (string, int64, error)
}

type messageWriter interface {
	Create(ctx context.Context, msg *domain.Message) (int64, error)
}

type gatewaySender interface {
	Send(ctx context.Context, from, to, content string) (*domain.GatewaySendResult, error)
}

type campaignCounter interface {
	IncrementCounter(ctx context.Context, id int64, column string) error
}

// Pool runs a fixed number of workers that drain the dispatch queue. Every
// job is attempted exactly once: whatever goes wrong, the job lands in a
// terminal state and is never requeued.
type Pool struct {
	queue     claimQueue
	senders   senderResolver
	credits   sendCharger
	messages  messageWriter
	gateway   gatewaySender
	campaigns campaignCounter
	limiter   ratelimit.Limiter
	config    environments.DispatchConfig

	stopCh chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	active bool
}

func NewPool(
	queue claimQueue,
	senders senderResolver,
	credits sendCharger,
	messages messageWriter,
	gateway gatewaySender,
	campaigns campaignCounter,
	limiter ratelimit.Limiter,
	config environments.DispatchConfig,
) *Pool {
	return &Pool{
		queue:     queue,
		senders:   senders,
		credits:   credits,
		messages:  messages,
		gateway:   gateway,
		campaigns: campaigns,
		limiter:   limiter,
		config:    config,
	}
}

func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active {
		return
	}
	p.active = true
	p.stopCh = make(chan struct{})

	for i := 0; i < p.config.WorkerCount; i++ {
		workerID := fmt.Sprintf("worker-%d-%s", i, uuid.NewString()[:8])
		p.wg.Add(1)
		go p.run(workerID)
	}

	logger.Infof("Dispatch pool started with %d workers", p.config.WorkerCount)
}

func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.active {
		p.mu.Unlock()
		return
	}
	p.active = false
	close(p.stopCh)
	p.mu.Unlock()

	p.wg.Wait()
	logger.Infof("Dispatch pool stopped")
}

func (p *Pool) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

func (p *Pool) run(workerID string) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		job, err := p.queue.ClaimNext(ctx, workerID)
		if err != nil {
			logger.Errorf("%s: claim failed: %v", workerID, err)
		}
		if job == nil {
			cancel()
			select {
			case <-p.stopCh:
				return
			case <-time.After(p.config.PollInterval):
			}
			continue
		}

		p.Process(ctx, workerID, job)
		cancel()
	}
}

// Process runs one claimed job through the dispatch pipeline. Rate-limit
// denials and insufficient funds fail the job before any money moves; a
// gateway failure after the charge leaves the charge in place, since the
// attempt was made and billing is per attempt.
func (p *Pool) Process(ctx context.Context, workerID string, job *domain.Job) {
	sender, err := p.senders.Resolve(ctx, job.OrgID, job.SenderNumber)
	if err != nil {
		p.fail(ctx, job, "", 0, "", fmt.Sprintf("no usable sender number: %v", err))
		return
	}

	window := time.Duration(sender.RateLimitHours) * time.Hour
	allowed, err := p.limiter.TryConsume(ctx, sender.Number, sender.RateLimitMax, window)
	if err != nil {
		p.fail(ctx, job, sender.Number, 0, "", fmt.Sprintf("rate limiter unavailable: %v", err))
		return
	}
	if !allowed {
		p.fail(ctx, job, sender.Number, 0, "", domain.ErrRateLimited.Error())
		return
	}

	enc := sms.Analyze(job.Body)

	_, amount, err := p.credits.ChargeForSend(ctx, job.OrgID, enc.Segments, nil, job.CampaignID)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) || errors.Is(err, domain.ErrNoPricing) {
			p.fail(ctx, job, sender.Number, 0, enc.Encoding, err.Error())
			return
		}
		p.fail(ctx, job, sender.Number, 0, enc.Encoding, fmt.Sprintf("charge failed: %v", err))
		return
	}

	result, err := p.gateway.Send(ctx, sender.Number, job.PhoneNumber, job.Body)
	if err != nil {
		logger.Warnf("%s: gateway send failed for job %d (charge of %d cents stands): %v",
			workerID, job.ID, amount, err)
		p.fail(ctx, job, sender.Number, amount, enc.Encoding, fmt.Sprintf("gateway error: %v", err))
		return
	}

	now := time.Now()
	msg := &domain.Message{
		OrgID:            job.OrgID,
		CampaignID:       job.CampaignID,
		ContactID:        job.ContactID,
		Direction:        domain.DirectionOutbound,
		PhoneNumber:      job.PhoneNumber,
		SenderNumber:     sender.Number,
		Body:             job.Body,
		Status:           domain.StatusSent,
		Segments:         enc.Segments,
		Encoding:         enc.Encoding,
		PriceCents:       amount,
		GatewayMessageID: &result.MessageID,
		SentAt:           &now,
	}
	if _, err := p.messages.Create(ctx, msg); err != nil {
		logger.Errorf("%s: failed to record sent message for job %d: %v", workerID, job.ID, err)
	}

	if err := p.queue.MarkDone(ctx, job.ID); err != nil {
		logger.Errorf("%s: failed to mark job %d done: %v", workerID, job.ID, err)
	}

	if job.CampaignID != nil {
		if err := p.campaigns.IncrementCounter(ctx, *job.CampaignID, "sent_count"); err != nil {
			logger.Warnf("Failed to bump sent count for campaign %d: %v", *job.CampaignID, err)
		}
	}

	logger.Debugf("%s: job %d sent as gateway message %s (%d segments, %d cents)",
		workerID, job.ID, result.MessageID, enc.Segments, amount)
}

// fail records the terminal outcome of a job: a failed message row, the
// failed job status, and the campaign counter when applicable.
func (p *Pool) fail(ctx context.Context, job *domain.Job, senderNumber string, chargedCents int64, encoding, detail string) {
	msg := &domain.Message{
		OrgID:        job.OrgID,
		CampaignID:   job.CampaignID,
		ContactID:    job.ContactID,
		Direction:    domain.DirectionOutbound,
		PhoneNumber:  job.PhoneNumber,
		SenderNumber: senderNumber,
		Body:         job.Body,
		Status:       domain.StatusFailed,
		Segments:     sms.Segments(job.Body),
		Encoding:     encoding,
		PriceCents:   chargedCents,
		ErrorDetail:  &detail,
	}
	if _, err := p.messages.Create(ctx, msg); err != nil {
		logger.Errorf("Failed to record failed message for job %d: %v", job.ID, err)
	}

	if err := p.queue.MarkFailed(ctx, job.ID, detail); err != nil {
		logger.Errorf("Failed to mark job %d failed: %v", job.ID, err)
	}

	if job.CampaignID != nil {
		if err := p.campaigns.IncrementCounter(ctx, *job.CampaignID, "failed_count"); err != nil {
			logger.Warnf("Failed to bump failed count for campaign %d: %v", *job.CampaignID, err)
		}
	}
}
