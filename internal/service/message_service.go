package service

import (
	"context"
	"fmt"
	"time"

	"github.com/conky-dev/numba-blasta-sub001/environments"
	"github.com/conky-dev/numba-blasta-sub001/internal/domain"
	"github.com/conky-dev/numba-blasta-sub001/internal/sms"
	"github.com/conky-dev/numba-blasta-sub001/pkg/logger"
)

// Small internal interfaces so we can test without touching real DB/Redis.
type messageRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Message, error)
	GetAll(ctx context.Context, orgID int64, status *domain.MessageStatus, page, pageSize int) ([]domain.Message, int64, error)
	GetStats(ctx context.Context, orgID int64) (sent, delivered, failed int64, err error)
	MarkDelivered(ctx context.Context, gatewayMessageID string, deliveredAt time.Time) (bool, error)
	MarkDeliveryFailed(ctx context.Context, gatewayMessageID, detail string) (bool, error)
}

type jobQueue interface {
	Enqueue(ctx context.Context, job *domain.Job) (int64, error)
}

// DeliveryCache de-duplicates gateway delivery callbacks. Exported so the
// wiring in main can leave it nil when Redis is unavailable.
type DeliveryCache interface {
	MarkDeliveryProcessed(ctx context.Context, gatewayMessageID, status string) error
	DeliveryProcessed(ctx context.Context, gatewayMessageID, status string) (bool, error)
}

type MessageService struct {
	repo   messageRepository
	queue  jobQueue
	cache  DeliveryCache
	config environments.DispatchConfig
}

func NewMessageService(
	repo messageRepository,
	queue jobQueue,
	cache DeliveryCache,
	config environments.DispatchConfig,
) *MessageService {
	return &MessageService{
		repo:   repo,
		queue:  queue,
		cache:  cache,
		config: config,
	}
}

// SendRequest is a single outbound enqueue. SenderNumber is optional; the
// worker falls back to the org's primary verified number.
type SendRequest struct {
	OrgID        int64
	UserID       int64
	ContactID    *int64
	PhoneNumber  string
	Body         string
	SenderNumber *string
	DirectReply  bool
	Priority     int
}

// EnqueueMessage validates and enqueues one outbound message. Marketing
// sends get the opt-out footer appended; the body is cut to keep the footer
// inside the single-segment ceiling. Direct replies go out verbatim.
func (s *MessageService) EnqueueMessage(ctx context.Context, req SendRequest) (*domain.Job, error) {
	if req.PhoneNumber == "" {
		return nil, fmt.Errorf("phone number is required")
	}
	if req.Body == "" {
		return nil, fmt.Errorf("message body is required")
	}

	body := req.Body
	if !req.DirectReply && s.config.OptOutFooter != "" {
		body = withFooter(body, s.config.OptOutFooter)
	}

	job := &domain.Job{
		OrgID:        req.OrgID,
		UserID:       req.UserID,
		ContactID:    req.ContactID,
		SenderNumber: req.SenderNumber,
		PhoneNumber:  req.PhoneNumber,
		Body:         body,
		DirectReply:  req.DirectReply,
		Priority:     req.Priority,
		Status:       domain.JobQueued,
	}

	id, err := s.queue.Enqueue(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue message: %w", err)
	}
	job.ID = id

	logger.Debugf("Enqueued job %d for %s", id, req.PhoneNumber)

	return job, nil
}

// withFooter appends the opt-out footer, truncating the body so the combined
// text stays within a single segment under the body's encoding.
func withFooter(body, footer string) string {
	reserve := sms.Analyze(footer).Units
	return sms.TruncateStrict(body, reserve) + footer
}

func (s *MessageService) GetMessage(ctx context.Context, id int64) (*domain.Message, error) {
	message, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if message == nil {
		return nil, domain.ErrMessageNotFound
	}
	return message, nil
}

func (s *MessageService) GetAllMessages(
	ctx context.Context,
	orgID int64,
	status *domain.MessageStatus,
	page,
	pageSize int,
) ([]domain.Message, int64, error) {
	return s.repo.GetAll(ctx, orgID, status, page, pageSize)
}

func (s *MessageService) GetStats(ctx context.Context, orgID int64) (sent, delivered, failed int64, err error) {
	return s.repo.GetStats(ctx, orgID)
}

// ApplyDeliveryStatus advances a sent message on a gateway callback. The
// update is idempotent: replays and out-of-order callbacks are no-ops, both
// through the cache short-circuit and through the status guard underneath.
func (s *MessageService) ApplyDeliveryStatus(
	ctx context.Context,
	gatewayMessageID, status string,
	occurredAt time.Time,
) (bool, error) {
	if gatewayMessageID == "" {
		return false, fmt.Errorf("gateway message id is required")
	}

	if s.cache != nil {
		seen, err := s.cache.DeliveryProcessed(ctx, gatewayMessageID, status)
		if err != nil {
			logger.Warnf("Delivery cache lookup failed for %s: %v", gatewayMessageID, err)
		} else if seen {
			logger.Debugf("Duplicate delivery callback for %s (%s), skipping", gatewayMessageID, status)
			return false, nil
		}
	}

	var applied bool
	var err error

	switch status {
	case "delivered":
		applied, err = s.repo.MarkDelivered(ctx, gatewayMessageID, occurredAt)
	case "failed", "undelivered":
		applied, err = s.repo.MarkDeliveryFailed(ctx, gatewayMessageID, status)
	default:
		return false, fmt.Errorf("unknown delivery status %q", status)
	}
	if err != nil {
		return false, fmt.Errorf("failed to apply delivery status: %w", err)
	}

	if s.cache != nil {
		if cacheErr := s.cache.MarkDeliveryProcessed(ctx, gatewayMessageID, status); cacheErr != nil {
			logger.Warnf("Failed to cache delivery callback %s: %v", gatewayMessageID, cacheErr)
		}
	}

	if applied {
		logger.Infof("Delivery status %s applied for gateway message %s", status, gatewayMessageID)
	}

	return applied, nil
}
