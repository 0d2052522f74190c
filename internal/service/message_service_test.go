package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/conky-dev/numba-blasta-sub001/environments"
	"github.com/conky-dev/numba-blasta-sub001/internal/domain"
	"github.com/conky-dev/numba-blasta-sub001/internal/sms"
)

//
// Test fakes – only for this file.
//

type fakeMessageRepo struct {
	messages map[string]*domain.Message

	markDeliveredCalls int
	markFailedCalls    int
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: make(map[string]*domain.Message)}
}

func (r *fakeMessageRepo) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	for _, msg := range r.messages {
		if msg.ID == id {
			return msg, nil
		}
	}
	return nil, nil
}

func (r *fakeMessageRepo) GetAll(
	ctx context.Context,
	orgID int64,
	status *domain.MessageStatus,
	page,
	pageSize int,
) ([]domain.Message, int64, error) {
	return nil, 0, nil
}

func (r *fakeMessageRepo) GetStats(ctx context.Context, orgID int64) (sent, delivered, failed int64, err error) {
	return 0, 0, 0, nil
}

func (r *fakeMessageRepo) MarkDelivered(ctx context.Context, gatewayMessageID string, deliveredAt time.Time) (bool, error) {
	r.markDeliveredCalls++

	msg, ok := r.messages[gatewayMessageID]
	if !ok || msg.Status != domain.StatusSent {
		return false, nil
	}
	msg.Status = domain.StatusDelivered
	msg.DeliveredAt = &deliveredAt
	return true, nil
}

func (r *fakeMessageRepo) MarkDeliveryFailed(ctx context.Context, gatewayMessageID, detail string) (bool, error) {
	r.markFailedCalls++

	msg, ok := r.messages[gatewayMessageID]
	if !ok || msg.Status != domain.StatusSent {
		return false, nil
	}
	msg.Status = domain.StatusFailed
	msg.ErrorDetail = &detail
	return true, nil
}

type fakeJobQueue struct {
	enqueued []*domain.Job
	nextID   int64
}

func (q *fakeJobQueue) Enqueue(ctx context.Context, job *domain.Job) (int64, error) {
	q.nextID++
	cp := *job
	cp.ID = q.nextID
	q.enqueued = append(q.enqueued, &cp)
	return q.nextID, nil
}

type fakeDeliveryCache struct {
	seen map[string]bool
}

func (c *fakeDeliveryCache) MarkDeliveryProcessed(ctx context.Context, gatewayMessageID, status string) error {
	if c.seen == nil {
		c.seen = make(map[string]bool)
	}
	c.seen[gatewayMessageID+":"+status] = true
	return nil
}

func (c *fakeDeliveryCache) DeliveryProcessed(ctx context.Context, gatewayMessageID, status string) (bool, error) {
	return c.seen[gatewayMessageID+":"+status], nil
}

func dispatchConfig() environments.DispatchConfig {
	return environments.DispatchConfig{
		WorkerCount:  1,
		OptOutFooter: " Reply STOP to opt out",
	}
}

//
// Tests
//

func TestEnqueueMessage_AppendsOptOutFooter(t *testing.T) {
	ctx := context.Background()

	queue := &fakeJobQueue{}
	svc := NewMessageService(newFakeMessageRepo(), queue, nil, dispatchConfig())

	job, err := svc.EnqueueMessage(ctx, SendRequest{
		OrgID:       1,
		UserID:      1,
		PhoneNumber: "+905551234567",
		Body:        "Big sale this weekend",
	})
	if err != nil {
		t.Fatalf("EnqueueMessage returned error: %v", err)
	}

	if !strings.HasSuffix(job.Body, "Reply STOP to opt out") {
		t.Fatalf("expected opt-out footer on marketing send, got %q", job.Body)
	}
	if len(queue.enqueued) != 1 {
		t.Fatalf("expected 1 enqueued job, got %d", len(queue.enqueued))
	}
}

func TestEnqueueMessage_DirectReplySkipsFooter(t *testing.T) {
	ctx := context.Background()

	queue := &fakeJobQueue{}
	svc := NewMessageService(newFakeMessageRepo(), queue, nil, dispatchConfig())

	job, err := svc.EnqueueMessage(ctx, SendRequest{
		OrgID:       1,
		UserID:      1,
		PhoneNumber: "+905551234567",
		Body:        "Sure, 3pm works for me",
		DirectReply: true,
	})
	if err != nil {
		t.Fatalf("EnqueueMessage returned error: %v", err)
	}

	if job.Body != "Sure, 3pm works for me" {
		t.Fatalf("direct reply body must go out verbatim, got %q", job.Body)
	}
}

func TestEnqueueMessage_FooterStaysWithinOneSegment(t *testing.T) {
	ctx := context.Background()

	queue := &fakeJobQueue{}
	svc := NewMessageService(newFakeMessageRepo(), queue, nil, dispatchConfig())

	longBody := strings.Repeat("a", 300)

	job, err := svc.EnqueueMessage(ctx, SendRequest{
		OrgID:       1,
		UserID:      1,
		PhoneNumber: "+905551234567",
		Body:        longBody,
	})
	if err != nil {
		t.Fatalf("EnqueueMessage returned error: %v", err)
	}

	enc := sms.Analyze(job.Body)
	if enc.Segments != 1 {
		t.Fatalf("body plus footer must fit one segment, got %d segments (%d units)", enc.Segments, enc.Units)
	}
	if !strings.HasSuffix(job.Body, "Reply STOP to opt out") {
		t.Fatalf("footer must survive truncation, got %q", job.Body)
	}
}

func TestEnqueueMessage_RejectsEmptyInput(t *testing.T) {
	ctx := context.Background()

	svc := NewMessageService(newFakeMessageRepo(), &fakeJobQueue{}, nil, dispatchConfig())

	if _, err := svc.EnqueueMessage(ctx, SendRequest{OrgID: 1, Body: "hi"}); err == nil {
		t.Fatal("expected error for missing phone number")
	}
	if _, err := svc.EnqueueMessage(ctx, SendRequest{OrgID: 1, PhoneNumber: "+905551234567"}); err == nil {
		t.Fatal("expected error for missing body")
	}
}

func TestApplyDeliveryStatus_AdvancesSentMessage(t *testing.T) {
	ctx := context.Background()

	repo := newFakeMessageRepo()
	repo.messages["gw-1"] = &domain.Message{ID: 1, Status: domain.StatusSent}

	svc := NewMessageService(repo, &fakeJobQueue{}, &fakeDeliveryCache{}, dispatchConfig())

	applied, err := svc.ApplyDeliveryStatus(ctx, "gw-1", "delivered", time.Now())
	if err != nil {
		t.Fatalf("ApplyDeliveryStatus returned error: %v", err)
	}
	if !applied {
		t.Fatal("expected the update to apply")
	}
	if repo.messages["gw-1"].Status != domain.StatusDelivered {
		t.Fatalf("expected delivered, got %s", repo.messages["gw-1"].Status)
	}
}

func TestApplyDeliveryStatus_ReplayIsNoOp(t *testing.T) {
	ctx := context.Background()

	repo := newFakeMessageRepo()
	repo.messages["gw-2"] = &domain.Message{ID: 2, Status: domain.StatusSent}

	svc := NewMessageService(repo, &fakeJobQueue{}, &fakeDeliveryCache{}, dispatchConfig())

	if _, err := svc.ApplyDeliveryStatus(ctx, "gw-2", "delivered", time.Now()); err != nil {
		t.Fatalf("first apply returned error: %v", err)
	}

	applied, err := svc.ApplyDeliveryStatus(ctx, "gw-2", "delivered", time.Now())
	if err != nil {
		t.Fatalf("replay returned error: %v", err)
	}
	if applied {
		t.Fatal("replay must not re-apply")
	}
	if repo.markDeliveredCalls != 1 {
		t.Fatalf("cache should short-circuit the replay, repo hit %d times", repo.markDeliveredCalls)
	}
}

func TestApplyDeliveryStatus_TerminalStatusNeverReverts(t *testing.T) {
	ctx := context.Background()

	repo := newFakeMessageRepo()
	repo.messages["gw-3"] = &domain.Message{ID: 3, Status: domain.StatusDelivered}

	svc := NewMessageService(repo, &fakeJobQueue{}, nil, dispatchConfig())

	applied, err := svc.ApplyDeliveryStatus(ctx, "gw-3", "failed", time.Now())
	if err != nil {
		t.Fatalf("ApplyDeliveryStatus returned error: %v", err)
	}
	if applied {
		t.Fatal("a delivered message must not move to failed")
	}
	if repo.messages["gw-3"].Status != domain.StatusDelivered {
		t.Fatalf("status reverted to %s", repo.messages["gw-3"].Status)
	}
}

func TestApplyDeliveryStatus_UnknownStatusRejected(t *testing.T) {
	ctx := context.Background()

	svc := NewMessageService(newFakeMessageRepo(), &fakeJobQueue{}, nil, dispatchConfig())

	if _, err := svc.ApplyDeliveryStatus(ctx, "gw-4", "teleported", time.Now()); err == nil {
		t.Fatal("expected error for unknown delivery status")
	}
}
