package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/conky-dev/numba-blasta-sub001/environments"
	"github.com/conky-dev/numba-blasta-sub001/internal/domain"
)

type fakeCampaignRepo struct {
	campaigns map[int64]*domain.Campaign
	nextID    int64
}

func newFakeCampaignRepo() *fakeCampaignRepo {
	return &fakeCampaignRepo{campaigns: make(map[int64]*domain.Campaign)}
}

func (r *fakeCampaignRepo) Create(ctx context.Context, c *domain.Campaign) (int64, error) {
	r.nextID++
	cp := *c
	cp.ID = r.nextID
	r.campaigns[r.nextID] = &cp
	return r.nextID, nil
}

func (r *fakeCampaignRepo) GetByID(ctx context.Context, id int64) (*domain.Campaign, error) {
	c, ok := r.campaigns[id]
	if !ok {
		return nil, domain.ErrCampaignNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCampaignRepo) List(ctx context.Context, orgID int64, page, pageSize int) ([]domain.Campaign, int64, error) {
	return nil, 0, nil
}

func (r *fakeCampaignRepo) UpdateStatus(ctx context.Context, id int64, expected, next domain.CampaignStatus) (bool, error) {
	c, ok := r.campaigns[id]
	if !ok || c.Status != expected {
		return false, nil
	}
	c.Status = next
	return true, nil
}

func (r *fakeCampaignRepo) SetSchedule(ctx context.Context, id int64, at *time.Time) error {
	if c, ok := r.campaigns[id]; ok {
		c.ScheduledAt = at
	}
	return nil
}

func (r *fakeCampaignRepo) SetRecipientCount(ctx context.Context, id int64, count int) error {
	if c, ok := r.campaigns[id]; ok {
		c.RecipientCount += count
	}
	return nil
}

func (r *fakeCampaignRepo) SoftDelete(ctx context.Context, id int64) error {
	c, ok := r.campaigns[id]
	if !ok {
		return domain.ErrCampaignNotFound
	}
	c.Deleted = true
	return nil
}

func (r *fakeCampaignRepo) ListDueScheduled(ctx context.Context, now time.Time) ([]domain.Campaign, error) {
	var due []domain.Campaign
	for _, c := range r.campaigns {
		if c.Status == domain.CampaignScheduled && c.ScheduledAt != nil && !c.ScheduledAt.After(now) {
			due = append(due, *c)
		}
	}
	return due, nil
}

func (r *fakeCampaignRepo) ListRunning(ctx context.Context) ([]domain.Campaign, error) {
	var running []domain.Campaign
	for _, c := range r.campaigns {
		if c.Status == domain.CampaignRunning {
			running = append(running, *c)
		}
	}
	return running, nil
}

type fakeContacts struct {
	contacts []domain.Contact
}

func (f *fakeContacts) ListEligible(ctx context.Context, orgID int64, limit int) ([]domain.Contact, int64, error) {
	total := int64(len(f.contacts))
	if len(f.contacts) > limit {
		return f.contacts[:limit], total, nil
	}
	return f.contacts, total, nil
}

type fakeJobCounts struct {
	queued, processing, done, failed int64
}

func (f *fakeJobCounts) CountByCampaign(ctx context.Context, campaignID int64) (int64, int64, int64, int64, error) {
	return f.queued, f.processing, f.done, f.failed, nil
}

func makeContacts(n int) []domain.Contact {
	contacts := make([]domain.Contact, 0, n)
	for i := 1; i <= n; i++ {
		contacts = append(contacts, domain.Contact{
			ID:          int64(i),
			OrgID:       1,
			PhoneNumber: fmt.Sprintf("+1555000%04d", i),
			FirstName:   "Ada",
		})
	}
	return contacts
}

func campaignConfig(batchMax int) environments.DispatchConfig {
	return environments.DispatchConfig{
		CampaignBatchMax: batchMax,
		OptOutFooter:     " Reply STOP to opt out",
	}
}

func newCampaignService(repo *fakeCampaignRepo, contacts *fakeContacts, queue *fakeJobQueue, counts *fakeJobCounts, batchMax int) *CampaignService {
	if counts == nil {
		counts = &fakeJobCounts{}
	}
	return NewCampaignService(repo, contacts, queue, counts, campaignConfig(batchMax))
}

func seedCampaign(repo *fakeCampaignRepo, status domain.CampaignStatus, body string) int64 {
	repo.nextID++
	repo.campaigns[repo.nextID] = &domain.Campaign{
		ID:     repo.nextID,
		OrgID:  1,
		Name:   "spring-promo",
		Body:   body,
		Status: status,
	}
	return repo.nextID
}

// nilRowCampaignRepo hands back a nil campaign with no error for missing
// ids, the shape a raw sql.ErrNoRows swallow would produce.
type nilRowCampaignRepo struct {
	fakeCampaignRepo
}

func (r *nilRowCampaignRepo) GetByID(ctx context.Context, id int64) (*domain.Campaign, error) {
	c, ok := r.campaigns[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func TestCampaignOps_MissingIDIsNotFound(t *testing.T) {
	ctx := context.Background()

	repo := &nilRowCampaignRepo{fakeCampaignRepo: *newFakeCampaignRepo()}
	svc := NewCampaignService(repo, &fakeContacts{}, &fakeJobQueue{}, &fakeJobCounts{}, campaignConfig(100))

	ops := map[string]func() error{
		"get": func() error {
			_, err := svc.GetByID(ctx, 42)
			return err
		},
		"pause": func() error {
			_, err := svc.Pause(ctx, 42)
			return err
		},
		"start": func() error {
			_, err := svc.Start(ctx, 42)
			return err
		},
		"schedule": func() error {
			_, err := svc.Schedule(ctx, 42, time.Now().Add(time.Hour))
			return err
		},
		"delete": func() error {
			return svc.SoftDelete(ctx, 42)
		},
		"finalize": func() error {
			_, err := svc.FinalizeIfComplete(ctx, 42)
			return err
		},
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			if err := op(); !errors.Is(err, domain.ErrCampaignNotFound) {
				t.Fatalf("expected ErrCampaignNotFound, got %v", err)
			}
		})
	}
}

func TestCampaignLifecycle_HappyPath(t *testing.T) {
	ctx := context.Background()

	repo := newFakeCampaignRepo()
	svc := newCampaignService(repo, &fakeContacts{contacts: makeContacts(3)}, &fakeJobQueue{}, nil, 100)

	campaign, err := svc.Create(ctx, CreateCampaignRequest{OrgID: 1, Name: "spring-promo", Body: "Hi {first_name}"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if campaign.Status != domain.CampaignDraft {
		t.Fatalf("new campaign should be draft, got %s", campaign.Status)
	}

	at := time.Now().Add(time.Hour)
	if _, err := svc.Schedule(ctx, campaign.ID, at); err != nil {
		t.Fatalf("Schedule returned error: %v", err)
	}

	if _, err := svc.Start(ctx, campaign.ID); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	if _, err := svc.Pause(ctx, campaign.ID); err != nil {
		t.Fatalf("Pause returned error: %v", err)
	}
	if _, err := svc.Resume(ctx, campaign.ID); err != nil {
		t.Fatalf("Resume returned error: %v", err)
	}
}

func TestCampaignTransition_InvalidMovesRejected(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name string
		from domain.CampaignStatus
		call func(svc *CampaignService, id int64) error
	}{
		{"pause a draft", domain.CampaignDraft, func(svc *CampaignService, id int64) error {
			_, err := svc.Pause(ctx, id)
			return err
		}},
		{"resume a running", domain.CampaignRunning, func(svc *CampaignService, id int64) error {
			_, err := svc.Resume(ctx, id)
			return err
		}},
		{"start a done", domain.CampaignDone, func(svc *CampaignService, id int64) error {
			_, err := svc.Start(ctx, id)
			return err
		}},
		{"schedule a paused", domain.CampaignPaused, func(svc *CampaignService, id int64) error {
			_, err := svc.Schedule(ctx, id, time.Now().Add(time.Hour))
			return err
		}},
		{"schedule a running", domain.CampaignRunning, func(svc *CampaignService, id int64) error {
			_, err := svc.Schedule(ctx, id, time.Now().Add(time.Hour))
			return err
		}},
		{"cancel a running", domain.CampaignRunning, func(svc *CampaignService, id int64) error {
			_, err := svc.Cancel(ctx, id)
			return err
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newFakeCampaignRepo()
			id := seedCampaign(repo, tc.from, "hello")
			svc := newCampaignService(repo, &fakeContacts{}, &fakeJobQueue{}, nil, 100)

			err := tc.call(svc, id)
			if err == nil {
				t.Fatal("expected transition error")
			}

			var transErr *domain.InvalidTransitionError
			if !errors.As(err, &transErr) {
				t.Fatalf("expected InvalidTransitionError, got %v", err)
			}
			if transErr.Current != tc.from {
				t.Errorf("error should carry current status %s, got %s", tc.from, transErr.Current)
			}
		})
	}
}

func TestCampaignCancel_WithdrawsSchedule(t *testing.T) {
	ctx := context.Background()

	repo := newFakeCampaignRepo()
	id := seedCampaign(repo, domain.CampaignScheduled, "hello")
	at := time.Now().Add(time.Hour)
	repo.campaigns[id].ScheduledAt = &at

	svc := newCampaignService(repo, &fakeContacts{}, &fakeJobQueue{}, nil, 100)

	campaign, err := svc.Cancel(ctx, id)
	if err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if campaign.Status != domain.CampaignDraft {
		t.Fatalf("expected draft after cancel, got %s", campaign.Status)
	}
	if repo.campaigns[id].ScheduledAt != nil {
		t.Fatal("cancel must clear the pending schedule")
	}
}

func TestCampaignStart_RendersAndEnqueuesPerContact(t *testing.T) {
	ctx := context.Background()

	repo := newFakeCampaignRepo()
	id := seedCampaign(repo, domain.CampaignDraft, "Hi {first_name}, sale on now")
	queue := &fakeJobQueue{}

	svc := newCampaignService(repo, &fakeContacts{contacts: makeContacts(3)}, queue, nil, 100)

	result, err := svc.Start(ctx, id)
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	if result.Enqueued != 3 || result.Failed != 0 || result.Partial {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(queue.enqueued) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(queue.enqueued))
	}

	first := queue.enqueued[0]
	if !strings.HasPrefix(first.Body, "Hi Ada, sale on now") {
		t.Errorf("template not rendered: %q", first.Body)
	}
	if !strings.HasSuffix(first.Body, "Reply STOP to opt out") {
		t.Errorf("campaign sends must carry the opt-out footer: %q", first.Body)
	}
	if first.CampaignID == nil || *first.CampaignID != id {
		t.Error("job must reference its campaign")
	}
}

func TestCampaignStart_BatchCeilingMarksPartial(t *testing.T) {
	ctx := context.Background()

	repo := newFakeCampaignRepo()
	id := seedCampaign(repo, domain.CampaignDraft, "hello")
	queue := &fakeJobQueue{}

	svc := newCampaignService(repo, &fakeContacts{contacts: makeContacts(25)}, queue, nil, 10)

	result, err := svc.Start(ctx, id)
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	if result.Enqueued != 10 {
		t.Fatalf("expected 10 enqueued at the ceiling, got %d", result.Enqueued)
	}
	if result.Eligible != 25 {
		t.Fatalf("expected 25 eligible, got %d", result.Eligible)
	}
	if !result.Partial {
		t.Fatal("exceeding the ceiling must be reported as partial")
	}
}

func TestCampaignStart_EmptyBodyRejected(t *testing.T) {
	ctx := context.Background()

	repo := newFakeCampaignRepo()
	id := seedCampaign(repo, domain.CampaignDraft, "")

	svc := newCampaignService(repo, &fakeContacts{contacts: makeContacts(1)}, &fakeJobQueue{}, nil, 100)

	if _, err := svc.Start(ctx, id); err == nil {
		t.Fatal("expected error for campaign without body")
	}
	if repo.campaigns[id].Status != domain.CampaignDraft {
		t.Fatal("campaign must stay draft when start is rejected")
	}

	// A bare template reference is not a substitute for a body; nothing
	// resolves it into text before fan-out.
	templateID := int64(7)
	repo.campaigns[id].TemplateID = &templateID
	if _, err := svc.Start(ctx, id); err == nil {
		t.Fatal("expected error for template-only campaign")
	}
	if repo.campaigns[id].Status != domain.CampaignDraft {
		t.Fatal("campaign must stay draft when start is rejected")
	}
}

func TestFinalizeIfComplete(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name       string
		counts     fakeJobCounts
		wantMoved  bool
		wantStatus domain.CampaignStatus
	}{
		{"work in flight", fakeJobCounts{queued: 2, done: 5}, false, domain.CampaignRunning},
		{"all done", fakeJobCounts{done: 5, failed: 2}, true, domain.CampaignDone},
		{"all failed", fakeJobCounts{failed: 7}, true, domain.CampaignFailed},
		{"nothing enqueued", fakeJobCounts{}, false, domain.CampaignRunning},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newFakeCampaignRepo()
			id := seedCampaign(repo, domain.CampaignRunning, "hello")
			svc := newCampaignService(repo, &fakeContacts{}, &fakeJobQueue{}, &tc.counts, 100)

			moved, err := svc.FinalizeIfComplete(ctx, id)
			if err != nil {
				t.Fatalf("FinalizeIfComplete returned error: %v", err)
			}
			if moved != tc.wantMoved {
				t.Fatalf("moved=%v, want %v", moved, tc.wantMoved)
			}
			if repo.campaigns[id].Status != tc.wantStatus {
				t.Fatalf("status=%s, want %s", repo.campaigns[id].Status, tc.wantStatus)
			}
		})
	}
}

func TestSoftDelete_RunningCampaignRejected(t *testing.T) {
	ctx := context.Background()

	repo := newFakeCampaignRepo()
	id := seedCampaign(repo, domain.CampaignRunning, "hello")
	svc := newCampaignService(repo, &fakeContacts{}, &fakeJobQueue{}, nil, 100)

	if err := svc.SoftDelete(ctx, id); err == nil {
		t.Fatal("expected error deleting a running campaign")
	}

	other := seedCampaign(repo, domain.CampaignDraft, "hello")
	if err := svc.SoftDelete(ctx, other); err != nil {
		t.Fatalf("SoftDelete returned error: %v", err)
	}
	if !repo.campaigns[other].Deleted {
		t.Fatal("expected campaign marked deleted")
	}
}
