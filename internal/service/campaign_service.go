package service

import (
	"context"
	"fmt"
	"time"

	"github.com/conky-dev/numba-blasta-sub001/environments"
	"github.com/conky-dev/numba-blasta-sub001/internal/domain"
	"github.com/conky-dev/numba-blasta-sub001/pkg/logger"
	"github.com/conky-dev/numba-blasta-sub001/pkg/template"
)

type campaignRepository interface {
	Create(ctx context.Context, c *domain.Campaign) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Campaign, error)
	List(ctx context.Context, orgID int64, page, pageSize int) ([]domain.Campaign, int64, error)
	UpdateStatus(ctx context.Context, id int64, expected, next domain.CampaignStatus) (bool, error)
	SetSchedule(ctx context.Context, id int64, at *time.Time) error
	SetRecipientCount(ctx context.Context, id int64, count int) error
	SoftDelete(ctx context.Context, id int64) error
	ListDueScheduled(ctx context.Context, now time.Time) ([]domain.Campaign, error)
	ListRunning(ctx context.Context) ([]domain.Campaign, error)
}

type contactLister interface {
	ListEligible(ctx context.Context, orgID int64, limit int) ([]domain.Contact, int64, error)
}

type campaignJobCounter interface {
	CountByCampaign(ctx context.Context, campaignID int64) (queued, processing, done, failed int64, err error)
}

type CampaignService struct {
	repo     campaignRepository
	contacts contactLister
	queue    jobQueue
	jobs     campaignJobCounter
	config   environments.DispatchConfig
}

func NewCampaignService(
	repo campaignRepository,
	contacts contactLister,
	queue jobQueue,
	jobs campaignJobCounter,
	config environments.DispatchConfig,
) *CampaignService {
	return &CampaignService{
		repo:     repo,
		contacts: contacts,
		queue:    queue,
		jobs:     jobs,
		config:   config,
	}
}

type CreateCampaignRequest struct {
	OrgID        int64
	Name         string
	Body         string
	TemplateID   *int64
	SenderNumber *string
}

func (s *CampaignService) Create(ctx context.Context, req CreateCampaignRequest) (*domain.Campaign, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("campaign name is required")
	}

	campaign := &domain.Campaign{
		OrgID:        req.OrgID,
		Name:         req.Name,
		Body:         req.Body,
		TemplateID:   req.TemplateID,
		SenderNumber: req.SenderNumber,
		Status:       domain.CampaignDraft,
	}

	id, err := s.repo.Create(ctx, campaign)
	if err != nil {
		return nil, err
	}
	campaign.ID = id

	return campaign, nil
}

func (s *CampaignService) GetByID(ctx context.Context, id int64) (*domain.Campaign, error) {
	return s.getCampaign(ctx, id)
}

// getCampaign loads a campaign and pins the not-found contract: a missing
// row is always domain.ErrCampaignNotFound, never a nil campaign.
func (s *CampaignService) getCampaign(ctx context.Context, id int64) (*domain.Campaign, error) {
	campaign, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, domain.ErrCampaignNotFound
	}
	return campaign, nil
}

func (s *CampaignService) List(ctx context.Context, orgID int64, page, pageSize int) ([]domain.Campaign, int64, error) {
	return s.repo.List(ctx, orgID, page, pageSize)
}

// transition applies one lifecycle step. The status table is checked first
// for a typed error, then the guarded UPDATE re-checks under the database
// lock so two racing transitions cannot both win.
func (s *CampaignService) transition(ctx context.Context, id int64, to domain.CampaignStatus) (*domain.Campaign, error) {
	campaign, err := s.getCampaign(ctx, id)
	if err != nil {
		return nil, err
	}

	if !domain.CanTransition(campaign.Status, to) {
		return nil, &domain.InvalidTransitionError{Current: campaign.Status, Requested: to}
	}

	changed, err := s.repo.UpdateStatus(ctx, id, campaign.Status, to)
	if err != nil {
		return nil, err
	}
	if !changed {
		// Lost a race; report against the fresh state.
		fresh, err := s.getCampaign(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, &domain.InvalidTransitionError{Current: fresh.Status, Requested: to}
	}

	campaign.Status = to
	logger.Infof("Campaign %d transitioned to %s", id, to)

	return campaign, nil
}

// Schedule moves a draft to scheduled at the given time.
func (s *CampaignService) Schedule(ctx context.Context, id int64, at time.Time) (*domain.Campaign, error) {
	if at.Before(time.Now()) {
		return nil, fmt.Errorf("scheduled time must be in the future")
	}

	campaign, err := s.transition(ctx, id, domain.CampaignScheduled)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetSchedule(ctx, id, &at); err != nil {
		return nil, err
	}
	campaign.ScheduledAt = &at

	return campaign, nil
}

// Cancel withdraws a pending schedule, returning the campaign to draft.
func (s *CampaignService) Cancel(ctx context.Context, id int64) (*domain.Campaign, error) {
	campaign, err := s.transition(ctx, id, domain.CampaignDraft)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetSchedule(ctx, id, nil); err != nil {
		return nil, err
	}
	campaign.ScheduledAt = nil

	return campaign, nil
}

func (s *CampaignService) Pause(ctx context.Context, id int64) (*domain.Campaign, error) {
	return s.transition(ctx, id, domain.CampaignPaused)
}

func (s *CampaignService) Resume(ctx context.Context, id int64) (*domain.Campaign, error) {
	return s.transition(ctx, id, domain.CampaignRunning)
}

func (s *CampaignService) SoftDelete(ctx context.Context, id int64) error {
	campaign, err := s.getCampaign(ctx, id)
	if err != nil {
		return err
	}
	if campaign.Status == domain.CampaignRunning {
		return &domain.InvalidTransitionError{Current: campaign.Status, Requested: "deleted"}
	}
	return s.repo.SoftDelete(ctx, id)
}

// Start activates a campaign and fans its body out to eligible contacts.
// Every recipient gets an individual enqueue attempt; one failure never
// aborts the rest. When eligible recipients exceed the batch ceiling only
// the first batch is enqueued and the result says so explicitly.
func (s *CampaignService) Start(ctx context.Context, id int64) (*domain.StartResult, error) {
	campaign, err := s.getCampaign(ctx, id)
	if err != nil {
		return nil, err
	}

	// A template reference alone is not enough: nothing resolves it into
	// text, so fan-out needs a rendered body on the campaign itself.
	if campaign.Body == "" {
		return nil, fmt.Errorf("campaign %d has no body", id)
	}

	if _, err := s.transition(ctx, id, domain.CampaignRunning); err != nil {
		return nil, err
	}

	contacts, eligible, err := s.contacts.ListEligible(ctx, campaign.OrgID, s.config.CampaignBatchMax)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaign recipients: %w", err)
	}

	result := &domain.StartResult{
		CampaignID: id,
		Eligible:   int(eligible),
		Partial:    eligible > int64(len(contacts)),
	}

	for _, contact := range contacts {
		body := renderForContact(campaign.Body, &contact)
		if s.config.OptOutFooter != "" {
			body = withFooter(body, s.config.OptOutFooter)
		}

		contactID := contact.ID
		job := &domain.Job{
			OrgID:        campaign.OrgID,
			ContactID:    &contactID,
			TemplateID:   campaign.TemplateID,
			CampaignID:   &campaign.ID,
			SenderNumber: campaign.SenderNumber,
			PhoneNumber:  contact.PhoneNumber,
			Body:         body,
			Status:       domain.JobQueued,
		}

		outcome := domain.SendOutcome{PhoneNumber: contact.PhoneNumber}

		jobID, err := s.queue.Enqueue(ctx, job)
		if err != nil {
			logger.Errorf("Campaign %d: failed to enqueue for %s: %v", id, contact.PhoneNumber, err)
			outcome.Err = err
			result.Failed++
		} else {
			outcome.JobID = jobID
			outcome.Enqueued = true
			result.Enqueued++
		}

		result.Outcomes = append(result.Outcomes, outcome)
	}

	if err := s.repo.SetRecipientCount(ctx, id, result.Enqueued); err != nil {
		logger.Errorf("Campaign %d: failed to record recipient count: %v", id, err)
	}

	logger.Infof("Campaign %d started: %d enqueued, %d failed, %d eligible (partial=%v)",
		id, result.Enqueued, result.Failed, result.Eligible, result.Partial)

	return result, nil
}

// renderForContact fills the standard per-contact placeholders.
func renderForContact(body string, contact *domain.Contact) string {
	return template.Render(body, map[string]string{
		"first_name": contact.FirstName,
		"last_name":  contact.LastName,
		"phone":      contact.PhoneNumber,
	})
}

// FinalizeIfComplete moves a running campaign to its terminal state once
// every enqueued job is terminal: done when at least one send went through,
// failed when none did. Campaigns with work still in flight are untouched.
func (s *CampaignService) FinalizeIfComplete(ctx context.Context, id int64) (bool, error) {
	campaign, err := s.getCampaign(ctx, id)
	if err != nil {
		return false, err
	}
	if campaign.Status != domain.CampaignRunning {
		return false, nil
	}

	queued, processing, done, failed, err := s.jobs.CountByCampaign(ctx, id)
	if err != nil {
		return false, err
	}

	if queued > 0 || processing > 0 {
		return false, nil
	}
	if done == 0 && failed == 0 {
		// Nothing was ever enqueued; leave it to the operator.
		return false, nil
	}

	target := domain.CampaignDone
	if done == 0 {
		target = domain.CampaignFailed
	}

	if _, err := s.transition(ctx, id, target); err != nil {
		return false, err
	}

	return true, nil
}

// ActivateDue starts every scheduled campaign whose time has arrived.
// Returns the number of campaigns moved to running.
func (s *CampaignService) ActivateDue(ctx context.Context, now time.Time) (int, error) {
	due, err := s.repo.ListDueScheduled(ctx, now)
	if err != nil {
		return 0, err
	}

	started := 0
	for _, campaign := range due {
		if _, err := s.Start(ctx, campaign.ID); err != nil {
			logger.Errorf("Failed to start due campaign %d: %v", campaign.ID, err)
			continue
		}
		started++
	}

	return started, nil
}

// FinalizeRunning sweeps all running campaigns for completion.
func (s *CampaignService) FinalizeRunning(ctx context.Context) (int, error) {
	running, err := s.repo.ListRunning(ctx)
	if err != nil {
		return 0, err
	}

	finalized := 0
	for _, campaign := range running {
		moved, err := s.FinalizeIfComplete(ctx, campaign.ID)
		if err != nil {
			logger.Errorf("Failed to finalize campaign %d: %v", campaign.ID, err)
			continue
		}
		if moved {
			finalized++
		}
	}

	return finalized, nil
}
