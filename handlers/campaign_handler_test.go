package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/conky-dev/numba-blasta-sub001/environments"
	"github.com/conky-dev/numba-blasta-sub001/internal/domain"
	"github.com/conky-dev/numba-blasta-sub001/internal/service"
	"github.com/conky-dev/numba-blasta-sub001/pkg/response"
)

type stubCampaignRepo struct {
	campaign domain.Campaign
}

func (r *stubCampaignRepo) Create(ctx context.Context, c *domain.Campaign) (int64, error) {
	return 1, nil
}

func (r *stubCampaignRepo) GetByID(ctx context.Context, id int64) (*domain.Campaign, error) {
	cp := r.campaign
	return &cp, nil
}

func (r *stubCampaignRepo) List(ctx context.Context, orgID int64, page, pageSize int) ([]domain.Campaign, int64, error) {
	return nil, 0, nil
}

func (r *stubCampaignRepo) UpdateStatus(ctx context.Context, id int64, expected, next domain.CampaignStatus) (bool, error) {
	return r.campaign.Status == expected, nil
}

func (r *stubCampaignRepo) SetSchedule(ctx context.Context, id int64, at *time.Time) error {
	return nil
}

func (r *stubCampaignRepo) SetRecipientCount(ctx context.Context, id int64, count int) error {
	return nil
}

func (r *stubCampaignRepo) SoftDelete(ctx context.Context, id int64) error {
	return nil
}

func (r *stubCampaignRepo) ListDueScheduled(ctx context.Context, now time.Time) ([]domain.Campaign, error) {
	return nil, nil
}

func (r *stubCampaignRepo) ListRunning(ctx context.Context) ([]domain.Campaign, error) {
	return nil, nil
}

type stubContacts struct{}

func (stubContacts) ListEligible(ctx context.Context, orgID int64, limit int) ([]domain.Contact, int64, error) {
	return nil, 0, nil
}

type stubQueue struct{}

func (stubQueue) Enqueue(ctx context.Context, job *domain.Job) (int64, error) {
	return 1, nil
}

type stubCounts struct{}

func (stubCounts) CountByCampaign(ctx context.Context, campaignID int64) (int64, int64, int64, int64, error) {
	return 0, 0, 0, 0, nil
}

// TestPauseCampaign_InvalidTransitionReturns409 verifies the lifecycle
// conflict surfaces as HTTP 409 naming both statuses.
func TestPauseCampaign_InvalidTransitionReturns409(t *testing.T) {
	e := echo.New()

	repo := &stubCampaignRepo{campaign: domain.Campaign{ID: 1, OrgID: 1, Status: domain.CampaignDraft}}
	svc := service.NewCampaignService(repo, stubContacts{}, stubQueue{}, stubCounts{}, environments.DispatchConfig{CampaignBatchMax: 100})
	handler := NewCampaignHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/campaigns/1/pause", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")

	if err := handler.PauseCampaign(c); err != nil {
		t.Fatalf("PauseCampaign returned error: %v", err)
	}

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, rec.Code)
	}

	var resp response.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response body: %v", err)
	}

	if !strings.Contains(resp.Error, `"draft"`) || !strings.Contains(resp.Error, `"paused"`) {
		t.Fatalf("conflict body should name both statuses, got %q", resp.Error)
	}
}

// TestPauseCampaign_InvalidID verifies a non-numeric id is rejected early.
func TestPauseCampaign_InvalidID(t *testing.T) {
	e := echo.New()
	handler := NewCampaignHandler(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/campaigns/abc/pause", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("abc")

	if err := handler.PauseCampaign(c); err != nil {
		t.Fatalf("PauseCampaign returned error: %v", err)
	}

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

type missingCampaignRepo struct {
	stubCampaignRepo
}

func (r *missingCampaignRepo) GetByID(ctx context.Context, id int64) (*domain.Campaign, error) {
	return nil, domain.ErrCampaignNotFound
}

type brokenCampaignRepo struct {
	stubCampaignRepo
}

func (r *brokenCampaignRepo) GetByID(ctx context.Context, id int64) (*domain.Campaign, error) {
	return nil, errors.New("connection refused")
}

// TestGetCampaign_UnknownIDReturns404 verifies a missing campaign maps to
// 404, not a success envelope with a null payload.
func TestGetCampaign_UnknownIDReturns404(t *testing.T) {
	e := echo.New()
	svc := service.NewCampaignService(&missingCampaignRepo{}, stubContacts{}, stubQueue{}, stubCounts{}, environments.DispatchConfig{})
	handler := NewCampaignHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/campaigns/42", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("42")

	if err := handler.GetCampaign(c); err != nil {
		t.Fatalf("GetCampaign returned error: %v", err)
	}

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

// TestGetCampaign_RepositoryErrorReturns500 verifies a store failure is not
// misreported as not-found.
func TestGetCampaign_RepositoryErrorReturns500(t *testing.T) {
	e := echo.New()
	svc := service.NewCampaignService(&brokenCampaignRepo{}, stubContacts{}, stubQueue{}, stubCounts{}, environments.DispatchConfig{})
	handler := NewCampaignHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/campaigns/42", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("42")

	if err := handler.GetCampaign(c); err != nil {
		t.Fatalf("GetCampaign returned error: %v", err)
	}

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, rec.Code)
	}
}
