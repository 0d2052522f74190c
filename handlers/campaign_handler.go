package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/conky-dev/numba-blasta-sub001/internal/domain"
	"github.com/conky-dev/numba-blasta-sub001/internal/service"
	"github.com/conky-dev/numba-blasta-sub001/pkg/response"
	"github.com/conky-dev/numba-blasta-sub001/pkg/validator"
)

type CampaignHandler struct {
	service *service.CampaignService
}

func NewCampaignHandler(service *service.CampaignService) *CampaignHandler {
	return &CampaignHandler{service: service}
}

type CreateCampaignRequest struct {
	OrgID        int64   `json:"orgId" validate:"required"`
	Name         string  `json:"name" validate:"required,max=200"`
	Body         string  `json:"body" validate:"max=1600"`
	TemplateID   *int64  `json:"templateId,omitempty"`
	SenderNumber *string `json:"senderNumber,omitempty"`
}

type ScheduleCampaignRequest struct {
	ScheduledAt time.Time `json:"scheduledAt" validate:"required"`
}

// CreateCampaign godoc
// @Summary Create a campaign
// @Description Creates a new campaign in draft state
// @Tags campaigns
// @Accept json
// @Produce json
// @Param x-api-key header string true "API key"
// @Param campaign body CreateCampaignRequest true "Campaign to create"
// @Success 201 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/campaigns [post]
func (h *CampaignHandler) CreateCampaign(c echo.Context) error {
	var req CreateCampaignRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	campaign, err := h.service.Create(c.Request().Context(), service.CreateCampaignRequest{
		OrgID:        req.OrgID,
		Name:         req.Name,
		Body:         req.Body,
		TemplateID:   req.TemplateID,
		SenderNumber: req.SenderNumber,
	})
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Created(c, "Campaign created", campaign)
}

// ListCampaigns godoc
// @Summary List campaigns
// @Tags campaigns
// @Accept json
// @Produce json
// @Param x-api-key header string true "API key"
// @Param orgId query int true "Organization ID"
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Page size (default: 20, max: 100)"
// @Success 200 {object} response.PaginatedResponse
// @Failure 400 {object} response.ErrorResponse
// @Router /api/v1/campaigns [get]
func (h *CampaignHandler) ListCampaigns(c echo.Context) error {
	orgID, err := parseOrgID(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	page, pageSize, err := parsePaginationParams(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	campaigns, totalCount, err := h.service.List(c.Request().Context(), orgID, page, pageSize)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Paginated(c, campaigns, page, pageSize, totalCount)
}

// GetCampaign godoc
// @Summary Get a campaign by id
// @Tags campaigns
// @Accept json
// @Produce json
// @Param x-api-key header string true "API key"
// @Param id path int true "Campaign ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/campaigns/{id} [get]
func (h *CampaignHandler) GetCampaign(c echo.Context) error {
	id, err := parseCampaignID(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	campaign, err := h.service.GetByID(c.Request().Context(), id)
	if err != nil {
		return campaignError(c, err)
	}

	return response.Ok(c, campaign)
}

// ScheduleCampaign godoc
// @Summary Schedule a campaign
// @Description Moves a draft campaign to scheduled at the given time
// @Tags campaigns
// @Accept json
// @Produce json
// @Param x-api-key header string true "API key"
// @Param id path int true "Campaign ID"
// @Param schedule body ScheduleCampaignRequest true "Schedule time"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /api/v1/campaigns/{id}/schedule [post]
func (h *CampaignHandler) ScheduleCampaign(c echo.Context) error {
	id, err := parseCampaignID(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	var req ScheduleCampaignRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	campaign, err := h.service.Schedule(c.Request().Context(), id, req.ScheduledAt)
	if err != nil {
		return campaignError(c, err)
	}

	return response.Ok(c, campaign)
}

// StartCampaign godoc
// @Summary Start a campaign
// @Description Activates the campaign and fans out jobs to eligible contacts
// @Tags campaigns
// @Accept json
// @Produce json
// @Param x-api-key header string true "API key"
// @Param id path int true "Campaign ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /api/v1/campaigns/{id}/start [post]
func (h *CampaignHandler) StartCampaign(c echo.Context) error {
	id, err := parseCampaignID(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	result, err := h.service.Start(c.Request().Context(), id)
	if err != nil {
		return campaignError(c, err)
	}

	return response.Ok(c, result)
}

// PauseCampaign godoc
// @Summary Pause a running campaign
// @Tags campaigns
// @Produce json
// @Param x-api-key header string true "API key"
// @Param id path int true "Campaign ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /api/v1/campaigns/{id}/pause [post]
func (h *CampaignHandler) PauseCampaign(c echo.Context) error {
	return h.applyTransition(c, h.service.Pause)
}

// ResumeCampaign godoc
// @Summary Resume a paused campaign
// @Tags campaigns
// @Produce json
// @Param x-api-key header string true "API key"
// @Param id path int true "Campaign ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /api/v1/campaigns/{id}/resume [post]
func (h *CampaignHandler) ResumeCampaign(c echo.Context) error {
	return h.applyTransition(c, h.service.Resume)
}

// CancelCampaign godoc
// @Summary Cancel a scheduled campaign
// @Description Withdraws the pending schedule and returns the campaign to draft
// @Tags campaigns
// @Produce json
// @Param x-api-key header string true "API key"
// @Param id path int true "Campaign ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /api/v1/campaigns/{id}/cancel [post]
func (h *CampaignHandler) CancelCampaign(c echo.Context) error {
	return h.applyTransition(c, h.service.Cancel)
}

// DeleteCampaign godoc
// @Summary Soft-delete a campaign
// @Tags campaigns
// @Produce json
// @Param x-api-key header string true "API key"
// @Param id path int true "Campaign ID"
// @Success 204
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /api/v1/campaigns/{id} [delete]
func (h *CampaignHandler) DeleteCampaign(c echo.Context) error {
	id, err := parseCampaignID(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	if err := h.service.SoftDelete(c.Request().Context(), id); err != nil {
		return campaignError(c, err)
	}

	return response.NoContent(c)
}

func (h *CampaignHandler) applyTransition(
	c echo.Context,
	fn func(ctx context.Context, id int64) (*domain.Campaign, error),
) error {
	id, err := parseCampaignID(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	campaign, err := fn(c.Request().Context(), id)
	if err != nil {
		return campaignError(c, err)
	}

	return response.Ok(c, campaign)
}

func parseCampaignID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid campaign id")
	}
	return id, nil
}

// campaignError maps service errors onto HTTP statuses: unknown campaign to
// 404, lifecycle violations to 409 carrying both statuses.
func campaignError(c echo.Context, err error) error {
	if errors.Is(err, domain.ErrCampaignNotFound) {
		return response.NotFound(c, "campaign not found")
	}

	var transErr *domain.InvalidTransitionError
	if errors.As(err, &transErr) {
		return response.Conflict(c, transErr)
	}

	return response.InternalServerError(c, err)
}
