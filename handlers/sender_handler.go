package handlers

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/conky-dev/numba-blasta-sub001/internal/ratelimit"
	"github.com/conky-dev/numba-blasta-sub001/internal/repository"
	"github.com/conky-dev/numba-blasta-sub001/pkg/response"
)

type SenderHandler struct {
	repo    *repository.SenderRepository
	limiter ratelimit.Limiter
}

func NewSenderHandler(repo *repository.SenderRepository, limiter ratelimit.Limiter) *SenderHandler {
	return &SenderHandler{repo: repo, limiter: limiter}
}

// ListSenders godoc
// @Summary List sender numbers
// @Tags senders
// @Accept json
// @Produce json
// @Param x-api-key header string true "API key"
// @Param orgId query int true "Organization ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Router /api/v1/senders [get]
func (h *SenderHandler) ListSenders(c echo.Context) error {
	orgID, err := parseOrgID(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	senders, err := h.repo.ListByOrg(c.Request().Context(), orgID)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, senders)
}

// GetSenderUsage godoc
// @Summary Get rate limit usage for a sender number
// @Description Read-only window status; never consumes from the counter
// @Tags senders
// @Accept json
// @Produce json
// @Param x-api-key header string true "API key"
// @Param orgId query int true "Organization ID"
// @Param number path string true "Sender number"
// @Success 200 {object} response.SuccessResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/senders/{number}/usage [get]
func (h *SenderHandler) GetSenderUsage(c echo.Context) error {
	orgID, err := parseOrgID(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	number := c.Param("number")

	sender, err := h.repo.GetByNumber(c.Request().Context(), orgID, number)
	if err != nil {
		return response.NotFound(c, "sender number not found")
	}

	window := time.Duration(sender.RateLimitHours) * time.Hour
	status, err := h.limiter.Status(c.Request().Context(), sender.Number, sender.RateLimitMax, window)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, status)
}
