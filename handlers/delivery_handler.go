package handlers

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/conky-dev/numba-blasta-sub001/internal/service"
	"github.com/conky-dev/numba-blasta-sub001/pkg/response"
	"github.com/conky-dev/numba-blasta-sub001/pkg/validator"
)

type DeliveryHandler struct {
	service *service.MessageService
}

func NewDeliveryHandler(service *service.MessageService) *DeliveryHandler {
	return &DeliveryHandler{service: service}
}

type DeliveryCallbackRequest struct {
	MessageID  string     `json:"messageId" validate:"required"`
	Status     string     `json:"status" validate:"required,oneof=delivered failed undelivered"`
	OccurredAt *time.Time `json:"occurredAt,omitempty"`
}

// DeliveryCallback godoc
// @Summary Gateway delivery callback
// @Description Applies a delivery status update from the carrier gateway. Replays are acknowledged but not re-applied.
// @Tags webhooks
// @Accept json
// @Produce json
// @Param x-gateway-auth-key header string true "Gateway callback key"
// @Param callback body DeliveryCallbackRequest true "Delivery status"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Router /api/v1/webhooks/delivery [post]
func (h *DeliveryHandler) DeliveryCallback(c echo.Context) error {
	var req DeliveryCallbackRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	occurredAt := time.Now()
	if req.OccurredAt != nil {
		occurredAt = *req.OccurredAt
	}

	applied, err := h.service.ApplyDeliveryStatus(c.Request().Context(), req.MessageID, req.Status, occurredAt)
	if err != nil {
		return response.BadRequest(c, err)
	}

	return response.Ok(c, map[string]any{
		"applied": applied,
	})
}
