package handlers

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/conky-dev/numba-blasta-sub001/internal/domain"
	"github.com/conky-dev/numba-blasta-sub001/internal/service"
	"github.com/conky-dev/numba-blasta-sub001/pkg/response"
	"github.com/conky-dev/numba-blasta-sub001/pkg/validator"
)

type MessageHandler struct {
	service *service.MessageService
}

func NewMessageHandler(service *service.MessageService) *MessageHandler {
	return &MessageHandler{service: service}
}

type SendMessageRequest struct {
	OrgID        int64   `json:"orgId" validate:"required"`
	UserID       int64   `json:"userId"`
	PhoneNumber  string  `json:"phoneNumber" validate:"required,e164"`
	Body         string  `json:"body" validate:"required,max=1600"`
	SenderNumber *string `json:"senderNumber,omitempty"`
	ContactID    *int64  `json:"contactId,omitempty"`
	DirectReply  bool    `json:"directReply"`
	Priority     int     `json:"priority"`
}

// SendMessage godoc
// @Summary Enqueue an outbound message
// @Description Queues a single SMS for dispatch. Marketing sends get the opt-out footer; direct replies go out verbatim.
// @Tags messages
// @Accept json
// @Produce json
// @Param x-api-key header string true "API key"
// @Param message body SendMessageRequest true "Message to send"
// @Success 201 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/messages [post]
func (h *MessageHandler) SendMessage(c echo.Context) error {
	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	job, err := h.service.EnqueueMessage(c.Request().Context(), service.SendRequest{
		OrgID:        req.OrgID,
		UserID:       req.UserID,
		ContactID:    req.ContactID,
		PhoneNumber:  req.PhoneNumber,
		Body:         req.Body,
		SenderNumber: req.SenderNumber,
		DirectReply:  req.DirectReply,
		Priority:     req.Priority,
	})
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Created(c, "Message enqueued", job)
}

// GetAllMessages godoc
// @Summary Get messages
// @Description Retrieves a paginated list of messages with optional status filter
// @Tags messages
// @Accept json
// @Produce json
// @Param x-api-key header string true "API key"
// @Param orgId query int true "Organization ID"
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Page size (default: 20, max: 100)"
// @Param status query string false "Filter by status (queued, sent, delivered, failed)"
// @Success 200 {object} response.PaginatedResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/messages [get]
func (h *MessageHandler) GetAllMessages(c echo.Context) error {
	orgID, err := parseOrgID(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	page, pageSize, err := parsePaginationParams(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	statusStr := c.QueryParam("status")

	// Convert status string to pointer (optional filter).
	var status *domain.MessageStatus
	if statusStr != "" {
		parsedStatus := domain.MessageStatus(statusStr)
		status = &parsedStatus
	}

	messages, totalCount, err := h.service.GetAllMessages(c.Request().Context(), orgID, status, page, pageSize)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Paginated(c, messages, page, pageSize, totalCount)
}

// GetMessage godoc
// @Summary Get a message by id
// @Tags messages
// @Accept json
// @Produce json
// @Param x-api-key header string true "API key"
// @Param id path int true "Message ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/messages/{id} [get]
func (h *MessageHandler) GetMessage(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return response.BadRequest(c, fmt.Errorf("invalid message id"))
	}

	message, err := h.service.GetMessage(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrMessageNotFound) {
			return response.NotFound(c, "message not found")
		}
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, message)
}

// GetStats godoc
// @Summary Get message statistics
// @Description Returns count of outbound messages by status
// @Tags messages
// @Accept json
// @Produce json
// @Param x-api-key header string true "API key"
// @Param orgId query int true "Organization ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/messages/stats [get]
func (h *MessageHandler) GetStats(c echo.Context) error {
	orgID, err := parseOrgID(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	sent, delivered, failed, err := h.service.GetStats(c.Request().Context(), orgID)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, map[string]any{
		"sent":      sent,
		"delivered": delivered,
		"failed":    failed,
		"total":     sent + delivered + failed,
	})
}

func parseOrgID(c echo.Context) (int64, error) {
	orgStr := c.QueryParam("orgId")
	if orgStr == "" {
		return 0, fmt.Errorf("orgId is required")
	}

	orgID, err := strconv.ParseInt(orgStr, 10, 64)
	if err != nil || orgID <= 0 {
		return 0, fmt.Errorf("orgId must be a positive integer")
	}

	return orgID, nil
}

func parsePaginationParams(c echo.Context) (int, int, error) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)

	pageStr := c.QueryParam("page")
	pageSizeStr := c.QueryParam("pageSize")

	// Page
	page := defaultPage
	if pageStr != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p <= 0 {
			return 0, 0, fmt.Errorf("page must be a positive integer")
		}
		page = p
	}

	// Page size
	pageSize := defaultPageSize
	if pageSizeStr != "" {
		ps, err := strconv.Atoi(pageSizeStr)
		if err != nil || ps <= 0 || ps > maxPageSize {
			return 0, 0, fmt.Errorf("pageSize must be between 1 and %d", maxPageSize)
		}

		pageSize = ps
	}

	return page, pageSize, nil
}
