package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/conky-dev/numba-blasta-sub001/internal/service"
	"github.com/conky-dev/numba-blasta-sub001/pkg/response"
	"github.com/conky-dev/numba-blasta-sub001/pkg/validator"
)

type CreditHandler struct {
	service *service.CreditService
}

func NewCreditHandler(service *service.CreditService) *CreditHandler {
	return &CreditHandler{service: service}
}

type AddFundsRequest struct {
	OrgID       int64  `json:"orgId" validate:"required"`
	AmountCents int64  `json:"amountCents" validate:"required,gt=0"`
	UserID      *int64 `json:"userId,omitempty"`
}

// GetBalance godoc
// @Summary Get credit balance
// @Tags credits
// @Accept json
// @Produce json
// @Param x-api-key header string true "API key"
// @Param orgId query int true "Organization ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Router /api/v1/credits/balance [get]
func (h *CreditHandler) GetBalance(c echo.Context) error {
	orgID, err := parseOrgID(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	balance, err := h.service.GetBalance(c.Request().Context(), orgID)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, balance)
}

// ListTransactions godoc
// @Summary List ledger transactions
// @Description Paginated append-only ledger history, newest first
// @Tags credits
// @Accept json
// @Produce json
// @Param x-api-key header string true "API key"
// @Param orgId query int true "Organization ID"
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Page size (default: 20, max: 100)"
// @Success 200 {object} response.PaginatedResponse
// @Failure 400 {object} response.ErrorResponse
// @Router /api/v1/credits/transactions [get]
func (h *CreditHandler) ListTransactions(c echo.Context) error {
	orgID, err := parseOrgID(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	page, pageSize, err := parsePaginationParams(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	transactions, totalCount, err := h.service.ListTransactions(c.Request().Context(), orgID, page, pageSize)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Paginated(c, transactions, page, pageSize, totalCount)
}

// AddFunds godoc
// @Summary Add credit funds
// @Tags credits
// @Accept json
// @Produce json
// @Param x-api-key header string true "API key"
// @Param purchase body AddFundsRequest true "Funds to add"
// @Success 201 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Router /api/v1/credits/funds [post]
func (h *CreditHandler) AddFunds(c echo.Context) error {
	var req AddFundsRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	ref, err := h.service.Purchase(c.Request().Context(), req.OrgID, req.AmountCents, req.UserID)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Created(c, "Funds added", map[string]any{
		"reference": ref,
	})
}
