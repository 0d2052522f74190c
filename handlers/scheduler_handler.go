package handlers

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/conky-dev/numba-blasta-sub001/internal/scheduler"
	"github.com/conky-dev/numba-blasta-sub001/pkg/response"
)

type SchedulerHandler struct {
	scheduler *scheduler.Scheduler
	ctx       context.Context
}

func NewSchedulerHandler(sched *scheduler.Scheduler, ctx context.Context) *SchedulerHandler {
	return &SchedulerHandler{
		scheduler: sched,
		ctx:       ctx,
	}
}

// StartScheduler godoc
// @Summary Start the campaign scheduler
// @Description Starts the background loop that activates due campaigns, finalizes finished ones and purges expired jobs
// @Tags scheduler
// @Accept json
// @Produce json
// @Param x-scheduler-auth-key header string true "API key for scheduler"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/scheduler/start [post]
func (h *SchedulerHandler) StartScheduler(c echo.Context) error {
	if h.scheduler.IsRunning() {
		return response.OkWithMessage(c, "Scheduler is already running", h.scheduler.GetStatus())
	}

	if err := h.scheduler.Start(h.ctx); err != nil {
		return response.InternalServerError(c, err)
	}

	return response.OkWithMessage(c, "Scheduler started successfully", h.scheduler.GetStatus())
}

// StopScheduler godoc
// @Summary Stop the campaign scheduler
// @Tags scheduler
// @Accept json
// @Produce json
// @Param x-scheduler-auth-key header string true "API key for scheduler"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/scheduler/stop [post]
func (h *SchedulerHandler) StopScheduler(c echo.Context) error {
	if !h.scheduler.IsRunning() {
		return response.OkWithMessage(c, "Scheduler is already stopped", h.scheduler.GetStatus())
	}

	if err := h.scheduler.Stop(); err != nil {
		return response.InternalServerError(c, err)
	}

	return response.OkWithMessage(c, "Scheduler stopped successfully", h.scheduler.GetStatus())
}

// GetSchedulerStatus godoc
// @Summary Get scheduler status
// @Tags scheduler
// @Accept json
// @Produce json
// @Param x-scheduler-auth-key header string true "API key for scheduler"
// @Success 200 {object} response.SuccessResponse
// @Router /api/v1/scheduler/status [get]
func (h *SchedulerHandler) GetSchedulerStatus(c echo.Context) error {
	return response.Ok(c, h.scheduler.GetStatus())
}
