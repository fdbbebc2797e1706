package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/SscSPs/checkout_ledger_app/internal/core/domain"
	portssvc "github.com/SscSPs/checkout_ledger_app/internal/core/ports/services"
	"github.com/SscSPs/checkout_ledger_app/internal/dto"
	"github.com/SscSPs/checkout_ledger_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

// adminHandler lets approvers run the sweeps on demand.
type adminHandler struct {
	sweepService portssvc.SweepSvcFacade
	now          func() time.Time
}

func registerAdminRoutes(rg *gin.RouterGroup, ss portssvc.SweepSvcFacade) {
	h := &adminHandler{sweepService: ss, now: time.Now}

	admin := rg.Group("/admin", middleware.RequirePermission(domain.PermissionApprove))
	{
		admin.POST("/sweeps/overdue", h.sweepOverdue)
		admin.POST("/sweeps/due-soon", h.sweepDueSoon)
	}
}

// sweepOverdue godoc
// @Summary Run the overdue sweep now
// @Tags admin
// @Produce  json
// @Success 200 {object} dto.SweepResponse
// @Security BearerAuth
// @Router /admin/sweeps/overdue [post]
func (h *adminHandler) sweepOverdue(c *gin.Context) {
	now := h.now()
	n, err := h.sweepService.SweepOverdue(c.Request.Context(), now)
	if err != nil {
		respondError(c, err, "run overdue sweep")
		return
	}
	middleware.GetLoggerFromCtx(c.Request.Context()).Info("Manual overdue sweep", slog.Int("marked", n))
	c.JSON(http.StatusOK, dto.SweepResponse{Sweep: "overdue", Count: n, RanAt: now.UTC()})
}

func (h *adminHandler) sweepDueSoon(c *gin.Context) {
	now := h.now()
	n, err := h.sweepService.SweepDueSoon(c.Request.Context(), now)
	if err != nil {
		respondError(c, err, "run due-soon sweep")
		return
	}
	c.JSON(http.StatusOK, dto.SweepResponse{Sweep: "due_soon", Count: n, RanAt: now.UTC()})
}
