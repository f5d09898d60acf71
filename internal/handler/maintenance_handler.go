package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/elective-portal-api/internal/models"
	"github.com/noah-isme/elective-portal-api/pkg/response"
)

type counterReconciler interface {
	Run(ctx context.Context, actor *models.JWTClaims) (*models.ReconcileReport, error)
}

type metricsSnapshotter interface {
	Snapshot() models.SystemMetrics
}

// MaintenanceHandler exposes admin maintenance operations.
type MaintenanceHandler struct {
	reconciler counterReconciler
	metrics    metricsSnapshotter
}

// NewMaintenanceHandler constructs MaintenanceHandler.
func NewMaintenanceHandler(reconciler counterReconciler, metrics metricsSnapshotter) *MaintenanceHandler {
	return &MaintenanceHandler{reconciler: reconciler, metrics: metrics}
}

// Reconcile godoc
// @Summary Reconcile enrolment counters
// @Description Recomputes every elective's enrolled count from its active selections
// @Tags Maintenance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /maintenance/reconcile [post]
func (h *MaintenanceHandler) Reconcile(c *gin.Context) {
	report, err := h.reconciler.Run(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Stats godoc
// @Summary Process statistics
// @Tags Maintenance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /maintenance/stats [get]
func (h *MaintenanceHandler) Stats(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.metrics.Snapshot(), nil)
}
