package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/elective-portal-api/internal/models"
	appErrors "github.com/noah-isme/elective-portal-api/pkg/errors"
	"github.com/noah-isme/elective-portal-api/pkg/response"
)

type selectionService interface {
	ListMine(ctx context.Context, actor *models.JWTClaims, filter models.SelectionFilter) ([]models.SelectionDetail, *response.Pagination, error)
	List(ctx context.Context, filter models.SelectionFilter) ([]models.SelectionDetail, *response.Pagination, error)
	Drop(ctx context.Context, actor *models.JWTClaims, id string) (*models.Selection, error)
	UpdateStatus(ctx context.Context, actor *models.JWTClaims, id string, req models.UpdateSelectionStatusRequest) (*models.Selection, error)
}

// SelectionHandler exposes selection listing and lifecycle endpoints.
type SelectionHandler struct {
	service selectionService
}

// NewSelectionHandler constructs SelectionHandler.
func NewSelectionHandler(svc selectionService) *SelectionHandler {
	return &SelectionHandler{service: svc}
}

// Mine godoc
// @Summary List my selections
// @Tags Selections
// @Produce json
// @Param semester query int false "Semester"
// @Param status query string false "Status"
// @Success 200 {object} response.Envelope
// @Router /selections/me [get]
func (h *SelectionHandler) Mine(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var filter models.SelectionFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid filter"))
		return
	}
	items, pagination, err := h.service.ListMine(c.Request.Context(), claims, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// List godoc
// @Summary List selections
// @Tags Selections
// @Produce json
// @Param student_id query string false "Student"
// @Param elective_id query string false "Elective"
// @Param department query string false "Department"
// @Param semester query int false "Semester"
// @Param status query string false "Status"
// @Success 200 {object} response.Envelope
// @Router /selections [get]
func (h *SelectionHandler) List(c *gin.Context) {
	var filter models.SelectionFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid filter"))
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Drop godoc
// @Summary Drop a selection
// @Tags Selections
// @Produce json
// @Param id path string true "Selection ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /selections/{id} [delete]
func (h *SelectionHandler) Drop(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	selection, err := h.service.Drop(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, selection, nil)
}

// UpdateStatus godoc
// @Summary Change selection status
// @Tags Selections
// @Accept json
// @Produce json
// @Param id path string true "Selection ID"
// @Param payload body models.UpdateSelectionStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /selections/{id}/status [patch]
func (h *SelectionHandler) UpdateStatus(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req models.UpdateSelectionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	selection, err := h.service.UpdateStatus(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, selection, nil)
}
