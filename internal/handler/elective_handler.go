package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/elective-portal-api/internal/middleware"
	"github.com/noah-isme/elective-portal-api/internal/models"
	appErrors "github.com/noah-isme/elective-portal-api/pkg/errors"
	"github.com/noah-isme/elective-portal-api/pkg/response"
)

type electiveCatalog interface {
	List(ctx context.Context, filter models.ElectiveFilter) ([]models.Elective, *response.Pagination, bool, error)
	Get(ctx context.Context, id string) (*models.Elective, error)
	Create(ctx context.Context, actorID string, req models.CreateElectiveRequest) (*models.Elective, error)
	Update(ctx context.Context, actorID, id string, req models.UpdateElectiveRequest) (*models.Elective, error)
	Deactivate(ctx context.Context, actorID, id string) error
}

type electiveSelector interface {
	Select(ctx context.Context, actor *models.JWTClaims, electiveID string, req models.SelectElectiveRequest) (*models.Selection, error)
}

// ElectiveHandler exposes the elective catalog and the select endpoint.
type ElectiveHandler struct {
	electives  electiveCatalog
	selections electiveSelector
}

// NewElectiveHandler constructs ElectiveHandler.
func NewElectiveHandler(electives electiveCatalog, selections electiveSelector) *ElectiveHandler {
	return &ElectiveHandler{electives: electives, selections: selections}
}

// List godoc
// @Summary List electives
// @Tags Electives
// @Produce json
// @Param department query string false "Department"
// @Param semester query int false "Semester"
// @Param category query string false "Category"
// @Param track query string false "Track"
// @Param active query bool false "Active only"
// @Param search query string false "Search by name or code"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /electives [get]
func (h *ElectiveHandler) List(c *gin.Context) {
	var filter models.ElectiveFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid filter"))
		return
	}
	filter.Search = strings.TrimSpace(filter.Search)

	items, pagination, cacheHit, err := h.electives.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, items, pagination, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get elective detail
// @Tags Electives
// @Produce json
// @Param id path string true "Elective ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /electives/{id} [get]
func (h *ElectiveHandler) Get(c *gin.Context) {
	elective, err := h.electives.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, elective, nil)
}

// Create godoc
// @Summary Create elective
// @Tags Electives
// @Accept json
// @Produce json
// @Param payload body models.CreateElectiveRequest true "Elective payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /electives [post]
func (h *ElectiveHandler) Create(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req models.CreateElectiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	elective, err := h.electives.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, elective)
}

// Update godoc
// @Summary Update elective
// @Tags Electives
// @Accept json
// @Produce json
// @Param id path string true "Elective ID"
// @Param payload body models.UpdateElectiveRequest true "Elective payload"
// @Success 200 {object} response.Envelope
// @Router /electives/{id} [put]
func (h *ElectiveHandler) Update(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req models.UpdateElectiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	elective, err := h.electives.Update(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, elective, nil)
}

// Deactivate godoc
// @Summary Deactivate elective
// @Tags Electives
// @Produce json
// @Param id path string true "Elective ID"
// @Success 204
// @Router /electives/{id} [delete]
func (h *ElectiveHandler) Deactivate(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	if err := h.electives.Deactivate(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Select godoc
// @Summary Select an elective
// @Description Runs admission checks and records the selection. Students act for themselves; admins name the student.
// @Tags Selections
// @Accept json
// @Produce json
// @Param id path string true "Elective ID"
// @Param payload body models.SelectElectiveRequest true "Selection payload"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /electives/{id}/select [post]
func (h *ElectiveHandler) Select(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req models.SelectElectiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid selection payload"))
		return
	}
	selection, err := h.selections.Select(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Named(c, http.StatusCreated, "selection", selection)
}
