package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/elective-portal-api/internal/models"
	appErrors "github.com/noah-isme/elective-portal-api/pkg/errors"
	"github.com/noah-isme/elective-portal-api/pkg/response"
)

type trackService interface {
	List(ctx context.Context, department string) ([]models.Track, error)
	Create(ctx context.Context, req models.CreateTrackRequest) (*models.Track, error)
}

type categoryLimitService interface {
	List(ctx context.Context, department string, semester int) ([]models.CategoryLimit, error)
	Upsert(ctx context.Context, req models.UpsertCategoryLimitRequest) (*models.CategoryLimit, error)
}

// TrackHandler exposes tracks and the per-category selection limits.
type TrackHandler struct {
	tracks trackService
	limits categoryLimitService
}

// NewTrackHandler constructs TrackHandler.
func NewTrackHandler(tracks trackService, limits categoryLimitService) *TrackHandler {
	return &TrackHandler{tracks: tracks, limits: limits}
}

// ListTracks godoc
// @Summary List tracks
// @Tags Tracks
// @Produce json
// @Param department query string false "Department"
// @Success 200 {object} response.Envelope
// @Router /tracks [get]
func (h *TrackHandler) ListTracks(c *gin.Context) {
	tracks, err := h.tracks.List(c.Request.Context(), c.Query("department"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tracks, nil)
}

// CreateTrack godoc
// @Summary Create track
// @Tags Tracks
// @Accept json
// @Produce json
// @Param payload body models.CreateTrackRequest true "Track payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /tracks [post]
func (h *TrackHandler) CreateTrack(c *gin.Context) {
	var req models.CreateTrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	track, err := h.tracks.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, track)
}

// ListLimits godoc
// @Summary List category limits
// @Tags Tracks
// @Produce json
// @Param department query string false "Department"
// @Param semester query int false "Semester"
// @Success 200 {object} response.Envelope
// @Router /category-limits [get]
func (h *TrackHandler) ListLimits(c *gin.Context) {
	semester := 0
	if raw := c.Query("semester"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "semester must be a number"))
			return
		}
		semester = v
	}
	limits, err := h.limits.List(c.Request.Context(), c.Query("department"), semester)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, limits, nil)
}

// UpsertLimit godoc
// @Summary Set a category limit
// @Tags Tracks
// @Accept json
// @Produce json
// @Param payload body models.UpsertCategoryLimitRequest true "Limit payload"
// @Success 200 {object} response.Envelope
// @Router /category-limits [put]
func (h *TrackHandler) UpsertLimit(c *gin.Context) {
	var req models.UpsertCategoryLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	limit, err := h.limits.Upsert(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, limit, nil)
}
