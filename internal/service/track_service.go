package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/elective-portal-api/internal/models"
	appErrors "github.com/noah-isme/elective-portal-api/pkg/errors"
)

type trackRepository interface {
	List(ctx context.Context, department string) ([]models.Track, error)
	ExistsByName(ctx context.Context, department, name string) (bool, error)
	Create(ctx context.Context, track *models.Track) error
}

// TrackService manages department tracks.
type TrackService struct {
	repo      trackRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTrackService constructs a TrackService.
func NewTrackService(repo trackRepository, validate *validator.Validate, logger *zap.Logger) *TrackService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrackService{repo: repo, validator: validate, logger: logger}
}

// List returns tracks for a department, or every track when department is empty.
func (s *TrackService) List(ctx context.Context, department string) ([]models.Track, error) {
	tracks, err := s.repo.List(ctx, strings.TrimSpace(department))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tracks")
	}
	if tracks == nil {
		tracks = []models.Track{}
	}
	return tracks, nil
}

// Create adds a track. Names are unique per department, case-insensitively.
func (s *TrackService) Create(ctx context.Context, req models.CreateTrackRequest) (*models.Track, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid track payload")
	}
	track := &models.Track{
		Name:        strings.TrimSpace(req.Name),
		Department:  strings.TrimSpace(req.Department),
		Description: req.Description,
	}
	exists, err := s.repo.ExistsByName(ctx, track.Department, track.Name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate track")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "track already exists for department")
	}
	if err := s.repo.Create(ctx, track); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create track")
	}
	s.logger.Info("track created", zap.String("track_id", track.ID), zap.String("department", track.Department))
	return track, nil
}
