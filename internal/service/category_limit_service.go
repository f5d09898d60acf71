package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/elective-portal-api/internal/models"
	appErrors "github.com/noah-isme/elective-portal-api/pkg/errors"
)

type categoryLimitRepository interface {
	List(ctx context.Context, department string, semester int) ([]models.CategoryLimit, error)
	Upsert(ctx context.Context, limit *models.CategoryLimit) error
}

// CategoryLimitService reads and writes per-category selection caps.
type CategoryLimitService struct {
	repo      categoryLimitRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCategoryLimitService constructs a CategoryLimitService.
func NewCategoryLimitService(repo categoryLimitRepository, validate *validator.Validate, logger *zap.Logger) *CategoryLimitService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CategoryLimitService{repo: repo, validator: validate, logger: logger}
}

// List returns the configured limits for a department and optional semester.
func (s *CategoryLimitService) List(ctx context.Context, department string, semester int) ([]models.CategoryLimit, error) {
	department = strings.TrimSpace(department)
	if department == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "department is required")
	}
	limits, err := s.repo.List(ctx, department, semester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list category limits")
	}
	if limits == nil {
		limits = []models.CategoryLimit{}
	}
	return limits, nil
}

// Limit returns the cap for one category, or the default when unconfigured.
func (s *CategoryLimitService) Limit(ctx context.Context, department string, semester int, category string) (int, error) {
	limits, err := s.List(ctx, department, semester)
	if err != nil {
		return 0, err
	}
	for _, l := range limits {
		if l.Category == category {
			return l.MaxCount, nil
		}
	}
	return models.DefaultCategoryLimit, nil
}

// Upsert stores a cap. Lowering a cap never touches existing selections.
func (s *CategoryLimitService) Upsert(ctx context.Context, req models.UpsertCategoryLimitRequest) (*models.CategoryLimit, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid category limit payload")
	}
	limit := &models.CategoryLimit{
		Department: strings.TrimSpace(req.Department),
		Semester:   req.Semester,
		Category:   strings.TrimSpace(req.Category),
		MaxCount:   req.MaxCount,
	}
	if err := s.repo.Upsert(ctx, limit); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save category limit")
	}
	s.logger.Info("category limit saved",
		zap.String("department", limit.Department),
		zap.Int("semester", limit.Semester),
		zap.String("category", limit.Category),
		zap.Int("max_count", limit.MaxCount))
	return limit, nil
}
