package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/elective-portal-api/internal/models"
	appErrors "github.com/noah-isme/elective-portal-api/pkg/errors"
	"github.com/noah-isme/elective-portal-api/pkg/response"
)

type electiveRepository interface {
	FindByID(ctx context.Context, id string) (*models.Elective, error)
	List(ctx context.Context, filter models.ElectiveFilter) ([]models.Elective, int, error)
	ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error)
	ExistingIDs(ctx context.Context, ids []string) ([]string, error)
	Create(ctx context.Context, elective *models.Elective) error
	Update(ctx context.Context, elective *models.Elective) error
	Deactivate(ctx context.Context, id string) error
}

type catalogCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

type cachedCatalogPage struct {
	Items []models.Elective `json:"items"`
	Total int               `json:"total"`
}

// ElectiveService manages the elective catalog.
type ElectiveService struct {
	repo      electiveRepository
	cache     catalogCache
	audit     auditRecorder
	ttl       time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewElectiveService constructs an ElectiveService. cache may be nil.
func NewElectiveService(repo electiveRepository, cache catalogCache, audit auditRecorder, ttl time.Duration, validate *validator.Validate, logger *zap.Logger) *ElectiveService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ElectiveService{repo: repo, cache: cache, audit: audit, ttl: ttl, validator: validate, logger: logger}
}

// List returns a page of the catalog. The boolean reports a cache hit.
func (s *ElectiveService) List(ctx context.Context, filter models.ElectiveFilter) ([]models.Elective, *response.Pagination, bool, error) {
	page, size := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	key := catalogCacheKey(filter, page, size)

	if s.cache != nil {
		var cached cachedCatalogPage
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached.Items, &response.Pagination{Page: page, PageSize: size, TotalCount: cached.Total}, true, nil
		}
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list electives")
	}
	if items == nil {
		items = []models.Elective{}
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, cachedCatalogPage{Items: items, Total: total}, s.ttl); err != nil {
			s.logger.Warn("cache elective catalog", zap.Error(err))
		}
	}
	return items, &response.Pagination{Page: page, PageSize: size, TotalCount: total}, false, nil
}

// Get returns one elective straight from the store.
func (s *ElectiveService) Get(ctx context.Context, id string) (*models.Elective, error) {
	elective, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrElectiveNotFound, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load elective")
	}
	return elective, nil
}

// Create adds an elective to the catalog.
func (s *ElectiveService) Create(ctx context.Context, actorID string, req models.CreateElectiveRequest) (*models.Elective, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid elective payload")
	}
	code := normalizeCode(req.Code)
	if err := s.ensureCodeFree(ctx, code, ""); err != nil {
		return nil, err
	}
	if err := s.ensurePrerequisites(ctx, "", req.Prerequisites); err != nil {
		return nil, err
	}

	elective := &models.Elective{
		Name:              strings.TrimSpace(req.Name),
		Code:              code,
		Description:       req.Description,
		Department:        strings.TrimSpace(req.Department),
		Semester:          req.Semester,
		Categories:        pq.StringArray(dedupe(req.Categories)),
		Track:             strings.TrimSpace(req.Track),
		Credits:           req.Credits,
		IsActive:          true,
		SelectionDeadline: req.SelectionDeadline,
		MaxEnrollment:     req.MaxEnrollment,
		Prerequisites:     pq.StringArray(dedupe(req.Prerequisites)),
	}
	if err := s.repo.Create(ctx, elective); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create elective")
	}
	s.afterWrite(ctx, actorID, models.AuditActionCreate, elective.ID, nil, elective)
	return elective, nil
}

// Update patches an elective. enrolled_count is not editable here.
func (s *ElectiveService) Update(ctx context.Context, actorID, id string, req models.UpdateElectiveRequest) (*models.Elective, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid elective payload")
	}
	elective, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *elective

	if req.Name != nil {
		elective.Name = strings.TrimSpace(*req.Name)
	}
	if req.Code != nil {
		code := normalizeCode(req.Code)
		if err := s.ensureCodeFree(ctx, code, id); err != nil {
			return nil, err
		}
		elective.Code = code
	}
	if req.Description != nil {
		elective.Description = *req.Description
	}
	if len(req.Categories) > 0 {
		elective.Categories = pq.StringArray(dedupe(req.Categories))
	}
	if req.Track != nil {
		elective.Track = strings.TrimSpace(*req.Track)
	}
	if req.Credits != nil {
		elective.Credits = *req.Credits
	}
	if req.IsActive != nil {
		elective.IsActive = *req.IsActive
	}
	if req.ClearDeadline {
		elective.SelectionDeadline = nil
	} else if req.SelectionDeadline != nil {
		elective.SelectionDeadline = req.SelectionDeadline
	}
	if req.ClearMaxEnroll {
		elective.MaxEnrollment = nil
	} else if req.MaxEnrollment != nil {
		elective.MaxEnrollment = req.MaxEnrollment
	}
	if req.Prerequisites != nil {
		if err := s.ensurePrerequisites(ctx, id, req.Prerequisites); err != nil {
			return nil, err
		}
		elective.Prerequisites = pq.StringArray(dedupe(req.Prerequisites))
	}

	if err := s.repo.Update(ctx, elective); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update elective")
	}
	s.afterWrite(ctx, actorID, models.AuditActionUpdate, id, &before, elective)
	return elective, nil
}

// Deactivate hides an elective from selection. Electives are never hard deleted.
func (s *ElectiveService) Deactivate(ctx context.Context, actorID, id string) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrElectiveNotFound, "")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate elective")
	}
	s.afterWrite(ctx, actorID, models.AuditActionDelete, id, nil, map[string]bool{"is_active": false})
	return nil
}

func (s *ElectiveService) ensureCodeFree(ctx context.Context, code *string, excludeID string) error {
	if code == nil {
		return nil
	}
	exists, err := s.repo.ExistsByCode(ctx, *code, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate elective code")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "elective code already in use")
	}
	return nil
}

func (s *ElectiveService) ensurePrerequisites(ctx context.Context, selfID string, ids []string) error {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil
	}
	for _, id := range ids {
		if id == selfID {
			return appErrors.Clone(appErrors.ErrValidation, "an elective cannot be its own prerequisite")
		}
	}
	found, err := s.repo.ExistingIDs(ctx, ids)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate prerequisites")
	}
	if missing := missingPrerequisites(ids, found); len(missing) > 0 {
		return appErrors.WithDetails(appErrors.ErrValidation, "unknown prerequisite electives", map[string]interface{}{"missing": missing})
	}
	return nil
}

func (s *ElectiveService) afterWrite(ctx context.Context, actorID, action, id string, before, after interface{}) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, CatalogCachePattern); err != nil {
			s.logger.Warn("failed to invalidate elective catalog cache", zap.Error(err))
		}
	}
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{Action: action, Resource: "elective", ResourceID: &id}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if before != nil {
		entry.OldValues, _ = json.Marshal(before)
	}
	entry.NewValues, _ = json.Marshal(after)
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record elective audit log", zap.Error(err))
	}
}

func catalogCacheKey(filter models.ElectiveFilter, page, size int) string {
	active := "any"
	if filter.Active != nil {
		active = strconv.FormatBool(*filter.Active)
	}
	parts := []string{
		"electives", "list",
		filter.Department, strconv.Itoa(filter.Semester), filter.Category, filter.Track, active,
		strings.ToLower(filter.Search), filter.SortBy, filter.SortOrder,
		strconv.Itoa(page), strconv.Itoa(size),
	}
	for i := range parts {
		parts[i] = strings.ReplaceAll(parts[i], ":", "|")
	}
	return strings.Join(parts, ":")
}

func normalizeCode(code *string) *string {
	if code == nil {
		return nil
	}
	trimmed := strings.ToUpper(strings.TrimSpace(*code))
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
