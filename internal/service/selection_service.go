package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/elective-portal-api/internal/models"
	"github.com/noah-isme/elective-portal-api/internal/repository"
	appErrors "github.com/noah-isme/elective-portal-api/pkg/errors"
	"github.com/noah-isme/elective-portal-api/pkg/response"
)

// CatalogCachePattern matches every cached elective listing.
const CatalogCachePattern = "electives:*"

type selectionEvaluator interface {
	Evaluate(ctx context.Context, req AdmissionRequest) (Decision, error)
}

type selectionCommitWriter interface {
	Commit(ctx context.Context, d Decision, semester int) (*models.Selection, error)
}

type selectionStore interface {
	FindByID(ctx context.Context, id string) (*models.Selection, error)
	Transition(ctx context.Context, id string, to models.SelectionStatus) (*models.Selection, error)
	List(ctx context.Context, filter models.SelectionFilter) ([]models.SelectionDetail, int, error)
}

type catalogInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// SelectionService runs the selection flow and the selection lifecycle around it.
type SelectionService struct {
	checker   selectionEvaluator
	writer    selectionCommitWriter
	store     selectionStore
	electives admissionElectiveReader
	cache     catalogInvalidator
	audit     auditRecorder
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// SelectionServiceDeps groups the collaborators of SelectionService.
type SelectionServiceDeps struct {
	Checker   selectionEvaluator
	Writer    selectionCommitWriter
	Store     selectionStore
	Electives admissionElectiveReader
	Cache     catalogInvalidator
	Audit     auditRecorder
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
	Now       func() time.Time
}

// NewSelectionService constructs a SelectionService.
func NewSelectionService(deps SelectionServiceDeps) *SelectionService {
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	return &SelectionService{
		checker:   deps.Checker,
		writer:    deps.Writer,
		store:     deps.Store,
		electives: deps.Electives,
		cache:     deps.Cache,
		audit:     deps.Audit,
		metrics:   deps.Metrics,
		validator: deps.Validator,
		logger:    deps.Logger,
		now:       deps.Now,
	}
}

// Select admits and records a selection of electiveID for the student the
// caller is entitled to act for.
func (s *SelectionService) Select(ctx context.Context, actor *models.JWTClaims, electiveID string, req models.SelectElectiveRequest) (*models.Selection, error) {
	if actor == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid selection payload")
	}
	studentID, err := resolveStudent(actor, req.StudentID)
	if err != nil {
		return nil, err
	}

	admission := AdmissionRequest{StudentID: studentID, ElectiveID: electiveID, Semester: req.Semester}
	decision, err := s.checker.Evaluate(ctx, admission)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to evaluate selection")
	}
	s.record(admission, decision)
	if !decision.Admitted() {
		return nil, decision.Err()
	}

	selection, err := s.writer.Commit(ctx, decision, req.Semester)
	switch {
	case errors.Is(err, repository.ErrDuplicateSelection):
		return nil, s.duplicateAtCommit(ctx, admission, decision)
	case errors.Is(err, repository.ErrCapacityRace):
		s.metrics.RecordSelectionDecision(string(OutcomeCapacityExceeded))
		return nil, Decision{Outcome: OutcomeCapacityExceeded, Elective: decision.Elective}.Err()
	case err != nil:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save selection")
	}

	s.invalidateCatalog(ctx)
	s.recordAudit(ctx, actor, models.AuditActionSelect, selection.ID, nil, selection)
	return selection, nil
}

// duplicateAtCommit handles a commit the store rejected because the pair is
// already held. The caller always sees AlreadySelected; the current evaluation
// is only logged.
func (s *SelectionService) duplicateAtCommit(ctx context.Context, admission AdmissionRequest, admitted Decision) error {
	current := "unknown"
	if fresh, err := s.checker.Evaluate(ctx, admission); err != nil {
		s.logger.Warn("re-evaluation after duplicate commit failed", zap.Error(err))
	} else {
		current = string(fresh.Outcome)
	}
	decision := Decision{Outcome: OutcomeAlreadySelected, Student: admitted.Student, Elective: admitted.Elective}
	s.logger.Info("selection duplicate at commit",
		zap.String("student_id", admission.StudentID),
		zap.String("elective_id", admission.ElectiveID),
		zap.String("current_outcome", current),
	)
	s.record(admission, decision)
	return decision.Err()
}

// ListMine returns the caller's own selections.
func (s *SelectionService) ListMine(ctx context.Context, actor *models.JWTClaims, filter models.SelectionFilter) ([]models.SelectionDetail, *response.Pagination, error) {
	if actor == nil || actor.StudentID == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "no student profile for this account")
	}
	filter.StudentID = actor.StudentID
	return s.List(ctx, filter)
}

// List returns selections with pagination metadata.
func (s *SelectionService) List(ctx context.Context, filter models.SelectionFilter) ([]models.SelectionDetail, *response.Pagination, error) {
	items, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list selections")
	}
	page, size := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return items, &response.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Drop withdraws a selection and releases its seat. Students may drop only
// their own selections and only before the elective's deadline.
func (s *SelectionService) Drop(ctx context.Context, actor *models.JWTClaims, id string) (*models.Selection, error) {
	if actor == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	current, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "selection not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load selection")
	}
	if !actor.Role.IsAdmin() {
		if actor.StudentID == "" || current.StudentID != actor.StudentID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "selection belongs to another student")
		}
		elective, err := s.electives.FindByID(ctx, current.ElectiveID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load elective")
		}
		if elective != nil && elective.DeadlinePassed(s.now()) {
			return nil, Decision{Outcome: OutcomeDeadlinePassed, Deadline: elective.SelectionDeadline}.Err()
		}
	}
	return s.transition(ctx, actor, current, models.SelectionStatusDropped)
}

// UpdateStatus moves a selection through its administrative lifecycle.
func (s *SelectionService) UpdateStatus(ctx context.Context, actor *models.JWTClaims, id string, req models.UpdateSelectionStatusRequest) (*models.Selection, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	if actor == nil || !actor.Role.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators may change selection status")
	}
	current, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "selection not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load selection")
	}
	return s.transition(ctx, actor, current, req.Status)
}

// Confirm promotes a selected entry to confirmed.
func (s *SelectionService) Confirm(ctx context.Context, actor *models.JWTClaims, id string) (*models.Selection, error) {
	return s.UpdateStatus(ctx, actor, id, models.UpdateSelectionStatusRequest{Status: models.SelectionStatusConfirmed})
}

// Complete marks a confirmed selection as completed, satisfying prerequisites
// that name its elective.
func (s *SelectionService) Complete(ctx context.Context, actor *models.JWTClaims, id string) (*models.Selection, error) {
	return s.UpdateStatus(ctx, actor, id, models.UpdateSelectionStatusRequest{Status: models.SelectionStatusCompleted})
}

func (s *SelectionService) transition(ctx context.Context, actor *models.JWTClaims, current *models.Selection, to models.SelectionStatus) (*models.Selection, error) {
	if !models.CanTransition(current.Status, to) {
		return nil, appErrors.WithDetails(appErrors.ErrInvalidStateTransition, "",
			map[string]interface{}{"from": current.Status, "to": to})
	}
	updated, err := s.store.Transition(ctx, current.ID, to)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "selection not found")
		case errors.Is(err, repository.ErrInvalidTransition):
			return nil, appErrors.WithDetails(appErrors.ErrInvalidStateTransition, "",
				map[string]interface{}{"to": to})
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update selection")
	}
	if to == models.SelectionStatusDropped {
		s.invalidateCatalog(ctx)
	}
	s.logger.Info("selection status changed",
		zap.String("selection_id", current.ID),
		zap.String("from", string(current.Status)),
		zap.String("to", string(to)),
		zap.String("actor", actor.UserID))
	s.recordAudit(ctx, actor, models.AuditActionSelectionStatus, current.ID, current, updated)
	return updated, nil
}

// resolveStudent applies the identity policy: students act only for
// themselves, administrators must name the student.
func resolveStudent(actor *models.JWTClaims, requested string) (string, error) {
	if actor.Role.IsAdmin() {
		if requested == "" {
			return "", appErrors.Clone(appErrors.ErrValidation, "studentId is required when selecting on behalf of a student")
		}
		return requested, nil
	}
	if actor.StudentID == "" {
		return "", appErrors.Clone(appErrors.ErrForbidden, "no student profile for this account")
	}
	if requested != "" && requested != actor.StudentID {
		return "", appErrors.Clone(appErrors.ErrForbidden, "students may only select electives for themselves")
	}
	return actor.StudentID, nil
}

func (s *SelectionService) record(req AdmissionRequest, d Decision) {
	s.metrics.RecordSelectionDecision(string(d.Outcome))
	s.logger.Info("selection decision",
		zap.String("student_id", req.StudentID),
		zap.String("elective_id", req.ElectiveID),
		zap.Int("semester", req.Semester),
		zap.String("outcome", string(d.Outcome)))
}

func (s *SelectionService) invalidateCatalog(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, CatalogCachePattern); err != nil {
		s.logger.Warn("failed to invalidate elective catalog cache", zap.Error(err))
	}
}

func (s *SelectionService) recordAudit(ctx context.Context, actor *models.JWTClaims, action, resourceID string, before, after interface{}) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{Action: action, Resource: "selection", ResourceID: &resourceID}
	if actor != nil && actor.UserID != "" {
		entry.UserID = &actor.UserID
	}
	if before != nil {
		entry.OldValues, _ = json.Marshal(before)
	}
	if after != nil {
		entry.NewValues, _ = json.Marshal(after)
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record selection audit log", zap.Error(err))
	}
}
