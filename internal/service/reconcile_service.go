package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/elective-portal-api/internal/models"
	appErrors "github.com/noah-isme/elective-portal-api/pkg/errors"
)

type counterReconciler interface {
	Reconcile(ctx context.Context) ([]models.CounterDrift, int, error)
}

// ReconcileService repairs stored enrolled counts that drifted from the
// selections table.
type ReconcileService struct {
	repo   counterReconciler
	cache  catalogInvalidator
	audit  auditRecorder
	logger *zap.Logger
}

// NewReconcileService constructs a ReconcileService.
func NewReconcileService(repo counterReconciler, cache catalogInvalidator, audit auditRecorder, logger *zap.Logger) *ReconcileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconcileService{repo: repo, cache: cache, audit: audit, logger: logger}
}

// Run recomputes every elective's enrolled count. actor may be nil for
// scheduled runs.
func (s *ReconcileService) Run(ctx context.Context, actor *models.JWTClaims) (*models.ReconcileReport, error) {
	drifted, checked, err := s.repo.Reconcile(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reconcile enrolled counts")
	}
	report := &models.ReconcileReport{Checked: checked, Drifted: drifted}
	if report.Drifted == nil {
		report.Drifted = []models.CounterDrift{}
	}

	for _, d := range drifted {
		s.logger.Warn("enrolled count drift corrected",
			zap.String("elective_id", d.ElectiveID),
			zap.Int("before", d.Before),
			zap.Int("after", d.After))
	}
	s.logger.Info("reconcile finished", zap.Int("checked", checked), zap.Int("drifted", len(drifted)))

	if len(drifted) == 0 {
		return report, nil
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, CatalogCachePattern); err != nil {
			s.logger.Warn("failed to invalidate elective catalog cache", zap.Error(err))
		}
	}
	if s.audit != nil {
		entry := &models.AuditLog{Action: models.AuditActionReconcile, Resource: "elective"}
		if actor != nil && actor.UserID != "" {
			entry.UserID = &actor.UserID
		}
		entry.NewValues, _ = json.Marshal(report)
		if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
			s.logger.Warn("failed to record reconcile audit log", zap.Error(err))
		}
	}
	return report, nil
}

// RunEvery reconciles on a fixed interval until ctx is cancelled.
func (s *ReconcileService) RunEvery(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Run(ctx, nil); err != nil {
				s.logger.Error("scheduled reconcile failed", zap.Error(err))
			}
		}
	}
}
