package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/elective-portal-api/internal/models"
	"github.com/noah-isme/elective-portal-api/internal/repository"
)

type selectionCommitter interface {
	Commit(ctx context.Context, params repository.CommitParams) (*models.Selection, error)
}

// SelectionWriter persists admitted decisions. The insert and the seat
// increment happen in one transaction inside the repository.
type SelectionWriter struct {
	repo    selectionCommitter
	metrics *MetricsService
	logger  *zap.Logger
}

// NewSelectionWriter constructs a SelectionWriter.
func NewSelectionWriter(repo selectionCommitter, metrics *MetricsService, logger *zap.Logger) *SelectionWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SelectionWriter{repo: repo, metrics: metrics, logger: logger}
}

// Commit stores the selection described by an admitted decision. It returns
// repository.ErrDuplicateSelection or repository.ErrCapacityRace unchanged when
// the store rejects the write, so callers can re-evaluate.
func (w *SelectionWriter) Commit(ctx context.Context, d Decision, semester int) (*models.Selection, error) {
	if !d.Admitted() || d.Student == nil || d.Elective == nil {
		return nil, errors.New("commit requires an admitted decision")
	}
	start := time.Now()
	selection, err := w.repo.Commit(ctx, repository.CommitParams{
		StudentID:  d.Student.ID,
		ElectiveID: d.Elective.ID,
		Semester:   semester,
		Categories: d.Categories,
		Track:      d.Track,
	})
	w.metrics.ObserveSelectionCommit(time.Since(start))
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateSelection) || errors.Is(err, repository.ErrCapacityRace) {
			w.logger.Info("selection commit lost race",
				zap.String("student_id", d.Student.ID),
				zap.String("elective_id", d.Elective.ID),
				zap.Int("semester", semester),
				zap.Error(err))
		}
		return nil, err
	}
	return selection, nil
}
