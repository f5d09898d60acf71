package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/elective-portal-api/internal/models"
)

// CategoryLimitRepository stores per-category selection caps.
type CategoryLimitRepository struct {
	db *sqlx.DB
}

// NewCategoryLimitRepository constructs the repository.
func NewCategoryLimitRepository(db *sqlx.DB) *CategoryLimitRepository {
	return &CategoryLimitRepository{db: db}
}

// List returns configured limits for a department, optionally narrowed to a semester.
func (r *CategoryLimitRepository) List(ctx context.Context, department string, semester int) ([]models.CategoryLimit, error) {
	query := `SELECT id, department, semester, category, max_count, updated_at FROM category_limits WHERE department = $1`
	args := []interface{}{department}
	if semester > 0 {
		query += ` AND semester = $2`
		args = append(args, semester)
	}
	query += ` ORDER BY semester, category`
	var limits []models.CategoryLimit
	if err := r.db.SelectContext(ctx, &limits, query, args...); err != nil {
		return nil, fmt.Errorf("list category limits: %w", err)
	}
	return limits, nil
}

// Upsert stores the cap for (department, semester, category).
func (r *CategoryLimitRepository) Upsert(ctx context.Context, limit *models.CategoryLimit) error {
	if limit.ID == "" {
		limit.ID = uuid.NewString()
	}
	limit.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO category_limits (id, department, semester, category, max_count, updated_at)
VALUES (:id, :department, :semester, :category, :max_count, :updated_at)
ON CONFLICT (department, semester, category)
DO UPDATE SET max_count = EXCLUDED.max_count, updated_at = EXCLUDED.updated_at
RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, limit)
	if err != nil {
		return fmt.Errorf("upsert category limit: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&limit.ID); err != nil {
			return fmt.Errorf("upsert category limit: %w", err)
		}
	}
	return rows.Err()
}
