package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/elective-portal-api/internal/models"
)

const electiveColumns = `id, name, code, description, department, semester, categories, track, credits, is_active,
        selection_deadline, max_enrollment, enrolled_count, prerequisites, created_at, updated_at`

// ElectiveRepository handles persistence of the elective catalog.
type ElectiveRepository struct {
	db *sqlx.DB
}

// NewElectiveRepository constructs the repository.
func NewElectiveRepository(db *sqlx.DB) *ElectiveRepository {
	return &ElectiveRepository{db: db}
}

// FindByID returns an elective by ID.
func (r *ElectiveRepository) FindByID(ctx context.Context, id string) (*models.Elective, error) {
	query := `SELECT ` + electiveColumns + ` FROM electives WHERE id = $1`
	var elective models.Elective
	if err := r.db.GetContext(ctx, &elective, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find elective: %w", err)
	}
	return &elective, nil
}

// List returns electives filtered by the provided criteria.
func (r *ElectiveRepository) List(ctx context.Context, filter models.ElectiveFilter) ([]models.Elective, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("department = $%d", len(args)+1))
		args = append(args, filter.Department)
	}
	if filter.Semester > 0 {
		conditions = append(conditions, fmt.Sprintf("semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(categories)", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.Track != "" {
		conditions = append(conditions, fmt.Sprintf("track = $%d", len(args)+1))
		args = append(args, filter.Track)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(COALESCE(code, '')) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"name":       "name",
		"semester":   "semester",
		"created_at": "created_at",
	}
	orderBy, ok := allowedSorts[filter.SortBy]
	if !ok {
		orderBy = "name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	_, size, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT %s FROM electives%s ORDER BY %s %s LIMIT %d OFFSET %d`, electiveColumns, clause, orderBy, order, size, offset)
	var electives []models.Elective
	if err := r.db.SelectContext(ctx, &electives, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list electives: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM electives"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count electives: %w", err)
	}
	return electives, total, nil
}

// ExistsByCode checks whether the code is taken, optionally excluding an ID.
func (r *ElectiveRepository) ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM electives WHERE code = $1"
	args := []interface{}{code}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check elective code: %w", err)
	}
	return true, nil
}

// ExistingIDs returns the subset of ids that refer to stored electives.
func (r *ElectiveRepository) ExistingIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []string
	if err := r.db.SelectContext(ctx, &found, `SELECT id FROM electives WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("check elective ids: %w", err)
	}
	return found, nil
}

// Create inserts a new elective.
func (r *ElectiveRepository) Create(ctx context.Context, elective *models.Elective) error {
	if elective.ID == "" {
		elective.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	elective.CreatedAt = now
	elective.UpdatedAt = now
	if elective.Prerequisites == nil {
		elective.Prerequisites = pq.StringArray{}
	}
	const query = `INSERT INTO electives (id, name, code, description, department, semester, categories, track, credits, is_active,
        selection_deadline, max_enrollment, enrolled_count, prerequisites, created_at, updated_at)
        VALUES (:id, :name, :code, :description, :department, :semester, :categories, :track, :credits, :is_active,
        :selection_deadline, :max_enrollment, :enrolled_count, :prerequisites, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, elective); err != nil {
		return fmt.Errorf("create elective: %w", err)
	}
	return nil
}

// Update writes mutable catalog fields. enrolled_count is owned by the
// selection writer and is never written here.
func (r *ElectiveRepository) Update(ctx context.Context, elective *models.Elective) error {
	elective.UpdatedAt = time.Now().UTC()
	const query = `UPDATE electives SET name = :name, code = :code, description = :description, categories = :categories,
        track = :track, credits = :credits, is_active = :is_active, selection_deadline = :selection_deadline,
        max_enrollment = :max_enrollment, prerequisites = :prerequisites, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, elective); err != nil {
		return fmt.Errorf("update elective: %w", err)
	}
	return nil
}

// Deactivate marks an elective inactive. Electives are never hard deleted.
func (r *ElectiveRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE electives SET is_active = FALSE, updated_at = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("deactivate elective: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
