package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/elective-portal-api/internal/models"
)

var (
	// ErrDuplicateSelection means a concurrent commit already holds the
	// (student, elective, semester) slot.
	ErrDuplicateSelection = errors.New("selection already exists")
	// ErrCapacityRace means the last seat was taken between evaluation and commit.
	ErrCapacityRace = errors.New("elective filled before commit")
	// ErrInvalidTransition means the stored status does not allow the requested change.
	ErrInvalidTransition = errors.New("invalid selection status transition")
)

const selectionColumns = `id, student_id, elective_id, semester, categories, track, status, selected_at, updated_at`

// SelectionRepository persists selections and keeps electives.enrolled_count in
// step with them.
type SelectionRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSelectionRepository constructs the repository.
func NewSelectionRepository(db *sqlx.DB) *SelectionRepository {
	return &SelectionRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// CommitParams carries an admitted selection to the writer.
type CommitParams struct {
	StudentID  string
	ElectiveID string
	Semester   int
	Categories []string
	Track      string
}

// ExistsActive reports whether a non-dropped selection exists for the triple.
func (r *SelectionRepository) ExistsActive(ctx context.Context, studentID, electiveID string, semester int) (bool, error) {
	const query = `SELECT 1 FROM selections WHERE student_id = $1 AND elective_id = $2 AND semester = $3 AND status <> 'dropped' LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, electiveID, semester); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check active selection: %w", err)
	}
	return true, nil
}

// ListActiveByStudentSemester returns the non-dropped selections of a student in a semester.
func (r *SelectionRepository) ListActiveByStudentSemester(ctx context.Context, studentID string, semester int) ([]models.Selection, error) {
	query := `SELECT ` + selectionColumns + ` FROM selections WHERE student_id = $1 AND semester = $2 AND status <> 'dropped' ORDER BY selected_at`
	var selections []models.Selection
	if err := r.db.SelectContext(ctx, &selections, query, studentID, semester); err != nil {
		return nil, fmt.Errorf("list active selections: %w", err)
	}
	return selections, nil
}

// ListCompletedElectiveIDs returns the electives a student has completed.
func (r *SelectionRepository) ListCompletedElectiveIDs(ctx context.Context, studentID string) ([]string, error) {
	const query = `SELECT DISTINCT elective_id FROM selections WHERE student_id = $1 AND status = 'completed'`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, studentID); err != nil {
		return nil, fmt.Errorf("list completed electives: %w", err)
	}
	return ids, nil
}

// Commit inserts the selection and takes a seat in one transaction. The insert
// runs first so that concurrent commits for the same triple serialise on the
// partial unique index and the loser sees ErrDuplicateSelection.
func (r *SelectionRepository) Commit(ctx context.Context, params CommitParams) (selection *models.Selection, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin selection transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := r.now()
	selection = &models.Selection{
		ID:         uuid.NewString(),
		StudentID:  params.StudentID,
		ElectiveID: params.ElectiveID,
		Semester:   params.Semester,
		Categories: pq.StringArray(params.Categories),
		Track:      params.Track,
		Status:     models.SelectionStatusSelected,
		SelectedAt: now,
		UpdatedAt:  now,
	}
	const insertQuery = `INSERT INTO selections (id, student_id, elective_id, semester, categories, track, status, selected_at, updated_at)
        VALUES (:id, :student_id, :elective_id, :semester, :categories, :track, :status, :selected_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, selection); err != nil {
		if IsUniqueViolation(err) {
			err = ErrDuplicateSelection
			return nil, err
		}
		return nil, fmt.Errorf("insert selection: %w", err)
	}

	const seatQuery = `UPDATE electives SET enrolled_count = enrolled_count + 1, updated_at = $2
        WHERE id = $1 AND (max_enrollment IS NULL OR enrolled_count < max_enrollment)`
	res, err := tx.ExecContext(ctx, seatQuery, params.ElectiveID, now)
	if err != nil {
		return nil, fmt.Errorf("increment enrolled count: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("increment enrolled count: %w", err)
	}
	if affected == 0 {
		err = ErrCapacityRace
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		if IsUniqueViolation(err) {
			err = ErrDuplicateSelection
			return nil, err
		}
		return nil, fmt.Errorf("commit selection transaction: %w", err)
	}
	return selection, nil
}

// FindByID returns a selection by ID.
func (r *SelectionRepository) FindByID(ctx context.Context, id string) (*models.Selection, error) {
	query := `SELECT ` + selectionColumns + ` FROM selections WHERE id = $1`
	var selection models.Selection
	if err := r.db.GetContext(ctx, &selection, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find selection: %w", err)
	}
	return &selection, nil
}

// Transition moves a selection to a new status under a row lock. Leaving a
// counted status for dropped releases the seat in the same transaction.
func (r *SelectionRepository) Transition(ctx context.Context, id string, to models.SelectionStatus) (selection *models.Selection, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transition transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current models.Selection
	lockQuery := `SELECT ` + selectionColumns + ` FROM selections WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &current, lockQuery, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock selection: %w", err)
	}
	if !models.CanTransition(current.Status, to) {
		err = fmt.Errorf("%s -> %s: %w", current.Status, to, ErrInvalidTransition)
		return nil, err
	}

	now := r.now()
	const updateQuery = `UPDATE selections SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, updateQuery, id, to, now); err != nil {
		return nil, fmt.Errorf("update selection status: %w", err)
	}
	if current.Status.Counted() && !to.Counted() {
		const releaseQuery = `UPDATE electives SET enrolled_count = GREATEST(enrolled_count - 1, 0), updated_at = $2 WHERE id = $1`
		if _, err = tx.ExecContext(ctx, releaseQuery, current.ElectiveID, now); err != nil {
			return nil, fmt.Errorf("decrement enrolled count: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transition transaction: %w", err)
	}
	current.Status = to
	current.UpdatedAt = now
	return &current, nil
}

func selectionConditions(filter models.SelectionFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("sel.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.ElectiveID != "" {
		conditions = append(conditions, fmt.Sprintf("sel.elective_id = $%d", len(args)+1))
		args = append(args, filter.ElectiveID)
	}
	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("s.department = $%d", len(args)+1))
		args = append(args, filter.Department)
	}
	if filter.Semester > 0 {
		conditions = append(conditions, fmt.Sprintf("sel.semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("sel.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

const selectionDetailBase = `FROM selections sel
JOIN electives e ON e.id = sel.elective_id
JOIN students s ON s.id = sel.student_id
JOIN users u ON u.id = s.user_id`

const selectionDetailColumns = `sel.id, sel.student_id, sel.elective_id, sel.semester, sel.categories, sel.track, sel.status, sel.selected_at, sel.updated_at,
        e.name AS elective_name, e.code AS elective_code, s.roll_number, u.full_name AS student_name, s.department`

// List returns a page of selections with elective and student context.
func (r *SelectionRepository) List(ctx context.Context, filter models.SelectionFilter) ([]models.SelectionDetail, int, error) {
	clause, args := selectionConditions(filter)
	_, size, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT %s %s%s ORDER BY sel.selected_at DESC LIMIT %d OFFSET %d`, selectionDetailColumns, selectionDetailBase, clause, size, offset)
	var items []models.SelectionDetail
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list selections: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+selectionDetailBase+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count selections: %w", err)
	}
	return items, total, nil
}

// ListRoster returns every matching selection ordered for a printable roster.
func (r *SelectionRepository) ListRoster(ctx context.Context, filter models.SelectionFilter) ([]models.SelectionDetail, error) {
	clause, args := selectionConditions(filter)
	query := fmt.Sprintf(`SELECT %s %s%s ORDER BY e.name, s.roll_number`, selectionDetailColumns, selectionDetailBase, clause)
	var items []models.SelectionDetail
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	return items, nil
}

// Reconcile recomputes enrolled_count for every elective from non-dropped
// selections and returns the electives whose stored value had drifted.
func (r *SelectionRepository) Reconcile(ctx context.Context) (drifted []models.CounterDrift, checked int, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("begin reconcile transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = tx.GetContext(ctx, &checked, `SELECT COUNT(*) FROM electives`); err != nil {
		return nil, 0, fmt.Errorf("count electives: %w", err)
	}

	const driftQuery = `SELECT e.id AS elective_id, e.name, e.enrolled_count AS before, COALESCE(c.n, 0) AS after
        FROM electives e
        LEFT JOIN (SELECT elective_id, COUNT(*) AS n FROM selections WHERE status <> 'dropped' GROUP BY elective_id) c
        ON c.elective_id = e.id
        WHERE e.enrolled_count <> COALESCE(c.n, 0)
        ORDER BY e.name
        FOR UPDATE OF e`
	if err = tx.SelectContext(ctx, &drifted, driftQuery); err != nil {
		return nil, 0, fmt.Errorf("find counter drift: %w", err)
	}

	const fixQuery = `UPDATE electives SET enrolled_count = $2, updated_at = $3 WHERE id = $1`
	now := r.now()
	for _, d := range drifted {
		if _, err = tx.ExecContext(ctx, fixQuery, d.ElectiveID, d.After, now); err != nil {
			return nil, 0, fmt.Errorf("fix enrolled count: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("commit reconcile transaction: %w", err)
	}
	return drifted, checked, nil
}
