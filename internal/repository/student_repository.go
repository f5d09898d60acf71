package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/elective-portal-api/internal/models"
)

const studentColumns = `s.id, s.user_id, s.roll_number, s.department, s.semester, s.section, s.created_at, s.updated_at`

// StudentRepository manages persistence for student profiles.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID fetches a student profile by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students s WHERE s.id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

// FindByUserID fetches the profile owned by a user account.
func (r *StudentRepository) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students s WHERE s.user_id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by user: %w", err)
	}
	return &student, nil
}

// FindDetailByID returns the profile joined with its user account.
func (r *StudentRepository) FindDetailByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	query := `SELECT ` + studentColumns + `, u.full_name, u.email
        FROM students s JOIN users u ON u.id = s.user_id WHERE s.id = $1`
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student detail: %w", err)
	}
	return &detail, nil
}

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := "FROM students s JOIN users u ON u.id = s.user_id"
	var args []interface{}
	conditions := []string{"1=1"}

	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("s.department = $%d", len(args)+1))
		args = append(args, filter.Department)
	}
	if filter.Semester > 0 {
		conditions = append(conditions, fmt.Sprintf("s.semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.Section != "" {
		conditions = append(conditions, fmt.Sprintf("s.section = $%d", len(args)+1))
		args = append(args, filter.Section)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(u.full_name) LIKE $%d OR LOWER(s.roll_number) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"full_name":   "u.full_name",
		"roll_number": "s.roll_number",
		"created_at":  "s.created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "s.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	_, size, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT %s, u.full_name, u.email %s ORDER BY %s %s LIMIT %d OFFSET %d`, studentColumns, base, column, order, size, offset)
	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// Register creates the user account and its student profile in one transaction.
func (r *StudentRepository) Register(ctx context.Context, user *models.User, student *models.Student) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin register transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = createUser(ctx, tx, user); err != nil {
		return err
	}

	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	student.UserID = user.ID
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, user_id, roll_number, department, semester, section, created_at, updated_at)
        VALUES (:id, :user_id, :roll_number, :department, :semester, :section, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit register transaction: %w", err)
	}
	return nil
}

// ListRecipients resolves the students a notification should reach.
func (r *StudentRepository) ListRecipients(ctx context.Context, filter models.RecipientFilter) ([]models.Recipient, error) {
	var (
		query string
		args  []interface{}
	)
	if filter.ElectiveID != "" {
		query = `SELECT DISTINCT s.id AS student_id, u.full_name, u.email
        FROM selections sel
        JOIN students s ON s.id = sel.student_id
        JOIN users u ON u.id = s.user_id
        WHERE sel.elective_id = $1 AND sel.status <> 'dropped' AND u.active = TRUE`
		args = append(args, filter.ElectiveID)
	} else {
		query = `SELECT s.id AS student_id, u.full_name, u.email
        FROM students s JOIN users u ON u.id = s.user_id
        WHERE s.department = $1 AND u.active = TRUE`
		args = append(args, filter.Department)
		if filter.Semester > 0 {
			query += " AND s.semester = $2"
			args = append(args, filter.Semester)
		}
	}
	query += " ORDER BY student_id"

	var recipients []models.Recipient
	if err := r.db.SelectContext(ctx, &recipients, query, args...); err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	return recipients, nil
}
