package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/elective-portal-api/internal/models"
	appErrors "github.com/noah-isme/elective-portal-api/pkg/errors"
)

// Outcome names the result of an admission evaluation.
type Outcome string

const (
	OutcomeAdmitted              Outcome = "admitted"
	OutcomeStudentNotFound       Outcome = "student_not_found"
	OutcomeElectiveNotFound      Outcome = "elective_not_found"
	OutcomeInvalidSemester       Outcome = "invalid_semester"
	OutcomeElectiveInactive      Outcome = "elective_inactive"
	OutcomeDeadlinePassed        Outcome = "deadline_passed"
	OutcomeCapacityExceeded      Outcome = "capacity_exceeded"
	OutcomeAlreadySelected       Outcome = "already_selected"
	OutcomeSelectionLimitReached Outcome = "selection_limit_reached"
	OutcomeCategoryAlreadyFilled Outcome = "category_already_filled"
	OutcomePrerequisitesNotMet   Outcome = "prerequisites_not_met"
)

const (
	minSemester = 1
	maxSemester = 8
)

type admissionStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type admissionElectiveReader interface {
	FindByID(ctx context.Context, id string) (*models.Elective, error)
}

type admissionSelectionReader interface {
	ExistsActive(ctx context.Context, studentID, electiveID string, semester int) (bool, error)
	ListActiveByStudentSemester(ctx context.Context, studentID string, semester int) ([]models.Selection, error)
	ListCompletedElectiveIDs(ctx context.Context, studentID string) ([]string, error)
}

type admissionLimitReader interface {
	List(ctx context.Context, department string, semester int) ([]models.CategoryLimit, error)
}

// AdmissionRequest identifies the selection being considered.
type AdmissionRequest struct {
	StudentID  string
	ElectiveID string
	Semester   int
}

// Decision is the result of Evaluate. Exactly one Outcome is set; the remaining
// fields carry the detail that outcome needs for display or for the writer.
type Decision struct {
	Outcome    Outcome
	Student    *models.Student
	Elective   *models.Elective
	Track      string
	Categories []string

	Deadline             *time.Time
	Category             string
	Limit                int
	Held                 int
	MissingPrerequisites []string
}

// Admitted reports whether the selection may be committed.
func (d Decision) Admitted() bool {
	return d.Outcome == OutcomeAdmitted
}

// Err converts a rejection into the typed API error. Admitted decisions return nil.
func (d Decision) Err() *appErrors.Error {
	switch d.Outcome {
	case OutcomeAdmitted:
		return nil
	case OutcomeStudentNotFound:
		return appErrors.Clone(appErrors.ErrStudentNotFound, "")
	case OutcomeElectiveNotFound:
		return appErrors.Clone(appErrors.ErrElectiveNotFound, "")
	case OutcomeInvalidSemester:
		return appErrors.Clone(appErrors.ErrInvalidSemester, "semester must be between 1 and 8")
	case OutcomeElectiveInactive:
		return appErrors.Clone(appErrors.ErrElectiveInactive, "")
	case OutcomeDeadlinePassed:
		details := map[string]interface{}{}
		message := appErrors.ErrDeadlinePassed.Message
		if d.Deadline != nil {
			details["deadline"] = d.Deadline.UTC().Format(time.RFC3339)
			message = "selection deadline passed on " + d.Deadline.UTC().Format("2006-01-02 15:04 MST")
		}
		return appErrors.WithDetails(appErrors.ErrDeadlinePassed, message, details)
	case OutcomeCapacityExceeded:
		details := map[string]interface{}{}
		if d.Elective != nil && d.Elective.MaxEnrollment != nil {
			details["max_enrollment"] = *d.Elective.MaxEnrollment
		}
		return appErrors.WithDetails(appErrors.ErrCapacityExceeded, "", details)
	case OutcomeAlreadySelected:
		return appErrors.Clone(appErrors.ErrAlreadySelected, "")
	case OutcomeCategoryAlreadyFilled:
		return appErrors.WithDetails(appErrors.ErrCategoryAlreadyFilled,
			"you already selected an elective in category "+d.Category+" this semester",
			map[string]interface{}{"category": d.Category})
	case OutcomeSelectionLimitReached:
		return appErrors.WithDetails(appErrors.ErrSelectionLimitReached, "",
			map[string]interface{}{"limit": d.Limit, "selected": d.Held})
	case OutcomePrerequisitesNotMet:
		return appErrors.WithDetails(appErrors.ErrPrerequisitesNotMet, "",
			map[string]interface{}{"missing": d.MissingPrerequisites})
	default:
		return appErrors.Clone(appErrors.ErrInternal, "")
	}
}

// AdmissionChecker decides whether a selection may be created. It never writes.
type AdmissionChecker struct {
	students   admissionStudentReader
	electives  admissionElectiveReader
	selections admissionSelectionReader
	limits     admissionLimitReader
	logger     *zap.Logger
	now        func() time.Time
}

// NewAdmissionChecker constructs an AdmissionChecker.
func NewAdmissionChecker(students admissionStudentReader, electives admissionElectiveReader, selections admissionSelectionReader, limits admissionLimitReader, logger *zap.Logger) *AdmissionChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdmissionChecker{
		students:   students,
		electives:  electives,
		selections: selections,
		limits:     limits,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source used for deadline checks.
func (c *AdmissionChecker) WithClock(now func() time.Time) *AdmissionChecker {
	if now != nil {
		c.now = now
	}
	return c
}

// Evaluate runs the admission checks in order and stops at the first failure.
// A non-nil error means a collaborator failed; rejections are reported through
// the Decision only.
func (c *AdmissionChecker) Evaluate(ctx context.Context, req AdmissionRequest) (Decision, error) {
	student, err := c.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Decision{Outcome: OutcomeStudentNotFound}, nil
		}
		return Decision{}, err
	}

	elective, err := c.electives.FindByID(ctx, req.ElectiveID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Decision{Outcome: OutcomeElectiveNotFound, Student: student}, nil
		}
		return Decision{}, err
	}

	d := Decision{Student: student, Elective: elective}

	if req.Semester < minSemester || req.Semester > maxSemester {
		d.Outcome = OutcomeInvalidSemester
		return d, nil
	}

	if !elective.IsActive {
		d.Outcome = OutcomeElectiveInactive
		return d, nil
	}

	if elective.DeadlinePassed(c.now()) {
		d.Outcome = OutcomeDeadlinePassed
		d.Deadline = elective.SelectionDeadline
		return d, nil
	}

	if elective.Full() {
		d.Outcome = OutcomeCapacityExceeded
		return d, nil
	}

	exists, err := c.selections.ExistsActive(ctx, student.ID, elective.ID, req.Semester)
	if err != nil {
		return Decision{}, err
	}
	if exists {
		d.Outcome = OutcomeAlreadySelected
		return d, nil
	}

	held, err := c.selections.ListActiveByStudentSemester(ctx, student.ID, req.Semester)
	if err != nil {
		return Decision{}, err
	}

	total, err := c.totalLimit(ctx, student.Department, req.Semester)
	if err != nil {
		return Decision{}, err
	}
	if total >= 0 && len(held) >= total {
		d.Outcome = OutcomeSelectionLimitReached
		d.Limit = total
		d.Held = len(held)
		return d, nil
	}

	if category, ok := firstFilledCategory(elective.Categories, held); ok {
		d.Outcome = OutcomeCategoryAlreadyFilled
		d.Category = category
		return d, nil
	}

	if len(elective.Prerequisites) > 0 {
		completed, err := c.selections.ListCompletedElectiveIDs(ctx, student.ID)
		if err != nil {
			return Decision{}, err
		}
		if missing := missingPrerequisites(elective.Prerequisites, completed); len(missing) > 0 {
			d.Outcome = OutcomePrerequisitesNotMet
			d.MissingPrerequisites = missing
			return d, nil
		}
	}

	d.Outcome = OutcomeAdmitted
	d.Track = elective.Track
	d.Categories = append([]string(nil), elective.Categories...)
	return d, nil
}

// totalLimit sums the configured category limits for a department and
// semester. It returns -1 when nothing is configured, meaning no overall cap.
func (c *AdmissionChecker) totalLimit(ctx context.Context, department string, semester int) (int, error) {
	if c.limits == nil {
		return -1, nil
	}
	limits, err := c.limits.List(ctx, department, semester)
	if err != nil {
		return 0, err
	}
	if len(limits) == 0 {
		return -1, nil
	}
	total := 0
	for _, l := range limits {
		total += l.MaxCount
	}
	return total, nil
}

func firstFilledCategory(candidate []string, held []models.Selection) (string, bool) {
	filled := make(map[string]struct{})
	for _, sel := range held {
		for _, cat := range sel.Categories {
			filled[cat] = struct{}{}
		}
	}
	for _, cat := range candidate {
		if _, ok := filled[cat]; ok {
			return cat, true
		}
	}
	return "", false
}

func missingPrerequisites(required, completed []string) []string {
	done := make(map[string]struct{}, len(completed))
	for _, id := range completed {
		done[id] = struct{}{}
	}
	var missing []string
	for _, id := range required {
		if _, ok := done[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
