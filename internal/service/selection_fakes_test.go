package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/noah-isme/elective-portal-api/internal/models"
	"github.com/noah-isme/elective-portal-api/internal/repository"
)

type fakeStudents map[string]*models.Student

func (f fakeStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := f[id]; ok {
		copy := *s
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

type fakeLimits []models.CategoryLimit

func (f fakeLimits) List(ctx context.Context, department string, semester int) ([]models.CategoryLimit, error) {
	var out []models.CategoryLimit
	for _, l := range f {
		if l.Department == department && l.Semester == semester {
			out = append(out, l)
		}
	}
	return out, nil
}

// memoryCatalog is a selection store and elective catalog sharing one lock, so
// that Commit can check uniqueness and capacity atomically like the SQL
// transaction does.
type memoryCatalog struct {
	mu         sync.Mutex
	electives  map[string]*models.Elective
	selections []models.Selection
	seq        int
	err        error
}

func newMemoryCatalog(electives ...*models.Elective) *memoryCatalog {
	c := &memoryCatalog{electives: make(map[string]*models.Elective)}
	for _, e := range electives {
		c.electives[e.ID] = e
	}
	return c
}

func (c *memoryCatalog) electiveReader() memoryElectives {
	return memoryElectives{c}
}

type memoryElectives struct{ c *memoryCatalog }

func (m memoryElectives) FindByID(ctx context.Context, id string) (*models.Elective, error) {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	e, ok := m.c.electives[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *e
	return &copy, nil
}

func (c *memoryCatalog) enrolled(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.electives[id].EnrolledCount
}

func (c *memoryCatalog) add(sel models.Selection) models.Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	if sel.ID == "" {
		sel.ID = fmt.Sprintf("sel-%d", c.seq)
	}
	if sel.Status == "" {
		sel.Status = models.SelectionStatusSelected
	}
	c.selections = append(c.selections, sel)
	return sel
}

func (c *memoryCatalog) ExistsActive(ctx context.Context, studentID, electiveID string, semester int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, c.err
	}
	return c.activeIndex(studentID, electiveID, semester) >= 0, nil
}

func (c *memoryCatalog) activeIndex(studentID, electiveID string, semester int) int {
	for i, s := range c.selections {
		if s.StudentID == studentID && s.ElectiveID == electiveID && s.Semester == semester && s.Status.Counted() {
			return i
		}
	}
	return -1
}

func (c *memoryCatalog) ListActiveByStudentSemester(ctx context.Context, studentID string, semester int) ([]models.Selection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []models.Selection
	for _, s := range c.selections {
		if s.StudentID == studentID && s.Semester == semester && s.Status.Counted() {
			out = append(out, s)
		}
	}
	return out, nil
}

func (c *memoryCatalog) ListCompletedElectiveIDs(ctx context.Context, studentID string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, s := range c.selections {
		if s.StudentID == studentID && s.Status == models.SelectionStatusCompleted {
			out = append(out, s.ElectiveID)
		}
	}
	return out, nil
}

func (c *memoryCatalog) Commit(ctx context.Context, params repository.CommitParams) (*models.Selection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeIndex(params.StudentID, params.ElectiveID, params.Semester) >= 0 {
		return nil, repository.ErrDuplicateSelection
	}
	e := c.electives[params.ElectiveID]
	if e.MaxEnrollment != nil && e.EnrolledCount >= *e.MaxEnrollment {
		return nil, repository.ErrCapacityRace
	}
	e.EnrolledCount++
	c.seq++
	sel := models.Selection{
		ID:         fmt.Sprintf("sel-%d", c.seq),
		StudentID:  params.StudentID,
		ElectiveID: params.ElectiveID,
		Semester:   params.Semester,
		Categories: params.Categories,
		Track:      params.Track,
		Status:     models.SelectionStatusSelected,
		SelectedAt: time.Now().UTC(),
	}
	c.selections = append(c.selections, sel)
	out := sel
	return &out, nil
}

func (c *memoryCatalog) FindByID(ctx context.Context, id string) (*models.Selection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.selections {
		if s.ID == id {
			out := s
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (c *memoryCatalog) Transition(ctx context.Context, id string, to models.SelectionStatus) (*models.Selection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, s := range c.selections {
		if s.ID != id {
			continue
		}
		if !models.CanTransition(s.Status, to) {
			return nil, repository.ErrInvalidTransition
		}
		if s.Status.Counted() && !to.Counted() {
			if e := c.electives[s.ElectiveID]; e != nil && e.EnrolledCount > 0 {
				e.EnrolledCount--
			}
		}
		c.selections[i].Status = to
		out := c.selections[i]
		return &out, nil
	}
	return nil, sql.ErrNoRows
}

func (c *memoryCatalog) List(ctx context.Context, filter models.SelectionFilter) ([]models.SelectionDetail, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []models.SelectionDetail
	for _, s := range c.selections {
		if filter.StudentID != "" && s.StudentID != filter.StudentID {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		detail := models.SelectionDetail{Selection: s}
		if e := c.electives[s.ElectiveID]; e != nil {
			detail.ElectiveName = e.Name
		}
		out = append(out, detail)
	}
	return out, len(out), nil
}

type recordingInvalidator struct {
	patterns []string
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, pattern string) error {
	r.patterns = append(r.patterns, pattern)
	return nil
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []*models.AuditLog
}

func (r *recordingAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, log)
	return nil
}

func intPtr(v int) *int { return &v }
