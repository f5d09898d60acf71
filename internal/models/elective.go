package models

import (
	"time"

	"github.com/lib/pq"
)

// Elective is a course offering students may select.
type Elective struct {
	ID                string         `db:"id" json:"id"`
	Name              string         `db:"name" json:"name"`
	Code              *string        `db:"code" json:"code,omitempty"`
	Description       string         `db:"description" json:"description"`
	Department        string         `db:"department" json:"department"`
	Semester          int            `db:"semester" json:"semester"`
	Categories        pq.StringArray `db:"categories" json:"categories"`
	Track             string         `db:"track" json:"track"`
	Credits           int            `db:"credits" json:"credits"`
	IsActive          bool           `db:"is_active" json:"is_active"`
	SelectionDeadline *time.Time     `db:"selection_deadline" json:"selection_deadline,omitempty"`
	MaxEnrollment     *int           `db:"max_enrollment" json:"max_enrollment,omitempty"`
	EnrolledCount     int            `db:"enrolled_count" json:"enrolled_count"`
	Prerequisites     pq.StringArray `db:"prerequisites" json:"prerequisites"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}

// DeadlinePassed reports whether selections are closed at now.
func (e *Elective) DeadlinePassed(now time.Time) bool {
	return e.SelectionDeadline != nil && now.After(*e.SelectionDeadline)
}

// Full reports whether every seat is taken.
func (e *Elective) Full() bool {
	return e.MaxEnrollment != nil && e.EnrolledCount >= *e.MaxEnrollment
}

// ElectiveFilter captures catalog listing criteria.
type ElectiveFilter struct {
	Department string `form:"department"`
	Semester   int    `form:"semester"`
	Category   string `form:"category"`
	Track      string `form:"track"`
	Active     *bool  `form:"active"`
	Search     string `form:"search"`
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size"`
	SortBy     string `form:"sort_by"`
	SortOrder  string `form:"sort_order"`
}

// CreateElectiveRequest is the admin payload for a new elective.
type CreateElectiveRequest struct {
	Name              string     `json:"name" validate:"required"`
	Code              *string    `json:"code" validate:"omitempty,max=32"`
	Description       string     `json:"description"`
	Department        string     `json:"department" validate:"required"`
	Semester          int        `json:"semester" validate:"required,min=1,max=8"`
	Categories        []string   `json:"categories" validate:"required,min=1,dive,required"`
	Track             string     `json:"track"`
	Credits           int        `json:"credits" validate:"min=0,max=12"`
	SelectionDeadline *time.Time `json:"selection_deadline"`
	MaxEnrollment     *int       `json:"max_enrollment" validate:"omitempty,min=1"`
	Prerequisites     []string   `json:"prerequisites" validate:"omitempty,dive,required"`
}

// UpdateElectiveRequest patches mutable elective fields. Nil fields are left untouched.
type UpdateElectiveRequest struct {
	Name              *string    `json:"name" validate:"omitempty,min=1"`
	Code              *string    `json:"code" validate:"omitempty,max=32"`
	Description       *string    `json:"description"`
	Categories        []string   `json:"categories" validate:"omitempty,min=1,dive,required"`
	Track             *string    `json:"track"`
	Credits           *int       `json:"credits" validate:"omitempty,min=0,max=12"`
	IsActive          *bool      `json:"is_active"`
	SelectionDeadline *time.Time `json:"selection_deadline"`
	ClearDeadline     bool       `json:"clear_deadline"`
	MaxEnrollment     *int       `json:"max_enrollment" validate:"omitempty,min=1"`
	ClearMaxEnroll    bool       `json:"clear_max_enrollment"`
	Prerequisites     []string   `json:"prerequisites" validate:"omitempty,dive,required"`
}
