package models

import (
	"time"

	"github.com/lib/pq"
)

// SelectionStatus enumerates the lifecycle of a selection.
type SelectionStatus string

const (
	SelectionStatusSelected  SelectionStatus = "selected"
	SelectionStatusConfirmed SelectionStatus = "confirmed"
	SelectionStatusDropped   SelectionStatus = "dropped"
	SelectionStatusCompleted SelectionStatus = "completed"
)

// Counted reports whether a selection in this status holds a seat.
func (s SelectionStatus) Counted() bool {
	return s != SelectionStatusDropped
}

// CanTransition reports whether from -> to is an allowed status change.
func CanTransition(from, to SelectionStatus) bool {
	switch from {
	case SelectionStatusSelected:
		return to == SelectionStatusConfirmed || to == SelectionStatusDropped
	case SelectionStatusConfirmed:
		return to == SelectionStatusCompleted
	default:
		return false
	}
}

// Selection is a student's claim on one elective for one semester.
type Selection struct {
	ID         string          `db:"id" json:"id"`
	StudentID  string          `db:"student_id" json:"student_id"`
	ElectiveID string          `db:"elective_id" json:"elective_id"`
	Semester   int             `db:"semester" json:"semester"`
	Categories pq.StringArray  `db:"categories" json:"categories"`
	Track      string          `db:"track" json:"track"`
	Status     SelectionStatus `db:"status" json:"status"`
	SelectedAt time.Time       `db:"selected_at" json:"selected_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

// SelectionDetail decorates a selection with elective and student names.
type SelectionDetail struct {
	Selection
	ElectiveName string  `db:"elective_name" json:"elective_name"`
	ElectiveCode *string `db:"elective_code" json:"elective_code,omitempty"`
	RollNumber   string  `db:"roll_number" json:"roll_number"`
	StudentName  string  `db:"student_name" json:"student_name"`
	Department   string  `db:"department" json:"department"`
}

// SelectionFilter captures listing criteria for selections.
type SelectionFilter struct {
	StudentID  string          `form:"student_id"`
	ElectiveID string          `form:"elective_id"`
	Department string          `form:"department"`
	Semester   int             `form:"semester"`
	Status     SelectionStatus `form:"status"`
	Page       int             `form:"page"`
	PageSize   int             `form:"page_size"`
}

// SelectElectiveRequest is the body accepted by the select endpoints.
type SelectElectiveRequest struct {
	StudentID string `json:"studentId" validate:"omitempty,uuid"`
	Semester  int    `json:"semester" validate:"required"`
}

// UpdateSelectionStatusRequest moves a selection through its lifecycle.
type UpdateSelectionStatusRequest struct {
	Status SelectionStatus `json:"status" validate:"required,oneof=confirmed dropped completed"`
}
