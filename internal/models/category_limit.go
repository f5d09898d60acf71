package models

import "time"

// DefaultCategoryLimit applies to categories without a configured row.
const DefaultCategoryLimit = 1

// CategoryLimit caps selections per (department, semester, category).
type CategoryLimit struct {
	ID         string    `db:"id" json:"id"`
	Department string    `db:"department" json:"department"`
	Semester   int       `db:"semester" json:"semester"`
	Category   string    `db:"category" json:"category"`
	MaxCount   int       `db:"max_count" json:"max_count"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// UpsertCategoryLimitRequest sets the cap for one category.
type UpsertCategoryLimitRequest struct {
	Department string `json:"department" validate:"required"`
	Semester   int    `json:"semester" validate:"required,min=1,max=8"`
	Category   string `json:"category" validate:"required"`
	MaxCount   int    `json:"max_count" validate:"min=0,max=20"`
}
