package models

import "time"

// Student is the directory profile of a user enrolled in a department.
type Student struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	RollNumber string    `db:"roll_number" json:"roll_number"`
	Department string    `db:"department" json:"department"`
	Semester   int       `db:"semester" json:"semester"`
	Section    string    `db:"section" json:"section"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// StudentDetail joins the profile with the owning user account.
type StudentDetail struct {
	Student
	FullName string `db:"full_name" json:"full_name"`
	Email    string `db:"email" json:"email"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Department string `form:"department"`
	Semester   int    `form:"semester"`
	Section    string `form:"section"`
	Search     string `form:"search"`
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size"`
	SortBy     string `form:"sort_by"`
	SortOrder  string `form:"sort_order"`
}
