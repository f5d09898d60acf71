package models

import "time"

// Track groups electives of a department under a named specialization.
type Track struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Department  string    `db:"department" json:"department"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CreateTrackRequest is the admin payload for a new track.
type CreateTrackRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Department  string `json:"department" validate:"required"`
	Description string `json:"description"`
}
