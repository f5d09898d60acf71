package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/elective-portal-api/internal/models"
)

// TrackRepository persists department tracks.
type TrackRepository struct {
	db *sqlx.DB
}

// NewTrackRepository constructs the repository.
func NewTrackRepository(db *sqlx.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// List returns tracks, optionally limited to one department.
func (r *TrackRepository) List(ctx context.Context, department string) ([]models.Track, error) {
	query := `SELECT id, name, department, description, created_at, updated_at FROM tracks`
	var args []interface{}
	if department != "" {
		query += ` WHERE department = $1`
		args = append(args, department)
	}
	query += ` ORDER BY department, name`
	var tracks []models.Track
	if err := r.db.SelectContext(ctx, &tracks, query, args...); err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	return tracks, nil
}

// ExistsByName checks whether a department already has a track with this name.
func (r *TrackRepository) ExistsByName(ctx context.Context, department, name string) (bool, error) {
	const query = `SELECT 1 FROM tracks WHERE department = $1 AND LOWER(name) = LOWER($2) LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, department, name); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check track name: %w", err)
	}
	return true, nil
}

// Create inserts a new track.
func (r *TrackRepository) Create(ctx context.Context, track *models.Track) error {
	if track.ID == "" {
		track.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	track.CreatedAt = now
	track.UpdatedAt = now
	const query = `INSERT INTO tracks (id, name, department, description, created_at, updated_at)
        VALUES (:id, :name, :department, :description, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, track); err != nil {
		return fmt.Errorf("create track: %w", err)
	}
	return nil
}
