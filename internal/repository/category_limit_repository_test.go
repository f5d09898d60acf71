package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/elective-portal-api/internal/models"
)

func TestCategoryLimitRepositoryUpsertReturnsStoredID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCategoryLimitRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (department, semester, category)")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("existing-id"))

	limit := &models.CategoryLimit{Department: "CSE", Semester: 5, Category: "Open", MaxCount: 2}
	require.NoError(t, repo.Upsert(context.Background(), limit))
	assert.Equal(t, "existing-id", limit.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryLimitRepositoryList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCategoryLimitRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM category_limits WHERE department = $1 AND semester = $2 ORDER BY semester, category")).
		WithArgs("CSE", 5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "department", "semester", "category", "max_count", "updated_at"}).
			AddRow("1", "CSE", 5, "Departmental", 1, time.Now()).
			AddRow("2", "CSE", 5, "Open", 2, time.Now()))

	limits, err := repo.List(context.Background(), "CSE", 5)
	require.NoError(t, err)
	require.Len(t, limits, 2)
	assert.Equal(t, 2, limits[1].MaxCount)
}

func TestTrackRepositoryExistsByName(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTrackRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM tracks WHERE department = $1 AND LOWER(name) = LOWER($2)")).
		WithArgs("CSE", "AI").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsByName(context.Background(), "CSE", "AI")
	require.NoError(t, err)
	assert.True(t, exists)
}
