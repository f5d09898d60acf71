package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/elective-portal-api/internal/models"
	appErrors "github.com/noah-isme/elective-portal-api/pkg/errors"
)

type mockTrackRepo struct {
	tracks []models.Track
}

func (m *mockTrackRepo) List(ctx context.Context, department string) ([]models.Track, error) {
	var out []models.Track
	for _, t := range m.tracks {
		if department == "" || t.Department == department {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockTrackRepo) ExistsByName(ctx context.Context, department, name string) (bool, error) {
	for _, t := range m.tracks {
		if t.Department == department && strings.EqualFold(t.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockTrackRepo) Create(ctx context.Context, track *models.Track) error {
	track.ID = "track-new"
	m.tracks = append(m.tracks, *track)
	return nil
}

func TestTrackServiceCreateAndList(t *testing.T) {
	repo := &mockTrackRepo{tracks: []models.Track{{ID: "t1", Name: "Systems", Department: "CS"}}}
	svc := NewTrackService(repo, nil, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, models.CreateTrackRequest{Name: "systems", Department: "CS"})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	track, err := svc.Create(ctx, models.CreateTrackRequest{Name: " Data Science ", Department: "CS"})
	require.NoError(t, err)
	assert.Equal(t, "Data Science", track.Name)

	tracks, err := svc.List(ctx, "CS")
	require.NoError(t, err)
	assert.Len(t, tracks, 2)

	empty, err := svc.List(ctx, "ME")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = svc.Create(ctx, models.CreateTrackRequest{Name: "Robotics"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

type mockLimitRepo struct {
	limits []models.CategoryLimit
}

func (m *mockLimitRepo) List(ctx context.Context, department string, semester int) ([]models.CategoryLimit, error) {
	return fakeLimits(m.limits).List(ctx, department, semester)
}

func (m *mockLimitRepo) Upsert(ctx context.Context, limit *models.CategoryLimit) error {
	for i, l := range m.limits {
		if l.Department == limit.Department && l.Semester == limit.Semester && l.Category == limit.Category {
			limit.ID = l.ID
			m.limits[i] = *limit
			return nil
		}
	}
	limit.ID = "limit-new"
	m.limits = append(m.limits, *limit)
	return nil
}

func TestCategoryLimitServiceDefaultsAndUpsert(t *testing.T) {
	repo := &mockLimitRepo{limits: []models.CategoryLimit{{ID: "l1", Department: "CS", Semester: 5, Category: "Open", MaxCount: 2}}}
	svc := NewCategoryLimitService(repo, nil, nil)
	ctx := context.Background()

	limit, err := svc.Limit(ctx, "CS", 5, "Open")
	require.NoError(t, err)
	assert.Equal(t, 2, limit)

	limit, err = svc.Limit(ctx, "CS", 5, "Humanities")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultCategoryLimit, limit)

	saved, err := svc.Upsert(ctx, models.UpsertCategoryLimitRequest{Department: "CS", Semester: 5, Category: "Open", MaxCount: 0})
	require.NoError(t, err)
	assert.Equal(t, "l1", saved.ID)

	limits, err := svc.List(ctx, "CS", 5)
	require.NoError(t, err)
	require.Len(t, limits, 1)
	assert.Equal(t, 0, limits[0].MaxCount)

	_, err = svc.List(ctx, " ", 5)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Upsert(ctx, models.UpsertCategoryLimitRequest{Department: "CS", Semester: 9, Category: "Open", MaxCount: 1})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

type mockStudentRepo struct {
	students   map[string]models.StudentDetail
	lastFilter models.StudentFilter
	listTotal  int
	err        error
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	m.lastFilter = filter
	if m.err != nil {
		return nil, 0, m.err
	}
	out := make([]models.StudentDetail, 0, len(m.students))
	for _, s := range m.students {
		out = append(out, s)
	}
	return out, m.listTotal, nil
}

func (m *mockStudentRepo) FindDetailByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if m.err != nil {
		return nil, m.err
	}
	s, ok := m.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

func TestStudentServiceListAndGet(t *testing.T) {
	repo := &mockStudentRepo{
		students:  map[string]models.StudentDetail{"stu-1": {Student: *testStudent(), FullName: "Ayu Lestari", Email: "ayu@example.edu"}},
		listTotal: 41,
	}
	svc := NewStudentService(repo, nil)
	ctx := context.Background()

	items, page, err := svc.List(ctx, models.StudentFilter{Department: "CS", Page: 3, PageSize: 500})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 3, page.Page)
	assert.Equal(t, 20, page.PageSize)
	assert.Equal(t, 41, page.TotalCount)
	assert.Equal(t, "CS", repo.lastFilter.Department)

	student, err := svc.Get(ctx, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "Ayu Lestari", student.FullName)

	_, err = svc.Get(ctx, "ghost")
	assert.True(t, errors.Is(err, appErrors.ErrStudentNotFound))

	me, err := svc.Me(ctx, studentActor())
	require.NoError(t, err)
	assert.Equal(t, "CS-001", me.RollNumber)

	_, err = svc.Me(ctx, adminActor())
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestStudentServiceRepositoryFailure(t *testing.T) {
	svc := NewStudentService(&mockStudentRepo{err: errors.New("timeout")}, nil)

	_, _, err := svc.List(context.Background(), models.StudentFilter{})
	assert.True(t, errors.Is(err, appErrors.ErrInternal))

	_, err = svc.Get(context.Background(), "stu-1")
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}
