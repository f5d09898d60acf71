package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/elective-portal-api/internal/middleware"
	"github.com/noah-isme/elective-portal-api/internal/models"
	"github.com/noah-isme/elective-portal-api/internal/service"
)

type notificationServiceMock struct {
	req models.NotificationRequest
}

func (m *notificationServiceMock) Broadcast(ctx context.Context, actor *models.JWTClaims, req models.NotificationRequest) (*models.NotificationResult, error) {
	m.req = req
	return &models.NotificationResult{Recipients: 3, Batches: 1}, nil
}

type reconcilerMock struct{}

func (reconcilerMock) Run(ctx context.Context, actor *models.JWTClaims) (*models.ReconcileReport, error) {
	return &models.ReconcileReport{Checked: 4, Drifted: []models.CounterDrift{{ElectiveID: "e1", Before: 3, After: 2}}}, nil
}

type snapshotMock struct{}

func (snapshotMock) Snapshot() models.SystemMetrics {
	return models.SystemMetrics{SelectionsAdmitted: 7, GeneratedAt: time.Now()}
}

type trackServiceMock struct{ department string }

func (m *trackServiceMock) List(ctx context.Context, department string) ([]models.Track, error) {
	m.department = department
	return []models.Track{{ID: "t1", Name: "Systems", Department: department}}, nil
}

func (m *trackServiceMock) Create(ctx context.Context, req models.CreateTrackRequest) (*models.Track, error) {
	return &models.Track{ID: "t2", Name: req.Name, Department: req.Department}, nil
}

type limitServiceMock struct {
	department string
	semester   int
}

func (m *limitServiceMock) List(ctx context.Context, department string, semester int) ([]models.CategoryLimit, error) {
	m.department = department
	m.semester = semester
	return []models.CategoryLimit{}, nil
}

func (m *limitServiceMock) Upsert(ctx context.Context, req models.UpsertCategoryLimitRequest) (*models.CategoryLimit, error) {
	return &models.CategoryLimit{ID: "l1", Department: req.Department, Semester: req.Semester, Category: req.Category, MaxCount: req.MaxCount}, nil
}

func TestNotificationHandlerAccepted(t *testing.T) {
	svc := &notificationServiceMock{}
	handler := NewNotificationHandler(svc)
	c, w := newJSONContext(http.MethodPost, "/notifications", []byte(`{"subject":"Reminder","body":"Selections close Friday","department":"CS"}`))
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.Broadcast(c)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "CS", svc.req.Department)
	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.EqualValues(t, 3, data["recipients"])
}

func TestMaintenanceHandlerReconcileAndStats(t *testing.T) {
	handler := NewMaintenanceHandler(reconcilerMock{}, snapshotMock{})

	c, w := newJSONContext(http.MethodPost, "/maintenance/reconcile", nil)
	handler.Reconcile(c)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.EqualValues(t, 4, data["checked"])
	assert.Len(t, data["drifted"], 1)

	c, w = newJSONContext(http.MethodGet, "/maintenance/stats", nil)
	handler.Stats(c)
	require.Equal(t, http.StatusOK, w.Code)
	data = decodeBody(t, w)["data"].(map[string]interface{})
	assert.EqualValues(t, 7, data["selections_admitted"])
}

func TestTrackHandlerListsAndLimits(t *testing.T) {
	tracks := &trackServiceMock{}
	limits := &limitServiceMock{}
	handler := NewTrackHandler(tracks, limits)

	c, w := newJSONContext(http.MethodGet, "/tracks?department=CS", nil)
	handler.ListTracks(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "CS", tracks.department)

	c, w = newJSONContext(http.MethodGet, "/category-limits?department=CS&semester=5", nil)
	handler.ListLimits(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, limits.semester)

	c, w = newJSONContext(http.MethodGet, "/category-limits?semester=five", nil)
	handler.ListLimits(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newJSONContext(http.MethodPut, "/category-limits", []byte(`{"department":"CS","semester":5,"category":"Open","max_count":2}`))
	handler.UpsertLimit(c)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.EqualValues(t, 2, data["max_count"])
}

func TestMetricsHandlerReadiness(t *testing.T) {
	healthy := NewMetricsHandler(service.NewMetricsService(), map[string]ReadinessCheck{
		"postgres": func(ctx context.Context) error { return nil },
	})
	c, w := newJSONContext(http.MethodGet, "/ready", nil)
	healthy.Ready(c)
	assert.Equal(t, http.StatusOK, w.Code)

	degraded := NewMetricsHandler(nil, map[string]ReadinessCheck{
		"postgres": func(ctx context.Context) error { return nil },
		"redis":    func(ctx context.Context) error { return errors.New("connection refused") },
	})
	c, w = newJSONContext(http.MethodGet, "/ready", nil)
	degraded.Ready(c)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	checks := decodeBody(t, w)["checks"].(map[string]interface{})
	assert.Equal(t, "ok", checks["postgres"])
	assert.Equal(t, "connection refused", checks["redis"])

	c, w = newJSONContext(http.MethodGet, "/metrics", nil)
	degraded.Prometheus(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
