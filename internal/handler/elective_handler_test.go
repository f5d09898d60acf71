package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/elective-portal-api/internal/middleware"
	"github.com/noah-isme/elective-portal-api/internal/models"
	appErrors "github.com/noah-isme/elective-portal-api/pkg/errors"
	"github.com/noah-isme/elective-portal-api/pkg/response"
)

type electiveCatalogMock struct {
	filter   models.ElectiveFilter
	cacheHit bool
	actor    string
	created  models.CreateElectiveRequest
}

func (m *electiveCatalogMock) List(ctx context.Context, filter models.ElectiveFilter) ([]models.Elective, *response.Pagination, bool, error) {
	m.filter = filter
	return []models.Elective{{ID: "e1", Name: "Ethics"}}, &response.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, m.cacheHit, nil
}

func (m *electiveCatalogMock) Get(ctx context.Context, id string) (*models.Elective, error) {
	if id != "e1" {
		return nil, appErrors.ErrElectiveNotFound
	}
	return &models.Elective{ID: "e1", Name: "Ethics"}, nil
}

func (m *electiveCatalogMock) Create(ctx context.Context, actorID string, req models.CreateElectiveRequest) (*models.Elective, error) {
	m.actor = actorID
	m.created = req
	return &models.Elective{ID: "new", Name: req.Name}, nil
}

func (m *electiveCatalogMock) Update(ctx context.Context, actorID, id string, req models.UpdateElectiveRequest) (*models.Elective, error) {
	return &models.Elective{ID: id}, nil
}

func (m *electiveCatalogMock) Deactivate(ctx context.Context, actorID, id string) error {
	return nil
}

type selectorMock struct {
	electiveID string
	req        models.SelectElectiveRequest
	err        error
}

func (m *selectorMock) Select(ctx context.Context, actor *models.JWTClaims, electiveID string, req models.SelectElectiveRequest) (*models.Selection, error) {
	m.electiveID = electiveID
	m.req = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.Selection{ID: "sel-1", StudentID: actor.StudentID, ElectiveID: electiveID, Semester: req.Semester, Status: models.SelectionStatusSelected}, nil
}

func studentClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent, StudentID: "stu-1"}
}

func newJSONContext(method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	middleware.WithResponseMeta()(c)
	return c, w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestElectiveHandlerSelectCreated(t *testing.T) {
	selector := &selectorMock{}
	handler := NewElectiveHandler(&electiveCatalogMock{}, selector)
	c, w := newJSONContext(http.MethodPost, "/electives/e1/select", []byte(`{"semester":5}`))
	c.Params = gin.Params{{Key: "id", Value: "e1"}}
	c.Set(middleware.ContextUserKey, studentClaims())

	handler.Select(c)

	require.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	selection, ok := body["selection"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "sel-1", selection["id"])
	assert.Equal(t, "selected", selection["status"])
	assert.Equal(t, "e1", selector.electiveID)
	assert.Equal(t, 5, selector.req.Semester)
}

func TestElectiveHandlerSelectRejection(t *testing.T) {
	selector := &selectorMock{err: appErrors.WithDetails(appErrors.ErrCategoryAlreadyFilled, "", map[string]interface{}{"category": "Humanities"})}
	handler := NewElectiveHandler(&electiveCatalogMock{}, selector)
	c, w := newJSONContext(http.MethodPost, "/electives/select/e1", []byte(`{"semester":5}`))
	c.Params = gin.Params{{Key: "id", Value: "e1"}}
	c.Set(middleware.ContextUserKey, studentClaims())

	handler.Select(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "CATEGORY_ALREADY_FILLED", body["code"])
	details, ok := body["details"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Humanities", details["category"])
}

func TestElectiveHandlerSelectInternalErrorHidesCause(t *testing.T) {
	selector := &selectorMock{err: appErrors.Wrap(assert.AnError, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save selection")}
	handler := NewElectiveHandler(&electiveCatalogMock{}, selector)
	c, w := newJSONContext(http.MethodPost, "/electives/e1/select", []byte(`{"semester":5}`))
	c.Params = gin.Params{{Key: "id", Value: "e1"}}
	c.Set(middleware.ContextUserKey, studentClaims())

	handler.Select(c)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}

func TestElectiveHandlerSelectRequiresAuthAndBody(t *testing.T) {
	handler := NewElectiveHandler(&electiveCatalogMock{}, &selectorMock{})

	c, w := newJSONContext(http.MethodPost, "/electives/e1/select", []byte(`{"semester":5}`))
	handler.Select(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newJSONContext(http.MethodPost, "/electives/e1/select", []byte(`{semester`))
	c.Set(middleware.ContextUserKey, studentClaims())
	handler.Select(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestElectiveHandlerListReportsCacheHit(t *testing.T) {
	catalog := &electiveCatalogMock{cacheHit: true}
	handler := NewElectiveHandler(catalog, &selectorMock{})
	c, w := newJSONContext(http.MethodGet, "/electives?department=CS&semester=5&active=true&search=%20ethics%20", nil)

	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "CS", catalog.filter.Department)
	assert.Equal(t, 5, catalog.filter.Semester)
	require.NotNil(t, catalog.filter.Active)
	assert.True(t, *catalog.filter.Active)
	assert.Equal(t, "ethics", catalog.filter.Search)

	body := decodeBody(t, w)
	meta, ok := body["meta"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, meta["cache_hit"])
	assert.NotNil(t, body["pagination"])
}

func TestElectiveHandlerGetNotFound(t *testing.T) {
	handler := NewElectiveHandler(&electiveCatalogMock{}, &selectorMock{})
	c, w := newJSONContext(http.MethodGet, "/electives/zzz", nil)
	c.Params = gin.Params{{Key: "id", Value: "zzz"}}

	handler.Get(c)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ELECTIVE_NOT_FOUND", decodeBody(t, w)["code"])
}

func TestElectiveHandlerCreatePassesActor(t *testing.T) {
	catalog := &electiveCatalogMock{}
	handler := NewElectiveHandler(catalog, &selectorMock{})
	c, w := newJSONContext(http.MethodPost, "/electives", []byte(`{"name":"Compilers","department":"CS","semester":6,"categories":["Departmental"]}`))
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "admin-1", catalog.actor)
	assert.Equal(t, "Compilers", catalog.created.Name)
}

func TestElectiveHandlerDeactivate(t *testing.T) {
	handler := NewElectiveHandler(&electiveCatalogMock{}, &selectorMock{})
	c, w := newJSONContext(http.MethodDelete, "/electives/e1", nil)
	c.Params = gin.Params{{Key: "id", Value: "e1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.Deactivate(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, w.Code)
}
