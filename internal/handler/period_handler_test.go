package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uniflow-academic-api/internal/middleware"
	"github.com/noah-isme/uniflow-academic-api/internal/models"
	"github.com/noah-isme/uniflow-academic-api/internal/service"
	appErrors "github.com/noah-isme/uniflow-academic-api/pkg/errors"
)

type periodServiceMock struct {
	period     *models.Period
	page       *models.PeriodPage
	export     *service.ExportFile
	err        error
	studentID  string
	id         string
	createReq  service.CreatePeriodRequest
	updateReq  service.UpdatePeriodRequest
	params     models.PaginationParams
	filter     models.PeriodFilter
	format     string
	calledWith string
}

func (m *periodServiceMock) Create(ctx context.Context, studentID string, req service.CreatePeriodRequest) (*models.Period, error) {
	m.calledWith, m.studentID, m.createReq = "create", studentID, req
	return m.period, m.err
}

func (m *periodServiceMock) Update(ctx context.Context, studentID, id string, req service.UpdatePeriodRequest) (*models.Period, error) {
	m.calledWith, m.studentID, m.id, m.updateReq = "update", studentID, id, req
	return m.period, m.err
}

func (m *periodServiceMock) Delete(ctx context.Context, studentID, id string) error {
	m.calledWith, m.studentID, m.id = "delete", studentID, id
	return m.err
}

func (m *periodServiceMock) Get(ctx context.Context, studentID, id string) (*models.Period, error) {
	m.calledWith, m.studentID, m.id = "get", studentID, id
	return m.period, m.err
}

func (m *periodServiceMock) GetCurrent(ctx context.Context, studentID string) (*models.Period, error) {
	m.calledWith, m.studentID = "current", studentID
	return m.period, m.err
}

func (m *periodServiceMock) Activate(ctx context.Context, studentID, id string) (*models.Period, error) {
	m.calledWith, m.studentID, m.id = "activate", studentID, id
	return m.period, m.err
}

func (m *periodServiceMock) List(ctx context.Context, studentID string, params models.PaginationParams, filter models.PeriodFilter) (*models.PeriodPage, error) {
	m.calledWith, m.studentID, m.params, m.filter = "list", studentID, params, filter
	return m.page, m.err
}

func (m *periodServiceMock) Statistics(ctx context.Context, studentID string) (*models.PeriodStatistics, error) {
	m.calledWith, m.studentID = "stats", studentID
	return &models.PeriodStatistics{Total: 1, ByType: map[string]int64{"summer": 1}}, m.err
}

func (m *periodServiceMock) Export(ctx context.Context, studentID string, filter models.PeriodFilter, format string) (*service.ExportFile, error) {
	m.calledWith, m.studentID, m.filter, m.format = "export", studentID, filter, format
	return m.export, m.err
}

func newPeriodRouter(svc *periodServiceMock, authenticated bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api/v1")
	if authenticated {
		api.Use(func(c *gin.Context) {
			c.Set(middleware.ContextPrincipalKey, &models.Principal{Subject: "s1", Email: "s1@example.com"})
		})
	}
	NewPeriodHandler(svc).Register(api)
	return r
}

func perform(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func samplePeriod() *models.Period {
	return &models.Period{
		ID:        "p1",
		Name:      "I Semestre",
		Type:      models.PeriodTypeFirstSemester,
		Year:      2025,
		StartDate: models.NewDate(2025, time.February, 3),
		EndDate:   models.NewDate(2025, time.June, 20),
		StudentID: "s1",
	}
}

func TestPeriodHandlerCreate(t *testing.T) {
	svc := &periodServiceMock{period: samplePeriod()}
	r := newPeriodRouter(svc, true)

	w := perform(r, http.MethodPost, "/api/v1/periods",
		`{"name":"I Semestre","type":"first-semester","year":2025,"startDate":"2025-02-03","endDate":"2025-06-20"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "s1", svc.studentID)
	assert.Equal(t, "first-semester", svc.createReq.Type)
	assert.Equal(t, "2025-02-03", svc.createReq.StartDate.String())

	var body struct {
		Data models.Period `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "p1", body.Data.ID)
	assert.Equal(t, "2025-06-20", body.Data.EndDate.String())
}

func TestPeriodHandlerCreateMalformedBody(t *testing.T) {
	svc := &periodServiceMock{}
	r := newPeriodRouter(svc, true)

	w := perform(r, http.MethodPost, "/api/v1/periods", `{"name":"x","startDate":"03/02/2025"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), appErrors.ErrInvalidPeriod.Code)
	assert.Empty(t, svc.calledWith)
}

func TestPeriodHandlerRequiresPrincipal(t *testing.T) {
	svc := &periodServiceMock{}
	r := newPeriodRouter(svc, false)

	w := perform(r, http.MethodGet, "/api/v1/periods", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, svc.calledWith)
}

func TestPeriodHandlerListParsesQuery(t *testing.T) {
	svc := &periodServiceMock{page: &models.PeriodPage{
		Data:       []models.Period{*samplePeriod()},
		Pagination: models.NewPagination(models.PaginationParams{Page: 2, Limit: 5}, 6),
	}}
	r := newPeriodRouter(svc, true)

	w := perform(r, http.MethodGet, "/api/v1/periods?page=2&limit=5&type=summer&year=2025&isActive=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.PaginationParams{Page: 2, Limit: 5}, svc.params)
	require.NotNil(t, svc.filter.Type)
	assert.Equal(t, models.PeriodTypeSummer, *svc.filter.Type)
	assert.Equal(t, 2025, *svc.filter.Year)
	assert.True(t, *svc.filter.IsActive)

	var body struct {
		Pagination models.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Pagination.TotalPages)
	assert.True(t, body.Pagination.HasPrevious)
}

func TestPeriodHandlerListRejectsBadFilters(t *testing.T) {
	svc := &periodServiceMock{}
	r := newPeriodRouter(svc, true)

	w := perform(r, http.MethodGet, "/api/v1/periods?type=Summer", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), appErrors.ErrInvalidPeriodType.Code)

	w = perform(r, http.MethodGet, "/api/v1/periods?isActive=maybe", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.calledWith)
}

func TestPeriodHandlerRoutesToService(t *testing.T) {
	cases := []struct {
		method, path, body, call string
		status                   int
	}{
		{http.MethodGet, "/api/v1/periods/current", "", "current", http.StatusOK},
		{http.MethodGet, "/api/v1/periods/stats", "", "stats", http.StatusOK},
		{http.MethodGet, "/api/v1/periods/p1", "", "get", http.StatusOK},
		{http.MethodPut, "/api/v1/periods/p1", `{"name":"Renamed"}`, "update", http.StatusOK},
		{http.MethodPatch, "/api/v1/periods/p1/activate", "", "activate", http.StatusOK},
		{http.MethodDelete, "/api/v1/periods/p1", "", "delete", http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.call, func(t *testing.T) {
			svc := &periodServiceMock{period: samplePeriod()}
			w := perform(newPeriodRouter(svc, true), tc.method, tc.path, tc.body)
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.call, svc.calledWith)
			assert.Equal(t, "s1", svc.studentID)
		})
	}
}

func TestPeriodHandlerUpdatePassesOnlySuppliedFields(t *testing.T) {
	svc := &periodServiceMock{period: samplePeriod()}
	w := perform(newPeriodRouter(svc, true), http.MethodPut, "/api/v1/periods/p1", `{"name":"Renamed"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.updateReq.Name)
	assert.Equal(t, "Renamed", *svc.updateReq.Name)
	assert.Nil(t, svc.updateReq.Type)
	assert.Nil(t, svc.updateReq.Year)
	assert.Nil(t, svc.updateReq.StartDate)
	assert.Equal(t, "p1", svc.id)
}

func TestPeriodHandlerMapsDomainErrors(t *testing.T) {
	cases := map[string]struct {
		err    error
		status int
	}{
		"not found":  {appErrors.Clone(appErrors.ErrPeriodNotFound, "period not found: p1"), http.StatusNotFound},
		"dependents": {appErrors.Clone(appErrors.ErrPeriodHasDependents, ""), http.StatusConflict},
		"invalid":    {appErrors.Clone(appErrors.ErrInvalidPeriod, "at least one field required"), http.StatusBadRequest},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &periodServiceMock{err: tc.err}
			w := perform(newPeriodRouter(svc, true), http.MethodDelete, "/api/v1/periods/p1", "")
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestPeriodHandlerExport(t *testing.T) {
	svc := &periodServiceMock{export: &service.ExportFile{Filename: "periods-20250310.csv", ContentType: "text/csv", Data: []byte("Name\n")}}
	w := perform(newPeriodRouter(svc, true), http.MethodGet, "/api/v1/periods/export?format=csv&year=2024", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", svc.format)
	assert.Equal(t, 2024, *svc.filter.Year)
	assert.Equal(t, `attachment; filename="periods-20250310.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "Name\n", w.Body.String())
}
