package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/learner-records-api/internal/models"
	"github.com/noah-isme/learner-records-api/internal/service"
	appErrors "github.com/noah-isme/learner-records-api/pkg/errors"
)

type learnerServiceMock struct {
	listResp     []models.LearnerDetail
	getResp      *models.LearnerDetail
	searchResp   []models.LearnerDetail
	err          error
	gotID        string
	gotCond      *models.LearnerSearchCondition
	registered   *models.LearnerDetail
	updated      *models.LearnerDetail
	registerCall int
	updateCall   int
}

func (m *learnerServiceMock) List(ctx context.Context) ([]models.LearnerDetail, error) {
	return m.listResp, m.err
}

func (m *learnerServiceMock) Get(ctx context.Context, id string) (*models.LearnerDetail, error) {
	m.gotID = id
	if m.err != nil {
		return nil, m.err
	}
	return m.getResp, nil
}

func (m *learnerServiceMock) Search(ctx context.Context, cond models.LearnerSearchCondition) ([]models.LearnerDetail, error) {
	m.gotCond = &cond
	if m.err != nil {
		return nil, m.err
	}
	return m.searchResp, nil
}

func (m *learnerServiceMock) Register(ctx context.Context, detail *models.LearnerDetail) (*models.LearnerDetail, error) {
	m.registerCall++
	if m.err != nil {
		return nil, m.err
	}
	detail.Learner.ID = "10"
	m.registered = detail
	return detail, nil
}

func (m *learnerServiceMock) Update(ctx context.Context, detail *models.LearnerDetail) error {
	m.updateCall++
	m.updated = detail
	return m.err
}

type exporterMock struct {
	format string
	err    error
}

func (m *exporterMock) Export(ctx context.Context, format string) (*service.ExportResult, error) {
	m.format = format
	if m.err != nil {
		return nil, m.err
	}
	return &service.ExportResult{Content: []byte("learner_id\n"), ContentType: "text/csv; charset=utf-8", FileName: "learners-20240401.csv"}, nil
}

func newLearnerContext(t *testing.T, method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(method, target, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func validDetailJSON(t *testing.T, learnerID string) []byte {
	t.Helper()
	payload := map[string]interface{}{
		"learner": map[string]interface{}{
			"id":        learnerID,
			"name":      "Taro Yamada",
			"kana_name": "ヤマダタロウ",
			"nickname":  "taro",
			"email":     "taro@example.com",
			"address":   "Tokyo",
			"age":       25,
			"gender":    "male",
		},
		"enrollments": []map[string]interface{}{{"course_name": "Java"}},
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return body
}

func decodeErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error *appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	return envelope.Error.Code
}

func TestLearnerHandlerList(t *testing.T) {
	svc := &learnerServiceMock{listResp: []models.LearnerDetail{{Learner: models.Learner{ID: "1", Name: "Taro"}}}}
	handler := NewLearnerHandler(svc, &exporterMock{}, nil)
	c, w := newLearnerContext(t, http.MethodGet, "/api/v1/learners", nil)

	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data []models.LearnerDetail `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "Taro", envelope.Data[0].Learner.Name)
}

func TestLearnerHandlerGetRejectsNonNumericID(t *testing.T) {
	svc := &learnerServiceMock{}
	handler := NewLearnerHandler(svc, &exporterMock{}, nil)
	c, w := newLearnerContext(t, http.MethodGet, "/api/v1/learners/abc", nil)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	handler.Get(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.gotID)
}

func TestLearnerHandlerGetNotFound(t *testing.T) {
	svc := &learnerServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "learner not found (id: 999)")}
	handler := NewLearnerHandler(svc, &exporterMock{}, nil)
	c, w := newLearnerContext(t, http.MethodGet, "/api/v1/learners/999", nil)
	c.Params = gin.Params{{Key: "id", Value: "999"}}

	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "999", svc.gotID)
	assert.Contains(t, w.Body.String(), "learner not found (id: 999)")
}

func TestLearnerHandlerSearch(t *testing.T) {
	svc := &learnerServiceMock{searchResp: []models.LearnerDetail{{Learner: models.Learner{ID: "2"}}}}
	handler := NewLearnerHandler(svc, &exporterMock{}, nil)
	c, w := newLearnerContext(t, http.MethodPost, "/api/v1/learners/search", []byte(`{"name":"taro","min_age":20,"max_age":30}`))

	handler.Search(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.gotCond)
	assert.Equal(t, "taro", svc.gotCond.Name)
	require.NotNil(t, svc.gotCond.MinAge)
	assert.Equal(t, 20, *svc.gotCond.MinAge)
}

func TestLearnerHandlerSearchRejectsInvertedAgeRange(t *testing.T) {
	svc := &learnerServiceMock{}
	handler := NewLearnerHandler(svc, &exporterMock{}, nil)
	c, w := newLearnerContext(t, http.MethodPost, "/api/v1/learners/search", []byte(`{"min_age":40,"max_age":30}`))

	handler.Search(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, svc.gotCond)
}

func TestLearnerHandlerRegister(t *testing.T) {
	svc := &learnerServiceMock{}
	handler := NewLearnerHandler(svc, &exporterMock{}, nil)
	c, w := newLearnerContext(t, http.MethodPost, "/api/v1/learners", validDetailJSON(t, ""))

	handler.Register(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, svc.registered)
	assert.Equal(t, "Java", svc.registered.Enrollments[0].CourseName)
	assert.Contains(t, w.Body.String(), `"id":"10"`)
}

func TestLearnerHandlerRegisterRejectsPresetID(t *testing.T) {
	svc := &learnerServiceMock{}
	handler := NewLearnerHandler(svc, &exporterMock{}, nil)
	c, w := newLearnerContext(t, http.MethodPost, "/api/v1/learners", validDetailJSON(t, "5"))

	handler.Register(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, svc.registerCall)
}

func TestLearnerHandlerRegisterInvalidEmail(t *testing.T) {
	svc := &learnerServiceMock{}
	handler := NewLearnerHandler(svc, &exporterMock{}, nil)
	body := bytes.Replace(validDetailJSON(t, ""), []byte("taro@example.com"), []byte("not-an-email"), 1)
	c, w := newLearnerContext(t, http.MethodPost, "/api/v1/learners", body)

	handler.Register(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decodeErrorCode(t, w))
	assert.Zero(t, svc.registerCall)
}

func TestLearnerHandlerRegisterInvalidBody(t *testing.T) {
	svc := &learnerServiceMock{}
	handler := NewLearnerHandler(svc, &exporterMock{}, nil)
	c, w := newLearnerContext(t, http.MethodPost, "/api/v1/learners", []byte(`invalid`))

	handler.Register(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLearnerHandlerUpdate(t *testing.T) {
	svc := &learnerServiceMock{}
	handler := NewLearnerHandler(svc, &exporterMock{}, nil)
	c, w := newLearnerContext(t, http.MethodPut, "/api/v1/learners", validDetailJSON(t, "3"))

	handler.Update(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.updated)
	assert.Equal(t, "3", svc.updated.Learner.ID)
	assert.Contains(t, w.Body.String(), "learner updated")
}

func TestLearnerHandlerUpdateRequiresID(t *testing.T) {
	svc := &learnerServiceMock{}
	handler := NewLearnerHandler(svc, &exporterMock{}, nil)
	c, w := newLearnerContext(t, http.MethodPut, "/api/v1/learners", validDetailJSON(t, ""))

	handler.Update(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, svc.updateCall)
}

func TestLearnerHandlerUpdateStorageFailure(t *testing.T) {
	svc := &learnerServiceMock{err: appErrors.Wrap(errors.New("boom"), appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update learner")}
	handler := NewLearnerHandler(svc, &exporterMock{}, nil)
	c, w := newLearnerContext(t, http.MethodPut, "/api/v1/learners", validDetailJSON(t, "3"))

	handler.Update(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestLearnerHandlerExport(t *testing.T) {
	exporter := &exporterMock{}
	handler := NewLearnerHandler(&learnerServiceMock{}, exporter, nil)
	c, w := newLearnerContext(t, http.MethodGet, "/api/v1/learners/export", nil)

	handler.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.ExportFormatCSV, exporter.format)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "learners-20240401.csv")
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
}

func TestLearnerHandlerRetired(t *testing.T) {
	handler := NewLearnerHandler(&learnerServiceMock{}, &exporterMock{}, nil)
	c, w := newLearnerContext(t, http.MethodGet, "/exception", nil)

	handler.Retired(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrRetired.Code, decodeErrorCode(t, w))
}

type pingerStub struct{ err error }

func (p pingerStub) PingContext(ctx context.Context) error { return p.err }

func TestMetricsHandlerReady(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)
	NewMetricsHandler(nil, pingerStub{}).Ready(c)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)
	NewMetricsHandler(nil, pingerStub{err: errors.New("connection refused")}).Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
