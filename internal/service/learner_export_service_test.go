package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/learner-records-api/internal/models"
	appErrors "github.com/noah-isme/learner-records-api/pkg/errors"
	"github.com/noah-isme/learner-records-api/pkg/export"
)

type learnerListerStub struct {
	details []models.LearnerDetail
	err     error
}

func (s learnerListerStub) List(ctx context.Context) ([]models.LearnerDetail, error) {
	return s.details, s.err
}

type failingRenderer struct{}

func (failingRenderer) Render(export.Dataset) ([]byte, error) { return nil, errors.New("disk full") }
func (failingRenderer) ContentType() string                   { return "text/plain" }
func (failingRenderer) Extension() string                     { return "txt" }

func rosterFixture() []models.LearnerDetail {
	start := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	return []models.LearnerDetail{
		{
			Learner: models.Learner{ID: "1", Name: "Taro", KanaName: "タロウ", Email: "taro@example.com"},
			Enrollments: []models.Enrollment{
				{ID: "10", LearnerID: "1", CourseName: "Java", CourseStartAt: start, CourseEndAt: start.AddDate(1, 0, 0)},
				{ID: "11", LearnerID: "1", CourseName: "Go"},
			},
			Statuses: []models.ApplicationStatus{
				{ID: "100", EnrollmentID: "10", Status: models.ApplicationStatusProvisional},
				{ID: "101", EnrollmentID: "10", Status: models.ApplicationStatusConfirmed},
			},
		},
		{Learner: models.Learner{ID: "2", Name: "Hanako"}},
	}
}

func TestLearnerExportServiceCSV(t *testing.T) {
	svc := NewLearnerExportService(learnerListerStub{details: rosterFixture()}, nil, nil, nil)
	svc.now = func() time.Time { return time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC) }

	result, err := svc.Export(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "learners-20240506.csv", result.FileName)
	assert.Equal(t, "text/csv; charset=utf-8", result.ContentType)

	records, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(result.Content, []byte{0xEF, 0xBB, 0xBF}))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, rosterHeaders, records[0])
	assert.Equal(t, []string{"1", "Taro", "タロウ", "taro@example.com", "Java", "provisional/confirmed", "2024-04-01", "2025-04-01"}, records[1])
	assert.Equal(t, []string{"1", "Taro", "タロウ", "taro@example.com", "Go", "", "", ""}, records[2])
	assert.Equal(t, []string{"2", "Hanako", "", "", "", "", "", ""}, records[3])
}

func TestLearnerExportServicePDF(t *testing.T) {
	svc := NewLearnerExportService(learnerListerStub{details: rosterFixture()}, nil, nil, nil)

	result, err := svc.Export(context.Background(), "PDF")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, bytes.HasPrefix(result.Content, []byte("%PDF")))
}

func TestLearnerExportServiceUnsupportedFormat(t *testing.T) {
	svc := NewLearnerExportService(learnerListerStub{}, nil, nil, nil)

	_, err := svc.Export(context.Background(), "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestLearnerExportServicePropagatesListError(t *testing.T) {
	listErr := appErrors.Clone(appErrors.ErrInternal, "failed to list learners")
	svc := NewLearnerExportService(learnerListerStub{err: listErr}, nil, nil, nil)

	_, err := svc.Export(context.Background(), "csv")
	assert.ErrorIs(t, err, listErr)
}

func TestLearnerExportServiceRenderFailure(t *testing.T) {
	svc := NewLearnerExportService(learnerListerStub{details: rosterFixture()}, nil, failingRenderer{}, nil)

	_, err := svc.Export(context.Background(), "csv")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
