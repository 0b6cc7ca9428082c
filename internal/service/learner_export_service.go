package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/learner-records-api/internal/models"
	appErrors "github.com/noah-isme/learner-records-api/pkg/errors"
	"github.com/noah-isme/learner-records-api/pkg/export"
)

// Supported roster export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

var rosterHeaders = []string{"learner_id", "name", "kana_name", "email", "course", "status", "course_start", "course_end"}

type learnerLister interface {
	List(ctx context.Context) ([]models.LearnerDetail, error)
}

// ExportResult is a rendered roster ready to be sent to the client.
type ExportResult struct {
	Content     []byte
	ContentType string
	FileName    string
}

// LearnerExportService renders the learner roster as CSV or PDF.
type LearnerExportService struct {
	learners  learnerLister
	renderers map[string]export.Renderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewLearnerExportService constructs a LearnerExportService. Nil renderers fall
// back to the default CSV and PDF exporters.
func NewLearnerExportService(learners learnerLister, logger *zap.Logger, csv, pdf export.Renderer) *LearnerExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &LearnerExportService{
		learners:  learners,
		renderers: map[string]export.Renderer{ExportFormatCSV: csv, ExportFormatPDF: pdf},
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Export renders every learner detail in the requested format. Each row is one
// enrollment; learners without enrollments get a single row with empty course
// columns.
func (s *LearnerExportService) Export(ctx context.Context, format string) (*ExportResult, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	details, err := s.learners.List(ctx)
	if err != nil {
		return nil, err
	}
	dataset := buildRosterDataset(details)
	content, err := renderer.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}
	s.logger.Debug("learner roster exported", zap.String("format", format), zap.Int("rows", len(dataset.Rows)))
	return &ExportResult{
		Content:     content,
		ContentType: renderer.ContentType(),
		FileName:    fmt.Sprintf("learners-%s.%s", s.now().Format("20060102"), renderer.Extension()),
	}, nil
}

func buildRosterDataset(details []models.LearnerDetail) export.Dataset {
	rows := make([]map[string]string, 0, len(details))
	for _, detail := range details {
		base := map[string]string{
			"learner_id": detail.Learner.ID,
			"name":       detail.Learner.Name,
			"kana_name":  detail.Learner.KanaName,
			"email":      detail.Learner.Email,
		}
		if len(detail.Enrollments) == 0 {
			rows = append(rows, base)
			continue
		}
		statusByEnrollment := make(map[string][]string, len(detail.Statuses))
		for _, status := range detail.Statuses {
			statusByEnrollment[status.EnrollmentID] = append(statusByEnrollment[status.EnrollmentID], string(status.Status))
		}
		for _, enrollment := range detail.Enrollments {
			row := make(map[string]string, len(rosterHeaders))
			for k, v := range base {
				row[k] = v
			}
			row["course"] = enrollment.CourseName
			row["status"] = strings.Join(statusByEnrollment[enrollment.ID], "/")
			row["course_start"] = formatDate(enrollment.CourseStartAt)
			row["course_end"] = formatDate(enrollment.CourseEndAt)
			rows = append(rows, row)
		}
	}
	return export.Dataset{Title: "Learner roster", Headers: rosterHeaders, Rows: rows}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
