package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/noah-isme/learner-records-api/internal/models"
	"github.com/noah-isme/learner-records-api/internal/repository"
	appErrors "github.com/noah-isme/learner-records-api/pkg/errors"
)

type learnerStore interface {
	repository.LearnerReader
	WithinTx(ctx context.Context, fn func(tx repository.LearnerWriter) error) error
}

type registrationRecorder interface {
	RecordLearnerRegistration(enrollments int)
}

// LearnerService implements the learner record use-cases: listing, lookup,
// search, registration and update.
type LearnerService struct {
	store   learnerStore
	logger  *zap.Logger
	tracer  trace.Tracer
	now     func() time.Time
	metrics registrationRecorder
}

// LearnerServiceOption configures the service.
type LearnerServiceOption func(*LearnerService)

// WithLearnerClock overrides the clock used to stamp new enrollments.
func WithLearnerClock(now func() time.Time) LearnerServiceOption {
	return func(s *LearnerService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLearnerMetrics records successful registrations.
func WithLearnerMetrics(metrics registrationRecorder) LearnerServiceOption {
	return func(s *LearnerService) {
		s.metrics = metrics
	}
}

// NewLearnerService constructs the learner service.
func NewLearnerService(store learnerStore, logger *zap.Logger, opts ...LearnerServiceOption) *LearnerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &LearnerService{
		store:  store,
		logger: logger,
		tracer: otel.Tracer("github.com/noah-isme/learner-records-api/internal/service"),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// List returns a detail for every learner.
func (s *LearnerService) List(ctx context.Context) (_ []models.LearnerDetail, err error) {
	ctx, span := s.tracer.Start(ctx, "learner.List")
	defer func() { endSpan(span, err) }()

	learners, err := s.store.ListLearners(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list learners")
	}
	return s.assemble(ctx, learners)
}

// Get returns the detail of a single learner.
func (s *LearnerService) Get(ctx context.Context, id string) (_ *models.LearnerDetail, err error) {
	ctx, span := s.tracer.Start(ctx, "learner.Get", trace.WithAttributes(attribute.String("learner.id", id)))
	defer func() { endSpan(span, err) }()

	learner, err := s.store.FindLearner(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load learner")
	}
	if learner == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("learner not found (id: %s)", id))
	}

	enrollments, err := s.store.FindEnrollmentsByLearner(ctx, learner.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	enrollmentIDs := make([]string, 0, len(enrollments))
	seen := make(map[string]struct{}, len(enrollments))
	for _, enrollment := range enrollments {
		if _, ok := seen[enrollment.ID]; ok {
			continue
		}
		seen[enrollment.ID] = struct{}{}
		enrollmentIDs = append(enrollmentIDs, enrollment.ID)
	}
	statuses, err := s.store.FindStatusesByEnrollmentIDs(ctx, enrollmentIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application statuses")
	}

	return &models.LearnerDetail{
		Learner:     *learner,
		Enrollments: nonNilEnrollments(enrollments),
		Statuses:    nonNilStatuses(statuses),
	}, nil
}

// Search returns details for learners matching cond. The details are joined
// against all enrollments and statuses, exactly like List.
func (s *LearnerService) Search(ctx context.Context, cond models.LearnerSearchCondition) (_ []models.LearnerDetail, err error) {
	ctx, span := s.tracer.Start(ctx, "learner.Search")
	defer func() { endSpan(span, err) }()

	learners, err := s.store.FindLearnersByCondition(ctx, cond)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search learners")
	}
	if len(learners) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no learners match condition (%s)", cond.String()))
	}
	return s.assemble(ctx, learners)
}

// Register stores a new learner with its enrollments in one transaction. Each
// enrollment runs for a year from now and gets a provisional application
// status. detail is updated in place with the assigned ids and returned.
func (s *LearnerService) Register(ctx context.Context, detail *models.LearnerDetail) (_ *models.LearnerDetail, err error) {
	ctx, span := s.tracer.Start(ctx, "learner.Register")
	defer func() { endSpan(span, err) }()

	if detail == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "learner detail is required")
	}

	statuses := []models.ApplicationStatus{}
	err = s.store.WithinTx(ctx, func(tx repository.LearnerWriter) error {
		learnerID, err := tx.InsertLearner(ctx, detail.Learner)
		if err != nil {
			return err
		}
		detail.Learner.ID = learnerID

		for i := range detail.Enrollments {
			enrollment := &detail.Enrollments[i]
			s.initEnrollment(enrollment, learnerID)
			enrollmentID, err := tx.InsertEnrollment(ctx, *enrollment)
			if err != nil {
				return err
			}
			enrollment.ID = enrollmentID
		}

		for _, enrollment := range detail.Enrollments {
			status := models.ApplicationStatus{EnrollmentID: enrollment.ID, Status: models.ApplicationStatusProvisional}
			statusID, err := tx.InsertStatus(ctx, status)
			if err != nil {
				return err
			}
			status.ID = statusID
			statuses = append(statuses, status)
		}
		return nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register learner")
	}

	if detail.Enrollments == nil {
		detail.Enrollments = []models.Enrollment{}
	}
	detail.Statuses = statuses
	if s.metrics != nil {
		s.metrics.RecordLearnerRegistration(len(detail.Enrollments))
	}
	span.SetAttributes(attribute.String("learner.id", detail.Learner.ID))
	s.logger.Info("learner registered",
		zap.String("learner_id", detail.Learner.ID),
		zap.Int("enrollments", len(detail.Enrollments)),
	)
	return detail, nil
}

// Update persists the learner, then each enrollment, then each application
// status, in one transaction. Status values are stored as given.
func (s *LearnerService) Update(ctx context.Context, detail *models.LearnerDetail) (err error) {
	ctx, span := s.tracer.Start(ctx, "learner.Update")
	defer func() { endSpan(span, err) }()

	if detail == nil {
		return appErrors.Clone(appErrors.ErrValidation, "learner detail is required")
	}
	span.SetAttributes(attribute.String("learner.id", detail.Learner.ID))

	err = s.store.WithinTx(ctx, func(tx repository.LearnerWriter) error {
		if err := tx.UpdateLearner(ctx, detail.Learner); err != nil {
			return err
		}
		for _, enrollment := range detail.Enrollments {
			if err := tx.UpdateEnrollment(ctx, enrollment); err != nil {
				return err
			}
		}
		for _, status := range detail.Statuses {
			if err := tx.UpdateStatus(ctx, status); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update learner")
	}

	s.logger.Info("learner updated",
		zap.String("learner_id", detail.Learner.ID),
		zap.Int("enrollments", len(detail.Enrollments)),
		zap.Int("statuses", len(detail.Statuses)),
	)
	return nil
}

func (s *LearnerService) assemble(ctx context.Context, learners []models.Learner) ([]models.LearnerDetail, error) {
	enrollments, err := s.store.ListEnrollments(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	statuses, err := s.store.ListStatuses(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list application statuses")
	}
	return BuildLearnerDetails(learners, enrollments, statuses), nil
}

func (s *LearnerService) initEnrollment(enrollment *models.Enrollment, learnerID string) {
	start := s.now()
	enrollment.LearnerID = learnerID
	enrollment.CourseStartAt = start
	enrollment.CourseEndAt = start.AddDate(1, 0, 0)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func nonNilEnrollments(enrollments []models.Enrollment) []models.Enrollment {
	if enrollments == nil {
		return []models.Enrollment{}
	}
	return enrollments
}

func nonNilStatuses(statuses []models.ApplicationStatus) []models.ApplicationStatus {
	if statuses == nil {
		return []models.ApplicationStatus{}
	}
	return statuses
}
