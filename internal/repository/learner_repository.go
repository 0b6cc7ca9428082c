package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/learner-records-api/internal/models"
)

// LearnerReader exposes read access to learners and their course records.
type LearnerReader interface {
	ListLearners(ctx context.Context) ([]models.Learner, error)
	FindLearner(ctx context.Context, id string) (*models.Learner, error)
	FindLearnersByCondition(ctx context.Context, cond models.LearnerSearchCondition) ([]models.Learner, error)
	ListEnrollments(ctx context.Context) ([]models.Enrollment, error)
	FindEnrollmentsByLearner(ctx context.Context, learnerID string) ([]models.Enrollment, error)
	ListStatuses(ctx context.Context) ([]models.ApplicationStatus, error)
	FindStatusesByEnrollmentIDs(ctx context.Context, enrollmentIDs []string) ([]models.ApplicationStatus, error)
}

// LearnerWriter exposes the write operations used inside a transaction. Insert
// methods return the id assigned by the database.
type LearnerWriter interface {
	InsertLearner(ctx context.Context, learner models.Learner) (string, error)
	InsertEnrollment(ctx context.Context, enrollment models.Enrollment) (string, error)
	InsertStatus(ctx context.Context, status models.ApplicationStatus) (string, error)
	UpdateLearner(ctx context.Context, learner models.Learner) error
	UpdateEnrollment(ctx context.Context, enrollment models.Enrollment) error
	UpdateStatus(ctx context.Context, status models.ApplicationStatus) error
}

// QueryObserver receives timings for executed statements.
type QueryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

const (
	learnerColumns    = "id, name, kana_name, nickname, email, address, age, gender, remark, is_deleted"
	enrollmentColumns = "id, learner_id, course_name, course_start_at, course_end_at"
	statusColumns     = "id, enrollment_id, status"
)

// LearnerRepository persists learners, enrollments and application statuses.
// Queries use ? bindvars and are rebound for the active driver.
type LearnerRepository struct {
	db       *sqlx.DB
	ext      sqlx.ExtContext
	inTx     bool
	observer QueryObserver
}

// NewLearnerRepository constructs a LearnerRepository. observer may be nil.
func NewLearnerRepository(db *sqlx.DB, observer QueryObserver) *LearnerRepository {
	return &LearnerRepository{db: db, ext: db, observer: observer}
}

// WithinTx runs fn against a repository bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise, including
// on panic. Errors returned by fn are passed through unchanged.
func (r *LearnerRepository) WithinTx(ctx context.Context, fn func(tx LearnerWriter) error) (err error) {
	if r.inTx {
		return fn(r)
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin learner transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	bound := &LearnerRepository{db: r.db, ext: tx, inTx: true, observer: r.observer}
	if err = fn(bound); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit learner transaction: %w", err)
	}
	return nil
}

// ListLearners returns every learner ordered by id.
func (r *LearnerRepository) ListLearners(ctx context.Context) ([]models.Learner, error) {
	defer r.observe("list_learners", time.Now())
	query := "SELECT " + learnerColumns + " FROM learners ORDER BY id"
	learners := []models.Learner{}
	if err := sqlx.SelectContext(ctx, r.ext, &learners, query); err != nil {
		return nil, fmt.Errorf("list learners: %w", err)
	}
	return learners, nil
}

// FindLearner returns the learner with the given id, or nil when none exists.
func (r *LearnerRepository) FindLearner(ctx context.Context, id string) (*models.Learner, error) {
	defer r.observe("find_learner", time.Now())
	query := r.ext.Rebind("SELECT " + learnerColumns + " FROM learners WHERE id = ?")
	var learner models.Learner
	if err := sqlx.GetContext(ctx, r.ext, &learner, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find learner: %w", err)
	}
	return &learner, nil
}

// FindLearnersByCondition returns learners matching every set field of cond.
// Text fields match case-insensitively on substrings; gender matches exactly.
func (r *LearnerRepository) FindLearnersByCondition(ctx context.Context, cond models.LearnerSearchCondition) ([]models.Learner, error) {
	defer r.observe("search_learners", time.Now())
	var conditions []string
	var args []interface{}

	like := func(column, value string) {
		if value == "" {
			return
		}
		conditions = append(conditions, fmt.Sprintf("LOWER(%s) LIKE ?", column))
		args = append(args, "%"+strings.ToLower(value)+"%")
	}
	like("name", cond.Name)
	like("kana_name", cond.KanaName)
	like("nickname", cond.Nickname)
	like("email", cond.Email)
	like("address", cond.Address)
	like("remark", cond.Remark)
	if cond.Gender != "" {
		conditions = append(conditions, "gender = ?")
		args = append(args, cond.Gender)
	}
	if cond.MinAge != nil {
		conditions = append(conditions, "age >= ?")
		args = append(args, *cond.MinAge)
	}
	if cond.MaxAge != nil {
		conditions = append(conditions, "age <= ?")
		args = append(args, *cond.MaxAge)
	}

	query := "SELECT " + learnerColumns + " FROM learners"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id"

	learners := []models.Learner{}
	if err := sqlx.SelectContext(ctx, r.ext, &learners, r.ext.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("search learners: %w", err)
	}
	return learners, nil
}

// ListEnrollments returns every enrollment ordered by id.
func (r *LearnerRepository) ListEnrollments(ctx context.Context) ([]models.Enrollment, error) {
	defer r.observe("list_enrollments", time.Now())
	query := "SELECT " + enrollmentColumns + " FROM enrollments ORDER BY id"
	enrollments := []models.Enrollment{}
	if err := sqlx.SelectContext(ctx, r.ext, &enrollments, query); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

// FindEnrollmentsByLearner returns the enrollments owned by a learner.
func (r *LearnerRepository) FindEnrollmentsByLearner(ctx context.Context, learnerID string) ([]models.Enrollment, error) {
	defer r.observe("find_learner_enrollments", time.Now())
	query := r.ext.Rebind("SELECT " + enrollmentColumns + " FROM enrollments WHERE learner_id = ? ORDER BY id")
	enrollments := []models.Enrollment{}
	if err := sqlx.SelectContext(ctx, r.ext, &enrollments, query, learnerID); err != nil {
		return nil, fmt.Errorf("find learner enrollments: %w", err)
	}
	return enrollments, nil
}

// ListStatuses returns every application status ordered by id.
func (r *LearnerRepository) ListStatuses(ctx context.Context) ([]models.ApplicationStatus, error) {
	defer r.observe("list_statuses", time.Now())
	query := "SELECT " + statusColumns + " FROM application_statuses ORDER BY id"
	statuses := []models.ApplicationStatus{}
	if err := sqlx.SelectContext(ctx, r.ext, &statuses, query); err != nil {
		return nil, fmt.Errorf("list application statuses: %w", err)
	}
	return statuses, nil
}

// FindStatusesByEnrollmentIDs returns statuses owned by any of the given
// enrollments. An empty id set yields an empty result without a query.
func (r *LearnerRepository) FindStatusesByEnrollmentIDs(ctx context.Context, enrollmentIDs []string) ([]models.ApplicationStatus, error) {
	ids := dedupeIDs(enrollmentIDs)
	if len(ids) == 0 {
		return []models.ApplicationStatus{}, nil
	}
	defer r.observe("find_enrollment_statuses", time.Now())
	query, args, err := sqlx.In("SELECT "+statusColumns+" FROM application_statuses WHERE enrollment_id IN (?) ORDER BY id", ids)
	if err != nil {
		return nil, fmt.Errorf("build status query: %w", err)
	}
	statuses := []models.ApplicationStatus{}
	if err := sqlx.SelectContext(ctx, r.ext, &statuses, r.ext.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("find enrollment statuses: %w", err)
	}
	return statuses, nil
}

// InsertLearner stores a new learner and returns its id.
func (r *LearnerRepository) InsertLearner(ctx context.Context, learner models.Learner) (string, error) {
	defer r.observe("insert_learner", time.Now())
	query := r.ext.Rebind(`INSERT INTO learners (name, kana_name, nickname, email, address, age, gender, remark, is_deleted)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	var id string
	if err := r.ext.QueryRowxContext(ctx, query,
		learner.Name, learner.KanaName, learner.Nickname, learner.Email, learner.Address,
		learner.Age, learner.Gender, learner.Remark, learner.IsDeleted,
	).Scan(&id); err != nil {
		return "", fmt.Errorf("insert learner: %w", err)
	}
	return id, nil
}

// InsertEnrollment stores a new enrollment and returns its id.
func (r *LearnerRepository) InsertEnrollment(ctx context.Context, enrollment models.Enrollment) (string, error) {
	defer r.observe("insert_enrollment", time.Now())
	query := r.ext.Rebind(`INSERT INTO enrollments (learner_id, course_name, course_start_at, course_end_at)
        VALUES (?, ?, ?, ?) RETURNING id`)
	var id string
	if err := r.ext.QueryRowxContext(ctx, query,
		enrollment.LearnerID, enrollment.CourseName, enrollment.CourseStartAt, enrollment.CourseEndAt,
	).Scan(&id); err != nil {
		return "", fmt.Errorf("insert enrollment: %w", err)
	}
	return id, nil
}

// InsertStatus stores a new application status and returns its id.
func (r *LearnerRepository) InsertStatus(ctx context.Context, status models.ApplicationStatus) (string, error) {
	defer r.observe("insert_status", time.Now())
	query := r.ext.Rebind(`INSERT INTO application_statuses (enrollment_id, status) VALUES (?, ?) RETURNING id`)
	var id string
	if err := r.ext.QueryRowxContext(ctx, query, status.EnrollmentID, string(status.Status)).Scan(&id); err != nil {
		return "", fmt.Errorf("insert application status: %w", err)
	}
	return id, nil
}

// UpdateLearner overwrites a learner's fields, including the soft-delete flag.
func (r *LearnerRepository) UpdateLearner(ctx context.Context, learner models.Learner) error {
	defer r.observe("update_learner", time.Now())
	query := r.ext.Rebind(`UPDATE learners SET name = ?, kana_name = ?, nickname = ?, email = ?, address = ?, age = ?, gender = ?, remark = ?, is_deleted = ?
        WHERE id = ?`)
	if _, err := r.ext.ExecContext(ctx, query,
		learner.Name, learner.KanaName, learner.Nickname, learner.Email, learner.Address,
		learner.Age, learner.Gender, learner.Remark, learner.IsDeleted, learner.ID,
	); err != nil {
		return fmt.Errorf("update learner: %w", err)
	}
	return nil
}

// UpdateEnrollment overwrites the course name of an enrollment.
func (r *LearnerRepository) UpdateEnrollment(ctx context.Context, enrollment models.Enrollment) error {
	defer r.observe("update_enrollment", time.Now())
	query := r.ext.Rebind(`UPDATE enrollments SET course_name = ? WHERE id = ?`)
	if _, err := r.ext.ExecContext(ctx, query, enrollment.CourseName, enrollment.ID); err != nil {
		return fmt.Errorf("update enrollment: %w", err)
	}
	return nil
}

// UpdateStatus overwrites the status value of an application status.
func (r *LearnerRepository) UpdateStatus(ctx context.Context, status models.ApplicationStatus) error {
	defer r.observe("update_status", time.Now())
	query := r.ext.Rebind(`UPDATE application_statuses SET status = ? WHERE id = ?`)
	if _, err := r.ext.ExecContext(ctx, query, string(status.Status), status.ID); err != nil {
		return fmt.Errorf("update application status: %w", err)
	}
	return nil
}

func (r *LearnerRepository) observe(label string, start time.Time) {
	if r.observer == nil {
		return
	}
	r.observer.ObserveDBQuery(label, time.Since(start))
}

func dedupeIDs(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
