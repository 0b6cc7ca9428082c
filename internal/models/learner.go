package models

import (
	"fmt"
	"strings"
	"time"
)

// Learner represents a person registered for courses.
type Learner struct {
	ID        string `db:"id" json:"id" validate:"omitempty,numeric"`
	Name      string `db:"name" json:"name" validate:"required"`
	KanaName  string `db:"kana_name" json:"kana_name" validate:"required"`
	Nickname  string `db:"nickname" json:"nickname" validate:"required"`
	Email     string `db:"email" json:"email" validate:"required,email"`
	Address   string `db:"address" json:"address" validate:"required"`
	Age       int    `db:"age" json:"age" validate:"gte=0"`
	Gender    string `db:"gender" json:"gender" validate:"required"`
	Remark    string `db:"remark" json:"remark"`
	IsDeleted bool   `db:"is_deleted" json:"is_deleted"`
}

// Enrollment is a course registration owned by a learner.
type Enrollment struct {
	ID            string    `db:"id" json:"id" validate:"omitempty,numeric"`
	LearnerID     string    `db:"learner_id" json:"learner_id" validate:"omitempty,numeric"`
	CourseName    string    `db:"course_name" json:"course_name" validate:"required"`
	CourseStartAt time.Time `db:"course_start_at" json:"course_start_at"`
	CourseEndAt   time.Time `db:"course_end_at" json:"course_end_at"`
}

// ApplicationStatusValue is a step in the admission progression.
type ApplicationStatusValue string

// Admission progression, in order. Transitions are not enforced here.
const (
	ApplicationStatusProvisional ApplicationStatusValue = "provisional"
	ApplicationStatusConfirmed   ApplicationStatusValue = "confirmed"
	ApplicationStatusInProgress  ApplicationStatusValue = "in_progress"
	ApplicationStatusCompleted   ApplicationStatusValue = "completed"
)

// ApplicationStatus tracks admission progress for an enrollment.
type ApplicationStatus struct {
	ID           string                 `db:"id" json:"id" validate:"omitempty,numeric"`
	EnrollmentID string                 `db:"enrollment_id" json:"enrollment_id" validate:"omitempty,numeric"`
	Status       ApplicationStatusValue `db:"status" json:"status" validate:"required"`
}

// LearnerDetail joins a learner with its enrollments and their statuses. It is
// assembled at read time and never stored.
type LearnerDetail struct {
	Learner     Learner             `json:"learner"`
	Enrollments []Enrollment        `json:"enrollments" validate:"dive"`
	Statuses    []ApplicationStatus `json:"statuses" validate:"dive"`
}

// LearnerSearchCondition filters learners. Unset fields match everything.
type LearnerSearchCondition struct {
	Name     string `json:"name"`
	KanaName string `json:"kana_name"`
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
	Address  string `json:"address"`
	MinAge   *int   `json:"min_age" validate:"omitempty,gte=0"`
	MaxAge   *int   `json:"max_age" validate:"omitempty,gte=0"`
	Gender   string `json:"gender"`
	Remark   string `json:"remark"`
}

// IsEmpty reports whether no field constrains the search.
func (c LearnerSearchCondition) IsEmpty() bool {
	return c.Name == "" && c.KanaName == "" && c.Nickname == "" && c.Email == "" &&
		c.Address == "" && c.MinAge == nil && c.MaxAge == nil && c.Gender == "" && c.Remark == ""
}

// String renders every field so error messages echo the condition verbatim.
func (c LearnerSearchCondition) String() string {
	parts := []string{
		"name=" + c.Name,
		"kana_name=" + c.KanaName,
		"nickname=" + c.Nickname,
		"email=" + c.Email,
		"address=" + c.Address,
		"min_age=" + formatOptionalInt(c.MinAge),
		"max_age=" + formatOptionalInt(c.MaxAge),
		"gender=" + c.Gender,
		"remark=" + c.Remark,
	}
	return "LearnerSearchCondition{" + strings.Join(parts, ", ") + "}"
}

func formatOptionalInt(v *int) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%d", *v)
}
