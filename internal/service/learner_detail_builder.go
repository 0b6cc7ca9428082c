package service

import (
	"sort"

	"github.com/noah-isme/learner-records-api/internal/models"
)

// BuildLearnerDetails joins flat learner, enrollment and status lists into one
// detail per learner, preserving learner order. Enrollments are matched on
// learner id and statuses on the ids of the matched enrollments; children
// without a matching parent are dropped.
func BuildLearnerDetails(learners []models.Learner, enrollments []models.Enrollment, statuses []models.ApplicationStatus) []models.LearnerDetail {
	enrollmentsByLearner := make(map[string][]models.Enrollment, len(learners))
	for _, enrollment := range enrollments {
		enrollmentsByLearner[enrollment.LearnerID] = append(enrollmentsByLearner[enrollment.LearnerID], enrollment)
	}

	// Statuses keep their global input order, so index positions rather than
	// values and merge per learner below.
	statusPositions := make(map[string][]int, len(enrollments))
	for i, status := range statuses {
		statusPositions[status.EnrollmentID] = append(statusPositions[status.EnrollmentID], i)
	}

	details := make([]models.LearnerDetail, 0, len(learners))
	for _, learner := range learners {
		owned := enrollmentsByLearner[learner.ID]
		detail := models.LearnerDetail{
			Learner:     learner,
			Enrollments: make([]models.Enrollment, 0, len(owned)),
			Statuses:    []models.ApplicationStatus{},
		}
		detail.Enrollments = append(detail.Enrollments, owned...)
		detail.Statuses = collectStatuses(owned, statusPositions, statuses)
		details = append(details, detail)
	}
	return details
}

// collectStatuses returns the statuses owned by any of the given enrollments in
// their original relative order.
func collectStatuses(owned []models.Enrollment, positions map[string][]int, statuses []models.ApplicationStatus) []models.ApplicationStatus {
	if len(owned) == 0 || len(statuses) == 0 {
		return []models.ApplicationStatus{}
	}
	seen := make(map[string]struct{}, len(owned))
	var picked []int
	for _, enrollment := range owned {
		if _, dup := seen[enrollment.ID]; dup {
			continue
		}
		seen[enrollment.ID] = struct{}{}
		picked = append(picked, positions[enrollment.ID]...)
	}
	sort.Ints(picked)
	result := make([]models.ApplicationStatus, 0, len(picked))
	for _, idx := range picked {
		result = append(result, statuses[idx])
	}
	return result
}
