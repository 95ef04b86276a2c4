package scheduling

import (
	"context"
	"fmt"

	"github.com/tutorhub/tutorhub-scheduling/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// TUTOR ASSIGNMENT
// Which tutor teaches a course is decided outside this core (course catalog).
// The policy below turns the raw assignment list into one tutor to schedule
// against, keeping the selection rule an explicit, replaceable decision.
// ══════════════════════════════════════════════════════════════════════════════

// AssignmentLookup resolves the tutors eligible to teach a course.
// Implementations live in infrastructure/external.
type AssignmentLookup interface {
	// GetTutorsForCourse returns the tutor ids assigned to a course, in the
	// catalog's order. An unknown course yields an empty list, not an error.
	GetTutorsForCourse(ctx context.Context, courseID shared.CourseID) ([]shared.TutorID, error)
}

// TutorAssignmentPolicy selects the tutor a session is scheduled with.
type TutorAssignmentPolicy interface {
	// ResolveTutor picks a tutor for the course. When requested is non-nil,
	// the requested tutor must be among the course's assignments.
	// Returns shared.ErrNotFound when the course has no eligible tutor.
	ResolveTutor(ctx context.Context, courseID shared.CourseID, requested *shared.TutorID) (shared.TutorID, error)

	// EligibleTutors returns the tutors availability search may consider,
	// honoring an optional requested tutor. An empty result is not an
	// error: the search simply finds nothing.
	EligibleTutors(ctx context.Context, courseID shared.CourseID, requested *shared.TutorID) ([]shared.TutorID, error)
}

// FirstAssignedPolicy takes the first tutor the catalog lists for a course
// when none is requested. This encodes the single-tutor-per-course
// assumption of the current product; a load-balancing or rating-based
// policy can replace it without touching the orchestrator.
type FirstAssignedPolicy struct {
	lookup AssignmentLookup
}

// NewFirstAssignedPolicy creates the default assignment policy.
func NewFirstAssignedPolicy(lookup AssignmentLookup) *FirstAssignedPolicy {
	return &FirstAssignedPolicy{lookup: lookup}
}

// ResolveTutor implements TutorAssignmentPolicy.
func (p *FirstAssignedPolicy) ResolveTutor(ctx context.Context, courseID shared.CourseID, requested *shared.TutorID) (shared.TutorID, error) {
	tutors, err := p.lookup.GetTutorsForCourse(ctx, courseID)
	if err != nil {
		return "", fmt.Errorf("assignment policy: lookup tutors for course %s: %w", courseID, err)
	}
	if len(tutors) == 0 {
		return "", shared.NewDomainError("scheduling", "ResolveTutor", shared.ErrNotFound,
			"no tutor assigned to course")
	}
	if requested == nil {
		return tutors[0], nil
	}
	for _, t := range tutors {
		if t == *requested {
			return t, nil
		}
	}
	return "", shared.NewDomainError("scheduling", "ResolveTutor", shared.ErrNotFound,
		"requested tutor is not assigned to course")
}

// EligibleTutors implements TutorAssignmentPolicy.
func (p *FirstAssignedPolicy) EligibleTutors(ctx context.Context, courseID shared.CourseID, requested *shared.TutorID) ([]shared.TutorID, error) {
	tutors, err := p.lookup.GetTutorsForCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("assignment policy: lookup tutors for course %s: %w", courseID, err)
	}
	if requested == nil {
		return tutors, nil
	}
	for _, t := range tutors {
		if t == *requested {
			return []shared.TutorID{t}, nil
		}
	}
	// Requested tutor not assigned to the course: the read-only search
	// treats this as "nothing available", not as an error.
	return nil, nil
}
