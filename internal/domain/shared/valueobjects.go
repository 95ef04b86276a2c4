// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"regexp"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// All identities are UUIDs in string form. The scheduling core never mints
// foreign ids (students, tutors, courses come from the outside); it only
// validates their shape.
// ═══════════════════════════════════════════════════════════════════════════

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

func isUUID(s string) bool {
	return uuidRegex.MatchString(s)
}

// StudentID identifies the student requesting a session.
type StudentID string

// IsValid checks if the student ID is a valid UUID.
func (s StudentID) IsValid() bool { return isUUID(string(s)) }

// String returns the string representation.
func (s StudentID) String() string { return string(s) }

// IsEmpty checks if the ID is empty.
func (s StudentID) IsEmpty() bool { return s == "" }

// NewStudentID creates a StudentID with validation.
func NewStudentID(id string) (StudentID, error) {
	v := StudentID(strings.TrimSpace(id))
	if !v.IsValid() {
		return "", WrapError("shared", "NewStudentID", ErrInvalidID, "student id must be a UUID", nil)
	}
	return v, nil
}

// TutorID identifies the tutor owning time slots and sessions.
type TutorID string

// IsValid checks if the tutor ID is a valid UUID.
func (t TutorID) IsValid() bool { return isUUID(string(t)) }

// String returns the string representation.
func (t TutorID) String() string { return string(t) }

// IsEmpty checks if the ID is empty.
func (t TutorID) IsEmpty() bool { return t == "" }

// NewTutorID creates a TutorID with validation.
func NewTutorID(id string) (TutorID, error) {
	v := TutorID(strings.TrimSpace(id))
	if !v.IsValid() {
		return "", WrapError("shared", "NewTutorID", ErrInvalidID, "tutor id must be a UUID", nil)
	}
	return v, nil
}

// CourseID identifies the course a session is requested for.
type CourseID string

// IsValid checks if the course ID is a valid UUID.
func (c CourseID) IsValid() bool { return isUUID(string(c)) }

// String returns the string representation.
func (c CourseID) String() string { return string(c) }

// IsEmpty checks if the ID is empty.
func (c CourseID) IsEmpty() bool { return c == "" }

// NewCourseID creates a CourseID with validation.
func NewCourseID(id string) (CourseID, error) {
	v := CourseID(strings.TrimSpace(id))
	if !v.IsValid() {
		return "", WrapError("shared", "NewCourseID", ErrInvalidID, "course id must be a UUID", nil)
	}
	return v, nil
}

// SessionID identifies a tutoring session.
type SessionID string

// IsValid checks if the session ID is a valid UUID.
func (s SessionID) IsValid() bool { return isUUID(string(s)) }

// String returns the string representation.
func (s SessionID) String() string { return string(s) }

// IsEmpty checks if the ID is empty.
func (s SessionID) IsEmpty() bool { return s == "" }

// SlotID identifies a tutor's recurring availability slot.
type SlotID string

// IsValid checks if the slot ID is a valid UUID.
func (s SlotID) IsValid() bool { return isUUID(string(s)) }

// String returns the string representation.
func (s SlotID) String() string { return string(s) }

// IsEmpty checks if the ID is empty.
func (s SlotID) IsEmpty() bool { return s == "" }
