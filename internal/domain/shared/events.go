// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each event represents something significant that
// happened to a session or a tutor's availability.
const (
	// Session lifecycle events
	EventSessionRequested   EventType = "session.requested"
	EventSessionScheduled   EventType = "session.scheduled"
	EventSessionStarted     EventType = "session.started"
	EventSessionCompleted   EventType = "session.completed"
	EventSessionCancelled   EventType = "session.cancelled"
	EventSessionNoShow      EventType = "session.no_show"
	EventSessionRescheduled EventType = "session.rescheduled"

	// Availability events
	EventTimeSlotCreated EventType = "timeslot.created"
	EventTimeSlotUpdated EventType = "timeslot.updated"
	EventTimeSlotRemoved EventType = "timeslot.removed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// EventPublisher publishes domain events. Publishing is best-effort: command
// handlers never fail a request because an event could not be delivered.
type EventPublisher interface {
	Publish(event Event) error
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// NewBaseEvent creates a base event stamped with the current UTC time.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
	}
}

// EventType returns the type of the event.
func (e BaseEvent) EventType() EventType { return e.Type }

// OccurredAt returns when the event occurred.
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// AggregateID returns the ID of the aggregate that produced this event.
func (e BaseEvent) AggregateID() string { return e.AggregateId }

// WithCorrelationID attaches a correlation id for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSION EVENTS
// ══════════════════════════════════════════════════════════════════════════════

// SessionEvent is emitted on every session lifecycle transition.
type SessionEvent struct {
	BaseEvent
	SessionID   string    `json:"session_id"`
	StudentID   string    `json:"student_id"`
	TutorID     string    `json:"tutor_id"`
	CourseID    string    `json:"course_id"`
	Status      string    `json:"status"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Duration    int       `json:"duration_minutes"`
}

// Payload returns the event data as a map for serialization.
func (e SessionEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"session_id":       e.SessionID,
		"student_id":       e.StudentID,
		"tutor_id":         e.TutorID,
		"course_id":        e.CourseID,
		"status":           e.Status,
		"scheduled_at":     e.ScheduledAt,
		"duration_minutes": e.Duration,
	}
}

// NewSessionEvent creates a session lifecycle event.
func NewSessionEvent(eventType EventType, sessionID, studentID, tutorID, courseID, status string, scheduledAt time.Time, duration int) SessionEvent {
	return SessionEvent{
		BaseEvent:   NewBaseEvent(eventType, sessionID),
		SessionID:   sessionID,
		StudentID:   studentID,
		TutorID:     tutorID,
		CourseID:    courseID,
		Status:      status,
		ScheduledAt: scheduledAt,
		Duration:    duration,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// TIME SLOT EVENTS
// ══════════════════════════════════════════════════════════════════════════════

// TimeSlotEvent is emitted when a tutor's availability changes.
type TimeSlotEvent struct {
	BaseEvent
	SlotID    string `json:"slot_id"`
	TutorID   string `json:"tutor_id"`
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// Payload returns the event data as a map for serialization.
func (e TimeSlotEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"slot_id":     e.SlotID,
		"tutor_id":    e.TutorID,
		"day_of_week": e.DayOfWeek,
		"start_time":  e.StartTime,
		"end_time":    e.EndTime,
	}
}

// NewTimeSlotEvent creates an availability change event.
func NewTimeSlotEvent(eventType EventType, slotID, tutorID string, dayOfWeek int, startTime, endTime string) TimeSlotEvent {
	return TimeSlotEvent{
		BaseEvent: NewBaseEvent(eventType, slotID),
		SlotID:    slotID,
		TutorID:   tutorID,
		DayOfWeek: dayOfWeek,
		StartTime: startTime,
		EndTime:   endTime,
	}
}

// NopPublisher discards all events. Useful for tests and for running the
// core without an event pipeline attached.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(Event) error { return nil }
