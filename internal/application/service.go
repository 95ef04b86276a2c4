// Package application bundles the scheduling core's use cases behind one
// facade. The core carries no transport of its own; an embedding host hands
// out the facade's handlers to whatever surface it runs.
package application

import (
	"github.com/tutorhub/tutorhub-scheduling/internal/application/command"
	"github.com/tutorhub/tutorhub-scheduling/internal/application/query"
)

// Service is the assembled scheduling core.
type Service struct {
	// ScheduleSession requests and books new sessions.
	ScheduleSession *command.ScheduleSessionHandler

	// Lifecycle drives confirmed sessions through their state machine.
	Lifecycle *command.SessionLifecycleHandler

	// TimeSlots manages tutors' availability windows.
	TimeSlots *command.TimeSlotHandler

	// OpenTimes searches bookable start times.
	OpenTimes *query.FindOpenTimesHandler

	// Sessions reads session listings and stats.
	Sessions *query.GetSessionsHandler

	// Slots reads availability listings.
	Slots *query.GetSlotsHandler
}
