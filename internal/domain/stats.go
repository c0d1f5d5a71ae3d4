package domain

import "context"

// EventStatSummary is the derived statistics view for one event.
// swagger:model EventStatSummary
type EventStatSummary struct {
	EventID        string  `json:"event_id"`
	EventTitle     string  `json:"event_title"`
	TotalAttendees int     `json:"total_attendees"`
	CheckedIn      int     `json:"checked_in"`
	AttendanceRate float64 `json:"attendance_rate"`
	TotalRevenue   float64 `json:"total_revenue"`
	TicketsSold    int     `json:"tickets_sold"`
}

// StatsService computes read-only statistics over registrations.
type StatsService interface {
	// EventStats returns summaries ordered by total attendees descending, then event ID.
	// An empty eventID covers every event with registrations that the actor manages.
	EventStats(ctx context.Context, actor Identity, eventID string) ([]*EventStatSummary, error)
}
