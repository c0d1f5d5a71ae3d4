package services

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"eventhub/internal/domain"
)

type statsService struct {
	eventRepo        domain.EventRepository
	registrationRepo domain.RegistrationRepository
	contextTimeout   time.Duration
}

// NewStatsService creates the statistics aggregator over registrations and the event catalog.
func NewStatsService(eventRepo domain.EventRepository, registrationRepo domain.RegistrationRepository, timeout time.Duration) domain.StatsService {
	return &statsService{
		eventRepo:        eventRepo,
		registrationRepo: registrationRepo,
		contextTimeout:   timeout,
	}
}

// EventStats reports on one event or, with an empty eventID, on every event the actor
// manages: all events for admins and their own events for organizers.
func (s *statsService) EventStats(ctx context.Context, actor domain.Identity, eventID string) ([]*domain.EventStatSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !actor.CanManage() {
		return nil, domain.ErrNotPermitted
	}

	events := make(map[string]*domain.Event)
	if eventID != "" {
		event, err := s.eventRepo.GetByID(ctx, eventID)
		if err != nil {
			return nil, storageError(ctx, "get event", err)
		}
		if !canManageEvent(actor, event) {
			return nil, domain.ErrNotPermitted
		}
		events[event.ID] = event
	}

	tallies, err := s.registrationRepo.TallyByEvent(ctx, eventID)
	if err != nil {
		return nil, storageError(ctx, "tally registrations", err)
	}
	if eventID != "" && len(tallies) == 0 {
		tallies = []*domain.RegistrationTally{{EventID: eventID}}
	}

	out := make([]*domain.EventStatSummary, 0, len(tallies))
	for _, t := range tallies {
		event, ok := events[t.EventID]
		if !ok {
			event, err = s.eventRepo.GetByID(ctx, t.EventID)
			switch {
			case err == nil:
			case errors.Is(err, domain.ErrNotFound):
				// Registrations outlived their event.
				event = nil
			default:
				return nil, storageError(ctx, "get event", err)
			}
			events[t.EventID] = event
		}
		if event == nil {
			if actor.Role == domain.RoleAdmin {
				out = append(out, summarize(t, ""))
			}
			continue
		}
		if !canManageEvent(actor, event) {
			continue
		}
		out = append(out, summarize(t, event.Title))
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalAttendees != out[j].TotalAttendees {
			return out[i].TotalAttendees > out[j].TotalAttendees
		}
		return out[i].EventID < out[j].EventID
	})
	return out, nil
}

func summarize(t *domain.RegistrationTally, title string) *domain.EventStatSummary {
	return &domain.EventStatSummary{
		EventID:        t.EventID,
		EventTitle:     title,
		TotalAttendees: t.TotalAttendees,
		CheckedIn:      t.CheckedIn,
		AttendanceRate: attendanceRate(t.CheckedIn, t.TotalAttendees),
		TotalRevenue:   math.Round(t.TotalRevenue*100) / 100,
		TicketsSold:    t.TicketsSold,
	}
}

// attendanceRate is checkedIn/total as a percentage rounded to two places, and 0 when total is 0.
func attendanceRate(checkedIn, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(checkedIn)/float64(total)*10000) / 100
}
