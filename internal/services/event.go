package services

import (
	"context"
	"strings"
	"time"

	"eventhub/internal/domain"
)

type eventService struct {
	eventRepo      domain.EventRepository
	contextTimeout time.Duration
}

func NewEventService(eventRepo domain.EventRepository, timeout time.Duration) domain.EventService {
	return &eventService{
		eventRepo:      eventRepo,
		contextTimeout: timeout,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, actor domain.Identity, in domain.CreateEventInput) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !actor.CanManage() {
		return nil, domain.ErrNotPermitted
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, domain.InvalidInput("title is required")
	}
	if len(in.Tiers) == 0 {
		return nil, domain.InvalidInput("at least one ticket tier is required")
	}
	seen := make(map[string]struct{}, len(in.Tiers))
	for i := range in.Tiers {
		t := &in.Tiers[i]
		t.Name = strings.TrimSpace(t.Name)
		if t.Name == "" {
			return nil, domain.InvalidInput("tiers[%d]: name is required", i)
		}
		if _, dup := seen[strings.ToLower(t.Name)]; dup {
			return nil, domain.InvalidInput("tiers[%d]: duplicate tier name %q", i, t.Name)
		}
		seen[strings.ToLower(t.Name)] = struct{}{}
		if t.Capacity < 0 {
			return nil, domain.InvalidInput("tiers[%d]: capacity must not be negative", i)
		}
		if t.Price < 0 {
			return nil, domain.InvalidInput("tiers[%d]: price must not be negative", i)
		}
		if t.SalesStart != nil && t.SalesEnd != nil && t.SalesEnd.Before(*t.SalesStart) {
			return nil, domain.InvalidInput("tiers[%d]: sales_end is before sales_start", i)
		}
	}

	now := time.Now()
	event := domain.NewEvent(title, in.Date, actor.UserID, in.Tiers, now, now)
	event.Description = in.Description
	if in.Tags != nil {
		event.Tags = deriveTags(in.Tags)
	}

	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, storageError(ctx, "create event", err)
	}
	return event, nil
}

func (s *eventService) GetEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, storageError(ctx, "get event", err)
	}
	return event, nil
}

func (s *eventService) ListEvents(ctx context.Context, p domain.PaginationParams) ([]*domain.Event, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	events, total, err := s.eventRepo.List(ctx, p)
	if err != nil {
		return nil, 0, storageError(ctx, "list events", err)
	}
	if events == nil {
		events = []*domain.Event{}
	}
	return events, total, nil
}

// deriveTags trims, lowercases and dedupes tags, keeping first-seen order.
func deriveTags(tags []string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

