package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/league/internal/league/domain"
	"github.com/aussiebroadwan/league/internal/league/store"
	"github.com/aussiebroadwan/league/pkg/idx"
	"github.com/aussiebroadwan/league/pkg/slogx"
)

// NewEvent describes an event or clinic to create.
type NewEvent struct {
	Title    string
	StartsAt time.Time
	Capacity *int
	ParentID string
}

type EventService struct {
	Store store.Store
	Clock Clock
}

// Create validates and stores an event. Clinics hang off a top level event;
// clinics of clinics are rejected.
func (s *EventService) Create(ctx context.Context, in NewEvent) (domain.Event, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return domain.Event{}, fmt.Errorf("%w: title", ErrInvalidInput)
	}
	if in.StartsAt.IsZero() {
		return domain.Event{}, fmt.Errorf("%w: starts_at", ErrInvalidInput)
	}
	if in.Capacity != nil && *in.Capacity < 0 {
		return domain.Event{}, fmt.Errorf("%w: capacity", ErrInvalidInput)
	}

	if in.ParentID != "" {
		parent, err := s.Store.Events().GetEvent(ctx, in.ParentID)
		if errors.Is(err, store.ErrNotFound) {
			return domain.Event{}, fmt.Errorf("%w: %s", ErrReferentMissing, in.ParentID)
		}
		if err != nil {
			return domain.Event{}, err
		}
		if parent.IsClinic() {
			return domain.Event{}, fmt.Errorf("%w: parent is a clinic", ErrInvalidInput)
		}
	}

	now := s.Clock.now()
	e := domain.Event{
		ID:        idx.NewAt(now).String(),
		ParentID:  in.ParentID,
		Title:     in.Title,
		StartsAt:  in.StartsAt.UTC(),
		Capacity:  in.Capacity,
		CreatedAt: now,
	}
	if err := s.Store.Events().CreateEvent(ctx, e); err != nil {
		return domain.Event{}, err
	}
	slogx.FromContext(ctx).Info("event created", slog.String("event_id", e.ID), slog.String("parent_id", e.ParentID))
	return e, nil
}

// Get fetches an event, ErrReferentMissing when it does not exist.
func (s *EventService) Get(ctx context.Context, id string) (domain.Event, error) {
	e, err := s.Store.Events().GetEvent(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Event{}, fmt.Errorf("%w: %s", ErrReferentMissing, id)
	}
	return e, err
}

// Clinics lists the clinics of an event.
func (s *EventService) Clinics(ctx context.Context, eventID string) ([]domain.Event, error) {
	return s.Store.Events().ListClinics(ctx, eventID)
}

// Attending lists the events memberID is attending.
func (s *EventService) Attending(ctx context.Context, memberID string) ([]domain.Event, error) {
	rsvps, err := s.Store.RSVPs().ListAttending(ctx, memberID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Event, 0, len(rsvps))
	for _, r := range rsvps {
		e, err := s.Store.Events().GetEvent(ctx, r.EventID)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
