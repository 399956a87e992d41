package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/league/internal/league/domain"
	"github.com/aussiebroadwan/league/internal/league/store"
	"github.com/aussiebroadwan/league/pkg/slogx"
)

const (
	defaultRSVPAttempts = 3
	rsvpRetryBackoff    = 20 * time.Millisecond
)

// RSVPResult is the state after an RSVP transition.
type RSVPResult struct {
	Event   domain.Event
	Status  domain.RSVPStatus
	Changed bool
}

type RSVPService struct {
	Store store.Store
	Clock Clock

	// Attempts bounds retries on store.ErrConflict. Zero means 3.
	Attempts int
}

// Apply runs op for memberID on eventID. Attend re-checks capacity inside the
// transaction, so a link issued while slots were free can still come back
// ErrCapacityExceeded.
func (s *RSVPService) Apply(ctx context.Context, memberID, eventID string, op RSVPOp) (RSVPResult, error) {
	return s.run(ctx, func(tx store.Tx) (RSVPResult, error) {
		ev, err := openEvent(ctx, tx, eventID)
		if err != nil {
			return RSVPResult{}, err
		}
		return s.transition(ctx, tx, ev, memberID, op)
	})
}

// ApplyClinic is Apply for a clinic held under eventID. A clinic that is gone,
// cancelled or belongs to another event is ErrReferentMissing.
func (s *RSVPService) ApplyClinic(ctx context.Context, memberID, eventID, clinicID string, op RSVPOp) (RSVPResult, error) {
	return s.run(ctx, func(tx store.Tx) (RSVPResult, error) {
		if _, err := openEvent(ctx, tx, eventID); err != nil {
			return RSVPResult{}, err
		}
		clinic, err := openEvent(ctx, tx, clinicID)
		if err != nil {
			return RSVPResult{}, err
		}
		if clinic.ParentID != eventID {
			return RSVPResult{}, fmt.Errorf("%w: clinic %s is not part of %s", ErrReferentMissing, clinicID, eventID)
		}
		return s.transition(ctx, tx, clinic, memberID, op)
	})
}

// Status returns memberID's current RSVP for eventID.
func (s *RSVPService) Status(ctx context.Context, memberID, eventID string) (domain.RSVPStatus, error) {
	r, err := s.Store.RSVPs().GetRSVP(ctx, eventID, memberID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.RSVPNone, nil
	}
	if err != nil {
		return domain.RSVPNone, err
	}
	return r.Status, nil
}

func (s *RSVPService) run(ctx context.Context, fn func(tx store.Tx) (RSVPResult, error)) (RSVPResult, error) {
	attempts := s.Attempts
	if attempts <= 0 {
		attempts = defaultRSVPAttempts
	}

	var (
		res RSVPResult
		err error
	)
	for attempt := 1; ; attempt++ {
		err = s.Store.WithTx(ctx, func(tx store.Tx) error {
			var txErr error
			res, txErr = fn(tx)
			return txErr
		})
		if !errors.Is(err, store.ErrConflict) {
			break
		}
		if attempt >= attempts {
			slogx.FromContext(ctx).Warn("rsvp write conflict, giving up", slog.Int("attempts", attempt))
			return RSVPResult{}, fmt.Errorf("%w: %w", ErrTransient, err)
		}

		select {
		case <-ctx.Done():
			return RSVPResult{}, ctx.Err()
		case <-time.After(time.Duration(attempt) * rsvpRetryBackoff):
		}
	}
	return res, err
}

func (s *RSVPService) transition(ctx context.Context, tx store.Tx, ev domain.Event, memberID string, op RSVPOp) (RSVPResult, error) {
	now := s.Clock.now()

	if op == OpToggle {
		op = OpAttend
		cur, err := tx.RSVPs().GetRSVP(ctx, ev.ID, memberID)
		switch {
		case err == nil && cur.Status == domain.RSVPAttending:
			op = OpCancel
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return RSVPResult{}, err
		}
	}

	var (
		changed bool
		status  domain.RSVPStatus
		err     error
	)
	switch op {
	case OpAttend:
		status = domain.RSVPAttending
		changed, err = tx.RSVPs().Attend(ctx, ev.ID, memberID, now)
	case OpCancel:
		status = domain.RSVPNotAttending
		changed, err = tx.RSVPs().Cancel(ctx, ev.ID, memberID, now)
	default:
		return RSVPResult{}, fmt.Errorf("%w: op %q", ErrInvalidAction, op)
	}
	switch {
	case errors.Is(err, store.ErrCapacityExceeded):
		slogx.FromContext(ctx).Warn("rsvp rejected, event full",
			slog.String("event_id", ev.ID),
			slog.String("member_id", memberID),
		)
		return RSVPResult{}, ErrCapacityExceeded
	case errors.Is(err, store.ErrNotFound):
		return RSVPResult{}, fmt.Errorf("%w: %w", ErrReferentMissing, err)
	case err != nil:
		return RSVPResult{}, err
	}

	ev, err = tx.Events().GetEvent(ctx, ev.ID)
	if err != nil {
		return RSVPResult{}, err
	}
	return RSVPResult{Event: ev, Status: status, Changed: changed}, nil
}

// openEvent loads an event that can still take RSVPs.
func openEvent(ctx context.Context, tx store.Tx, id string) (domain.Event, error) {
	ev, err := tx.Events().GetEvent(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Event{}, fmt.Errorf("%w: %s", ErrReferentMissing, id)
	}
	if err != nil {
		return domain.Event{}, err
	}
	if ev.Cancelled {
		return domain.Event{}, fmt.Errorf("%w: %s cancelled", ErrReferentMissing, id)
	}
	return ev, nil
}
