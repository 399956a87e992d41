package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/aussiebroadwan/league/internal/league/domain"
	"github.com/aussiebroadwan/league/internal/league/store"
	"github.com/aussiebroadwan/league/pkg/cryptox"
	"github.com/aussiebroadwan/league/pkg/linkx"
	"github.com/aussiebroadwan/league/pkg/slogx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Reason explains a failed resolution to the result page.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonInvalid     Reason = "invalid"
	ReasonExpired     Reason = "expired"
	ReasonFull        Reason = "full"
	ReasonNoClinic    Reason = "no-clinic"
	ReasonNoEvent     Reason = "no-event"
	ReasonUsed        Reason = "used"
	ReasonUnavailable Reason = "unavailable"
)

// Outcome is the rendered result of resolving a link. Every path through the
// resolver produces one with a Title and Message.
type Outcome struct {
	Success bool
	Reason  Reason

	// Action is empty when the link could not be authenticated.
	Action    linkx.Kind
	SubjectID string

	Title    string
	Message  string
	Guidance string

	Event  *domain.Event
	Status domain.RSVPStatus

	// Redirect is the local path a signin link continues at.
	Redirect string
}

// TokenLookup is what an opaque RSVP token resolves to.
type TokenLookup struct {
	Success  bool
	Message  string
	Event    *domain.Event
	MemberID string
}

// TokenLookuper maps opaque RSVP tokens onto an event and member.
type TokenLookuper interface {
	Lookup(ctx context.Context, token string) TokenLookup
}

// ActionResolver verifies inbound action links and applies them.
type ActionResolver struct {
	Keyring       *linkx.Keyring
	RSVPs         *RSVPService
	Subscriptions *SubscriptionService
	Tokens        TokenLookuper
	Store         store.Store
}

// Authenticate decodes and verifies link parameters without dispatching.
// Expired links return their claims alongside linkx.ErrExpired.
func (r *ActionResolver) Authenticate(q url.Values) (linkx.Claims, Action, error) {
	c, _, act, err := r.authenticate(q)
	return c, act, err
}

func (r *ActionResolver) authenticate(q url.Values) (linkx.Claims, string, Action, error) {
	c, sig, err := linkx.ParseQuery(q)
	if err != nil {
		return linkx.Claims{}, "", nil, err
	}
	if err := r.Keyring.Authenticate(c, sig); err != nil {
		if linkx.Expired(err) {
			return c, sig, nil, err
		}
		return linkx.Claims{}, "", nil, err
	}
	act, err := ActionFromClaims(c)
	if err != nil {
		return linkx.Claims{}, "", nil, err
	}
	return c, sig, act, nil
}

// Resolve runs a link through parse, verify and dispatch.
func (r *ActionResolver) Resolve(ctx context.Context, q url.Values) Outcome {
	ctx, span := tracer.Start(ctx, "actionlink.resolve")
	defer span.End()

	log := slogx.FromContext(ctx)

	c, sig, act, err := r.authenticate(q)
	switch {
	case linkx.Expired(err):
		log.Warn("expired action link", slog.String("action", string(c.Action)))
		span.SetAttributes(attribute.String("action", string(c.Action)), attribute.String("reason", string(ReasonExpired)))
		return expiredOutcome(c)
	case err != nil:
		log.Warn("rejected action link", slog.Any("error", err))
		span.SetAttributes(attribute.String("reason", string(ReasonInvalid)))
		return invalidOutcome()
	}

	span.SetAttributes(attribute.String("action", string(c.Action)))
	ctx = slogx.WithAction(slogx.WithSubject(ctx, c.SubjectID), string(c.Action))
	out := r.dispatch(ctx, c, sig, act)
	out.Action = c.Action
	out.SubjectID = c.SubjectID
	recordOutcome(span, out)
	return out
}

func (r *ActionResolver) dispatch(ctx context.Context, c linkx.Claims, sig string, act Action) Outcome {
	switch a := act.(type) {
	case Unsubscribe:
		if err := r.Subscriptions.Unsubscribe(ctx, c.SubjectID); err != nil {
			return unavailableOutcome(ctx, err)
		}
		return Outcome{
			Success: true,
			Title:   "Unsubscribed",
			Message: "You will no longer receive league emails.",
		}

	case RSVP:
		res, err := r.RSVPs.Apply(ctx, c.SubjectID, a.EventID, a.Op)
		return rsvpOutcome(ctx, res, err, ReasonNoEvent)

	case ClinicRSVP:
		res, err := r.RSVPs.ApplyClinic(ctx, c.SubjectID, a.EventID, a.ClinicID, a.Op)
		return rsvpOutcome(ctx, res, err, ReasonNoClinic)

	case ResumeSignIn:
		err := r.Store.UsedLinks().MarkLinkUsed(ctx, cryptox.FingerprintToken(sig), c.Expiry())
		switch {
		case errors.Is(err, store.ErrAlreadyUsed):
			slogx.FromContext(ctx).Warn("replayed one-shot link", slog.String("action", string(c.Action)))
			return Outcome{
				Reason:   ReasonUsed,
				Title:    "Link already used",
				Message:  "This sign-in link has already been used.",
				Guidance: "Sign in again to continue.",
			}
		case err != nil:
			return unavailableOutcome(ctx, err)
		}
		return Outcome{
			Success:  true,
			Title:    "Signed in",
			Message:  "You are signed in.",
			Redirect: a.Callback,
		}
	}

	panic(fmt.Sprintf("unhandled action %T", act))
}

// ApplyRSVP applies an RSVP or clinic RSVP for an already authenticated
// subject, such as a signed-in member using the dashboard.
func (r *ActionResolver) ApplyRSVP(ctx context.Context, subjectID string, act Action) Outcome {
	var out Outcome
	switch act.(type) {
	case RSVP, ClinicRSVP:
		out = r.dispatch(ctx, linkx.Claims{Action: act.Kind(), SubjectID: subjectID}, "", act)
	default:
		return invalidOutcome()
	}
	out.Action = act.Kind()
	out.SubjectID = subjectID
	return out
}

// ResolveToken applies an RSVP op through an opaque token. The token lookup
// decides event and member; the resolver only applies the transition.
func (r *ActionResolver) ResolveToken(ctx context.Context, token, op string) Outcome {
	ctx, span := tracer.Start(ctx, "actionlink.resolve_token")
	defer span.End()

	rsvpOp, ok := ParseRSVPOp(op)
	if !ok {
		return invalidOutcome()
	}

	lookup := r.Tokens.Lookup(ctx, token)
	if !lookup.Success || lookup.Event == nil {
		msg := lookup.Message
		if msg == "" {
			msg = "This RSVP link is invalid or has expired."
		}
		return Outcome{
			Reason:   ReasonInvalid,
			Title:    "Link not valid",
			Message:  msg,
			Guidance: "Sign in to update your RSVP from the dashboard.",
		}
	}

	res, err := r.RSVPs.Apply(ctx, lookup.MemberID, lookup.Event.ID, rsvpOp)
	reason := ReasonNoEvent
	if lookup.Event.IsClinic() {
		reason = ReasonNoClinic
	}
	out := rsvpOutcome(ctx, res, err, reason)
	out.Action = linkx.KindRSVP
	if lookup.Event.IsClinic() {
		out.Action = linkx.KindClinicRSVP
	}
	out.SubjectID = lookup.MemberID
	if out.Event == nil {
		ev := *lookup.Event
		out.Event = &ev
	}
	recordOutcome(span, out)
	return out
}

func rsvpOutcome(ctx context.Context, res RSVPResult, err error, missing Reason) Outcome {
	switch {
	case errors.Is(err, ErrCapacityExceeded):
		return Outcome{
			Reason:   ReasonFull,
			Title:    "Event full",
			Message:  "Sorry, every spot has been taken.",
			Guidance: "Check the dashboard for other sessions.",
		}
	case errors.Is(err, ErrReferentMissing):
		if missing == ReasonNoClinic {
			return Outcome{
				Reason:   ReasonNoClinic,
				Title:    "Clinic unavailable",
				Message:  "This clinic has been cancelled or no longer exists.",
				Guidance: "Check the dashboard for upcoming clinics.",
			}
		}
		return Outcome{
			Reason:   ReasonNoEvent,
			Title:    "Event unavailable",
			Message:  "This event has been cancelled or no longer exists.",
			Guidance: "Check the dashboard for upcoming events.",
		}
	case err != nil:
		return unavailableOutcome(ctx, err)
	}

	ev := res.Event
	out := Outcome{Success: true, Event: &ev, Status: res.Status}
	if res.Status == domain.RSVPAttending {
		out.Title = "You're in"
		out.Message = fmt.Sprintf("You are attending %s.", ev.Title)
	} else {
		out.Title = "RSVP cancelled"
		out.Message = fmt.Sprintf("You are no longer attending %s.", ev.Title)
	}
	return out
}

func invalidOutcome() Outcome {
	return Outcome{
		Reason:   ReasonInvalid,
		Title:    "Link not valid",
		Message:  "This link is invalid or has expired.",
		Guidance: "Use the most recent email from the league, or sign in to continue.",
	}
}

func expiredOutcome(c linkx.Claims) Outcome {
	out := Outcome{
		Reason:    ReasonExpired,
		Action:    c.Action,
		SubjectID: c.SubjectID,
		Title:     "Link expired",
		Message:   "This link has expired.",
	}
	switch c.Action {
	case linkx.KindUnsubscribe:
		out.Guidance = "Use the unsubscribe link in a recent email, or change your email preferences from your profile."
	case linkx.KindRSVP, linkx.KindClinicRSVP:
		out.Guidance = "Sign in and RSVP from the dashboard."
	case linkx.KindSignIn:
		out.Guidance = "Sign in again to continue."
	}
	return out
}

func unavailableOutcome(ctx context.Context, err error) Outcome {
	slogx.FromContext(ctx).Error("action link dispatch failed", slog.Any("error", err))
	return Outcome{
		Reason:   ReasonUnavailable,
		Title:    "Try again",
		Message:  "We could not complete this right now.",
		Guidance: "Please try the link again in a few minutes.",
	}
}

func recordOutcome(span trace.Span, out Outcome) {
	span.SetAttributes(
		attribute.Bool("success", out.Success),
		attribute.String("reason", string(out.Reason)),
	)
}
