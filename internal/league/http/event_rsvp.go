package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/league/internal/league/domain"
	"github.com/aussiebroadwan/league/internal/league/service"
	"github.com/aussiebroadwan/league/pkg/httpx"
	"github.com/aussiebroadwan/league/pkg/linkx"
	"github.com/aussiebroadwan/league/pkg/sessionx"
	"github.com/aussiebroadwan/league/pkg/slogx"
)

// EventRSVPHandler serves POST /events/{eventID}/rsvp. The caller proves who
// they are with a session cookie or with a signed rsvp link for the same event
// in the query string. The subject never comes from the form.
type EventRSVPHandler struct {
	Resolver *service.ActionResolver
	Events   *service.EventService
	Sessions *sessionx.Manager
}

func (h *EventRSVPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	eventID := r.PathValue("eventID")

	op, ok := service.ParseRSVPOp(r.PostFormValue("op"))
	if !ok {
		renderOutcome(w, r, refused("RSVP not recorded", "Unknown RSVP option."))
		return
	}

	s, sessionErr := h.Sessions.FromRequest(r)

	if r.URL.Query().Has(linkx.ParamSignature) {
		c, act, err := h.Resolver.Authenticate(r.URL.Query())
		if err == nil {
			if h.viaLink(w, r, eventID, op, c, act) {
				return
			}
			log.Warn("rsvp link does not match event", "action", string(c.Action))
			err = linkx.ErrSignatureInvalid
		} else {
			log.Warn("rejected rsvp link", "err", err)
		}
		if sessionErr != nil {
			renderOutcome(w, r, linkRefusal(err))
			return
		}
	}

	if sessionErr != nil {
		if httpx.WantsJSON(r) {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "sign in or use a signed link")
			return
		}
		// A POST cannot be replayed after sign-in, so resume at the dashboard.
		http.Redirect(w, r, signInWithCallback(dashboardPath), http.StatusSeeOther)
		return
	}
	s = h.Sessions.Refresh(w, s)
	ctx = slogx.WithSubject(ctx, s.SubjectID)
	r = r.WithContext(httpx.WithSession(ctx, s))

	if !domain.Role(s.Role).Approved() {
		renderOutcomeStatus(w, r, http.StatusForbidden, refused("Awaiting approval", "Your membership is awaiting approval."))
		return
	}

	ev, err := h.Events.Get(ctx, eventID)
	if errors.Is(err, service.ErrReferentMissing) {
		renderOutcome(w, r, h.Resolver.ApplyRSVP(ctx, s.SubjectID, service.RSVP{EventID: eventID, Op: op}))
		return
	}
	if err != nil {
		log.Error("failed to load event", "err", err)
		renderOutcome(w, r, service.Outcome{
			Reason:  service.ReasonUnavailable,
			Title:   "Try again",
			Message: "We could not complete this right now.",
		})
		return
	}

	var act service.Action = service.RSVP{EventID: ev.ID, Op: op}
	if ev.IsClinic() {
		act = service.ClinicRSVP{EventID: ev.ParentID, ClinicID: ev.ID, Op: op}
	}
	out := h.Resolver.ApplyRSVP(ctx, s.SubjectID, act)
	if out.Success && !httpx.WantsJSON(r) {
		http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
		return
	}
	renderOutcome(w, r, out)
}

// viaLink applies the RSVP authorised by a verified link and reports whether
// the link targets eventID. The op from the form overrides the link's own op.
func (h *EventRSVPHandler) viaLink(w http.ResponseWriter, r *http.Request, eventID string, op service.RSVPOp, c linkx.Claims, act service.Action) bool {
	ctx := slogx.WithAction(slogx.WithSubject(r.Context(), c.SubjectID), string(c.Action))

	switch a := act.(type) {
	case service.RSVP:
		if a.EventID == eventID {
			renderOutcome(w, r, h.Resolver.ApplyRSVP(ctx, c.SubjectID, service.RSVP{EventID: a.EventID, Op: op}))
			return true
		}
	case service.ClinicRSVP:
		if a.ClinicID == eventID {
			renderOutcome(w, r, h.Resolver.ApplyRSVP(ctx, c.SubjectID, service.ClinicRSVP{EventID: a.EventID, ClinicID: a.ClinicID, Op: op}))
			return true
		}
	}
	return false
}

func linkRefusal(err error) service.Outcome {
	if linkx.Expired(err) {
		return service.Outcome{
			Reason:   service.ReasonExpired,
			Title:    "Link expired",
			Message:  "This link has expired.",
			Guidance: "Sign in and RSVP from the dashboard.",
		}
	}
	return refused("Link not valid", "This link is invalid or has expired.")
}

func refused(title, msg string) service.Outcome {
	return service.Outcome{
		Reason:   service.ReasonInvalid,
		Title:    title,
		Message:  msg,
		Guidance: "Sign in to update your RSVP from the dashboard.",
	}
}
