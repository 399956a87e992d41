package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/league/internal/league/domain"
	"github.com/aussiebroadwan/league/internal/league/service"
	"github.com/aussiebroadwan/league/internal/league/store"
	"github.com/aussiebroadwan/league/pkg/httpx"
	"github.com/aussiebroadwan/league/pkg/sessionx"
	"github.com/aussiebroadwan/league/pkg/slogx"
)

const (
	waiverPath  = "/dashboard/waiver"
	welcomePath = "/dashboard/welcome"
	profilePath = "/dashboard/member/profile"
)

// DashboardHandler serves the member area. Every route sits behind
// httpx.SessionGate.
type DashboardHandler struct {
	Members       *service.MemberService
	Events        *service.EventService
	Subscriptions *service.SubscriptionService
	Sessions      *sessionx.Manager
}

// member loads the signed-in member. A session whose member is gone is ended
// and sent back to sign-in; the caller must stop when ok is false.
func (h *DashboardHandler) member(w http.ResponseWriter, r *http.Request) (domain.Member, domain.GateState, bool) {
	ctx := r.Context()
	s, _ := httpx.SessionFromContext(ctx)

	m, gate, err := h.Members.Gate(ctx, s.SubjectID)
	if errors.Is(err, store.ErrNotFound) {
		slogx.FromContext(ctx).Warn("session for missing member")
		h.Sessions.End(w)
		http.Redirect(w, r, signInPath, http.StatusSeeOther)
		return domain.Member{}, gate, false
	}
	if err != nil {
		slogx.FromContext(ctx).Error("failed to load member", "err", err)
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return domain.Member{}, gate, false
	}

	// Approval or demotion since sign-in takes effect on the next page load.
	if string(m.Role) != s.Role {
		if _, err := h.Sessions.Start(w, m.ID, string(m.Role)); err != nil {
			slogx.FromContext(ctx).Error("failed to refresh session role", "err", err)
		}
	}
	return m, gate, true
}

// HandleHome applies the waiver and welcome gate before showing the dashboard.
func (h *DashboardHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	m, gate, ok := h.member(w, r)
	if !ok {
		return
	}
	switch gate {
	case domain.GateNeedsWaiver:
		http.Redirect(w, r, waiverPath, http.StatusSeeOther)
		return
	case domain.GateNeedsWelcome:
		http.Redirect(w, r, welcomePath, http.StatusSeeOther)
		return
	}

	view := dashboardView{
		chrome:  chromeFor(r, "Dashboard"),
		Member:  m,
		Pending: !m.Role.Approved(),
	}
	if !view.Pending {
		events, err := h.Events.Attending(r.Context(), m.ID)
		if err != nil {
			slogx.FromContext(r.Context()).Error("failed to list attending events", "err", err)
		}
		view.Attending = events
	}
	render(w, r, http.StatusOK, "dashboard.html", view)
}

func (h *DashboardHandler) HandleWaiverGet(w http.ResponseWriter, r *http.Request) {
	_, gate, ok := h.member(w, r)
	if !ok {
		return
	}
	if gate != domain.GateNeedsWaiver {
		http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
		return
	}
	render(w, r, http.StatusOK, "waiver.html", yearView{chrome: chromeFor(r, "Waiver"), Year: h.Members.Year()})
}

func (h *DashboardHandler) HandleWaiverPost(w http.ResponseWriter, r *http.Request) {
	m, _, ok := h.member(w, r)
	if !ok {
		return
	}
	if r.PostFormValue("accept") != "yes" {
		render(w, r, http.StatusBadRequest, "waiver.html", yearView{chrome: chromeFor(r, "Waiver"), Year: h.Members.Year()})
		return
	}
	if err := h.Members.ConfirmWaiver(r.Context(), m.ID); err != nil {
		slogx.FromContext(r.Context()).Error("failed to confirm waiver", "err", err)
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
}

func (h *DashboardHandler) HandleWelcomeGet(w http.ResponseWriter, r *http.Request) {
	_, gate, ok := h.member(w, r)
	if !ok {
		return
	}
	if gate != domain.GateNeedsWelcome {
		http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
		return
	}
	render(w, r, http.StatusOK, "welcome.html", yearView{chrome: chromeFor(r, "Welcome"), Year: h.Members.Year()})
}

func (h *DashboardHandler) HandleWelcomePost(w http.ResponseWriter, r *http.Request) {
	m, _, ok := h.member(w, r)
	if !ok {
		return
	}
	err := h.Members.ConfirmWelcome(r.Context(), m.ID)
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		http.Redirect(w, r, waiverPath, http.StatusSeeOther)
		return
	case err != nil:
		slogx.FromContext(r.Context()).Error("failed to confirm welcome", "err", err)
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
}

// HandleProfile shows member details and email preferences.
func (h *DashboardHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	m, _, ok := h.member(w, r)
	if !ok {
		return
	}
	h.renderProfile(w, r, m, "")
}

// HandleEmailPreferences subscribes or unsubscribes the signed-in member.
func (h *DashboardHandler) HandleEmailPreferences(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m, _, ok := h.member(w, r)
	if !ok {
		return
	}

	var err error
	notice := "You will receive league emails."
	if r.PostFormValue("subscribed") == "yes" {
		err = h.Subscriptions.Resubscribe(ctx, m.ID)
	} else {
		notice = "You will no longer receive league emails."
		err = h.Subscriptions.Unsubscribe(ctx, m.ID)
	}
	if err != nil {
		slogx.FromContext(ctx).Error("failed to update email preferences", "err", err)
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	h.renderProfile(w, r, m, notice)
}

func (h *DashboardHandler) renderProfile(w http.ResponseWriter, r *http.Request, m domain.Member, notice string) {
	sub, err := h.Subscriptions.Get(r.Context(), m.ID)
	if err != nil {
		slogx.FromContext(r.Context()).Error("failed to load subscription", "err", err)
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	render(w, r, http.StatusOK, "profile.html", profileView{
		chrome:       chromeFor(r, "Profile"),
		Notice:       notice,
		Member:       m,
		Subscription: sub,
	})
}
