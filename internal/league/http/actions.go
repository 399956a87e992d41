package http

import (
	"net/http"

	"github.com/aussiebroadwan/league/internal/league/domain"
	"github.com/aussiebroadwan/league/internal/league/service"
	"github.com/aussiebroadwan/league/pkg/httpx"
	"github.com/aussiebroadwan/league/pkg/linkx"
	"github.com/aussiebroadwan/league/pkg/sessionx"
	"github.com/aussiebroadwan/league/pkg/slogx"
)

// ActionHandler serves signed action links and opaque RSVP token links.
type ActionHandler struct {
	Resolver *service.ActionResolver
	Members  *service.MemberService
	Sessions *sessionx.Manager
}

// outcomeResponse is the JSON form of a result page.
type outcomeResponse struct {
	Success  bool   `json:"success"`
	Reason   string `json:"reason,omitempty"`
	Action   string `json:"action,omitempty"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	Guidance string `json:"guidance,omitempty"`
	EventID  string `json:"event_id,omitempty"`
	Status   string `json:"status,omitempty"`
	Spots    *int   `json:"spots_left,omitempty"`
}

// HandleLink resolves GET /actions. A verified signin link starts a session
// and continues at its callback; everything else renders a result page.
func (h *ActionHandler) HandleLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	out := h.Resolver.Resolve(ctx, r.URL.Query())

	if out.Success && out.Action == linkx.KindSignIn {
		m, err := h.Members.Get(ctx, out.SubjectID)
		if err != nil {
			slogx.FromContext(ctx).Warn("signin link for unknown member", "err", err)
			renderOutcome(w, r, service.Outcome{
				Reason:   service.ReasonInvalid,
				Title:    "Link not valid",
				Message:  "This link is invalid or has expired.",
				Guidance: "Sign in with your email and password to continue.",
			})
			return
		}
		if m.MFAEnabled() {
			// The link proves mailbox access only; the second factor still applies.
			slogx.FromContext(ctx).Info("signin link needs totp", "member_id", m.ID)
			http.Redirect(w, r, signInWithCallback(out.Redirect), http.StatusSeeOther)
			return
		}
		if _, err := h.Sessions.Start(w, m.ID, string(m.Role)); err != nil {
			slogx.FromContext(ctx).Error("failed to start session", "err", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, out.Redirect, http.StatusSeeOther)
		return
	}

	renderOutcome(w, r, out)
}

// HandleToken resolves GET /rsvp/{token}?action=toggle|attend|cancel.
func (h *ActionHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	out := h.Resolver.ResolveToken(r.Context(), r.PathValue("token"), r.URL.Query().Get("action"))
	renderOutcome(w, r, out)
}

func renderOutcome(w http.ResponseWriter, r *http.Request, out service.Outcome) {
	renderOutcomeStatus(w, r, outcomeStatus(out.Reason), out)
}

func renderOutcomeStatus(w http.ResponseWriter, r *http.Request, status int, out service.Outcome) {
	if httpx.WantsJSON(r) {
		resp := outcomeResponse{
			Success:  out.Success,
			Reason:   string(out.Reason),
			Action:   string(out.Action),
			Title:    out.Title,
			Message:  out.Message,
			Guidance: out.Guidance,
		}
		if out.Event != nil {
			resp.EventID = out.Event.ID
			if out.Event.Capacity != nil {
				spots := out.Event.SpotsLeft()
				resp.Spots = &spots
			}
		}
		if out.Success && out.Status != domain.RSVPNone {
			resp.Status = string(out.Status)
		}
		httpx.WriteJSON(w, status, resp)
		return
	}
	render(w, r, status, "result.html", resultFor(r, out))
}

func outcomeStatus(reason service.Reason) int {
	switch reason {
	case service.ReasonNone:
		return http.StatusOK
	case service.ReasonExpired, service.ReasonUsed:
		return http.StatusGone
	case service.ReasonFull:
		return http.StatusConflict
	case service.ReasonNoEvent, service.ReasonNoClinic:
		return http.StatusNotFound
	case service.ReasonUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}
