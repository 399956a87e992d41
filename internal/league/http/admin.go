package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/league/internal/league/service"
	"github.com/aussiebroadwan/league/internal/league/store"
	"github.com/aussiebroadwan/league/pkg/httpx"
	"github.com/aussiebroadwan/league/pkg/idx"
	"github.com/aussiebroadwan/league/pkg/slogx"
)

const adminMembersPath = "/dashboard/admin/members"

// AdminHandler serves member approval and authenticator enrollment. Routes
// require a session with the admin role.
type AdminHandler struct {
	Members *service.MemberService
	MFA     *service.MFAService
}

func (h *AdminHandler) HandleMembers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, _ := httpx.SessionFromContext(ctx)

	pending, err := h.Members.ListPending(ctx)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to list pending members", "err", err)
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	self, err := h.Members.Get(ctx, s.SubjectID)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to load admin", "err", err)
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}

	render(w, r, http.StatusOK, "admin_members.html", adminMembersView{
		chrome:     chromeFor(r, "Members"),
		Pending:    pending,
		MFAEnabled: self.MFAEnabled(),
	})
}

func (h *AdminHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	if !idx.Valid(id) {
		http.Error(w, "member not found", http.StatusNotFound)
		return
	}
	err := h.Members.Approve(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "member not found", http.StatusNotFound)
		return
	case errors.Is(err, service.ErrNotPending):
		// Already approved by someone else; show the refreshed list.
	case err != nil:
		slogx.FromContext(ctx).Error("failed to approve member", "err", err)
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	http.Redirect(w, r, adminMembersPath, http.StatusSeeOther)
}

// HandleEnroll generates a TOTP secret and shows it once.
func (h *AdminHandler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, _ := httpx.SessionFromContext(ctx)
	view := adminMFAView{chrome: chromeFor(r, "Authenticator")}

	enrollment, err := h.MFA.Enroll(ctx, s.SubjectID)
	switch {
	case errors.Is(err, service.ErrMFAAlreadyEnabled):
		view.Enabled = true
	case err != nil:
		slogx.FromContext(ctx).Error("failed to enroll authenticator", "err", err)
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	default:
		view.Enrollment = &enrollment
	}
	render(w, r, http.StatusOK, "admin_mfa.html", view)
}

// HandleVerify enables MFA once the first code checks out.
func (h *AdminHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, _ := httpx.SessionFromContext(ctx)
	view := adminMFAView{chrome: chromeFor(r, "Authenticator")}

	err := h.MFA.Verify(ctx, s.SubjectID, r.PostFormValue("code"))
	switch {
	case err == nil, errors.Is(err, service.ErrMFAAlreadyEnabled):
		view.Enabled = true
		render(w, r, http.StatusOK, "admin_mfa.html", view)
	case errors.Is(err, service.ErrInvalidTOTPCode):
		view.Error = "That code is not valid. Try the current code."
		render(w, r, http.StatusBadRequest, "admin_mfa.html", view)
	case errors.Is(err, service.ErrMFANotEnrolled):
		view.Error = "Start enrollment first."
		render(w, r, http.StatusBadRequest, "admin_mfa.html", view)
	default:
		slogx.FromContext(ctx).Error("failed to verify authenticator", "err", err)
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
	}
}
