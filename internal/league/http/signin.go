package http

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/aussiebroadwan/league/internal/league/service"
	"github.com/aussiebroadwan/league/pkg/httpx"
	"github.com/aussiebroadwan/league/pkg/sessionx"
	"github.com/aussiebroadwan/league/pkg/slogx"
)

const (
	signInPath    = "/signin"
	dashboardPath = "/dashboard"
)

// SignInHandler serves the password sign-in form.
type SignInHandler struct {
	Members  *service.MemberService
	Sessions *sessionx.Manager
}

// HandleGet renders the form, or skips it when the browser already holds a
// valid session.
func (h *SignInHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	callback := callbackFrom(r.URL.Query().Get(httpx.CallbackParam))
	if _, err := h.Sessions.FromRequest(r); err == nil {
		http.Redirect(w, r, callback, http.StatusSeeOther)
		return
	}
	render(w, r, http.StatusOK, "signin.html", signInView{
		chrome:   chromeFor(r, "Sign in"),
		Callback: callback,
	})
}

// HandlePost checks the credentials, starts a session and redirects to the
// callback when it is a local path.
func (h *SignInHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	view := signInView{
		chrome:   chromeFor(r, "Sign in"),
		Email:    r.PostForm.Get("email"),
		Callback: callbackFrom(r.PostForm.Get(httpx.CallbackParam)),
	}

	m, err := h.Members.SignIn(ctx, view.Email, r.PostForm.Get("password"), r.PostForm.Get("totp"))
	if err != nil {
		status := http.StatusUnauthorized
		switch {
		case errors.Is(err, service.ErrMFARequired):
			view.NeedsTOTP = true
			view.Error = "Enter the code from your authenticator app."
		case errors.Is(err, service.ErrInvalidTOTPCode):
			view.NeedsTOTP = true
			view.Error = "That code is not valid. Try the current code."
		case errors.Is(err, service.ErrInvalidCredentials):
			view.Error = "Email or password is incorrect."
		default:
			slogx.FromContext(ctx).Error("sign-in failed", "err", err)
			status = http.StatusServiceUnavailable
			view.Error = "Signing in is unavailable right now. Please try again shortly."
		}
		render(w, r, status, "signin.html", view)
		return
	}

	if _, err := h.Sessions.Start(w, m.ID, string(m.Role)); err != nil {
		slogx.FromContext(ctx).Error("failed to start session", "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	slogx.FromContext(ctx).Info("member signed in", "member_id", m.ID)
	http.Redirect(w, r, view.Callback, http.StatusSeeOther)
}

// HandleSignOut clears the session cookie.
func (h *SignInHandler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	h.Sessions.End(w)
	http.Redirect(w, r, signInPath, http.StatusSeeOther)
}

// signInWithCallback is the sign-in URL that resumes at callback.
func signInWithCallback(callback string) string {
	return signInPath + "?" + url.Values{httpx.CallbackParam: {callback}}.Encode()
}

func callbackFrom(raw string) string {
	if httpx.LocalPath(raw) {
		return raw
	}
	return dashboardPath
}
