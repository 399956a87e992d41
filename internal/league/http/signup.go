package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/league/internal/league/service"
	"github.com/aussiebroadwan/league/pkg/slogx"
)

// SignUpHandler creates pending memberships.
type SignUpHandler struct {
	Members *service.MemberService
}

func (h *SignUpHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusOK, "signup.html", signUpView{chrome: chromeFor(r, "Join")})
}

func (h *SignUpHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	view := signUpView{
		chrome:      chromeFor(r, "Join"),
		Email:       r.PostForm.Get("email"),
		DisplayName: r.PostForm.Get("display_name"),
	}

	_, err := h.Members.Register(ctx, view.Email, view.DisplayName, r.PostForm.Get("password"))
	if err != nil {
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, service.ErrEmailTaken):
			status = http.StatusConflict
			view.Error = "An account with that email already exists. Sign in instead."
		case errors.Is(err, service.ErrInvalidInput):
			view.Error = "Check your name and email, and use a password of at least 8 characters."
		default:
			slogx.FromContext(ctx).Error("sign-up failed", "err", err)
			status = http.StatusServiceUnavailable
			view.Error = "Joining is unavailable right now. Please try again shortly."
		}
		render(w, r, status, "signup.html", view)
		return
	}

	render(w, r, http.StatusCreated, "result.html", resultView{
		chrome:   chromeFor(r, "Thanks for joining"),
		Success:  true,
		Message:  "Your membership is awaiting approval by a league admin.",
		Guidance: "You can sign in now to confirm this year's waiver.",
	})
}
