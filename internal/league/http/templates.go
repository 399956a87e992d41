package http

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/aussiebroadwan/league/internal/league/domain"
	"github.com/aussiebroadwan/league/internal/league/service"
	"github.com/aussiebroadwan/league/pkg/httpx"
	"github.com/aussiebroadwan/league/pkg/slogx"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// chrome is the part of every page view the layout reads.
type chrome struct {
	Title    string
	SignedIn bool
	IsAdmin  bool
}

func chromeFor(r *http.Request, title string) chrome {
	c := chrome{Title: title}
	if s, ok := httpx.SessionFromContext(r.Context()); ok {
		c.SignedIn = true
		c.IsAdmin = s.Role == string(domain.RoleAdmin)
	}
	return c
}

type resultView struct {
	chrome
	Success  bool
	Message  string
	Guidance string
	Event    *domain.Event
}

func resultFor(r *http.Request, out service.Outcome) resultView {
	return resultView{
		chrome:   chromeFor(r, out.Title),
		Success:  out.Success,
		Message:  out.Message,
		Guidance: out.Guidance,
		Event:    out.Event,
	}
}

type signInView struct {
	chrome
	Error     string
	Email     string
	Callback  string
	NeedsTOTP bool
}

type signUpView struct {
	chrome
	Error       string
	Email       string
	DisplayName string
}

type dashboardView struct {
	chrome
	Member    domain.Member
	Pending   bool
	Attending []domain.Event
}

type yearView struct {
	chrome
	Year int
}

type profileView struct {
	chrome
	Notice       string
	Member       domain.Member
	Subscription domain.Subscription
}

type adminMembersView struct {
	chrome
	Pending    []domain.Member
	MFAEnabled bool
}

type adminMFAView struct {
	chrome
	Error      string
	Enabled    bool
	Enrollment *service.MFAEnrollment
}

// render executes name into a buffer first so a template error never leaves
// a half written page behind.
func render(w http.ResponseWriter, r *http.Request, status int, name string, view any) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, view); err != nil {
		slogx.FromContext(r.Context()).Error("failed to render template", "template", name, "err", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
