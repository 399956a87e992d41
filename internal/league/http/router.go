package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/league/internal/league/domain"
	"github.com/aussiebroadwan/league/internal/league/service"
	"github.com/aussiebroadwan/league/pkg/httpx"
	"github.com/aussiebroadwan/league/pkg/jwtx"
	"github.com/aussiebroadwan/league/pkg/sessionx"
	"github.com/aussiebroadwan/league/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	sessions     *sessionx.Manager
	verifier     jwtx.Verifier // nil disables the /v1 API
	limits       httpx.RateLimits
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	db           Pinger

	MemberService       *service.MemberService
	MFAService          *service.MFAService
	EventService        *service.EventService
	SubscriptionService *service.SubscriptionService
	RSVPTokenService    *service.RSVPTokenService
	LinkIssuer          *service.LinkIssuer
	ActionResolver      *service.ActionResolver
}

func NewRouter(
	sessions *sessionx.Manager,
	verifier jwtx.Verifier,
	limits httpx.RateLimits,
	buildVersion string,
	db Pinger,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		sessions:     sessions,
		verifier:     verifier,
		limits:       limits,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		db:           db,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerActions()
	r.registerSignIn()
	r.registerDashboard()
	r.registerEvents()
	r.registerAdmin()
	r.registerAPI()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerActions() {
	h := &ActionHandler{
		Resolver: r.ActionResolver,
		Members:  r.MemberService,
		Sessions: r.sessions,
	}

	// Links are followed from email clients; limit by IP to slow signature guessing.
	r.Mux.Handle("GET /actions",
		httpx.Chain(http.HandlerFunc(h.HandleLink),
			httpx.RateLimitByIP(r.limits.Moderate),
		),
	)
	r.Mux.Handle("GET /rsvp/{token}",
		httpx.Chain(http.HandlerFunc(h.HandleToken),
			httpx.RateLimitByIP(r.limits.Moderate),
		),
	)
}

func (r *Router) registerSignIn() {
	signIn := &SignInHandler{Members: r.MemberService, Sessions: r.sessions}
	signUp := &SignUpHandler{Members: r.MemberService}

	r.Mux.Handle("GET /signin",
		httpx.Chain(http.HandlerFunc(signIn.HandleGet),
			httpx.RateLimitByIP(r.limits.Lenient),
		),
	)
	// Rate limited by IP + email to slow password guessing
	r.Mux.Handle("POST /signin",
		httpx.Chain(http.HandlerFunc(signIn.HandlePost),
			httpx.RateLimitByIPAndFormField(r.limits.Strict, "email"),
		),
	)
	r.Mux.Handle("POST /signout", http.HandlerFunc(signIn.HandleSignOut))

	r.Mux.Handle("GET /signup",
		httpx.Chain(http.HandlerFunc(signUp.HandleGet),
			httpx.RateLimitByIP(r.limits.Lenient),
		),
	)
	r.Mux.Handle("POST /signup",
		httpx.Chain(http.HandlerFunc(signUp.HandlePost),
			httpx.RateLimitByIP(r.limits.Strict),
		),
	)
}

func (r *Router) registerDashboard() {
	h := &DashboardHandler{
		Members:       r.MemberService,
		Events:        r.EventService,
		Subscriptions: r.SubscriptionService,
		Sessions:      r.sessions,
	}

	secured := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			httpx.SessionGate(r.sessions, signInPath),
			httpx.RateLimitBySubject(r.limits.Lenient),
		)
	}

	r.Mux.Handle("GET /dashboard", secured(h.HandleHome))
	r.Mux.Handle("GET /dashboard/waiver", secured(h.HandleWaiverGet))
	r.Mux.Handle("POST /dashboard/waiver", secured(h.HandleWaiverPost))
	r.Mux.Handle("GET /dashboard/welcome", secured(h.HandleWelcomeGet))
	r.Mux.Handle("POST /dashboard/welcome", secured(h.HandleWelcomePost))
	r.Mux.Handle("GET /dashboard/member/profile", secured(h.HandleProfile))
	r.Mux.Handle("POST /dashboard/member/email", secured(h.HandleEmailPreferences))
}

func (r *Router) registerEvents() {
	h := &EventRSVPHandler{
		Resolver: r.ActionResolver,
		Events:   r.EventService,
		Sessions: r.sessions,
	}

	// Session or signed link, checked by the handler itself.
	r.Mux.Handle("POST /events/{eventID}/rsvp",
		httpx.Chain(h,
			httpx.RateLimitByIP(r.limits.Moderate),
		),
	)
}

func (r *Router) registerAdmin() {
	h := &AdminHandler{Members: r.MemberService, MFA: r.MFAService}

	admin := func(fn http.HandlerFunc, limit httpx.RateLimitConfig) http.Handler {
		return httpx.Chain(fn,
			httpx.SessionGate(r.sessions, signInPath),
			httpx.RequireRole(string(domain.RoleAdmin)),
			httpx.RateLimitBySubject(limit),
		)
	}

	r.Mux.Handle("GET /dashboard/admin/members", admin(h.HandleMembers, r.limits.Lenient))
	r.Mux.Handle("POST /dashboard/admin/members/{id}/approve", admin(h.HandleApprove, r.limits.Moderate))
	r.Mux.Handle("POST /dashboard/admin/mfa/enroll", admin(h.HandleEnroll, r.limits.Moderate))
	// Strict: prevent brute force of TOTP codes
	r.Mux.Handle("POST /dashboard/admin/mfa/verify", admin(h.HandleVerify, r.limits.Strict))
}

func (r *Router) registerAPI() {
	if r.verifier == nil {
		r.logger.Info("link issuance API disabled: no API secret configured")
		return
	}

	links := &IssueLinkHandler{Issuer: r.LinkIssuer}
	tokens := &RSVPTokenHandler{Tokens: r.RSVPTokenService}
	events := &CreateEventHandler{Events: r.EventService}

	r.Mux.Handle("POST /v1/links",
		httpx.Chain(links,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireAnyScope(jwtx.ScopeLinksIssue),
			httpx.RateLimitBySubject(r.limits.Public),
		),
	)
	r.Mux.Handle("POST /v1/rsvp-tokens",
		httpx.Chain(tokens,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireAnyScope(jwtx.ScopeLinksIssue),
			httpx.RateLimitBySubject(r.limits.Public),
		),
	)
	r.Mux.Handle("POST /v1/events",
		httpx.Chain(events,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireAnyScope(jwtx.ScopeEventsWrite),
			httpx.RateLimitBySubject(r.limits.Moderate),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - monitoring systems may poll frequently
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(r.limits.Public),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.db),
			httpx.RateLimitByIP(r.limits.Public),
		),
	)
}
