package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/league/internal/league/domain"
	leaguehttp "github.com/aussiebroadwan/league/internal/league/http"
	"github.com/aussiebroadwan/league/internal/league/service"
	"github.com/aussiebroadwan/league/internal/league/store/drivers/sqlite"
	"github.com/aussiebroadwan/league/pkg/cryptox"
	"github.com/aussiebroadwan/league/pkg/httpx"
	"github.com/aussiebroadwan/league/pkg/idx"
	"github.com/aussiebroadwan/league/pkg/jwtx"
	"github.com/aussiebroadwan/league/pkg/linksdk"
	"github.com/aussiebroadwan/league/pkg/linkx"
	"github.com/aussiebroadwan/league/pkg/sessionx"
	"github.com/aussiebroadwan/league/pkg/slogx"
	"github.com/stretchr/testify/require"
)

const baseURL = "https://league.example.org"

type env struct {
	t        *testing.T
	store    *sqlite.Store
	router   *leaguehttp.Router
	sessions *sessionx.Manager
	members  *service.MemberService
	issuer   *service.LinkIssuer
	apiKeys  *jwtx.HS256
}

func newEnv(t *testing.T) *env {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	keyring, err := linkx.NewKeyring([]byte("0123456789abcdef0123456789abcdef-link"), nil)
	require.NoError(t, err)
	issuer, err := service.NewLinkIssuer(keyring, baseURL, nil, nil)
	require.NoError(t, err)

	codec, err := sessionx.NewCodec([]byte("0123456789abcdef0123456789abcdef-sess"), time.Hour, domain.Roles()...)
	require.NoError(t, err)
	sessions := sessionx.NewManager(codec, sessionx.CookieOptions{}, 0)

	apiKeys, err := jwtx.NewHS256([]byte("0123456789abcdef0123456789abcdef-api"), "league")
	require.NoError(t, err)

	members := &service.MemberService{Store: st, Hasher: cryptox.NewPasswordHasher("pepper")}
	rsvps := &service.RSVPService{Store: st}
	subs := &service.SubscriptionService{Store: st}
	tokens := &service.RSVPTokenService{Store: st, BaseURL: baseURL}

	r := leaguehttp.NewRouter(sessions, apiKeys, httpx.DefaultRateLimits(), "test", st, slogx.Discard())
	r.MemberService = members
	r.MFAService = &service.MFAService{Store: st, Issuer: "League"}
	r.EventService = &service.EventService{Store: st}
	r.SubscriptionService = subs
	r.RSVPTokenService = tokens
	r.LinkIssuer = issuer
	r.ActionResolver = &service.ActionResolver{
		Keyring:       keyring,
		RSVPs:         rsvps,
		Subscriptions: subs,
		Tokens:        tokens,
		Store:         st,
	}
	r.ApplyRoutes()

	return &env{t: t, store: st, router: r, sessions: sessions, members: members, issuer: issuer, apiKeys: apiKeys}
}

func (e *env) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *env) member(id string, role domain.Role) domain.Member {
	e.t.Helper()
	m := domain.Member{
		ID:           id,
		Email:        id + "@example.com",
		DisplayName:  "Member " + id,
		PasswordHash: "$argon2id$stub",
		Role:         role,
	}
	require.NoError(e.t, e.store.Members().CreateMember(context.Background(), m))
	return m
}

func (e *env) event(id, parentID string, capacity *int) {
	e.t.Helper()
	require.NoError(e.t, e.store.Events().CreateEvent(context.Background(), domain.Event{
		ID:       id,
		ParentID: parentID,
		Title:    "Event " + id,
		StartsAt: time.Now().Add(48 * time.Hour),
		Capacity: capacity,
	}))
}

func (e *env) confirmed(id string) {
	e.t.Helper()
	ctx := context.Background()
	require.NoError(e.t, e.members.ConfirmWaiver(ctx, id))
	require.NoError(e.t, e.members.ConfirmWelcome(ctx, id))
}

func (e *env) session(id string, role domain.Role) *http.Cookie {
	e.t.Helper()
	rec := httptest.NewRecorder()
	_, err := e.sessions.Start(rec, id, string(role))
	require.NoError(e.t, err)
	return sessionCookie(e.t, rec)
}

// link issues a link and returns its path and query.
func (e *env) link(kind linkx.Kind, subject string, extra map[string]string) string {
	e.t.Helper()
	l, err := e.issuer.Issue(context.Background(), kind, subject, 0, extra)
	require.NoError(e.t, err)
	return strings.TrimPrefix(l.URL, baseURL)
}

func (e *env) bearer(scopes ...string) string {
	e.t.Helper()
	tok, err := e.apiKeys.Sign(jwtx.NewServiceClaims("mailer", "league", scopes, time.Minute, time.Now()))
	require.NoError(e.t, err)
	return "Bearer " + tok
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionx.DefaultCookieName && c.Value != "" {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func form(method, target string, v url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(v.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func intPtr(v int) *int { return &v }

func TestActions_Unsubscribe(t *testing.T) {
	e := newEnv(t)
	e.member("m1", domain.RoleMember)
	target := e.link(linkx.KindUnsubscribe, "m1", nil)

	for range 2 {
		rec := e.do(httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "Unsubscribed")
		require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	}

	sub, err := e.store.Subscriptions().GetSubscription(context.Background(), "m1")
	require.NoError(t, err)
	require.True(t, sub.EmailOptOut)
}

func TestActions_TamperedLinksAreGeneric(t *testing.T) {
	e := newEnv(t)
	e.member("m1", domain.RoleMember)
	target := e.link(linkx.KindUnsubscribe, "m1", nil)

	tests := []struct {
		name   string
		target string
	}{
		{"other subject", strings.Replace(target, "id=m1", "id=m2", 1)},
		{"no signature", target[:strings.Index(target, "&signature=")]},
		{"empty query", "/actions"},
		{"unknown action", strings.Replace(target, "action=unsubscribe", "action=delete", 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(httptest.NewRequest(http.MethodGet, tt.target, nil))
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Contains(t, rec.Body.String(), "This link is invalid or has expired.")
		})
	}
}

func TestActions_JSONOutcome(t *testing.T) {
	e := newEnv(t)
	e.member("m1", domain.RoleMember)
	e.event("e1", "", intPtr(1))
	e.member("m2", domain.RoleMember)

	req := httptest.NewRequest(http.MethodGet, e.link(linkx.KindRSVP, "m1", map[string]string{"event": "e1", "op": "attend"}), nil)
	req.Header.Set("Accept", "application/json")
	rec := e.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, true, body["success"])
	require.Equal(t, "attending", body["status"])
	require.Equal(t, float64(0), body["spots_left"])

	req = httptest.NewRequest(http.MethodGet, e.link(linkx.KindRSVP, "m2", map[string]string{"event": "e1", "op": "attend"}), nil)
	req.Header.Set("Accept", "application/json")
	rec = e.do(req)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "full", body["reason"])
}

func TestActions_SignInLink(t *testing.T) {
	e := newEnv(t)
	e.member("m1", domain.RoleMember)
	target := e.link(linkx.KindSignIn, "m1", map[string]string{"callback": "/dashboard/member/profile"})

	rec := e.do(httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/dashboard/member/profile", rec.Header().Get("Location"))

	s, err := e.sessions.FromRequest(cookieRequest(sessionCookie(t, rec)))
	require.NoError(t, err)
	require.Equal(t, "m1", s.SubjectID)
	require.Equal(t, string(domain.RoleMember), s.Role)

	rec = e.do(httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(t, http.StatusGone, rec.Code)
	require.Contains(t, rec.Body.String(), "already been used")
}

func TestActions_SignInLinkKeepsSecondFactor(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.member("a1", domain.RoleAdmin)
	require.NoError(t, e.store.Members().UpdateTOTPSecret(ctx, "a1", "JBSWY3DPEHPK3PXP"))
	require.NoError(t, e.store.Members().EnableTOTP(ctx, "a1", time.Now()))

	target := e.link(linkx.KindSignIn, "a1", map[string]string{"callback": "/dashboard/admin/members"})
	rec := e.do(httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/signin?callbackUrl=%2Fdashboard%2Fadmin%2Fmembers", rec.Header().Get("Location"))

	for _, c := range rec.Result().Cookies() {
		require.NotEqual(t, sessionx.DefaultCookieName, c.Name, "no session before the totp step")
	}
}

func TestSignIn_RejectsForeignCallbacks(t *testing.T) {
	e := newEnv(t)
	e.member("m1", domain.RoleMember)
	cookie := e.session("m1", domain.RoleMember)

	for _, cb := range []string{"%2F%09%2Fevil.example", "%2F%2Fevil.example", "https%3A%2F%2Fevil.example", "%2F%0A%2Fevil.example"} {
		rec := e.do(httptest.NewRequest(http.MethodGet, "/signin?callbackUrl="+cb, nil), cookie)
		require.Equal(t, http.StatusSeeOther, rec.Code, cb)
		require.Equal(t, "/dashboard", rec.Header().Get("Location"), cb)
	}
}

func cookieRequest(c *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	return req
}

func TestRSVPToken(t *testing.T) {
	e := newEnv(t)
	e.member("m1", domain.RoleMember)
	e.event("e1", "", nil)

	minted, err := e.router.RSVPTokenService.Mint(context.Background(), "e1", "m1")
	require.NoError(t, err)
	path := strings.TrimPrefix(minted.URL, baseURL)

	rec := e.do(httptest.NewRequest(http.MethodGet, path+"?action=attend", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "You are attending Event e1.")

	rec = e.do(httptest.NewRequest(http.MethodGet, "/rsvp/not-a-token?action=attend", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(httptest.NewRequest(http.MethodGet, path+"?action=maybe", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionGate_RedirectsToSignIn(t *testing.T) {
	e := newEnv(t)

	rec := e.do(httptest.NewRequest(http.MethodGet, "/dashboard/member/profile?tab=email", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/signin", loc.Path)
	require.Equal(t, "/dashboard/member/profile?tab=email", loc.Query().Get(httpx.CallbackParam))

	// A forged cookie is treated as no cookie.
	rec = e.do(httptest.NewRequest(http.MethodGet, "/dashboard", nil),
		&http.Cookie{Name: sessionx.DefaultCookieName, Value: "forged"})
	require.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestSignUpSignInAndGate(t *testing.T) {
	e := newEnv(t)

	rec := e.do(form(http.MethodPost, "/signup", url.Values{
		"email":        {"Pat@Example.com"},
		"display_name": {"Pat"},
		"password":     {"correct horse"},
	}))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(form(http.MethodPost, "/signup", url.Values{
		"email":        {"pat@example.com"},
		"display_name": {"Pat again"},
		"password":     {"correct horse"},
	}))
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = e.do(form(http.MethodPost, "/signin", url.Values{
		"email":    {"pat@example.com"},
		"password": {"wrong password"},
	}))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "Email or password is incorrect.")

	rec = e.do(form(http.MethodPost, "/signin", url.Values{
		"email":       {"pat@example.com"},
		"password":    {"correct horse"},
		"callbackUrl": {"https://evil.example.com/"},
	}))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/dashboard", rec.Header().Get("Location"))
	cookie := sessionCookie(t, rec)

	get := func(path string) *httptest.ResponseRecorder {
		return e.do(httptest.NewRequest(http.MethodGet, path, nil), cookie)
	}

	rec = get("/dashboard")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/dashboard/waiver", rec.Header().Get("Location"))

	rec = get("/dashboard/welcome")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/dashboard", rec.Header().Get("Location"))

	rec = e.do(form(http.MethodPost, "/dashboard/waiver", url.Values{"accept": {"yes"}}), cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = get("/dashboard")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/dashboard/welcome", rec.Header().Get("Location"))

	rec = e.do(form(http.MethodPost, "/dashboard/welcome", nil), cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = get("/dashboard")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "awaiting approval")

	rec = e.do(form(http.MethodPost, "/signout", nil), cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionx.DefaultCookieName {
			require.Empty(t, c.Value)
		}
	}
}

func TestSignIn_CallbackIsKept(t *testing.T) {
	e := newEnv(t)
	_, err := e.members.Register(context.Background(), "sam@example.com", "Sam", "long enough")
	require.NoError(t, err)

	rec := e.do(httptest.NewRequest(http.MethodGet, "/signin?callbackUrl=%2Fdashboard%2Fmember%2Fprofile", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `value="/dashboard/member/profile"`)

	rec = e.do(form(http.MethodPost, "/signin", url.Values{
		"email":       {"sam@example.com"},
		"password":    {"long enough"},
		"callbackUrl": {"/dashboard/member/profile"},
	}))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/dashboard/member/profile", rec.Header().Get("Location"))
}

func TestEmailPreferences(t *testing.T) {
	e := newEnv(t)
	e.member("m1", domain.RoleMember)
	e.confirmed("m1")
	cookie := e.session("m1", domain.RoleMember)

	rec := e.do(form(http.MethodPost, "/dashboard/member/email", url.Values{"subscribed": {"no"}}), cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "You are not receiving league emails.")

	rec = e.do(form(http.MethodPost, "/dashboard/member/email", url.Values{"subscribed": {"yes"}}), cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "You are receiving league emails.")
}

func TestEventRSVP_Session(t *testing.T) {
	e := newEnv(t)
	e.member("m1", domain.RoleMember)
	e.member("p1", domain.RolePending)
	e.event("e1", "", nil)
	e.event("c1", "e1", intPtr(5))

	cookie := e.session("m1", domain.RoleMember)

	rec := e.do(form(http.MethodPost, "/events/e1/rsvp", url.Values{"op": {"attend"}}), cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/dashboard", rec.Header().Get("Location"))

	req := form(http.MethodPost, "/events/c1/rsvp", url.Values{"op": {"attend"}})
	req.Header.Set("Accept", "application/json")
	rec = e.do(req, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "clinic-rsvp", body["action"])
	require.Equal(t, float64(4), body["spots_left"])

	rec = e.do(form(http.MethodPost, "/events/missing/rsvp", url.Values{"op": {"attend"}}), cookie)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(form(http.MethodPost, "/events/e1/rsvp", url.Values{"op": {"attend"}}), e.session("p1", domain.RolePending))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(form(http.MethodPost, "/events/e1/rsvp?x=1", url.Values{"op": {"attend"}}))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/signin?callbackUrl=%2Fdashboard", rec.Header().Get("Location"))
}

func TestEventRSVP_SignedLink(t *testing.T) {
	e := newEnv(t)
	e.member("m1", domain.RoleMember)
	e.event("e1", "", nil)
	e.event("e2", "", nil)

	link := e.link(linkx.KindRSVP, "m1", map[string]string{"event": "e1"})
	query := link[strings.Index(link, "?"):]

	rec := e.do(form(http.MethodPost, "/events/e1/rsvp"+query, url.Values{"op": {"attend"}}))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "You are attending Event e1.")

	// The link only authorises the event it was issued for.
	rec = e.do(form(http.MethodPost, "/events/e2/rsvp"+query, url.Values{"op": {"attend"}}))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// The subject comes from the link, never from the form.
	rec = e.do(form(http.MethodPost, "/events/e1/rsvp"+strings.Replace(query, "id=m1", "id=m2", 1), url.Values{"op": {"attend"}}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEventRSVP_SessionOrLink(t *testing.T) {
	e := newEnv(t)
	e.member("m1", domain.RoleMember)
	e.member("m2", domain.RoleMember)
	e.event("e1", "", nil)
	e.event("e2", "", nil)
	cookie := e.session("m1", domain.RoleMember)

	link := e.link(linkx.KindRSVP, "m2", map[string]string{"event": "e1"})
	query := link[strings.Index(link, "?"):]
	tampered := query[:len(query)-1] + flipHex(query[len(query)-1:])

	// A broken link does not cancel out a valid session.
	rec := e.do(form(http.MethodPost, "/events/e1/rsvp"+tampered, url.Values{"op": {"attend"}}), cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/dashboard", rec.Header().Get("Location"))
	requireStatus(t, e, "e1", "m1", domain.RSVPAttending)
	requireStatus(t, e, "e1", "m2", domain.RSVPNone)

	// Neither does a valid link for another event.
	rec = e.do(form(http.MethodPost, "/events/e2/rsvp"+query, url.Values{"op": {"attend"}}), cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	requireStatus(t, e, "e2", "m1", domain.RSVPAttending)

	// A valid link acts for its own subject even next to another session.
	rec = e.do(form(http.MethodPost, "/events/e1/rsvp"+query, url.Values{"op": {"attend"}}), cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	requireStatus(t, e, "e1", "m2", domain.RSVPAttending)

	// Without a session the broken link is refused.
	rec = e.do(form(http.MethodPost, "/events/e1/rsvp"+tampered, url.Values{"op": {"cancel"}}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	requireStatus(t, e, "e1", "m2", domain.RSVPAttending)
}

func flipHex(c string) string {
	if c == "0" {
		return "1"
	}
	return "0"
}

func requireStatus(t *testing.T, e *env, eventID, memberID string, want domain.RSVPStatus) {
	t.Helper()
	r, err := e.store.RSVPs().GetRSVP(context.Background(), eventID, memberID)
	if want == domain.RSVPNone {
		require.Error(t, err)
		return
	}
	require.NoError(t, err)
	require.Equal(t, want, r.Status)
}

func TestAdmin(t *testing.T) {
	e := newEnv(t)
	e.member("a1", domain.RoleAdmin)
	e.member("m1", domain.RoleMember)
	pending := e.member(idx.New().String(), domain.RolePending)

	rec := e.do(httptest.NewRequest(http.MethodGet, "/dashboard/admin/members", nil), e.session("m1", domain.RoleMember))
	require.Equal(t, http.StatusForbidden, rec.Code)

	admin := e.session("a1", domain.RoleAdmin)
	rec = e.do(httptest.NewRequest(http.MethodGet, "/dashboard/admin/members", nil), admin)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), pending.Email)

	rec = e.do(form(http.MethodPost, "/dashboard/admin/members/"+pending.ID+"/approve", nil), admin)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	m, err := e.members.Get(context.Background(), pending.ID)
	require.NoError(t, err)
	require.Equal(t, domain.RoleMember, m.Role)

	for _, id := range []string{"nobody", idx.New().String()} {
		rec = e.do(form(http.MethodPost, "/dashboard/admin/members/"+id+"/approve", nil), admin)
		require.Equal(t, http.StatusNotFound, rec.Code, id)
	}

	rec = e.do(form(http.MethodPost, "/dashboard/admin/mfa/enroll", nil), admin)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "otpauth://")

	rec = e.do(form(http.MethodPost, "/dashboard/admin/mfa/verify", url.Values{"code": {"000000"}}), admin)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_IssueLink(t *testing.T) {
	e := newEnv(t)
	e.member("m1", domain.RoleMember)
	e.event("e1", "", nil)

	post := func(path, auth, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		return e.do(req)
	}

	rec := post("/v1/links", "", `{"action":"unsubscribe","subject_id":"m1"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = post("/v1/links", e.bearer(jwtx.ScopeEventsWrite), `{"action":"unsubscribe","subject_id":"m1"}`)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = post("/v1/links", e.bearer(jwtx.ScopeLinksIssue), `{"action":"unsubscribe","subject_id":""}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), linksdk.ErrorCodeInvalidSubject)

	rec = post("/v1/links", e.bearer(jwtx.ScopeLinksIssue), `{"action":"rsvp","subject_id":"m1"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), linksdk.ErrorCodeInvalidAction)

	rec = post("/v1/links", e.bearer(jwtx.ScopeLinksIssue), `{"action":"rsvp","subject_id":"m1","extra":{"event":"e1","op":"attend"}}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var issued linksdk.IssueLinkResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &issued))
	require.True(t, strings.HasPrefix(issued.URL, baseURL+"/actions?"))
	require.Greater(t, issued.ExpiresAt, time.Now().Unix())

	rec = e.do(httptest.NewRequest(http.MethodGet, strings.TrimPrefix(issued.URL, baseURL), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "You are attending Event e1.")

	for _, ttl := range []string{"-1", "63072001", "9223372036854775807"} {
		rec = post("/v1/links", e.bearer(jwtx.ScopeLinksIssue), `{"action":"unsubscribe","subject_id":"m1","ttl_seconds":`+ttl+`}`)
		require.Equal(t, http.StatusBadRequest, rec.Code, ttl)
		require.Contains(t, rec.Body.String(), linksdk.ErrorCodeInvalidRequest)
	}

	rec = post("/v1/links", e.bearer(jwtx.ScopeLinksIssue), `{"action":"unsubscribe","subject_id":"m1","ttl_seconds":3600}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &issued))
	require.InDelta(t, time.Now().Add(time.Hour).Unix(), issued.ExpiresAt, 5)

	rec = post("/v1/rsvp-tokens", e.bearer(jwtx.ScopeLinksIssue), `{"event_id":"e1","member_id":"m1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = post("/v1/rsvp-tokens", e.bearer(jwtx.ScopeLinksIssue), `{"event_id":"gone","member_id":"m1"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_CreateEvent(t *testing.T) {
	e := newEnv(t)
	auth := e.bearer(jwtx.ScopeEventsWrite)

	create := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/events", strings.NewReader(body))
		req.Header.Set("Authorization", auth)
		return e.do(req)
	}

	rec := create(`{"title":"Round 1","starts_at":"2026-03-01T09:00:00Z","capacity":20}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created linksdk.CreateEventResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	rec = create(`{"title":"Goalkeeping","starts_at":"2026-03-01T10:00:00Z","parent_id":"` + created.ID + `"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = create(`{"title":"","starts_at":"2026-03-01T09:00:00Z"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = create(`{"title":"Orphan","starts_at":"2026-03-01T09:00:00Z","parent_id":"missing"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	e := newEnv(t)

	rec := e.do(httptest.NewRequest(http.MethodGet, "/livez", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var health linksdk.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	require.Equal(t, "ok", health.Status)
	require.Equal(t, "test", health.Version)
	require.Equal(t, "ok", health.Checks.Database)

	require.NoError(t, e.store.Close())
	rec = e.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
