package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/aussiebroadwan/league/pkg/httpx"
	"github.com/aussiebroadwan/league/pkg/sessionx"
	"github.com/stretchr/testify/require"
)

type stubSessions struct {
	session   sessionx.Session
	err       error
	refreshed bool
}

func (s *stubSessions) FromRequest(*http.Request) (sessionx.Session, error) {
	return s.session, s.err
}

func (s *stubSessions) Refresh(_ http.ResponseWriter, sess sessionx.Session) sessionx.Session {
	s.refreshed = true
	return sess
}

func TestSessionGate_RedirectsWithCallback(t *testing.T) {
	sessions := &stubSessions{err: sessionx.ErrUnauthenticated}
	called := false
	h := httpx.SessionGate(sessions, "/signin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	tests := []struct {
		name   string
		target string
	}{
		{"path only", "/dashboard"},
		{"nested path", "/dashboard/member/profile"},
		{"path and query", "/dashboard/member/profile?tab=rsvps&page=2"},
		{"escaped query", "/dashboard?next=%2Fevents%2F1&q=a+b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			require.False(t, called)
			require.Equal(t, http.StatusSeeOther, rec.Code)

			loc, err := url.Parse(rec.Header().Get("Location"))
			require.NoError(t, err)
			require.Equal(t, "/signin", loc.Path)
			require.Equal(t, tt.target, loc.Query().Get(httpx.CallbackParam))
		})
	}
}

func TestSessionGate_PassesSession(t *testing.T) {
	sessions := &stubSessions{session: sessionx.Session{SubjectID: "m-1", Role: "member"}}

	var got sessionx.Session
	var subject string
	h := httpx.SessionGate(sessions, "/signin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = httpx.SessionFromContext(r.Context())
		subject = httpx.SubjectFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "m-1", got.SubjectID)
	require.Equal(t, "m-1", subject)
	require.True(t, sessions.refreshed)
}

func TestRequireRole(t *testing.T) {
	h := httpx.RequireRole("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	serve := func(role string) int {
		req := httptest.NewRequest(http.MethodGet, "/dashboard/admin/members", nil)
		if role != "" {
			req = req.WithContext(httpx.WithSession(req.Context(), sessionx.Session{SubjectID: "m-1", Role: role}))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusNoContent, serve("admin"))
	require.Equal(t, http.StatusForbidden, serve("member"))
	require.Equal(t, http.StatusForbidden, serve(""))
}

func TestLocalPath(t *testing.T) {
	tests := []struct {
		target string
		want   bool
	}{
		{"/dashboard", true},
		{"/dashboard/member/profile?tab=1", true},
		{"/", true},
		{"", false},
		{"dashboard", false},
		{"//evil.example/path", false},
		{"/\\evil.example", false},
		{"https://evil.example/", false},
		{"/ok\r\nSet-Cookie: x", false},
		{"/\t/evil.example", false},
		{"/\x00", false},
		{"/\x7f", false},
		{"/%09/evil", false},
		{"/dashboard?q=%20ok", true},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			require.Equal(t, tt.want, httpx.LocalPath(tt.target))
		})
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}), mw("first"), mw("second"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, []string{"first", "second", "handler"}, order)
}
