package sessionx

import (
	"net/http"
	"time"
)

// DefaultCookieName is the session cookie name.
const DefaultCookieName = "league_session"

// CookieOptions controls how the session cookie is written.
type CookieOptions struct {
	Name   string
	Path   string
	Secure bool
}

// Manager binds a Codec to HTTP cookies.
type Manager struct {
	codec        *Codec
	cookie       CookieOptions
	refreshAfter time.Duration
}

// NewManager returns a Manager. Sessions older than refreshAfter are reissued
// on use; zero disables sliding refresh.
func NewManager(codec *Codec, cookie CookieOptions, refreshAfter time.Duration) *Manager {
	if cookie.Name == "" {
		cookie.Name = DefaultCookieName
	}
	if cookie.Path == "" {
		cookie.Path = "/"
	}
	return &Manager{codec: codec, cookie: cookie, refreshAfter: refreshAfter}
}

// FromRequest authenticates the session cookie on r.
func (m *Manager) FromRequest(r *http.Request) (Session, error) {
	c, err := r.Cookie(m.cookie.Name)
	if err != nil {
		return Session{}, ErrUnauthenticated
	}
	return m.codec.Authenticate(c.Value)
}

// Start issues a new session and writes its cookie.
func (m *Manager) Start(w http.ResponseWriter, subjectID, role string) (Session, error) {
	s := m.codec.New(subjectID, role)
	if err := m.write(w, s); err != nil {
		return Session{}, err
	}
	return s, nil
}

// Refresh reissues s when it is older than the refresh threshold. The
// returned session is the one now held by the client.
func (m *Manager) Refresh(w http.ResponseWriter, s Session) Session {
	if m.refreshAfter <= 0 || m.codec.now().Sub(s.IssuedAt) < m.refreshAfter {
		return s
	}
	renewed := m.codec.New(s.SubjectID, s.Role)
	if err := m.write(w, renewed); err != nil {
		return s
	}
	return renewed
}

// End clears the session cookie.
func (m *Manager) End(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie.Name,
		Value:    "",
		Path:     m.cookie.Path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) write(w http.ResponseWriter, s Session) error {
	value, err := m.codec.Encode(s)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie.Name,
		Value:    value,
		Path:     m.cookie.Path,
		Expires:  s.ExpiresAt,
		MaxAge:   int(s.ExpiresAt.Sub(m.codec.now()).Seconds()),
		HttpOnly: true,
		Secure:   m.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
