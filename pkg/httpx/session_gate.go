package httpx

import (
	"net/http"
	"net/url"

	"github.com/aussiebroadwan/league/pkg/sessionx"
	"github.com/aussiebroadwan/league/pkg/slogx"
)

// SessionReader authenticates and refreshes the session cookie of a request.
type SessionReader interface {
	FromRequest(r *http.Request) (sessionx.Session, error)
	Refresh(w http.ResponseWriter, s sessionx.Session) sessionx.Session
}

// CallbackParam carries the originally requested path+query to sign-in.
const CallbackParam = "callbackUrl"

// SignInRedirect returns the sign-in URL that resumes at r's path and query.
func SignInRedirect(signInPath string, r *http.Request) string {
	return signInPath + "?" + url.Values{CallbackParam: {r.URL.RequestURI()}}.Encode()
}

// SessionGate lets requests with a valid session through and redirects
// everyone else to sign-in with the requested path and query as callback.
func SessionGate(sessions SessionReader, signInPath string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := sessions.FromRequest(r)
			if err != nil {
				slogx.FromContext(r.Context()).Debug("session gate: unauthenticated", "path", r.URL.Path)
				http.Redirect(w, r, SignInRedirect(signInPath, r), http.StatusSeeOther)
				return
			}
			s = sessions.Refresh(w, s)

			ctx := WithSession(r.Context(), s)
			ctx = slogx.WithContext(ctx, slogx.FromContext(ctx).With("subject", s.SubjectID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
