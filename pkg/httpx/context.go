package httpx

import (
	"context"

	"github.com/aussiebroadwan/league/pkg/jwtx"
	"github.com/aussiebroadwan/league/pkg/sessionx"
)

type ctxKey string

const (
	ctxKeySubject ctxKey = "subject"
	ctxKeyScopes  ctxKey = "scopes"
	ctxKeyClaims  ctxKey = "claims"
	ctxKeySession ctxKey = "session"
)

// SubjectFromContext returns the authenticated subject, from either a bearer
// token or a session, or "".
func SubjectFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeySubject).(string)
	return v
}

// ClaimsFromContext returns the bearer token claims placed by AuthnMiddleware.
func ClaimsFromContext(ctx context.Context) (jwtx.Claims, bool) {
	c, ok := ctx.Value(ctxKeyClaims).(jwtx.Claims)
	return c, ok
}

// SessionFromContext returns the session placed by SessionGate.
func SessionFromContext(ctx context.Context) (sessionx.Session, bool) {
	s, ok := ctx.Value(ctxKeySession).(sessionx.Session)
	return s, ok
}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s sessionx.Session) context.Context {
	ctx = context.WithValue(ctx, ctxKeySubject, s.SubjectID)
	return context.WithValue(ctx, ctxKeySession, s)
}

func withClaims(ctx context.Context, c jwtx.Claims) context.Context {
	ctx = context.WithValue(ctx, ctxKeySubject, c.Subject)
	ctx = context.WithValue(ctx, ctxKeyScopes, c.Scopes)
	return context.WithValue(ctx, ctxKeyClaims, c)
}

func scopesFromCtx(ctx context.Context) []string {
	if v, ok := ctx.Value(ctxKeyScopes).([]string); ok {
		return v
	}
	return nil
}
