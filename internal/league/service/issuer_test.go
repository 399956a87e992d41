package service

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/aussiebroadwan/league/pkg/linkx"
	"github.com/stretchr/testify/require"
)

func TestNewLinkIssuer_RequiresAbsoluteBase(t *testing.T) {
	k := newKeyring(t, testNow)
	for _, base := range []string{"", "/relative", "league.example.org", "ftp://league.example.org"} {
		_, err := NewLinkIssuer(k, base, nil, fixedTestClock)
		require.Error(t, err, base)
	}
}

func TestIssue(t *testing.T) {
	k := newKeyring(t, testNow)
	i := newIssuer(t, k)

	t.Run("empty subject", func(t *testing.T) {
		_, err := i.Issue(context.Background(), linkx.KindUnsubscribe, "  ", 0, nil)
		require.ErrorIs(t, err, ErrInvalidSubject)
	})

	t.Run("unknown action", func(t *testing.T) {
		_, err := i.Issue(context.Background(), linkx.Kind("delete-account"), "m1", 0, nil)
		require.ErrorIs(t, err, ErrInvalidAction)
	})

	t.Run("bad extras", func(t *testing.T) {
		_, err := i.Issue(context.Background(), linkx.KindRSVP, "m1", 0, nil)
		require.ErrorIs(t, err, ErrInvalidAction)

		_, err = i.Issue(context.Background(), linkx.KindRSVP, "m1", 0, map[string]string{"event": "e1", "op": "maybe"})
		require.ErrorIs(t, err, ErrInvalidAction)

		_, err = i.Issue(context.Background(), linkx.KindSignIn, "m1", 0, map[string]string{"callback": "https://evil.example"})
		require.ErrorIs(t, err, ErrInvalidAction)
	})

	t.Run("absolute url with default ttl", func(t *testing.T) {
		link, err := i.Issue(context.Background(), linkx.KindUnsubscribe, "m1", 0, nil)
		require.NoError(t, err)
		require.Equal(t, testNow.Add(365*24*time.Hour), link.ExpiresAt)

		u, err := url.Parse(link.URL)
		require.NoError(t, err)
		require.Equal(t, "https", u.Scheme)
		require.Equal(t, "league.example.org", u.Host)
		require.Equal(t, ActionPath, u.Path)

		c, err := k.VerifyQuery(u.Query())
		require.NoError(t, err)
		require.Equal(t, linkx.KindUnsubscribe, c.Action)
		require.Equal(t, "m1", c.SubjectID)
	})

	t.Run("explicit ttl and extras", func(t *testing.T) {
		link, err := i.Issue(context.Background(), linkx.KindRSVP, "m1", time.Hour, map[string]string{"event": "e1", "op": "attend"})
		require.NoError(t, err)
		require.Equal(t, testNow.Add(time.Hour), link.ExpiresAt)

		u, err := url.Parse(link.URL)
		require.NoError(t, err)
		require.Equal(t, "e1", u.Query().Get("event"))
		require.Equal(t, "attend", u.Query().Get("op"))
	})

	t.Run("deterministic", func(t *testing.T) {
		a, err := i.Issue(context.Background(), linkx.KindRSVP, "m1", 0, map[string]string{"event": "e1"})
		require.NoError(t, err)
		b, err := i.Issue(context.Background(), linkx.KindRSVP, "m1", 0, map[string]string{"event": "e1"})
		require.NoError(t, err)
		require.Equal(t, a, b)
	})
}

func TestLinkIssuer_TTLPolicyOverrides(t *testing.T) {
	k := newKeyring(t, testNow)
	i, err := NewLinkIssuer(k, testBaseURL, TTLPolicy{linkx.KindRSVP: 6 * time.Hour}, fixedTestClock)
	require.NoError(t, err)

	require.Equal(t, 6*time.Hour, i.TTL(linkx.KindRSVP))
	require.Equal(t, 72*time.Hour, i.TTL(linkx.KindClinicRSVP))
	require.Equal(t, 15*time.Minute, i.TTL(linkx.KindSignIn))
}
