package service

import (
	"context"
	"net/url"
	"path"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/league/internal/league/domain"
	"github.com/aussiebroadwan/league/pkg/linkx"
	"github.com/stretchr/testify/require"
)

func TestResolve_UnsubscribeIsIdempotent(t *testing.T) {
	env := newTestEnv(t, ":memory:")
	seedMember(t, env.store, "m1", domain.RoleMember)
	q := env.issue(t, linkx.KindUnsubscribe, "m1", nil)

	for range 2 {
		out := env.resolver.Resolve(context.Background(), q)
		require.True(t, out.Success)
		require.Equal(t, ReasonNone, out.Reason)
		require.Equal(t, linkx.KindUnsubscribe, out.Action)

		sub, err := env.subs.Get(context.Background(), "m1")
		require.NoError(t, err)
		require.True(t, sub.EmailOptOut)
	}
}

func TestResolve_InvalidLinksAreGeneric(t *testing.T) {
	env := newTestEnv(t, ":memory:")
	valid := env.issue(t, linkx.KindUnsubscribe, "m1", nil)

	tamper := func(mut func(url.Values)) url.Values {
		q := url.Values{}
		for k, v := range valid {
			q[k] = append([]string(nil), v...)
		}
		mut(q)
		return q
	}

	cases := map[string]url.Values{
		"empty":           {},
		"missing sig":     tamper(func(q url.Values) { q.Del(linkx.ParamSignature) }),
		"other subject":   tamper(func(q url.Values) { q.Set(linkx.ParamSubject, "m2") }),
		"longer expiry":   tamper(func(q url.Values) { q.Set(linkx.ParamExpires, "9999999999") }),
		"flipped sig":     tamper(func(q url.Values) { q.Set(linkx.ParamSignature, flipFirst(q.Get(linkx.ParamSignature))) }),
		"extra field":     tamper(func(q url.Values) { q.Set("event", "e1") }),
		"duplicate field": tamper(func(q url.Values) { q.Add(linkx.ParamSubject, "m1") }),
		"unknown action":  tamper(func(q url.Values) { q.Set(linkx.ParamAction, "delete") }),
	}

	var messages []string
	for name, q := range cases {
		t.Run(name, func(t *testing.T) {
			out := env.resolver.Resolve(context.Background(), q)
			require.False(t, out.Success)
			require.Equal(t, ReasonInvalid, out.Reason)
			require.Empty(t, out.Action)
			require.NotEmpty(t, out.Message)
			messages = append(messages, out.Message)
		})
	}
	for _, m := range messages {
		require.Equal(t, messages[0], m)
	}

	sub, err := env.subs.Get(context.Background(), "m2")
	require.NoError(t, err)
	require.False(t, sub.EmailOptOut)
}

func flipFirst(sig string) string {
	if sig[0] == '0' {
		return "1" + sig[1:]
	}
	return "0" + sig[1:]
}

func TestResolve_Expired(t *testing.T) {
	env := newTestEnv(t, ":memory:")
	q := env.issue(t, linkx.KindRSVP, "m1", map[string]string{"event": "e1"})

	later := newKeyring(t, testNow.Add(72*time.Hour+linkx.DefaultLeeway+time.Second))
	env.resolver.Keyring = later

	out := env.resolver.Resolve(context.Background(), q)
	require.False(t, out.Success)
	require.Equal(t, ReasonExpired, out.Reason)
	require.Equal(t, linkx.KindRSVP, out.Action)
	require.NotEmpty(t, out.Guidance)

	within := newKeyring(t, testNow.Add(72*time.Hour+linkx.DefaultLeeway))
	env.resolver.Keyring = within
	out = env.resolver.Resolve(context.Background(), q)
	require.Equal(t, ReasonNoEvent, out.Reason)
}

func TestResolve_RSVP(t *testing.T) {
	env := newTestEnv(t, ":memory:")
	seedMember(t, env.store, "m1", domain.RoleMember)
	seedEvent(t, env.store, "e1", "", nil)
	ctx := context.Background()

	t.Run("toggle flips", func(t *testing.T) {
		q := env.issue(t, linkx.KindRSVP, "m1", map[string]string{"event": "e1"})

		out := env.resolver.Resolve(ctx, q)
		require.True(t, out.Success)
		require.Equal(t, domain.RSVPAttending, out.Status)
		require.Equal(t, 1, out.Event.AttendingCount)

		out = env.resolver.Resolve(ctx, q)
		require.True(t, out.Success)
		require.Equal(t, domain.RSVPNotAttending, out.Status)
		require.Equal(t, 0, out.Event.AttendingCount)
	})

	t.Run("attend twice does not double book", func(t *testing.T) {
		q := env.issue(t, linkx.KindRSVP, "m1", map[string]string{"event": "e1", "op": "attend"})
		for range 2 {
			out := env.resolver.Resolve(ctx, q)
			require.True(t, out.Success)
			require.Equal(t, domain.RSVPAttending, out.Status)
			require.Equal(t, 1, out.Event.AttendingCount)
		}
	})

	t.Run("cancel twice", func(t *testing.T) {
		q := env.issue(t, linkx.KindRSVP, "m1", map[string]string{"event": "e1", "op": "cancel"})
		for range 2 {
			out := env.resolver.Resolve(ctx, q)
			require.True(t, out.Success)
			require.Equal(t, domain.RSVPNotAttending, out.Status)
			require.Equal(t, 0, out.Event.AttendingCount)
		}
	})

	t.Run("missing event", func(t *testing.T) {
		q := env.issue(t, linkx.KindRSVP, "m1", map[string]string{"event": "gone"})
		out := env.resolver.Resolve(ctx, q)
		require.False(t, out.Success)
		require.Equal(t, ReasonNoEvent, out.Reason)
	})
}

func TestResolve_ClinicReasons(t *testing.T) {
	env := newTestEnv(t, ":memory:")
	ctx := context.Background()
	seedMember(t, env.store, "m1", domain.RoleMember)
	seedMember(t, env.store, "m2", domain.RoleMember)
	seedEvent(t, env.store, "e1", "", nil)
	seedEvent(t, env.store, "other", "", nil)
	seedEvent(t, env.store, "c1", "e1", intPtr(1))
	seedEvent(t, env.store, "c2", "e1", intPtr(5))
	seedEvent(t, env.store, "c3", "other", intPtr(5))
	require.NoError(t, env.store.Events().CancelEvent(ctx, "c2"))

	attend := func(subject, clinic string) Outcome {
		q := env.issue(t, linkx.KindClinicRSVP, subject, map[string]string{"event": "e1", "clinic": clinic, "op": "attend"})
		return env.resolver.Resolve(ctx, q)
	}

	out := attend("m1", "c1")
	require.True(t, out.Success)

	out = attend("m2", "c1")
	require.False(t, out.Success)
	require.Equal(t, ReasonFull, out.Reason)

	out = attend("m2", "c2")
	require.Equal(t, ReasonNoClinic, out.Reason)

	out = attend("m2", "missing")
	require.Equal(t, ReasonNoClinic, out.Reason)

	out = attend("m2", "c3")
	require.Equal(t, ReasonNoClinic, out.Reason)

	full, noClinic := attend("m2", "c1"), attend("m2", "c2")
	require.NotEqual(t, full.Message, noClinic.Message)
	require.NotEqual(t, full.Message, invalidOutcome().Message)
}

func TestResolve_ConcurrentAttendLastSlot(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "league.db") + "?_pragma=busy_timeout(5000)&_txlock=immediate"
	env := newTestEnv(t, dsn)
	seedMember(t, env.store, "m1", domain.RoleMember)
	seedMember(t, env.store, "m2", domain.RoleMember)
	seedEvent(t, env.store, "e1", "", nil)
	seedEvent(t, env.store, "c1", "e1", intPtr(1))

	links := []url.Values{
		env.issue(t, linkx.KindClinicRSVP, "m1", map[string]string{"event": "e1", "clinic": "c1", "op": "attend"}),
		env.issue(t, linkx.KindClinicRSVP, "m2", map[string]string{"event": "e1", "clinic": "c1", "op": "attend"}),
	}

	outcomes := make([]Outcome, len(links))
	var wg sync.WaitGroup
	for i, q := range links {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i] = env.resolver.Resolve(context.Background(), q)
		}()
	}
	wg.Wait()

	var ok, full int
	for _, out := range outcomes {
		switch {
		case out.Success:
			ok++
		case out.Reason == ReasonFull:
			full++
		}
	}
	require.Equal(t, 1, ok)
	require.Equal(t, 1, full)

	ev, err := env.store.Events().GetEvent(context.Background(), "c1")
	require.NoError(t, err)
	require.Equal(t, 1, ev.AttendingCount)
}

func TestResolve_SignInIsOneShot(t *testing.T) {
	env := newTestEnv(t, ":memory:")
	seedMember(t, env.store, "m1", domain.RoleMember)
	q := env.issue(t, linkx.KindSignIn, "m1", map[string]string{"callback": "/dashboard/member/profile?x=1"})

	out := env.resolver.Resolve(context.Background(), q)
	require.True(t, out.Success)
	require.Equal(t, "/dashboard/member/profile?x=1", out.Redirect)
	require.Equal(t, "m1", out.SubjectID)

	out = env.resolver.Resolve(context.Background(), q)
	require.False(t, out.Success)
	require.Equal(t, ReasonUsed, out.Reason)
	require.Empty(t, out.Redirect)
}

func TestResolve_SecretRotation(t *testing.T) {
	env := newTestEnv(t, ":memory:")
	seedMember(t, env.store, "m1", domain.RoleMember)
	q := env.issue(t, linkx.KindUnsubscribe, "m1", nil)

	rotated, err := env.resolver.Keyring.Rotate(rotatedSecret)
	require.NoError(t, err)
	env.resolver.Keyring = rotated
	require.True(t, env.resolver.Resolve(context.Background(), q).Success)

	env.resolver.Keyring = rotated.Retire()
	require.Equal(t, ReasonInvalid, env.resolver.Resolve(context.Background(), q).Reason)
}

func TestResolveToken(t *testing.T) {
	env := newTestEnv(t, ":memory:")
	ctx := context.Background()
	seedMember(t, env.store, "m1", domain.RoleMember)
	seedEvent(t, env.store, "e1", "", intPtr(10))

	minted, err := env.tokens.Mint(ctx, "e1", "m1")
	require.NoError(t, err)
	u, err := url.Parse(minted.URL)
	require.NoError(t, err)
	require.Equal(t, RSVPTokenPath, path.Dir(u.Path))
	token := path.Base(u.Path)

	out := env.resolver.ResolveToken(ctx, token, "attend")
	require.True(t, out.Success)
	require.Equal(t, domain.RSVPAttending, out.Status)
	require.Equal(t, "m1", out.SubjectID)

	out = env.resolver.ResolveToken(ctx, token, "")
	require.True(t, out.Success)
	require.Equal(t, domain.RSVPNotAttending, out.Status)

	out = env.resolver.ResolveToken(ctx, token, "bogus")
	require.Equal(t, ReasonInvalid, out.Reason)

	out = env.resolver.ResolveToken(ctx, "not-a-token", "attend")
	require.False(t, out.Success)
	require.NotEmpty(t, out.Message)

	_, err = env.tokens.Mint(ctx, "missing", "m1")
	require.ErrorIs(t, err, ErrReferentMissing)
	_, err = env.tokens.Mint(ctx, "e1", "")
	require.ErrorIs(t, err, ErrInvalidSubject)
}

func TestApplyRSVP(t *testing.T) {
	env := newTestEnv(t, ":memory:")
	seedMember(t, env.store, "m1", domain.RoleMember)
	seedEvent(t, env.store, "e1", "", intPtr(1))
	seedEvent(t, env.store, "c1", "e1", nil)
	ctx := context.Background()

	out := env.resolver.ApplyRSVP(ctx, "m1", RSVP{EventID: "e1", Op: OpAttend})
	require.True(t, out.Success)
	require.Equal(t, linkx.KindRSVP, out.Action)
	require.Equal(t, "m1", out.SubjectID)
	require.Equal(t, domain.RSVPAttending, out.Status)

	out = env.resolver.ApplyRSVP(ctx, "m1", ClinicRSVP{EventID: "e1", ClinicID: "c1", Op: OpAttend})
	require.True(t, out.Success)
	require.Equal(t, linkx.KindClinicRSVP, out.Action)

	out = env.resolver.ApplyRSVP(ctx, "m1", Unsubscribe{})
	require.False(t, out.Success)
	require.Equal(t, ReasonInvalid, out.Reason)

	sub, err := env.subs.Get(ctx, "m1")
	require.NoError(t, err)
	require.False(t, sub.EmailOptOut)
}
