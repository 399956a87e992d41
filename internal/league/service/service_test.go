package service

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/aussiebroadwan/league/internal/league/domain"
	"github.com/aussiebroadwan/league/internal/league/store"
	"github.com/aussiebroadwan/league/internal/league/store/drivers/sqlite"
	"github.com/aussiebroadwan/league/pkg/linkx"
	"github.com/stretchr/testify/require"
)

var (
	linkSecret     = []byte("0123456789abcdef0123456789abcdef-link")
	rotatedSecret  = []byte("fedcba9876543210fedcba9876543210-next")
	testBaseURL    = "https://league.example.org"
	testNow        = time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	fixedTestClock = Clock(func() time.Time { return testNow })
)

func newTestStore(t *testing.T, dsn string) *sqlite.Store {
	t.Helper()
	s, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedMember(t *testing.T, s store.Store, id string, role domain.Role) domain.Member {
	t.Helper()
	m := domain.Member{
		ID:           id,
		Email:        id + "@example.com",
		DisplayName:  "Member " + id,
		PasswordHash: "$argon2id$stub",
		Role:         role,
	}
	require.NoError(t, s.Members().CreateMember(context.Background(), m))
	return m
}

func seedEvent(t *testing.T, s store.Store, id, parentID string, capacity *int) domain.Event {
	t.Helper()
	e := domain.Event{
		ID:       id,
		ParentID: parentID,
		Title:    "Event " + id,
		StartsAt: testNow.Add(72 * time.Hour),
		Capacity: capacity,
	}
	require.NoError(t, s.Events().CreateEvent(context.Background(), e))
	return e
}

func intPtr(v int) *int { return &v }

func newKeyring(t *testing.T, at time.Time) *linkx.Keyring {
	t.Helper()
	k, err := linkx.NewKeyring(linkSecret, nil, linkx.WithClock(func() time.Time { return at }))
	require.NoError(t, err)
	return k
}

func newIssuer(t *testing.T, k *linkx.Keyring) *LinkIssuer {
	t.Helper()
	i, err := NewLinkIssuer(k, testBaseURL, nil, fixedTestClock)
	require.NoError(t, err)
	return i
}

// testEnv wires the link services over one store.
type testEnv struct {
	store    *sqlite.Store
	issuer   *LinkIssuer
	resolver *ActionResolver
	rsvps    *RSVPService
	subs     *SubscriptionService
	tokens   *RSVPTokenService
}

func newTestEnv(t *testing.T, dsn string) *testEnv {
	t.Helper()
	st := newTestStore(t, dsn)
	k := newKeyring(t, testNow)
	rsvps := &RSVPService{Store: st, Clock: fixedTestClock}
	subs := &SubscriptionService{Store: st, Clock: fixedTestClock}
	tokens := &RSVPTokenService{Store: st, BaseURL: testBaseURL, Clock: fixedTestClock}
	return &testEnv{
		store:  st,
		issuer: newIssuer(t, k),
		resolver: &ActionResolver{
			Keyring:       k,
			RSVPs:         rsvps,
			Subscriptions: subs,
			Tokens:        tokens,
			Store:         st,
		},
		rsvps:  rsvps,
		subs:   subs,
		tokens: tokens,
	}
}

func (e *testEnv) issue(t *testing.T, kind linkx.Kind, subject string, extra map[string]string) url.Values {
	t.Helper()
	link, err := e.issuer.Issue(context.Background(), kind, subject, 0, extra)
	require.NoError(t, err)
	u, err := url.Parse(link.URL)
	require.NoError(t, err)
	return u.Query()
}
