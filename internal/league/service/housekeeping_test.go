package service

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/league/internal/league/domain"
	"github.com/aussiebroadwan/league/internal/league/store"
	"github.com/aussiebroadwan/league/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestHousekeeping_Cleanup(t *testing.T) {
	st := newTestStore(t, ":memory:")
	ctx := context.Background()
	seedMember(t, st, "m1", domain.RoleMember)
	seedEvent(t, st, "e1", "", nil)

	require.NoError(t, st.UsedLinks().MarkLinkUsed(ctx, "old", testNow.Add(-time.Minute)))
	require.NoError(t, st.UsedLinks().MarkLinkUsed(ctx, "live", testNow.Add(time.Minute)))
	require.NoError(t, st.RSVPTokens().CreateRSVPToken(ctx, domain.RSVPToken{
		TokenHash: "old", EventID: "e1", MemberID: "m1", ExpiresAt: testNow.Add(-time.Hour),
	}))
	require.NoError(t, st.RSVPTokens().CreateRSVPToken(ctx, domain.RSVPToken{
		TokenHash: "live", EventID: "e1", MemberID: "m1", ExpiresAt: testNow.Add(time.Hour),
	}))

	hk := NewHousekeepingService(st, slogx.Discard(), 0)
	hk.Clock = fixedTestClock
	require.Equal(t, time.Hour, hk.Interval)
	hk.Cleanup(ctx)

	require.NoError(t, st.UsedLinks().MarkLinkUsed(ctx, "old", testNow.Add(time.Minute)))
	require.ErrorIs(t, st.UsedLinks().MarkLinkUsed(ctx, "live", testNow.Add(time.Minute)), store.ErrAlreadyUsed)

	_, err := st.RSVPTokens().GetActiveRSVPToken(ctx, "live", testNow)
	require.NoError(t, err)
	n, err := st.RSVPTokens().DeleteExpiredRSVPTokens(ctx, testNow)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestHousekeeping_StartStop(t *testing.T) {
	st := newTestStore(t, ":memory:")
	hk := NewHousekeepingService(st, slogx.Discard(), time.Millisecond)
	hk.Start()
	time.Sleep(5 * time.Millisecond)
	hk.Stop()
}
