package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/aussiebroadwan/league/internal/league/domain"
	"github.com/aussiebroadwan/league/internal/league/store"
	"github.com/aussiebroadwan/league/pkg/cryptox"
	"github.com/aussiebroadwan/league/pkg/slogx"
)

// RSVPTokenPath prefixes opaque RSVP token links.
const RSVPTokenPath = "/rsvp"

const defaultRSVPTokenTTL = 14 * 24 * time.Hour

// RSVPTokenService mints and looks up opaque /rsvp/<token> links. Only the
// token fingerprint is stored.
type RSVPTokenService struct {
	Store   store.Store
	BaseURL string
	TTL     time.Duration
	Clock   Clock
}

// MintedToken is a freshly minted RSVP link.
type MintedToken struct {
	URL       string
	ExpiresAt time.Time
}

// Mint creates a token for memberID on eventID.
func (s *RSVPTokenService) Mint(ctx context.Context, eventID, memberID string) (MintedToken, error) {
	if memberID == "" {
		return MintedToken{}, ErrInvalidSubject
	}
	if _, err := s.Store.Members().GetMemberByID(ctx, memberID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return MintedToken{}, ErrInvalidSubject
		}
		return MintedToken{}, err
	}
	ev, err := s.Store.Events().GetEvent(ctx, eventID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && ev.Cancelled) {
		return MintedToken{}, fmt.Errorf("%w: %s", ErrReferentMissing, eventID)
	}
	if err != nil {
		return MintedToken{}, err
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return MintedToken{}, err
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = defaultRSVPTokenTTL
	}
	now := s.Clock.now()
	t := domain.RSVPToken{
		TokenHash: cryptox.FingerprintToken(token),
		EventID:   eventID,
		MemberID:  memberID,
		ExpiresAt: now.Add(ttl).Truncate(time.Second),
		CreatedAt: now,
	}
	if err := s.Store.RSVPTokens().CreateRSVPToken(ctx, t); err != nil {
		return MintedToken{}, fmt.Errorf("failed to store rsvp token: %w", err)
	}

	u, err := url.JoinPath(s.BaseURL, RSVPTokenPath, token)
	if err != nil {
		return MintedToken{}, err
	}
	return MintedToken{URL: u, ExpiresAt: t.ExpiresAt}, nil
}

// Lookup resolves token for the action resolver.
func (s *RSVPTokenService) Lookup(ctx context.Context, token string) TokenLookup {
	if token == "" {
		return TokenLookup{Message: "This RSVP link is incomplete."}
	}
	t, err := s.Store.RSVPTokens().GetActiveRSVPToken(ctx, cryptox.FingerprintToken(token), s.Clock.now())
	if errors.Is(err, store.ErrNotFound) {
		return TokenLookup{Message: "This RSVP link is invalid or has expired."}
	}
	if err != nil {
		slogx.FromContext(ctx).Error("rsvp token lookup failed", slog.Any("error", err))
		return TokenLookup{Message: "We could not check this RSVP link right now."}
	}

	ev, err := s.Store.Events().GetEvent(ctx, t.EventID)
	if errors.Is(err, store.ErrNotFound) {
		return TokenLookup{Message: "This event no longer exists."}
	}
	if err != nil {
		slogx.FromContext(ctx).Error("rsvp token event lookup failed", slog.Any("error", err))
		return TokenLookup{Message: "We could not check this RSVP link right now."}
	}
	return TokenLookup{Success: true, Event: &ev, MemberID: t.MemberID}
}
