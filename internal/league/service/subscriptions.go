package service

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/league/internal/league/domain"
	"github.com/aussiebroadwan/league/internal/league/store"
)

type SubscriptionService struct {
	Store store.Store
	Clock Clock
}

// Unsubscribe opts memberID out of league email. Repeating it is a no-op.
func (s *SubscriptionService) Unsubscribe(ctx context.Context, memberID string) error {
	return s.Store.Subscriptions().SetEmailOptOut(ctx, memberID, true, s.Clock.now())
}

// Resubscribe reverses Unsubscribe.
func (s *SubscriptionService) Resubscribe(ctx context.Context, memberID string) error {
	return s.Store.Subscriptions().SetEmailOptOut(ctx, memberID, false, s.Clock.now())
}

// Get returns the member's preference. Members without a recorded preference
// are subscribed.
func (s *SubscriptionService) Get(ctx context.Context, memberID string) (domain.Subscription, error) {
	sub, err := s.Store.Subscriptions().GetSubscription(ctx, memberID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Subscription{MemberID: memberID}, nil
	}
	return sub, err
}
