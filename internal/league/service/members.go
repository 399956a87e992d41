package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/aussiebroadwan/league/internal/league/domain"
	"github.com/aussiebroadwan/league/internal/league/store"
	"github.com/aussiebroadwan/league/pkg/cryptox"
	"github.com/aussiebroadwan/league/pkg/idx"
	"github.com/aussiebroadwan/league/pkg/slogx"
)

const minPasswordLen = 8

type MemberService struct {
	Store  store.Store
	Hasher *cryptox.PasswordHasher
	Clock  Clock

	// Location decides which calendar year waivers count towards. Nil is UTC.
	Location *time.Location
}

func (s *MemberService) now() time.Time {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	return s.Clock.now().In(loc)
}

// Year is the calendar year waiver and welcome confirmations count towards.
func (s *MemberService) Year() int {
	return s.now().Year()
}

// Register creates a pending member with a subscription row.
func (s *MemberService) Register(ctx context.Context, email, displayName, password string) (domain.Member, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	displayName = strings.TrimSpace(displayName)

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return domain.Member{}, fmt.Errorf("%w: email", ErrInvalidInput)
	}
	if displayName == "" {
		return domain.Member{}, fmt.Errorf("%w: display name", ErrInvalidInput)
	}
	if len(password) < minPasswordLen {
		return domain.Member{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLen)
	}

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return domain.Member{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.Clock.now()
	m := domain.Member{
		ID:           idx.NewAt(now).String(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
		Role:         domain.RolePending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Members().CreateMember(ctx, m); err != nil {
			return err
		}
		return tx.Subscriptions().SetEmailOptOut(ctx, m.ID, false, now)
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		return domain.Member{}, ErrEmailTaken
	}
	if err != nil {
		return domain.Member{}, err
	}

	slogx.FromContext(ctx).Info("member registered", slog.String("member_id", m.ID))
	return m, nil
}

// SignIn checks credentials. Members with MFA enabled must also supply a
// valid TOTP code; an empty code yields ErrMFARequired.
func (s *MemberService) SignIn(ctx context.Context, email, password, totpCode string) (domain.Member, error) {
	log := slogx.FromContext(ctx)

	m, err := s.Store.Members().GetMemberByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, store.ErrNotFound) {
		log.Warn("sign-in for unknown email")
		return domain.Member{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.Member{}, err
	}

	if err := s.Hasher.Verify(password, m.PasswordHash); err != nil {
		log.Warn("sign-in with wrong password", slog.String("member_id", m.ID))
		return domain.Member{}, ErrInvalidCredentials
	}

	if m.MFAEnabled() {
		if totpCode == "" {
			return domain.Member{}, ErrMFARequired
		}
		if !validTOTP(totpCode, *m.TOTPSecret, s.Clock.now()) {
			log.Warn("sign-in with wrong TOTP code", slog.String("member_id", m.ID))
			return domain.Member{}, ErrInvalidTOTPCode
		}
	}
	return m, nil
}

// Get fetches a member by id.
func (s *MemberService) Get(ctx context.Context, memberID string) (domain.Member, error) {
	return s.Store.Members().GetMemberByID(ctx, memberID)
}

// Gate loads the member and evaluates the dashboard gate at the current time.
func (s *MemberService) Gate(ctx context.Context, memberID string) (domain.Member, domain.GateState, error) {
	m, err := s.Get(ctx, memberID)
	if err != nil {
		return domain.Member{}, domain.GateActive, err
	}
	return m, m.Gate(s.now()), nil
}

func (s *MemberService) ConfirmWaiver(ctx context.Context, memberID string) error {
	return s.Store.Members().ConfirmWaiver(ctx, memberID, s.Clock.now())
}

// ConfirmWelcome records the welcome acknowledgement. It requires a waiver
// for the current year first.
func (s *MemberService) ConfirmWelcome(ctx context.Context, memberID string) error {
	m, state, err := s.Gate(ctx, memberID)
	if err != nil {
		return err
	}
	if state == domain.GateNeedsWaiver {
		return fmt.Errorf("%w: waiver not confirmed", ErrInvalidInput)
	}
	return s.Store.Members().ConfirmWelcome(ctx, m.ID, s.Clock.now())
}

// Approve promotes a pending member.
func (s *MemberService) Approve(ctx context.Context, memberID string) error {
	m, err := s.Get(ctx, memberID)
	if err != nil {
		return err
	}
	if m.Role != domain.RolePending {
		return ErrNotPending
	}
	if err := s.Store.Members().UpdateRole(ctx, memberID, domain.RoleMember); err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("member approved", slog.String("member_id", memberID))
	return nil
}

// ListPending returns members awaiting approval, oldest first.
func (s *MemberService) ListPending(ctx context.Context) ([]domain.Member, error) {
	return s.Store.Members().ListMembersByRole(ctx, domain.RolePending)
}
