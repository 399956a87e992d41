package service

import (
	"fmt"

	"github.com/aussiebroadwan/league/pkg/httpx"
	"github.com/aussiebroadwan/league/pkg/linkx"
)

// RSVPOp is the transition an RSVP request asks for.
type RSVPOp string

const (
	OpToggle RSVPOp = "toggle"
	OpAttend RSVPOp = "attend"
	OpCancel RSVPOp = "cancel"
)

// ParseRSVPOp maps the wire value onto an op. Empty means toggle.
func ParseRSVPOp(s string) (RSVPOp, bool) {
	switch RSVPOp(s) {
	case "", OpToggle:
		return OpToggle, true
	case OpAttend, OpCancel:
		return RSVPOp(s), true
	}
	return "", false
}

// Action is the typed form of a verified link's claims. The set of
// implementations is closed; dispatch switches over it exhaustively.
type Action interface {
	Kind() linkx.Kind
	isAction()
}

type Unsubscribe struct{}

type RSVP struct {
	EventID string
	Op      RSVPOp
}

type ClinicRSVP struct {
	EventID  string
	ClinicID string
	Op       RSVPOp
}

// ResumeSignIn signs the subject in and continues at Callback.
type ResumeSignIn struct {
	Callback string
}

func (Unsubscribe) Kind() linkx.Kind  { return linkx.KindUnsubscribe }
func (RSVP) Kind() linkx.Kind         { return linkx.KindRSVP }
func (ClinicRSVP) Kind() linkx.Kind   { return linkx.KindClinicRSVP }
func (ResumeSignIn) Kind() linkx.Kind { return linkx.KindSignIn }

func (Unsubscribe) isAction()  {}
func (RSVP) isAction()         {}
func (ClinicRSVP) isAction()   {}
func (ResumeSignIn) isAction() {}

// ActionFromClaims converts claims into their Action. Claims that pass
// linkx validation can still carry an unknown op or a non-local callback.
func ActionFromClaims(c linkx.Claims) (Action, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAction, err)
	}

	switch c.Action {
	case linkx.KindUnsubscribe:
		return Unsubscribe{}, nil
	case linkx.KindRSVP:
		op, ok := ParseRSVPOp(c.Get(linkx.ExtraOp))
		if !ok {
			return nil, fmt.Errorf("%w: op %q", ErrInvalidAction, c.Get(linkx.ExtraOp))
		}
		return RSVP{EventID: c.Get(linkx.ExtraEvent), Op: op}, nil
	case linkx.KindClinicRSVP:
		op, ok := ParseRSVPOp(c.Get(linkx.ExtraOp))
		if !ok {
			return nil, fmt.Errorf("%w: op %q", ErrInvalidAction, c.Get(linkx.ExtraOp))
		}
		return ClinicRSVP{EventID: c.Get(linkx.ExtraEvent), ClinicID: c.Get(linkx.ExtraClinic), Op: op}, nil
	case linkx.KindSignIn:
		cb := c.Get(linkx.ExtraCallback)
		if !httpx.LocalPath(cb) {
			return nil, fmt.Errorf("%w: callback is not a local path", ErrInvalidAction)
		}
		return ResumeSignIn{Callback: cb}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrInvalidAction, c.Action)
}
