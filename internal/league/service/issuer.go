package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"strings"
	"time"

	"github.com/aussiebroadwan/league/pkg/linkx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ActionPath is where issued links point.
const ActionPath = "/actions"

// TTLPolicy is the default lifetime of a link per action kind.
type TTLPolicy map[linkx.Kind]time.Duration

// DefaultTTLPolicy keeps unsubscribe links usable for a year and keeps links
// tied to a fixture short.
func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		linkx.KindUnsubscribe: 365 * 24 * time.Hour,
		linkx.KindRSVP:        72 * time.Hour,
		linkx.KindClinicRSVP:  72 * time.Hour,
		linkx.KindSignIn:      15 * time.Minute,
	}
}

// IssuedLink is an absolute action URL and the moment it stops working.
type IssuedLink struct {
	URL       string
	ExpiresAt time.Time
}

// LinkIssuer builds signed action links for outbound email. It never touches
// the store.
type LinkIssuer struct {
	keyring *linkx.Keyring
	base    *url.URL
	ttl     TTLPolicy
	clock   Clock
}

// NewLinkIssuer validates baseURL, which must be absolute. Kinds missing from
// ttl use DefaultTTLPolicy.
func NewLinkIssuer(keyring *linkx.Keyring, baseURL string, ttl TTLPolicy, clock Clock) (*LinkIssuer, error) {
	if keyring == nil {
		return nil, errors.New("link issuer: nil keyring")
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("link issuer: base url: %w", err)
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("link issuer: base url %q is not absolute", baseURL)
	}

	policy := DefaultTTLPolicy()
	for k, d := range ttl {
		if d > 0 {
			policy[k] = d
		}
	}
	return &LinkIssuer{keyring: keyring, base: base, ttl: policy, clock: clock}, nil
}

// TTL returns the configured lifetime for kind.
func (i *LinkIssuer) TTL(kind linkx.Kind) time.Duration {
	return i.ttl[kind]
}

// Issue signs a link letting subjectID perform kind. A non-positive ttl uses
// the policy for kind.
func (i *LinkIssuer) Issue(ctx context.Context, kind linkx.Kind, subjectID string, ttl time.Duration, extra map[string]string) (IssuedLink, error) {
	_, span := tracer.Start(ctx, "actionlink.issue")
	defer span.End()
	span.SetAttributes(attribute.String("action", string(kind)))

	link, err := i.issue(kind, subjectID, ttl, extra)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return link, err
}

func (i *LinkIssuer) issue(kind linkx.Kind, subjectID string, ttl time.Duration, extra map[string]string) (IssuedLink, error) {
	if strings.TrimSpace(subjectID) == "" {
		return IssuedLink{}, ErrInvalidSubject
	}
	if _, ok := linkx.ParseKind(string(kind)); !ok {
		return IssuedLink{}, fmt.Errorf("%w: %q", ErrInvalidAction, kind)
	}
	if ttl <= 0 {
		ttl = i.ttl[kind]
	}

	expires := i.clock.now().Add(ttl).Truncate(time.Second)
	c := linkx.Claims{
		Action:    kind,
		SubjectID: subjectID,
		ExpiresAt: expires.Unix(),
	}
	if len(extra) > 0 {
		c.Extra = maps.Clone(extra)
	}
	if _, err := ActionFromClaims(c); err != nil {
		return IssuedLink{}, err
	}

	q, err := i.keyring.SignedValues(c)
	if err != nil {
		return IssuedLink{}, err
	}
	u := i.base.JoinPath(ActionPath)
	u.RawQuery = q.Encode()
	return IssuedLink{URL: u.String(), ExpiresAt: c.Expiry()}, nil
}
