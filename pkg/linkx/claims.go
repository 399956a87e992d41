package linkx

import (
	"fmt"
	"time"
)

// Kind identifies what a signed link allows its holder to do.
type Kind string

const (
	KindUnsubscribe Kind = "unsubscribe"
	KindRSVP        Kind = "rsvp"
	KindClinicRSVP  Kind = "clinic-rsvp"
	KindSignIn      Kind = "signin"
)

// Extra keys carried by the action kinds.
const (
	ExtraEvent    = "event"
	ExtraClinic   = "clinic"
	ExtraOp       = "op"
	ExtraCallback = "callback"
)

type extraSchema struct {
	required []string
	optional []string
}

var schemas = map[Kind]extraSchema{
	KindUnsubscribe: {},
	KindRSVP:        {required: []string{ExtraEvent}, optional: []string{ExtraOp}},
	KindClinicRSVP:  {required: []string{ExtraEvent, ExtraClinic}, optional: []string{ExtraOp}},
	KindSignIn:      {required: []string{ExtraCallback}},
}

// Kinds returns every known action kind.
func Kinds() []Kind {
	return []Kind{KindUnsubscribe, KindRSVP, KindClinicRSVP, KindSignIn}
}

// ParseKind maps the wire value onto a Kind.
func ParseKind(s string) (Kind, bool) {
	k := Kind(s)
	_, ok := schemas[k]
	return k, ok
}

// OneShot reports whether a link of this kind may only be resolved once.
func (k Kind) OneShot() bool {
	return k == KindSignIn
}

func (k Kind) String() string { return string(k) }

// Claims is the payload embedded in an action link. Claims are never stored
// server side, the link is the only copy.
type Claims struct {
	Action    Kind
	SubjectID string
	ExpiresAt int64 // unix seconds

	// Extra holds action specific values such as the target event id. It is
	// nil when the action carries no extras.
	Extra map[string]string
}

// Expiry returns ExpiresAt as a time.Time.
func (c Claims) Expiry() time.Time {
	return time.Unix(c.ExpiresAt, 0).UTC()
}

// Get returns an extra value or "".
func (c Claims) Get(key string) string {
	if c.Extra == nil {
		return ""
	}
	return c.Extra[key]
}

// Validate checks the claims against the schema of their action kind.
func (c Claims) Validate() error {
	schema, ok := schemas[c.Action]
	if !ok {
		return fmt.Errorf("%w: unknown action", ErrMalformed)
	}
	if c.SubjectID == "" {
		return fmt.Errorf("%w: empty subject", ErrMalformed)
	}
	if c.ExpiresAt <= 0 {
		return fmt.Errorf("%w: missing expiry", ErrMalformed)
	}

	allowed := make(map[string]bool, len(schema.required)+len(schema.optional))
	for _, k := range schema.required {
		allowed[k] = true
		if c.Extra[k] == "" {
			return fmt.Errorf("%w: missing %s", ErrMalformed, k)
		}
	}
	for _, k := range schema.optional {
		allowed[k] = true
	}
	for k, v := range c.Extra {
		if !allowed[k] {
			return fmt.Errorf("%w: unexpected field %q", ErrMalformed, k)
		}
		if v == "" {
			return fmt.Errorf("%w: empty %s", ErrMalformed, k)
		}
	}
	return nil
}
