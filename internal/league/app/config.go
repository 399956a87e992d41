package app

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/aussiebroadwan/league/internal/league/service"
	"github.com/aussiebroadwan/league/pkg/linkx"
	"github.com/caarlos0/env/v11"
)

// minSecretLen matches the HMAC-SHA256 and AES-256 key sizes.
const minSecretLen = 32

type Config struct {
	LinkSecret         string `env:"LEAGUE_LINK_SECRET"`          // Required: action link signing secret
	LinkSecretPrevious string `env:"LEAGUE_LINK_SECRET_PREVIOUS"` // Optional: still verified during rotation
	SessionSecret      string `env:"LEAGUE_SESSION_SECRET"`       // Required: session cookie encryption secret
	APISecret          string `env:"LEAGUE_API_SECRET"`           // Optional: HS256 key for /v1; API disabled when empty
	APIIssuer          string `env:"LEAGUE_API_ISSUER" envDefault:"league"`

	BaseURL string `env:"LEAGUE_BASE_URL" envDefault:"http://localhost:8080"` // Absolute URL used in issued links

	DatabaseDriver string `env:"LEAGUE_DATABASE_DRIVER" envDefault:"sqlite"` // sqlite or postgres
	DatabaseFile   string `env:"LEAGUE_DATABASE_FILE" envDefault:"league.db"`
	DatabaseURL    string `env:"LEAGUE_DATABASE_URL"` // postgres DSN
	PepperFile     string `env:"LEAGUE_PEPPER_FILE" envDefault:"pepper"`

	SessionTTL          time.Duration `env:"LEAGUE_SESSION_TTL" envDefault:"336h"`
	SessionRefreshAfter time.Duration `env:"LEAGUE_SESSION_REFRESH_AFTER" envDefault:"24h"`
	CookieSecure        bool          `env:"LEAGUE_COOKIE_SECURE" envDefault:"true"`

	LinkTTLUnsubscribe time.Duration `env:"LEAGUE_LINK_TTL_UNSUBSCRIBE" envDefault:"8760h"`
	LinkTTLRSVP        time.Duration `env:"LEAGUE_LINK_TTL_RSVP" envDefault:"72h"`
	LinkTTLClinicRSVP  time.Duration `env:"LEAGUE_LINK_TTL_CLINIC_RSVP" envDefault:"72h"`
	LinkTTLSignIn      time.Duration `env:"LEAGUE_LINK_TTL_SIGNIN" envDefault:"15m"`
	LinkLeeway         time.Duration `env:"LEAGUE_LINK_LEEWAY" envDefault:"5s"`
	RSVPTokenTTL       time.Duration `env:"LEAGUE_RSVP_TOKEN_TTL" envDefault:"336h"`

	Timezone  string `env:"LEAGUE_TIMEZONE" envDefault:"UTC"` // Decides the waiver calendar year
	MFAIssuer string `env:"LEAGUE_MFA_ISSUER" envDefault:"League"`

	OTelEndpoint string `env:"LEAGUE_OTEL_ENDPOINT"` // Tracing is off when empty

	Env                  string        `env:"ENV" envDefault:"dev"`
	LogLevel             string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat            string        `env:"LOG_FORMAT" envDefault:"json"`
	Port                 int           `env:"PORT" envDefault:"8080"`
	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1h"`
}

// LoadConfig reads Config from the environment. It does not validate
// secrets; New does.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

var (
	ErrMissingLinkSecret    = errors.New("LEAGUE_LINK_SECRET is required")
	ErrMissingSessionSecret = errors.New("LEAGUE_SESSION_SECRET is required")
	ErrSharedSecret         = errors.New("LEAGUE_LINK_SECRET and LEAGUE_SESSION_SECRET must differ")
)

// Validate reports the first configuration error that keeps the service
// from starting.
func (c Config) Validate() error {
	switch {
	case c.LinkSecret == "":
		return ErrMissingLinkSecret
	case c.SessionSecret == "":
		return ErrMissingSessionSecret
	case len(c.LinkSecret) < minSecretLen:
		return fmt.Errorf("LEAGUE_LINK_SECRET must be at least %d bytes", minSecretLen)
	case len(c.SessionSecret) < minSecretLen:
		return fmt.Errorf("LEAGUE_SESSION_SECRET must be at least %d bytes", minSecretLen)
	case c.LinkSecretPrevious != "" && len(c.LinkSecretPrevious) < minSecretLen:
		return fmt.Errorf("LEAGUE_LINK_SECRET_PREVIOUS must be at least %d bytes", minSecretLen)
	case c.APISecret != "" && len(c.APISecret) < minSecretLen:
		return fmt.Errorf("LEAGUE_API_SECRET must be at least %d bytes", minSecretLen)
	case c.LinkSecret == c.SessionSecret || c.LinkSecretPrevious == c.SessionSecret:
		return ErrSharedSecret
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("LEAGUE_BASE_URL %q must be an absolute http(s) URL", c.BaseURL)
	}

	switch c.DatabaseDriver {
	case "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("LEAGUE_DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown LEAGUE_DATABASE_DRIVER %q", c.DatabaseDriver)
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("LEAGUE_TIMEZONE: %w", err)
	}
	return nil
}

// LinkTTLs is the per action lifetime of issued links.
func (c Config) LinkTTLs() service.TTLPolicy {
	return service.TTLPolicy{
		linkx.KindUnsubscribe: c.LinkTTLUnsubscribe,
		linkx.KindRSVP:        c.LinkTTLRSVP,
		linkx.KindClinicRSVP:  c.LinkTTLClinicRSVP,
		linkx.KindSignIn:      c.LinkTTLSignIn,
	}
}
