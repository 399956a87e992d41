package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/league/internal/league/domain"
	httpapi "github.com/aussiebroadwan/league/internal/league/http"
	"github.com/aussiebroadwan/league/internal/league/service"
	"github.com/aussiebroadwan/league/internal/league/store"
	"github.com/aussiebroadwan/league/internal/league/store/drivers/postgres"
	"github.com/aussiebroadwan/league/internal/league/store/drivers/sqlite"
	"github.com/aussiebroadwan/league/pkg/cryptox"
	"github.com/aussiebroadwan/league/pkg/httpx"
	"github.com/aussiebroadwan/league/pkg/jwtx"
	"github.com/aussiebroadwan/league/pkg/linkx"
	"github.com/aussiebroadwan/league/pkg/sessionx"
	"github.com/aussiebroadwan/league/pkg/slogx"
)

const serviceName = "league"

// BuildVersion is overridden at build time via -ldflags "-X".
var BuildVersion = "v0.1.0"

// Application wires configuration, storage, services and the HTTP server.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	keyring  *linkx.Keyring
	sessions *sessionx.Manager
	apiKeys  *jwtx.HS256 // nil when the API is disabled

	// Services
	memberService       *service.MemberService
	mfaService          *service.MFAService
	eventService        *service.EventService
	rsvpService         *service.RSVPService
	subscriptionService *service.SubscriptionService
	rsvpTokenService    *service.RSVPTokenService
	linkIssuer          *service.LinkIssuer
	actionResolver      *service.ActionResolver
	housekeepingService *service.HousekeepingService

	shutdownTracing func(context.Context) error

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New validates cfg and builds the application. Missing or weak secrets are
// reported here, before anything listens.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: serviceName,
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	ctx := context.Background()

	shutdownTracing, err := SetupTracing(ctx, cfg.OTelEndpoint, serviceName, BuildVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}
	app.shutdownTracing = shutdownTracing

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}
	if err := app.initSecrets(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Handler exposes the routed handler, mainly for tests.
func (app *Application) Handler() http.Handler {
	return app.router
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("league service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"driver", app.cfg.DatabaseDriver,
		"api_enabled", app.apiKeys != nil,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down league service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.shutdownTracing(ctx); err != nil {
		app.logger.Error("error flushing traces", "error", err)
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("league service stopped")
	return nil
}

// initDatabase opens the configured driver and applies migrations
func (app *Application) initDatabase(ctx context.Context) error {
	var (
		db  store.Store
		err error
	)
	switch app.cfg.DatabaseDriver {
	case "postgres":
		db, err = postgres.NewStore(ctx, app.cfg.DatabaseURL)
	default:
		dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate", app.cfg.DatabaseFile)
		db, err = sqlite.NewStore(dsn)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

// initSecrets builds the link keyring, the session manager and the optional
// API token verifier. Each uses its own secret.
func (app *Application) initSecrets() error {
	var previous []byte
	if app.cfg.LinkSecretPrevious != "" {
		previous = []byte(app.cfg.LinkSecretPrevious)
	}
	keyring, err := linkx.NewKeyring([]byte(app.cfg.LinkSecret), previous, linkx.WithLeeway(app.cfg.LinkLeeway))
	if err != nil {
		return fmt.Errorf("failed to initialize link keyring: %w", err)
	}
	app.keyring = keyring

	codec, err := sessionx.NewCodec([]byte(app.cfg.SessionSecret), app.cfg.SessionTTL, domain.Roles()...)
	if err != nil {
		return fmt.Errorf("failed to initialize sessions: %w", err)
	}
	app.sessions = sessionx.NewManager(codec, sessionx.CookieOptions{
		Name:   sessionx.DefaultCookieName,
		Secure: app.cfg.CookieSecure,
	}, app.cfg.SessionRefreshAfter)

	if app.cfg.APISecret != "" {
		keys, err := jwtx.NewHS256([]byte(app.cfg.APISecret), app.cfg.APIIssuer)
		if err != nil {
			return fmt.Errorf("failed to initialize API keys: %w", err)
		}
		app.apiKeys = keys
	}
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() error {
	pepper, err := cryptox.LoadOrCreatePepper(app.cfg.PepperFile)
	if err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}
	loc, err := time.LoadLocation(app.cfg.Timezone)
	if err != nil {
		return fmt.Errorf("failed to load timezone: %w", err)
	}

	app.memberService = &service.MemberService{
		Store:    app.db,
		Hasher:   cryptox.NewPasswordHasher(pepper),
		Location: loc,
	}
	app.mfaService = &service.MFAService{Store: app.db, Issuer: app.cfg.MFAIssuer}
	app.eventService = &service.EventService{Store: app.db}
	app.rsvpService = &service.RSVPService{Store: app.db}
	app.subscriptionService = &service.SubscriptionService{Store: app.db}
	app.rsvpTokenService = &service.RSVPTokenService{
		Store:   app.db,
		BaseURL: app.cfg.BaseURL,
		TTL:     app.cfg.RSVPTokenTTL,
	}

	issuer, err := service.NewLinkIssuer(app.keyring, app.cfg.BaseURL, app.cfg.LinkTTLs(), nil)
	if err != nil {
		return err
	}
	app.linkIssuer = issuer

	app.actionResolver = &service.ActionResolver{
		Keyring:       app.keyring,
		RSVPs:         app.rsvpService,
		Subscriptions: app.subscriptionService,
		Tokens:        app.rsvpTokenService,
		Store:         app.db,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	var verifier jwtx.Verifier
	if app.apiKeys != nil {
		verifier = app.apiKeys
	}

	router := httpapi.NewRouter(
		app.sessions,
		verifier,
		httpx.LoadRateLimits(),
		BuildVersion,
		app.db,
		app.logger,
	)

	router.MemberService = app.memberService
	router.MFAService = app.mfaService
	router.EventService = app.eventService
	router.SubscriptionService = app.subscriptionService
	router.RSVPTokenService = app.rsvpTokenService
	router.LinkIssuer = app.linkIssuer
	router.ActionResolver = app.actionResolver
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
