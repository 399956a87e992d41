package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aussiebroadwan/league/pkg/linkx"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *Application {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("LEAGUE_DATABASE_FILE", filepath.Join(dir, "league.db"))
	t.Setenv("LEAGUE_PEPPER_FILE", filepath.Join(dir, "pepper"))
	t.Setenv("LEAGUE_BASE_URL", "https://league.example.org")
	t.Setenv("LOG_LEVEL", "error")
	cfg := validConfig(t)

	application, err := New(cfg)
	require.NoError(t, err)
	return application
}

func TestNew_RejectsMissingSecrets(t *testing.T) {
	_, err := New(Config{})
	require.ErrorIs(t, err, ErrMissingLinkSecret)
}

func TestApplication_ServesIssuedLinks(t *testing.T) {
	application := newTestApp(t)
	application.housekeepingService.Start()
	t.Cleanup(func() { require.NoError(t, application.Shutdown()) })

	rec := httptest.NewRecorder()
	application.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	link, err := application.linkIssuer.Issue(context.Background(), linkx.KindUnsubscribe, "m1", 0, nil)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(link.URL, "https://league.example.org/actions?"))

	rec = httptest.NewRecorder()
	application.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, strings.TrimPrefix(link.URL, "https://league.example.org"), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Unsubscribed")

	// The API is off without LEAGUE_API_SECRET.
	rec = httptest.NewRecorder()
	application.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/links", strings.NewReader("{}")))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
