package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // LEAGUE_TIMEZONE in scratch images

	"github.com/aussiebroadwan/league/internal/league/app"
	"github.com/aussiebroadwan/league/pkg/jwtx"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := mintToken(cfg, os.Args[2:]); err != nil {
			log.Fatalf("token: %v", err)
		}
		return
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}

// mintToken prints a bearer token for the link issuance API, e.g. for the
// mail job's secret store.
func mintToken(cfg app.Config, args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	subject := fs.String("subject", "mailer", "token subject")
	scopes := fs.String("scopes", jwtx.ScopeLinksIssue, "comma separated scopes")
	ttl := fs.Duration("ttl", 30*24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if cfg.APISecret == "" {
		return fmt.Errorf("LEAGUE_API_SECRET is not set")
	}
	keys, err := jwtx.NewHS256([]byte(cfg.APISecret), cfg.APIIssuer)
	if err != nil {
		return err
	}

	var granted []string
	for s := range strings.SplitSeq(*scopes, ",") {
		if s = strings.TrimSpace(s); s != "" {
			granted = append(granted, s)
		}
	}

	token, err := keys.Sign(jwtx.NewServiceClaims(*subject, cfg.APIIssuer, granted, *ttl, time.Now()))
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
