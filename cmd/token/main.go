// Command token issues a session token for operators and integration tests.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"consultbook/internal/auth"
	"consultbook/internal/config"
	"consultbook/internal/models"
)

func main() {
	var (
		configPath = flag.String("config", "configs/config.yaml", "path to config.yaml")
		subject    = flag.String("sub", "", "actor id (customer, consultant or staff id)")
		role       = flag.String("role", string(models.RoleCustomer), "actor role")
		ttl        = flag.Duration("ttl", 0, "token lifetime, defaults to api.auth.token_ttl")
	)
	flag.Parse()

	if env := os.Getenv("CONFIG_PATH"); env != "" && !isFlagSet("config") {
		*configPath = env
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	r, err := models.ParseRole(*role)
	if err != nil {
		log.Fatalf("role: %v", err)
	}

	lifetime := cfg.API.Auth.TokenTTL
	if *ttl > 0 {
		lifetime = *ttl
	}

	issuer := auth.NewIssuer(cfg.API.Auth.JWTSecret, cfg.API.Auth.Issuer, lifetime)
	token, expires, err := issuer.Issue(models.Actor{ID: *subject, Role: r})
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}

	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires at %s\n", expires.Format(time.RFC3339))
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
