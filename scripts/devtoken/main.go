package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/noah-isme/uniflow-academic-api/internal/models"
	"github.com/noah-isme/uniflow-academic-api/internal/service"
	"github.com/noah-isme/uniflow-academic-api/pkg/config"
)

// devtoken prints a bearer token accepted when AUTH_PROVIDER=jwt.
func main() {
	subject := flag.String("sub", "", "student id (token subject)")
	email := flag.String("email", "", "student email")
	name := flag.String("name", "", "display name")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *subject == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Auth.Provider != config.AuthProviderJWT {
		log.Printf("warning: AUTH_PROVIDER is %q, the API will not accept this token", cfg.Auth.Provider)
	}

	issuer := service.NewJWTTokenValidator(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, nil)
	token, err := issuer.IssueToken(models.Principal{Subject: *subject, Email: *email, Name: *name}, *ttl, time.Now())
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}
	fmt.Println(token)
}
