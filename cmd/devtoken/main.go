// Command devtoken mints a bearer token for local testing against the API.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/spec-kit/expense-ticket-service/internal/auth"
	"github.com/spec-kit/expense-ticket-service/internal/config"
	"github.com/spec-kit/expense-ticket-service/internal/domain"
)

func main() {
	employeeID := flag.String("employee", "", "employee id (token subject)")
	tenantID := flag.String("tenant", "", "tenant id")
	role := flag.String("role", string(domain.RoleEmployee), "role claim: employee or admin")
	flag.Parse()

	if *employeeID == "" || *tenantID == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	tokens := auth.NewTokenManager(cfg.Auth, cfg.App.Name)
	token, expiresAt, err := tokens.GenerateToken(*employeeID, *tenantID, domain.Role(*role))
	if err != nil {
		log.Fatalf("failed to sign token: %v", err)
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires at %s\n", expiresAt.Format("2006-01-02T15:04:05Z07:00"))
}
