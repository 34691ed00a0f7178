package main

import (
	"context"
	"fmt"
	stdlog "log"

	"crewsync-service/internal/infrastructure/config"
	"crewsync-service/internal/interface/merlot"
	"crewsync-service/pkg/logger"
)

// Fetches a Merlot token with the configured credentials, for poking the API
// by hand during setup.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		stdlog.Fatalf("failed to load config: %v", err)
	}

	client := merlot.NewClient(cfg, logger.NewLogger())
	token, err := client.CreateToken(context.Background(), "")
	if err != nil {
		stdlog.Fatalf("failed to fetch token: %v", err)
	}

	fmt.Printf("Access token:  %s\n", token.Access)
	fmt.Printf("Refresh token: %s\n", token.Refresh)
	fmt.Printf("Expires:       %s\n", token.ExpiresOn)
}
