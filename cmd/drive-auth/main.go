// Command drive-auth runs the loopback OAuth flow once and prints the
// resulting access token, useful for verifying a Drive client setup
// outside the server.
package main

import (
	"context"
	"fmt"
	stdlog "log"

	"moneymap/internal/cli"
	"moneymap/internal/drive"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	if !cfg.SyncEnabled() {
		stdlog.Fatalf("set GOOGLE_CLIENT_ID to a valid OAuth web client ID")
	}

	auth := drive.NewAuthenticator(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.OAuthRedirectPort)
	auth.PromptURL = func(url string) {
		fmt.Printf("Open this URL to authorize:\n%s\n", url)
	}

	token, err := auth.Authorize(context.Background())
	if err != nil {
		stdlog.Fatalf("authorization failed: %v", err)
	}

	fmt.Println("Authorization succeeded.")
	fmt.Printf("Access token: %s\n", token)

	// A quick round trip proves the token reaches the Drive API.
	client := drive.NewClient(cfg.DriveFileName)
	fileID, err := client.EnsureFile(context.Background(), token, "", cfg.DriveFileName)
	if err != nil {
		stdlog.Fatalf("drive check failed: %v", err)
	}
	fmt.Printf("Backup document ready: %s (%s)\n", cfg.DriveFileName, fileID)
}
