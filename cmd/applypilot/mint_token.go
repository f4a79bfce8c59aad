package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/applypilot/internal/session"
)

var (
	mintUserID string
	mintTTL    time.Duration
)

var mintTokenCmd = &cobra.Command{
	Use:   "mint-token",
	Short: "Mint a signed session token",
	Long:  "Mint an HMAC-signed session token for a user ID, for local development and testing.",
	RunE:  runMintToken,
}

func init() {
	mintTokenCmd.Flags().StringVar(&mintUserID, "user", "", "User ID to embed in the token (defaults to a fresh ID)")
	mintTokenCmd.Flags().DurationVar(&mintTTL, "ttl", 24*time.Hour, "Token lifetime")
	rootCmd.AddCommand(mintTokenCmd)
}

func runMintToken(_ *cobra.Command, _ []string) error {
	secret := os.Getenv("APPLYPILOT_JWT_SECRET")
	if secret == "" {
		return fmt.Errorf("APPLYPILOT_JWT_SECRET environment variable is required")
	}

	userID := uuid.New()
	if mintUserID != "" {
		parsed, err := uuid.Parse(mintUserID)
		if err != nil {
			return fmt.Errorf("invalid --user: %w", err)
		}
		userID = parsed
	}

	token, err := session.SignToken(secret, userID, mintTTL)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "User:  %s\n", userID)
	fmt.Fprintf(os.Stdout, "Token: %s\n", token)
	return nil
}
