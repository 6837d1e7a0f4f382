package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/facegate/facegate/internal/auth"
	"github.com/facegate/facegate/internal/config"
)

var authenticateCmd = &cobra.Command{
	Use:   "authenticate",
	Short: "Authenticate a face probe against enrolled identities",
	Long: `Match a probe against the enrolled identities and print the signed
credential on success. The probe comes either from a photo (--photo) or
from a JSON file with a precomputed embedding (--embedding-file).`,
	RunE: runAuthenticate,
}

func init() {
	rootCmd.AddCommand(authenticateCmd)

	authenticateCmd.Flags().String("photo", "", "Path to a face photo")
	authenticateCmd.Flags().String("embedding-file", "", "Path to a JSON file with a precomputed embedding")
}

func runAuthenticate(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	probe, err := resolveEmbedding(ctx, cmd, cfg)
	if err != nil {
		return err
	}

	service, closeStore, err := buildService(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	result, err := service.Authenticate(ctx, probe)
	if errors.Is(err, auth.ErrAuthenticationFailed) {
		return errors.New("authentication failed: no enrolled identity within the match threshold")
	}
	if err != nil {
		return err
	}

	fmt.Printf("Authenticated as %s (%s)\n", result.Identity.DisplayName, result.Identity.Contact)
	fmt.Printf("  Distance: %.4f\n", result.Distance)
	fmt.Printf("  Expires:  %s\n", time.Unix(result.Claims.ExpiresAt, 0).UTC().Format(time.RFC3339))
	fmt.Printf("  Token:    %s\n", result.Token)
	return nil
}
