package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/facegate/facegate/internal/auth"
	"github.com/facegate/facegate/internal/config"
	"github.com/facegate/facegate/internal/extractor"
	"github.com/facegate/facegate/internal/match"
	"github.com/facegate/facegate/internal/token"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Enroll a new identity",
	Long: `Enroll a new identity into the embedding store.
The face embedding comes either from a photo sent to the extraction
service (--photo) or from a JSON file with a precomputed vector
(--embedding-file).`,
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("name", "", "Display name of the identity (required)")
	enrollCmd.Flags().String("contact", "", "Contact address of the identity (required)")
	enrollCmd.Flags().String("photo", "", "Path to a face photo")
	enrollCmd.Flags().String("embedding-file", "", "Path to a JSON file with a precomputed embedding")
	enrollCmd.MarkFlagRequired("name")
	enrollCmd.MarkFlagRequired("contact")
}

// buildService opens the store and wires the service for CLI commands.
// The caller must Close the returned store.
func buildService(ctx context.Context, cfg *config.Config) (*auth.Service, func(), error) {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	matcher := match.NewMatcher(st, cfg.Auth.MatchThreshold)
	issuer := token.NewIssuer(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)
	return auth.NewService(st, matcher, issuer), func() { st.Close() }, nil
}

// resolveEmbedding produces an embedding from --photo or --embedding-file.
func resolveEmbedding(ctx context.Context, cmd *cobra.Command, cfg *config.Config) ([]float32, error) {
	photoPath := mustGetString(cmd, "photo")
	embeddingPath := mustGetString(cmd, "embedding-file")

	switch {
	case photoPath != "" && embeddingPath != "":
		return nil, errors.New("--photo and --embedding-file are mutually exclusive")

	case photoPath != "":
		photo, err := os.ReadFile(photoPath)
		if err != nil {
			return nil, fmt.Errorf("reading photo: %w", err)
		}
		client := extractor.NewClient(cfg.Extractor.URL)
		embedding, err := client.Extract(ctx, photo)
		if err != nil {
			return nil, err
		}
		return embedding, nil

	case embeddingPath != "":
		data, err := os.ReadFile(embeddingPath)
		if err != nil {
			return nil, fmt.Errorf("reading embedding file: %w", err)
		}
		var embedding []float32
		if err := json.Unmarshal(data, &embedding); err != nil {
			return nil, fmt.Errorf("parsing embedding file: %w", err)
		}
		return embedding, nil

	default:
		return nil, errors.New("either --photo or --embedding-file is required")
	}
}

func runEnroll(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	embedding, err := resolveEmbedding(ctx, cmd, cfg)
	if err != nil {
		return err
	}

	service, closeStore, err := buildService(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	rec, err := service.Enroll(ctx, auth.EnrollRequest{
		DisplayName: mustGetString(cmd, "name"),
		Contact:     mustGetString(cmd, "contact"),
		Embedding:   embedding,
		PhotoRef:    mustGetString(cmd, "photo"),
	})
	if err != nil {
		return err
	}

	fmt.Printf("Enrolled %s (%s) as %s\n", rec.DisplayName, rec.Contact, rec.ID)
	return nil
}
