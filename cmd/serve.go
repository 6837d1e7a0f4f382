package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/facegate/facegate/internal/auth"
	"github.com/facegate/facegate/internal/config"
	"github.com/facegate/facegate/internal/extractor"
	"github.com/facegate/facegate/internal/match"
	"github.com/facegate/facegate/internal/token"
	"github.com/facegate/facegate/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the authentication API server",
	Long: `Start the Facegate API server.
The server exposes enrollment, face authentication, and identity lookup
over HTTP. An external extraction service turns uploaded photos into
embeddings; precomputed embeddings are accepted directly.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	matcher := match.NewMatcher(st, cfg.Auth.MatchThreshold)
	if cfg.Auth.MatchIndex == "hnsw" {
		fmt.Println("Building HNSW candidate index...")
		if err := matcher.EnableIndex(ctx); err != nil {
			fmt.Printf("Warning: failed to build HNSW index: %v\n", err)
			fmt.Println("Matching will use exact linear scan")
		}
	}

	if cfg.Auth.TokenSecret == "" {
		fmt.Println("Warning: TOKEN_SECRET is not set, authentication will fail")
	}
	issuer := token.NewIssuer(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)
	service := auth.NewService(st, matcher, issuer)
	client := extractor.NewClient(cfg.Extractor.URL)

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(host, port, service, client, issuer)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Facegate API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
