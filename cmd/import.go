package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/facegate/facegate/internal/auth"
	"github.com/facegate/facegate/internal/config"
)

var importCmd = &cobra.Command{
	Use:   "import <file.jsonl>",
	Short: "Bulk-enroll identities from a JSONL file",
	Long: `Bulk-enroll identities from a JSONL file. Each line is a JSON object
with display_name, contact, embedding, and an optional photo_ref.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().Bool("skip-invalid", false, "Skip records that fail validation instead of aborting")
}

type importRecord struct {
	DisplayName string    `json:"display_name"`
	Contact     string    `json:"contact"`
	Embedding   []float32 `json:"embedding"`
	PhotoRef    string    `json:"photo_ref,omitempty"`
}

// countLines counts non-empty lines so the progress bar has a total.
func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) > 0 {
			count++
		}
	}
	return count, scanner.Err()
}

func newImportProgressBar(count int) *progressbar.ProgressBar {
	return progressbar.NewOptions(count,
		progressbar.OptionSetDescription("Enrolling identities"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("identities"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()
	path := args[0]
	skipInvalid := mustGetBool(cmd, "skip-invalid")

	total, err := countLines(path)
	if err != nil {
		return fmt.Errorf("reading import file: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening import file: %w", err)
	}
	defer f.Close()

	service, closeStore, err := buildService(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	bar := newImportProgressBar(total)
	enrolled, skipped := 0, 0
	line := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}

		var rec importRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			if skipInvalid {
				skipped++
				bar.Add(1)
				continue
			}
			return fmt.Errorf("line %d: invalid JSON: %w", line, err)
		}

		_, err := service.Enroll(ctx, auth.EnrollRequest{
			DisplayName: rec.DisplayName,
			Contact:     rec.Contact,
			Embedding:   rec.Embedding,
			PhotoRef:    rec.PhotoRef,
		})
		if err != nil {
			if skipInvalid {
				skipped++
				bar.Add(1)
				continue
			}
			return fmt.Errorf("line %d: %w", line, err)
		}

		enrolled++
		bar.Add(1)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading import file: %w", err)
	}

	fmt.Printf("\nEnrolled %d identities", enrolled)
	if skipped > 0 {
		fmt.Printf(", skipped %d", skipped)
	}
	fmt.Println()
	return nil
}
