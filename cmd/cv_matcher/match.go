package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonathan/cv-matcher/internal/docx"
	"github.com/jonathan/cv-matcher/internal/extraction"
	"github.com/jonathan/cv-matcher/internal/llm"
	"github.com/jonathan/cv-matcher/internal/logger"
	"github.com/jonathan/cv-matcher/internal/observability"
	"github.com/jonathan/cv-matcher/internal/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	matchListingURL string
	matchPretty     bool
)

var matchCmd = &cobra.Command{
	Use:   "match --listing <url> <cv.docx>...",
	Short: "Match CVs against a job listing without storing the result",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMatch,
}

var listingCmd = &cobra.Command{
	Use:   "listing <url>",
	Short: "Fetch a job listing and print it as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runListing,
}

func init() {
	matchCmd.Flags().StringVar(&matchListingURL, "listing", "", "Job listing URL (required)")
	matchCmd.Flags().BoolVar(&matchPretty, "pretty", false, "Print human-readable summaries instead of JSON")
	_ = matchCmd.MarkFlagRequired("listing")
	listingCmd.Flags().BoolVar(&matchPretty, "pretty", false, "Print a human-readable summary instead of JSON")
	rootCmd.AddCommand(matchCmd, listingCmd)
}

// cvMatch is one line of match output
type cvMatch struct {
	CVName string             `json:"cv_name"`
	Result *types.MatchResult `json:"result"`
}

func runMatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx := cmd.Context()
	listing, err := newListingFetcher(cfg, log).Fetch(ctx, matchListingURL)
	if err != nil {
		return err
	}

	client, err := newLLMClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()
	matcher := llm.NewMatcher(client, log)

	printer := observability.NewPrinter(cmd.OutOrStdout())
	if matchPretty {
		printer.PrintJobListing(listing)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read CV: %w", err)
		}
		doc, err := docx.DecodeBytes(data)
		if err != nil {
			return fmt.Errorf("failed to decode %s: %w", path, err)
		}

		name := filepath.Base(path)
		profile, report := extraction.ExtractProfileWithReport(doc, name)
		logExtraction(log.With(zap.String(logger.FieldFile, name)), profile, report)

		result, err := matcher.Match(ctx, profile, *listing)
		if err != nil {
			return fmt.Errorf("failed to match %s: %w", name, err)
		}
		if matchPretty {
			printer.PrintMatchResult(name, result)
			continue
		}
		if err := enc.Encode(cvMatch{CVName: name, Result: result}); err != nil {
			return err
		}
	}
	return nil
}

func runListing(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	listing, err := newListingFetcher(cfg, log).Fetch(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if matchPretty {
		observability.NewPrinter(cmd.OutOrStdout()).PrintJobListing(listing)
		return nil
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(listing)
}
