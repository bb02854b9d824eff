package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jonathan/cv-matcher/internal/docx"
	"github.com/jonathan/cv-matcher/internal/extraction"
	"github.com/jonathan/cv-matcher/internal/logger"
	"github.com/jonathan/cv-matcher/internal/schemas"
	"github.com/jonathan/cv-matcher/internal/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var extractOutputFile string

var extractCmd = &cobra.Command{
	Use:   "extract <file.docx>",
	Short: "Extract the redacted profile of a CV",
	Long:  "Decode a DOCX résumé and print its redacted profile as JSON. No model is called.",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&extractOutputFile, "out", "o", "", "Path to output JSON file (default stdout)")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	out := cmd.OutOrStdout()
	if extractOutputFile != "" {
		f, err := os.Create(extractOutputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	return extractFile(args[0], out, log)
}

// extractFile writes the schema-checked profile of path to out.
func extractFile(path string, out io.Writer, log *zap.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read CV: %w", err)
	}

	doc, err := docx.DecodeBytes(data)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}

	title := filepath.Base(path)
	profile, report := extraction.ExtractProfileWithReport(doc, title)
	logExtraction(logger.OrNop(log).With(zap.String(logger.FieldFile, title)), profile, report)

	content, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	if err := schemas.ValidateJSONString(schemas.ExtractedProfile, string(content)); err != nil {
		return fmt.Errorf("extracted profile failed schema validation: %w", err)
	}

	if _, err := fmt.Fprintln(out, string(content)); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}

func logExtraction(log *zap.Logger, profile types.ExtractedProfile, report extraction.Report) {
	for _, dropped := range report.Dropped {
		log.Warn("dropped assignment section", zap.Int("section", dropped.Index), zap.Error(dropped.Err))
	}
	log.Debug("extracted profile",
		zap.Int("sections", report.Sections),
		zap.Int("assignments", len(profile.Assignments)),
		zap.Int("redaction_terms", report.Redacted),
	)
}
