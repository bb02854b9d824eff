package main

import (
	"fmt"

	"github.com/jonathan/cv-matcher/internal/db"
	"github.com/spf13/cobra"
)

var printSchema bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	Long:  "Create the match_groups, match_responses and match_skills tables if they do not exist.",
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&printSchema, "print", false, "Print the schema instead of applying it")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	if printSchema {
		_, err := fmt.Fprint(cmd.OutOrStdout(), db.Schema())
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	database, err := connectDB(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.Migrate(cmd.Context()); err != nil {
		return err
	}
	log.Info("database schema applied")
	return nil
}
