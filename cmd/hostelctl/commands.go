package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"hostel/internal/analytics"
	"hostel/internal/config"
	"hostel/internal/core"
	"hostel/internal/export"
	"hostel/internal/storage"
)

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hostelctl",
		Short:         "Operator tools for the hostel database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("db", config.Load().SQLiteDBPath, "SQLite database path")

	root.AddCommand(migrateCmd(), exportCmd(), summaryCmd())
	return root
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dbPath, _ := cmd.Flags().GetString("db")
			version, err := storage.RunMigrations(dbPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "database at version %d\n", version)
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a month's payments as CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			month, err := monthFlag(cmd)
			if err != nil {
				return err
			}
			snap, err := loadSnapshot(cmd)
			if err != nil {
				return err
			}

			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				out = export.Filename(month)
			}
			body := export.PaymentsCSV(snap, month)
			if out == "-" {
				_, err := cmd.OutOrStdout().Write(body)
				return err
			}
			if err := os.WriteFile(out, body, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().String("month", "", "month to export as YYYY-MM (default current month)")
	cmd.Flags().String("out", "", `output file, "-" for stdout (default payments-<month>.csv)`)
	return cmd
}

func summaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the dashboard summary of a month as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			month, err := monthFlag(cmd)
			if err != nil {
				return err
			}
			snap, err := loadSnapshot(cmd)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(analytics.Dashboard(snap, month))
		},
	}
	cmd.Flags().String("month", "", "month as YYYY-MM (default current month)")
	return cmd
}

func monthFlag(cmd *cobra.Command) (core.MonthKey, error) {
	raw, _ := cmd.Flags().GetString("month")
	if raw == "" {
		return core.MonthOf(time.Now()), nil
	}
	return core.ParseMonthKey(raw)
}

func loadSnapshot(cmd *cobra.Command) (core.Snapshot, error) {
	dbPath, _ := cmd.Flags().GetString("db")
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		return core.Snapshot{}, err
	}
	defer repo.Close()
	return repo.Snapshot(cmd.Context())
}
