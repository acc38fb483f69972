package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"vendorica-api/internal/db"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Run Vendorica database migrations",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("dsn", os.Getenv("DATABASE_URL"), "PostgreSQL DSN connection string (defaults to DATABASE_URL)")
	root.PersistentFlags().StringP("format", "f", "text", "Output format (text or json)")

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE:  withProvider(runUp),
		},
		&cobra.Command{
			Use:   "down [version]",
			Short: "Roll back one migration, or down to the given version",
			Args:  downArgs,
			RunE: withProvider(func(ctx context.Context, p *goose.Provider, format string, out io.Writer, args []string) error {
				version := int64(-1)
				if len(args) == 1 {
					version, _ = strconv.ParseInt(args[0], 10, 64)
				}
				return runDown(ctx, p, version, format, out)
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show migration status",
			Args:  cobra.NoArgs,
			RunE:  withProvider(runStatus),
		},
	)
	return root
}

func downArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.MaximumNArgs(1)(cmd, args); err != nil {
		return err
	}
	if len(args) == 1 {
		if version, err := strconv.ParseInt(args[0], 10, 64); err != nil || version < 0 {
			return fmt.Errorf("invalid version number: %q", args[0])
		}
	}
	return nil
}

type providerFunc func(ctx context.Context, p *goose.Provider, format string, out io.Writer, args []string) error

func withProvider(fn providerFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		dsn, _ := cmd.Flags().GetString("dsn")
		format, _ := cmd.Flags().GetString("format")
		if dsn == "" {
			return errors.New("a DSN is required: pass --dsn or set DATABASE_URL")
		}
		if format != "text" && format != "json" {
			return fmt.Errorf("invalid format %q", format)
		}

		ctx := cmd.Context()
		sqlDB, err := db.OpenSQL(ctx, dsn)
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		var opts []goose.ProviderOption
		if format == "json" {
			opts = append(opts, goose.WithLogger(goose.NopLogger()))
		}
		provider, err := db.NewMigrationProvider(sqlDB, opts...)
		if err != nil {
			return err
		}
		return fn(ctx, provider, format, cmd.OutOrStdout(), args)
	}
}

func runUp(ctx context.Context, provider *goose.Provider, format string, out io.Writer, _ []string) error {
	results, err := provider.Up(ctx)
	if err != nil {
		return err
	}
	return writeResults(out, format, results)
}

func runDown(ctx context.Context, provider *goose.Provider, version int64, format string, out io.Writer) error {
	var results []*goose.MigrationResult
	if version < 0 {
		result, err := provider.Down(ctx)
		if err != nil {
			return err
		}
		results = append(results, result)
	} else {
		var err error
		results, err = provider.DownTo(ctx, version)
		if err != nil {
			return err
		}
	}
	return writeResults(out, format, results)
}

func writeResults(out io.Writer, format string, results []*goose.MigrationResult) error {
	if format == "json" {
		if results == nil {
			results = []*goose.MigrationResult{}
		}
		return json.NewEncoder(out).Encode(map[string]any{"applied": results})
	}
	if len(results) == 0 {
		fmt.Fprintln(out, "no migrations to apply")
		return nil
	}
	for _, r := range results {
		fmt.Fprintf(out, "%-4s %s (%s)\n", r.Direction, r.Source.Path, r.Duration.Round(time.Millisecond))
	}
	return nil
}

func runStatus(ctx context.Context, provider *goose.Provider, format string, out io.Writer, _ []string) error {
	statuses, err := provider.Status(ctx)
	if err != nil {
		return err
	}
	if format == "json" {
		return json.NewEncoder(out).Encode(statuses)
	}

	fmt.Fprintln(out, "    Applied At                  Migration")
	fmt.Fprintln(out, "    =======================================")
	for _, s := range statuses {
		appliedAt := "Pending"
		if s.State == goose.StateApplied {
			appliedAt = s.AppliedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(out, "    %-24s -- %s\n", appliedAt, s.Source.Path)
	}
	return nil
}
