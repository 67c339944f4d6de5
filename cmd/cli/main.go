// Command cli runs procedure and pipe regression tests from the terminal.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"

	"sqlregress/internal/blob"
	"sqlregress/internal/config"
	"sqlregress/internal/execute"
	"sqlregress/internal/history"
	"sqlregress/internal/oracle"
	"sqlregress/internal/pipe"
	"sqlregress/internal/report"
	"sqlregress/internal/resolve"
	"sqlregress/internal/service"
	"sqlregress/internal/synth"
	"sqlregress/internal/warehouse"
)

var schemaFlag string

func main() {
	root := &cobra.Command{
		Use:           "sqlregress",
		Short:         "Generate and run regression tests for warehouse procedures and pipes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	procedureCmd := &cobra.Command{
		Use:   "procedure <name>",
		Short: "Test a stored procedure and write a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, svc *service.Service) error {
				outcome, err := svc.TestProcedure(ctx, args[0], schemaFlag)
				if err != nil {
					return err
				}
				s := outcome.Summary
				fmt.Printf("procedure %s.%s: %d passed, %d failed, %d errors, %d skipped\n",
					schemaFlag, args[0], s.Passed, s.Failed, s.Errors, s.Skipped)
				fmt.Printf("report: %s\n", outcome.ReportPath)
				return nil
			})
		},
	}

	pipeCmd := &cobra.Command{
		Use:   "pipe <name>",
		Short: "Test an ingestion pipe and write a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, svc *service.Service) error {
				outcome, err := svc.TestPipe(ctx, args[0], schemaFlag)
				if err != nil {
					return err
				}
				fmt.Println(outcome.State.FinalMessage)
				fmt.Printf("report: %s\n", outcome.ReportPath)
				return nil
			})
		},
	}

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recent test runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, svc *service.Service) error {
				runs, err := svc.History(ctx, 20)
				if err != nil {
					return err
				}
				for _, r := range runs {
					fmt.Printf("%s  %-9s  %-7s  %s\n",
						r.FinishedAt.Format("2006-01-02 15:04:05"), r.Kind, r.Status, r.ObjectName)
				}
				return nil
			})
		},
	}

	for _, cmd := range []*cobra.Command{procedureCmd, pipeCmd} {
		cmd.Flags().StringVar(&schemaFlag, "schema", "", "schema of the object under test")
		_ = cmd.MarkFlagRequired("schema")
	}
	root.AddCommand(procedureCmd, pipeCmd, historyCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// withService wires the full dependency graph from the environment, runs fn,
// and tears everything down.
func withService(ctx context.Context, fn func(context.Context, *service.Service) error) error {
	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Warn("could not load .env", "error", err)
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	warehouseDB, err := sql.Open("duckdb", cfg.WarehouseDSN)
	if err != nil {
		return fmt.Errorf("open warehouse connection: %w", err)
	}
	defer warehouseDB.Close()
	wh := warehouse.New(warehouseDB, logger)

	gen, err := oracle.NewGemini(ctx, cfg.Oracle.APIKey, cfg.Oracle.Model, logger)
	if err != nil {
		return err
	}

	blobs, err := blob.NewFromConfig(ctx, &cfg.Blob)
	if err != nil {
		return err
	}

	hist, err := history.Open(cfg.HistoryDBPath, logger)
	if err != nil {
		return err
	}
	defer hist.Close()

	svc := service.New(service.Deps{
		Defs:     wh,
		Resolver: resolve.New(gen, wh, logger),
		Synth:    synth.NewSynthesizer(gen, logger),
		Engine:   execute.NewEngine(wh, logger),
		Pipes:    pipe.New(wh, logger),
		Feeds:    synth.NewFeedGenerator(gen, logger),
		Verifier: execute.NewVerifier(wh, blobs, cfg.SettleInterval, logger),
		Reports:  report.NewJSONWriter(cfg.ReportDir, logger),
		History:  hist,
		Logger:   logger,
	})
	return fn(ctx, svc)
}
