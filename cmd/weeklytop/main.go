package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"WeeklyTop/internal/app"
	"WeeklyTop/internal/config"
	"WeeklyTop/internal/logging"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "weeklytop",
		Short:         "Weekly top 20 album list",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (default $WEEKLYTOP_CONFIG)")
	root.AddCommand(serveCmd(), refreshCmd(), showCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := build(ctx)
			if err != nil {
				return err
			}
			defer application.Close()
			return application.Serve(ctx)
		},
	}
}

func refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Run the pipeline once and store the list",
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := build(cmd.Context())
			if err != nil {
				return err
			}
			defer application.Close()

			result, err := application.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "week %s: %d items", result.WeekID, result.Count)
			if result.Note != "" {
				fmt.Fprintf(cmd.OutOrStdout(), " (%s)", result.Note)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the stored list as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := build(cmd.Context())
			if err != nil {
				return err
			}
			defer application.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(application.Current(cmd.Context()))
		},
	}
}

func build(ctx context.Context) (*app.Application, error) {
	cfg := config.Load()
	if cfgFile != "" {
		cfg = config.LoadFrom(cfgFile)
	}
	logger := logging.NewWithWriter(os.Stderr, cfg.Logging.Level)
	return app.New(ctx, cfg, logger)
}
