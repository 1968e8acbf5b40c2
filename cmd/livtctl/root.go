package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sakif/livt/internal/config"
	"github.com/sakif/livt/internal/server"
)

// app carries what every subcommand needs. It is filled in by the root
// command's PersistentPreRunE, after flags are parsed.
type app struct {
	envFile string
	verbose bool

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "livtctl",
		Short:         "Operate a livt installation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.envFile)
			if err != nil {
				return err
			}
			level := cfg.LogLevel
			if a.verbose {
				level = slog.LevelDebug
			}
			a.cfg = cfg
			a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(
		newMigrateCmd(a),
		newSweepCmd(a),
		newUserCmd(a),
	)
	return root
}

// withStores opens the stores for the duration of fn.
func (a *app) withStores(ctx context.Context, fn func(*server.Stores) error) error {
	stores, err := server.OpenStores(ctx, a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer stores.Close()
	return fn(stores)
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and print the schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStores(cmd.Context(), func(s *server.Stores) error {
				version, err := s.DB.SchemaVersion(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (%s)\n", version, a.cfg.DB.Path)
				return nil
			})
		},
	}
}

func printf(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format, args...)
}
