package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/livt/internal/server"
	"github.com/sakif/livt/internal/service"
)

func newSweepCmd(a *app) *cobra.Command {
	var (
		dryRun bool
		grace  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete stored program files that no program record references",
		Long: `Lists every stored file under programs/ and deletes the ones without a
program record. Files modified within --grace are left alone so uploads
still being saved are never collected.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStores(cmd.Context(), func(s *server.Stores) error {
				programs := service.NewProgramService(s.DB, s.DB, s.Blobs, a.logger)
				report, err := programs.SweepOrphans(cmd.Context(), grace, dryRun)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				for _, key := range report.Orphans {
					printf(out, "orphan %s\n", key)
				}
				printf(out, "scanned %d, recent %d, orphans %d, deleted %d, failed %d\n",
					report.Scanned, report.Recent, len(report.Orphans), report.Deleted, report.Failed)
				if dryRun {
					printf(out, "dry run: nothing was deleted\n")
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report orphans without deleting them")
	cmd.Flags().DurationVar(&grace, "grace", time.Hour, "skip files modified more recently than this")
	return cmd
}
