package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/m-mizutani/devlens/pkg/cli/config"
	"github.com/m-mizutani/devlens/pkg/usecase"
	"github.com/m-mizutani/devlens/pkg/utils/logging"
	"github.com/m-mizutani/gots/slice"
	"github.com/urfave/cli/v3"
)

func runCommand() *cli.Command {
	var (
		jobs     config.Jobs
		backends backends
	)

	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Run the jobs of a job file once",
		Flags: slice.Flatten(
			jobs.Flags(),
			backends.Flags(),
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			logging.Default().Info("starting run",
				slog.Any("Jobs", &jobs),
				slog.Any("Backends", &backends),
			)

			// the job file is validated before any backend is touched
			selected, err := jobs.Load()
			if err != nil {
				return err
			}

			clients, closeClients, err := backends.clients(ctx)
			if err != nil {
				return err
			}
			defer closeClients()

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			uc := usecase.New(clients, backends.pipeline.UseCaseOptions()...)
			reports, err := uc.RunJobs(ctx, selected)
			for _, report := range reports {
				if report != nil {
					logging.Default().Info("job report", slog.Any("report", report))
				}
			}
			return err
		},
	}
}
