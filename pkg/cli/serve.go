package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/devlens/pkg/cli/config"
	"github.com/m-mizutani/devlens/pkg/controller/server"
	"github.com/m-mizutani/devlens/pkg/usecase"
	"github.com/m-mizutani/devlens/pkg/utils/errutil"
	"github.com/m-mizutani/devlens/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gots/slice"
	"github.com/urfave/cli/v3"
)

func serveCommand() *cli.Command {
	var (
		addr     string
		jobs     config.Jobs
		backends backends
	)
	serveFlags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Binding address",
			Value:       "127.0.0.1:8000",
			Sources:     cli.EnvVars("DEVLENS_ADDR"),
			Destination: &addr,
		},
	}

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Run the jobs of a job file while serving health, metrics and job status",
		Flags: slice.Flatten(
			serveFlags,
			jobs.Flags(),
			backends.Flags(),
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			logging.Default().Info("starting serve",
				slog.Any("Addr", addr),
				slog.Any("Jobs", &jobs),
				slog.Any("Backends", &backends),
			)

			selected, err := jobs.Load()
			if err != nil {
				return err
			}

			clients, closeClients, err := backends.clients(ctx)
			if err != nil {
				return err
			}
			defer closeClients()

			uc := usecase.New(clients, backends.pipeline.UseCaseOptions()...)
			board := server.NewBoard()
			s := server.New(
				server.WithMetrics(clients.Metrics().Handler()),
				server.WithBoard(board),
			)

			serverErr := make(chan error, 1)
			httpServer := &http.Server{
				Addr:    addr,
				Handler: s.Mux(),

				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       30 * time.Second,
				WriteTimeout:      30 * time.Second,
			}

			go func() {
				logging.Default().Info("starting http server", "addr", addr)
				if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
					serverErr <- goerr.Wrap(err, "failed to listen and serve")
				}
			}()

			jobCtx, cancelJobs := context.WithCancel(server.DetachContext(ctx))
			jobsDone := make(chan struct{})
			go func() {
				defer close(jobsDone)
				board.Start(selected)
				reports, err := uc.RunJobs(jobCtx, selected)
				board.Finish(reports)
				if err != nil {
					errutil.HandleError(jobCtx, "jobs failed", err)
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

			var result error
			select {
			case err := <-serverErr:
				result = err

			case sig := <-quit:
				logging.Default().Info("shutting down server", "signal", sig)
			}

			// running chunks finish, then every run stops as cancelled
			cancelJobs()
			<-jobsDone

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil && result == nil {
				result = goerr.Wrap(err, "failed to shutdown server")
			}

			return result
		},
	}
}
