package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"ib-history/internal/slogx"
)

func init() {
	slog.SetDefault(slogx.NewDefault("info"))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:  "ib-history",
		Usage: "Download, store and resample historical bars from Interactive Brokers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Serve Prometheus metrics on `ADDR` (e.g. :9100) while the command runs",
			},
		},
		Commands: []*cli.Command{
			downloadCommand(),
			downloadDailyCommand(),
			scheduleCommand(),
			resampleCommand(),
			loadCommand(),
			exportCommand(),
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

type actionFunc func(ctx context.Context, cmd *cli.Command, a *App) error

// withApp initializes the App, switches the default logger and, when
// --metrics-addr is set, serves metrics alongside the action.
func withApp(fn actionFunc) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		a, err := InitializeApp()
		if err != nil {
			return err
		}
		slog.SetDefault(a.Log)

		addr := cmd.String("metrics-addr")
		if addr == "" {
			return fn(ctx, cmd, a)
		}

		srv := &http.Server{Addr: addr, Handler: metricsMux(a), ReadHeaderTimeout: 5 * time.Second}
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			a.Log.Info("serving metrics", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
			return fn(gctx, cmd, a)
		})
		return g.Wait()
	}
}

func metricsMux(a *App) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.Prom.Handler())
	return mux
}
