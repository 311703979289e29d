package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/urfave/cli/v3"

	"ib-history/internal/app"
	"ib-history/internal/download"
	"ib-history/internal/state"
)

func dateFlag(name, usage string, required bool) *cli.TimestampFlag {
	return &cli.TimestampFlag{
		Name:     name,
		Usage:    usage + " in `YYYY-MM-DD` format",
		Required: required,
		Config: cli.TimestampConfig{
			Timezone: time.UTC,
			Layouts:  []string{time.DateOnly},
		},
	}
}

func storageFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "storage-dir",
		Usage: "Root `DIR` of the partition store (defaults to DATA_DIR)",
	}
}

func storageDir(cmd *cli.Command, cfg *app.Config) string {
	if dir := cmd.String("storage-dir"); dir != "" {
		return dir
	}
	return cfg.DataDir
}

func rangeOptions(cmd *cli.Command, cfg *app.Config) download.Options {
	return download.Options{
		Ticker:     cmd.String("ticker"),
		StartDate:  cmd.Timestamp("start-date"),
		EndDate:    cmd.Timestamp("end-date"),
		StorageDir: storageDir(cmd, cfg),
	}
}

func rangeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "ticker", Aliases: []string{"t"}, Usage: "Stock ticker symbol", Required: true},
		dateFlag("start-date", "First day", true),
		dateFlag("end-date", "Last day (inclusive)", true),
		storageFlag(),
	}
}

// openProgress opens the progress store for storage; the returned close func is never nil.
func openProgress(cfg *app.Config, storage string, log *slog.Logger) (*download.Progress, func(), error) {
	store, err := app.OpenProgressStore(cfg.ProgressPath(storage))
	if err != nil {
		return nil, func() {}, fmt.Errorf("open progress store: %w", err)
	}
	return download.NewProgress(store), func() { closeStore(store, log) }, nil
}

func closeStore(store state.Store, log *slog.Logger) {
	if err := store.Close(); err != nil {
		log.Warn("progress store close", "error", err)
	}
}

func downloadCommand() *cli.Command {
	return &cli.Command{
		Name:  "download",
		Usage: "Download one-minute bars day by day into per-day partition files",
		Flags: append(rangeFlags(),
			&cli.BoolFlag{Name: "resume", Usage: "Skip days up to the last completed one"},
			&cli.BoolFlag{Name: "report", Usage: "Write <storage-dir>/<TICKER>/.lastrun.json"},
			&cli.StringFlag{Name: "duration", Value: download.DefaultMinuteDuration, Usage: "Provider duration per request"},
			&cli.StringFlag{Name: "bar-size", Value: download.DefaultMinuteBarSize, Usage: "Provider bar size"},
		),
		Action: withApp(func(ctx context.Context, cmd *cli.Command, a *App) error {
			opts := rangeOptions(cmd, a.Config)
			opts.Resume = cmd.Bool("resume")
			opts.Report = cmd.Bool("report")
			opts.Duration = cmd.String("duration")
			opts.BarSize = cmd.String("bar-size")

			progress, closeProgress, err := openProgress(a.Config, opts.StorageDir, a.Log)
			if err != nil {
				return err
			}
			defer closeProgress()

			m := download.NewMinute(a.Dialer, a.Saver, a.Config.MinuteConfig(), progress, a.Log, a.Metrics)
			sum, err := m.Run(ctx, opts)
			if err != nil {
				return err
			}
			a.Log.Info("minute download complete", "ticker", sum.Ticker, "days_saved", len(sum.Saved), "bars", sum.Bars)
			return nil
		}),
	}
}

func downloadDailyCommand() *cli.Command {
	return &cli.Command{
		Name:  "download-daily",
		Usage: "Download daily bars and merge them into <storage-dir>/daily/<TICKER>",
		Flags: rangeFlags(),
		Action: withApp(func(ctx context.Context, cmd *cli.Command, a *App) error {
			opts := rangeOptions(cmd, a.Config)

			progress, closeProgress, err := openProgress(a.Config, opts.StorageDir, a.Log)
			if err != nil {
				return err
			}
			defer closeProgress()

			d := download.NewDaily(a.Dialer, a.Saver, a.Config.DailyConfig(), progress, a.Log, a.Metrics)
			sum, err := d.Run(ctx, opts)
			if err != nil {
				return err
			}
			a.Log.Info("daily download complete", "ticker", sum.Ticker, "bars", sum.Bars)
			return nil
		}),
	}
}

func scheduleCommand() *cli.Command {
	return &cli.Command{
		Name:  "schedule",
		Usage: "Refresh every ticker daily at SCHEDULE_RUN_HOUR:SCHEDULE_RUN_MINUTE UTC",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tickers-file", Usage: "Ticker list (.txt or .json); defaults to TICKERS_FILE"},
			storageFlag(),
		},
		Action: withApp(func(ctx context.Context, cmd *cli.Command, a *App) error {
			cfg := a.Config
			path := cmd.String("tickers-file")
			if path == "" {
				path = cfg.TickersFile
			}
			if path == "" {
				return errors.New("--tickers-file or TICKERS_FILE is required")
			}
			tickers, err := app.LoadTickersFromFile(path)
			if err != nil {
				return err
			}
			if len(tickers) == 0 {
				return fmt.Errorf("no tickers in %s", path)
			}
			storage := storageDir(cmd, cfg)

			progress, closeProgress, err := openProgress(cfg, storage, a.Log)
			if err != nil {
				return err
			}
			defer closeProgress()

			a.Log.Info("schedule", "tickers", len(tickers), "dir", storage, "format", cfg.SaveFormat,
				"run_at", fmt.Sprintf("%02d:%02d UTC", cfg.Schedule.RunHour, cfg.Schedule.RunMinute))
			s := &app.Scheduler{
				Minute:     download.NewMinute(a.Dialer, a.Saver, cfg.MinuteConfig(), progress, a.Log, a.Metrics),
				Daily:      download.NewDaily(a.Dialer, a.Saver, cfg.DailyConfig(), progress, a.Log, a.Metrics),
				Progress:   progress,
				Tickers:    tickers,
				StorageDir: storage,
				RunHour:    cfg.Schedule.RunHour,
				RunMinute:  cfg.Schedule.RunMinute,
				Lookback:   cfg.Lookback(),
				Log:        a.Log,
			}
			return s.Run(ctx)
		}),
	}
}
