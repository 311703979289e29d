package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"ib-history/internal/model"
	"ib-history/internal/saver"
	"ib-history/internal/series"
	"ib-history/internal/timescale"
)

// saverForFile picks the codec from a file's extension.
func saverForFile(path string) (saver.PartitionSaver, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	s := saver.NewPartitionSaver(ext)
	if s == nil || ext == "" {
		return nil, fmt.Errorf("cannot infer format of %s (use .parquet, .csv, .json or .msgpack)", path)
	}
	return s, nil
}

func saveFile(path string, bars []model.Bar) error {
	s, err := saverForFile(path)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return s.Save(bars, path)
}

func printBars(w io.Writer, bars []model.Bar, rows int) error {
	if rows > len(bars) || rows < 0 {
		rows = len(bars)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "timestamp\topen\thigh\tlow\tclose\tvolume")
	for _, b := range bars[:rows] {
		fmt.Fprintf(tw, "%s\t%g\t%g\t%g\t%g\t%d\n", b.Time().Format(time.RFC3339), b.Open, b.High, b.Low, b.Close, b.Volume)
	}
	return tw.Flush()
}

func rowsFlag() *cli.IntFlag {
	return &cli.IntFlag{Name: "rows", Value: 5, Usage: "Number of rows to print"}
}

func outFlag() *cli.StringFlag {
	return &cli.StringFlag{Name: "out", Usage: "Write the result to `FILE` (format from extension)"}
}

func resampleCommand() *cli.Command {
	return &cli.Command{
		Name:      "resample",
		Usage:     "Resample a stored series to 15min, 1D or 1W and print the first rows",
		ArgsUsage: "FILE INTERVAL",
		Flags:     []cli.Flag{rowsFlag(), outFlag()},
		Action: withApp(func(ctx context.Context, cmd *cli.Command, a *App) error {
			if cmd.Args().Len() != 2 {
				return errors.New("usage: resample FILE INTERVAL")
			}
			file := cmd.Args().Get(0)
			iv, err := series.ParseInterval(cmd.Args().Get(1))
			if err != nil {
				return err
			}
			s, err := saverForFile(file)
			if err != nil {
				return err
			}
			bars, err := s.Load(file)
			if err != nil {
				return err
			}
			out := series.Resample(bars, iv)
			a.Log.Info("resampled", "file", file, "interval", string(iv), "in", len(bars), "out", len(out))
			if path := cmd.String("out"); path != "" {
				if err := saveFile(path, out); err != nil {
					return err
				}
			}
			return printBars(os.Stdout, out, int(cmd.Int("rows")))
		}),
	}
}

func loadCommand() *cli.Command {
	return &cli.Command{
		Name:      "load",
		Usage:     "Concatenate every YYYY-MM-DD partition under DIR into one series",
		ArgsUsage: "DIR",
		Flags:     []cli.Flag{rowsFlag(), outFlag()},
		Action: withApp(func(ctx context.Context, cmd *cli.Command, a *App) error {
			if cmd.Args().Len() != 1 {
				return errors.New("usage: load DIR")
			}
			dir := cmd.Args().First()
			bars, err := series.LoadDir(dir, a.Saver)
			if err != nil {
				return err
			}
			a.Log.Info("loaded", "dir", dir, "bars", len(bars))
			if path := cmd.String("out"); path != "" {
				if err := saveFile(path, bars); err != nil {
					return err
				}
			}
			return printBars(os.Stdout, bars, int(cmd.Int("rows")))
		}),
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Upsert a stored series into TimescaleDB (TIMESCALE_DSN)",
		ArgsUsage: "DIR",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "ticker", Aliases: []string{"t"}, Usage: "Ticker stored under DIR", Required: true},
			&cli.StringFlag{Name: "interval", Value: "1min", Usage: "1min (as stored), 15min, 1D or 1W"},
		},
		Action: withApp(func(ctx context.Context, cmd *cli.Command, a *App) error {
			if cmd.Args().Len() != 1 {
				return errors.New("usage: export DIR --ticker T")
			}
			bars, err := series.LoadDir(cmd.Args().First(), a.Saver)
			if err != nil {
				return err
			}
			interval := cmd.String("interval")
			if interval != "1min" {
				iv, err := series.ParseInterval(interval)
				if err != nil {
					return err
				}
				bars = series.Resample(bars, iv)
				interval = string(iv)
			}

			w, err := timescale.Open(ctx, a.Config.TimescaleWriterConfig(), a.Log)
			if err != nil {
				return err
			}
			defer w.Close()

			n, err := w.WriteBars(ctx, strings.ToUpper(cmd.String("ticker")), interval, bars)
			if err != nil {
				return err
			}
			a.Log.Info("exported", "rows", n, "interval", interval)
			return nil
		}),
	}
}
