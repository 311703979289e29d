package main

import (
	"log/slog"

	"ib-history/internal/app"
	"ib-history/internal/download"
	"ib-history/internal/metrics"
	"ib-history/internal/saver"
)

// App holds application dependencies built by Wire.
type App struct {
	Config  *app.Config
	Log     *slog.Logger
	Prom    *metrics.Prometheus
	Metrics *metrics.Metrics
	Saver   saver.PartitionSaver
	Dialer  download.Dialer
}
