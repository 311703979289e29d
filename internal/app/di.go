package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"ib-history/internal/download"
	"ib-history/internal/ib"
	"ib-history/internal/ib/gateway"
	"ib-history/internal/metrics"
	"ib-history/internal/saver"
	"ib-history/internal/slogx"
)

// ProvideConfig loads config from environment (for Wire).
func ProvideConfig() (*Config, error) {
	return LoadConfig()
}

// ProvideLogger builds the process logger from LOG_LEVEL / LOG_FORMAT (for Wire).
func ProvideLogger(cfg *Config) *slog.Logger {
	return slogx.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
}

// ProvidePartitionSaver creates PartitionSaver from config (for Wire).
// Returns error if SaveFormat is not supported.
func ProvidePartitionSaver(cfg *Config) (saver.PartitionSaver, error) {
	ps := saver.NewPartitionSaver(cfg.SaveFormat)
	if ps == nil {
		return nil, fmt.Errorf("unsupported SAVE_FORMAT %q (use: parquet, csv, json, msgpack)", cfg.SaveFormat)
	}
	return ps, nil
}

// ProvidePrometheus creates the metrics registry (for Wire).
func ProvidePrometheus() *metrics.Prometheus {
	return metrics.NewPrometheus()
}

// ProvideMetrics exposes the counters of p (for Wire).
func ProvideMetrics(p *metrics.Prometheus) *metrics.Metrics {
	return p.Metrics
}

// ProvideDialer opens a gateway-backed session per call (for Wire).
func ProvideDialer(cfg *Config, log *slog.Logger, m *metrics.Metrics) download.Dialer {
	sessionCfg := cfg.SessionConfig()
	return func(ctx context.Context, clientID int) (download.Requester, error) {
		client := gateway.New(cfg.IB.Path, log)
		s, err := ib.Open(ctx, client, sessionCfg, clientID, log, m)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}
