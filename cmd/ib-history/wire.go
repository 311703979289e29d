//go:build wireinject
// +build wireinject

package main

import (
	"ib-history/internal/app"

	"github.com/google/wire"
)

// InitializeApp builds App (config, logger, metrics, saver, session dialer) via Wire.
func InitializeApp() (*App, error) {
	wire.Build(
		app.ProvideConfig,
		app.ProvideLogger,
		app.ProvidePrometheus,
		app.ProvideMetrics,
		app.ProvidePartitionSaver,
		app.ProvideDialer,
		wire.Struct(new(App), "*"),
	)
	return nil, nil
}
