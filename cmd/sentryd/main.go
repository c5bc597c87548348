package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/zeusync/sentry/internal/config"
	"github.com/zeusync/sentry/internal/core/observability/log"
	"github.com/zeusync/sentry/internal/core/simulation"
	"github.com/zeusync/sentry/internal/injector"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "configs/demo.yaml", "scenario file")
	maxTicks := flag.Uint64("ticks", 0, "stop after this many ticks, overrides the scenario")
	serve := flag.Bool("serve", true, "run the viewer server when the scenario enables it")
	flag.Parse()

	if err := run(*configPath, *maxTicks, *serve); err != nil {
		fmt.Fprintln(os.Stderr, "sentryd:", err)
		os.Exit(1)
	}
}

func run(path string, maxTicks uint64, serve bool) error {
	cfg, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	if maxTicks > 0 {
		cfg.Simulation.MaxTicks = maxTicks
	}
	cfg.Server.Enabled = cfg.Server.Enabled && serve

	app, err := injector.InitializeApp(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = app.Log.Sync() }()
	defer app.Sim.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// the viewer server lives as long as the simulation
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		err := app.Sim.Run(ctx, simulation.RunOptions{
			DeltaTime: cfg.Simulation.DeltaTime(),
			MaxTicks:  cfg.Simulation.MaxTicks,
			Realtime:  cfg.Simulation.Realtime,
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	if app.Server != nil {
		g.Go(func() error { return app.Server.Run(ctx) })
	}

	err = g.Wait()
	m := app.Sim.Metrics()
	app.Log.Info("sentryd stopped",
		log.Uint64("ticks", m.Ticks),
		log.Duration("avg_step", m.AverageStepTime),
		log.Duration("max_step", m.MaxStepTime),
	)
	return err
}
