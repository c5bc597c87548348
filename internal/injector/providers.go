package injector

import (
	"github.com/google/wire"
	"github.com/zeusync/sentry/internal/config"
	"github.com/zeusync/sentry/internal/core/events/bus"
	"github.com/zeusync/sentry/internal/core/observability/log"
	"github.com/zeusync/sentry/internal/core/simulation"
	"github.com/zeusync/sentry/internal/server"
)

// App is everything sentryd runs. Server is nil when the viewer server is disabled.
type App struct {
	Config *config.Config
	Log    *log.Logger
	Bus    bus.EventBus
	Sim    *simulation.Simulation
	Server *server.Server
}

var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideBus,
	ProvideSimulation,
	ProvideServer,
	wire.Struct(new(App), "*"),
)

func ProvideLogger(cfg *config.Config) (*log.Logger, error) {
	lc, err := cfg.Log.Logger()
	if err != nil {
		return nil, err
	}
	return log.NewWithConfig(lc), nil
}

func ProvideBus() bus.EventBus { return bus.New() }

func ProvideSimulation(cfg *config.Config, l *log.Logger, b bus.EventBus) (*simulation.Simulation, error) {
	return simulation.Build(cfg, l, b)
}

// ProvideServer builds the viewer server and subscribes its feed to the simulation's snapshots.
func ProvideServer(cfg *config.Config, sim *simulation.Simulation, l *log.Logger) (*server.Server, error) {
	if !cfg.Server.Enabled {
		return nil, nil
	}
	srv, err := server.New(server.FromConfig(cfg.Server), sim, l.With(log.String("component", "server")))
	if err != nil {
		return nil, err
	}
	sim.OnSnapshot(srv.Feed().Publish)
	return srv, nil
}
