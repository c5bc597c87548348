package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/zeusync/sentry/internal/core/observability/log"
)

// RunOptions controls Run.
type RunOptions struct {
	// DeltaTime is the fixed tick length in simulated seconds.
	DeltaTime float64
	// MaxTicks stops the run after that many ticks in total; zero runs until ctx is done.
	MaxTicks uint64
	// Realtime paces one tick per DeltaTime of wall clock. Otherwise ticks run back to back.
	Realtime bool
}

// Run steps the simulation until ctx is done or MaxTicks is reached. It returns ctx.Err() when
// cancelled and nil when the tick limit stops it.
func (s *Simulation) Run(ctx context.Context, opts RunOptions) error {
	if opts.DeltaTime <= 0 {
		return fmt.Errorf("%w: delta time %v", ErrInvalidSpec, opts.DeltaTime)
	}

	var pace <-chan time.Time
	if opts.Realtime {
		ticker := time.NewTicker(time.Duration(opts.DeltaTime * float64(time.Second)))
		defer ticker.Stop()
		pace = ticker.C
	}

	s.log.Info("simulation started",
		log.Float64("dt", opts.DeltaTime),
		log.Uint64("max_ticks", opts.MaxTicks),
		log.Bool("realtime", opts.Realtime),
	)
	for {
		if opts.MaxTicks > 0 && s.tick >= opts.MaxTicks {
			s.log.Info("simulation finished", log.Uint64("ticks", s.tick), log.Float64("time", s.world.Now()))
			return nil
		}
		if pace != nil {
			select {
			case <-ctx.Done():
				s.log.Info("simulation stopped", log.Uint64("ticks", s.tick))
				return ctx.Err()
			case <-pace:
			}
		} else if err := ctx.Err(); err != nil {
			s.log.Info("simulation stopped", log.Uint64("ticks", s.tick))
			return err
		}
		s.Step(opts.DeltaTime)
	}
}
