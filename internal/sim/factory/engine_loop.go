package factory

import (
	"context"
	"time"
)

// Run drives Step at the configured tick rate until the context is canceled
// or Stop is called. dt is fixed to the tick interval, not the wall-clock
// delta, so a slow host slows the sim down instead of desyncing it.
func (e *Engine) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(e.tune.TickRateHz)
	dt := e.tune.TickDT()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.stop:
			return nil
		case <-ticker.C:
			e.Step(dt)
		}
	}
}

func (e *Engine) Stop() { close(e.stop) }
