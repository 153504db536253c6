package scanner

import (
	"context"
	"time"
)

// Run drives the session at a fixed interval until ctx is done. exec runs
// each tick on the goroutine that owns the session; nil runs it inline.
// onTick receives every tick that actually ran. The next tick is scheduled
// once the previous one has returned, so tick bodies never overlap.
func Run(ctx context.Context, s *Session, interval time.Duration, exec func(func()), onTick func(TickResult)) error {
	if exec == nil {
		exec = func(f func()) { f() }
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			if err := ctx.Err(); err != nil {
				return err
			}
			exec(func() {
				result := s.Tick()
				if result.Ran && onTick != nil {
					onTick(result)
				}
			})
			timer.Reset(interval)
		}
	}
}
