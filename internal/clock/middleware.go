package clock

import (
	"context"
	"log/slog"
	"time"
)

// slowTickThreshold is the handler duration above which ticks are logged at WARN level.
const slowTickThreshold = 50 * time.Millisecond

// Recorder receives handler timings. *metrics.Collector satisfies it.
type Recorder interface {
	RecordTiming(op string, duration time.Duration)
}

// Timed returns middleware that records every handler run under the clock
// name and logs slow ticks at WARN level.
func Timed(rec Recorder, logger *slog.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, t Tick) {
			start := time.Now()

			next(ctx, t)

			duration := time.Since(start)
			if rec != nil {
				rec.RecordTiming(t.Clock, duration)
			}

			attrs := []any{
				"clock", t.Clock,
				"seq", t.Seq,
				"duration_ms", duration.Milliseconds(),
			}
			if duration > slowTickThreshold {
				logger.Warn("slow tick", attrs...)
			} else {
				logger.Debug("tick completed", attrs...)
			}
		}
	}
}
