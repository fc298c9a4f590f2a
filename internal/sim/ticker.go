package sim

import "time"

// DefaultFrameInterval is roughly one display frame.
const DefaultFrameInterval = 16 * time.Millisecond

// Ticker delivers wall-clock ticks to a Runner.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a ticker firing every d.
type TickerFunc func(d time.Duration) Ticker

type timeTicker struct {
	t *time.Ticker
}

// NewTimeTicker wraps time.Ticker.
func NewTimeTicker(d time.Duration) Ticker {
	return &timeTicker{t: time.NewTicker(d)}
}

func (t *timeTicker) C() <-chan time.Time { return t.t.C }
func (t *timeTicker) Stop()               { t.t.Stop() }
