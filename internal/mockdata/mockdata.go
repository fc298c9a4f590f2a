// Package mockdata stands in for a remote F1 data API. One request returns the
// statistics and reference lap of both drivers of a pair.
package mockdata

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/pitwall/pitwall/internal/telemetry"
	"github.com/pitwall/pitwall/pkg/core"
)

// DefaultLatency is the simulated network delay of one request.
const DefaultLatency = 500 * time.Millisecond

const (
	race      = "Silverstone"
	raceYear  = 2023
	raceLapNo = 42
)

// FetchErrorMessage is shown to users in place of views whose data failed to load.
const FetchErrorMessage = "Failed to fetch F1 data."

// ErrDataFetch is returned when the data source fails a request
var ErrDataFetch = errors.New("data fetch failed")

// Service generates comparison data after a configurable delay.
type Service struct {
	mu          sync.Mutex
	rng         *rand.Rand
	generator   *telemetry.Generator
	latency     time.Duration
	failureRate float64
}

// Option configures the service.
type Option func(*Service)

// WithLatency sets the simulated delay.
func WithLatency(d time.Duration) Option {
	return func(s *Service) {
		s.latency = d
	}
}

// WithFailureRate makes a fraction of requests fail with ErrDataFetch.
func WithFailureRate(rate float64) Option {
	return func(s *Service) {
		s.failureRate = rate
	}
}

// New creates a service drawing all randomness from rng.
func New(styles telemetry.StyleSource, rng *rand.Rand, opts ...Option) *Service {
	s := &Service{
		rng:       rng,
		generator: telemetry.NewGenerator(styles, rng),
		latency:   DefaultLatency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch returns the comparison bundle for a driver pair. It honours ctx
// cancellation while waiting out the latency.
func (s *Service) Fetch(ctx context.Context, d1, d2 core.Driver) (core.Comparison, error) {
	if s.latency > 0 {
		timer := time.NewTimer(s.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return core.Comparison{}, ctx.Err()
		case <-timer.C:
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failureRate > 0 && s.rng.Float64() < s.failureRate {
		return core.Comparison{}, fmt.Errorf("%w (pair %s/%s)", ErrDataFetch, d1.ID, d2.ID)
	}

	return core.Comparison{
		Driver1: s.driverData(d1),
		Driver2: s.driverData(d2),
	}, nil
}

func (s *Service) driverData(d core.Driver) core.DriverData {
	return core.DriverData{
		Driver:  d,
		Stats:   Stats(d.ID),
		LapData: s.lapData(d.ID),
	}
}

func (s *Service) lapData(driverID string) core.LapData {
	base := 88 + s.rng.Float64()*2
	return core.LapData{
		DriverID:  driverID,
		Race:      race,
		Year:      raceYear,
		LapNumber: raceLapNo,
		LapTime:   base,
		Sector1:   base*0.33 + (s.rng.Float64() - 0.5),
		Sector2:   base*0.34 + (s.rng.Float64() - 0.5),
		Sector3:   base*0.33 + (s.rng.Float64() - 0.5),
		Telemetry: s.generator.Generate(driverID),
	}
}
