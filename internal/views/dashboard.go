package views

import (
	"github.com/pitwall/pitwall/internal/cache"
	"github.com/pitwall/pitwall/internal/session"
	"github.com/pitwall/pitwall/internal/sim"
	"github.com/pitwall/pitwall/internal/strategy"
	"github.com/pitwall/pitwall/pkg/core"
)

// Dashboard is every panel for one session state.
type Dashboard struct {
	SessionID string                 `json:"sessionId"`
	Drivers   [2]core.Driver         `json:"drivers"`
	Track     string                 `json:"track"`
	Phase     string                 `json:"phase"`
	Stats     Result[[]StatsRow]     `json:"stats"`
	Bars      Result[[]BarGroup]     `json:"bars"`
	Laps      Result[LapChart]       `json:"laps"`
	Overlay   Result[Overlay]        `json:"overlay"`
	Live      Result[LiveTelemetry]  `json:"live"`
	Timing    Result[[2]TimingPanel] `json:"timing"`
	Strategy  [2][]core.PitStop      `json:"strategy"`
}

// Builder holds what the panels need beyond the session state.
type Builder struct {
	evaluator *strategy.Evaluator
	tracks    *cache.TrackCache
	reference float64
}

// NewBuilder creates a Builder. A non-positive referenceLapTime selects
// sim.ReferenceLapTime.
func NewBuilder(tires strategy.ModifierSource, tracks *cache.TrackCache, referenceLapTime float64) *Builder {
	if referenceLapTime <= 0 {
		referenceLapTime = sim.ReferenceLapTime
	}
	return &Builder{
		evaluator: strategy.NewEvaluator(tires),
		tracks:    tracks,
		reference: referenceLapTime,
	}
}

// Evaluator returns the strategy evaluator used for lap projections.
func (b *Builder) Evaluator() *strategy.Evaluator {
	return b.evaluator
}

// Dashboard renders every panel of st.
func (b *Builder) Dashboard(st session.State) Dashboard {
	return Dashboard{
		SessionID: st.ID,
		Drivers:   st.Drivers,
		Track:     st.Track.Name,
		Phase:     st.Sim.Phase.String(),
		Stats:     StatsTable(st),
		Bars:      Bars(st),
		Laps:      LapSeries(st, b.evaluator),
		Overlay:   PositionOverlay(st, b.tracks),
		Live:      LeaderTelemetry(st),
		Timing:    Timing(st, b.reference),
		Strategy:  st.Stops,
	}
}
