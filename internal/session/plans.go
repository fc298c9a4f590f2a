package session

import (
	"github.com/pitwall/pitwall/internal/strategy"
	"github.com/pitwall/pitwall/pkg/core"
)

// Strategy edits go through the slot's strategy.Plan. Every edit reports
// whether it was applied; rejected edits leave the plan untouched.

// Stops returns the pit stops planned for slot.
func (s *Session) Stops(slot int) ([]core.PitStop, error) {
	var stops []core.PitStop
	err := s.withPlan(slot, func(p *strategy.Plan) {
		stops = p.Stops()
	})
	return stops, err
}

// AddStop appends a stop to the plan of slot.
func (s *Session) AddStop(slot int) (bool, error) {
	return s.edit(slot, func(p *strategy.Plan) bool {
		return p.AddStop()
	})
}

// InsertStop adds a stop on lap to the plan of slot.
func (s *Session) InsertStop(slot, lap int, tire core.TireCompound) (bool, error) {
	return s.edit(slot, func(p *strategy.Plan) bool {
		return p.InsertStop(lap, tire)
	})
}

// UpdateStop changes stop index of the plan of slot.
func (s *Session) UpdateStop(slot, index, lap int, tire core.TireCompound) (bool, error) {
	return s.edit(slot, func(p *strategy.Plan) bool {
		return p.UpdateStop(index, lap, tire)
	})
}

// RemoveStop deletes stop index of the plan of slot.
func (s *Session) RemoveStop(slot, index int) (bool, error) {
	return s.edit(slot, func(p *strategy.Plan) bool {
		return p.RemoveStop(index)
	})
}

func (s *Session) edit(slot int, fn func(*strategy.Plan) bool) (bool, error) {
	var applied bool
	err := s.withPlan(slot, func(p *strategy.Plan) {
		applied = fn(p)
	})
	if err == nil && !applied {
		s.logger.Debug("strategy edit rejected", "slot", slot)
	}
	return applied, err
}

func (s *Session) withPlan(slot int, fn func(*strategy.Plan)) error {
	if slot != 0 && slot != 1 {
		return ErrInvalidSlot
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.plans[slot])
	return nil
}
