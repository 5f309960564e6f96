// Package dycore defines the dynamical core contract and a reference
// finite-difference implementation advancing the resolved-scale fields.
//
// A Core is a pure function of (state, dt): it reads no hidden state and
// returns a new snapshot. The hybrid integrator treats any Core as an
// external collaborator and assumes nothing about its numerics beyond
// purity and bounds checking on input.
package dycore

import (
	"github.com/Oscarrrhhhh/neuralgcm/internal/grid"
)

// Core advances a state one physical timestep with no learned correction
// applied. Implementations fail with an instability error when an input
// field is outside its physically valid range.
type Core interface {
	Advance(s *grid.State, dt float64) (*grid.State, error)
}

// Persistence is the trivial core: it validates the input and returns it
// unchanged. Useful for tests and for isolating the learned correction.
type Persistence struct {
	Bounds map[string]grid.Bounds
}

func NewPersistence(bounds map[string]grid.Bounds) *Persistence {
	return &Persistence{Bounds: bounds}
}

func (p *Persistence) Advance(s *grid.State, dt float64) (*grid.State, error) {
	if err := grid.CheckBounds(s, p.Bounds); err != nil {
		return nil, err
	}
	return s, nil
}
