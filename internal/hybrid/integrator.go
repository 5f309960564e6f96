// Package hybrid couples the dynamical core with the learned correction
// module: one timestep encodes the state, computes a feature-space tendency,
// advances the resolved dynamics, and merges the two additively.
//
// Every operation is a pure function of its inputs. Steps therefore compose
// associatively, are independently testable, and independent rollouts are
// safe to run concurrently as long as each receives its own immutable
// parameter snapshot.
package hybrid

import (
	"github.com/Oscarrrhhhh/neuralgcm/internal/coupling"
	"github.com/Oscarrrhhhh/neuralgcm/internal/dycore"
	"github.com/Oscarrrhhhh/neuralgcm/internal/grid"
	"github.com/Oscarrrhhhh/neuralgcm/internal/nn"
)

// Integrator composes one full hybrid timestep. It is stateless: every
// quantity a step needs is passed explicitly.
type Integrator struct {
	Core      dycore.Core
	Encoder   *coupling.Encoder
	Corrector *nn.Corrector

	// Bounds is the stability clamp applied at the end of every step.
	Bounds map[string]grid.Bounds
}

// Step advances the state by dt seconds:
//
//  1. encode the state into feature space
//  2. compute the learned tendency
//  3. advance the resolved dynamics
//  4. add dt * tendency to the corrected fields and clamp to bounds
//
// Shape and instability errors propagate unmodified; a failed step yields
// no state and the caller must not continue the rollout from it.
func (it *Integrator) Step(s *grid.State, p *nn.Params, dt float64) (*grid.State, error) {
	features, err := it.Encoder.Encode(s)
	if err != nil {
		return nil, err
	}

	tendFeatures, err := it.Corrector.Apply(features, p)
	if err != nil {
		return nil, err
	}

	advanced, err := it.Core.Advance(s, dt)
	if err != nil {
		return nil, err
	}

	tendency, err := it.Encoder.UnpackTendency(tendFeatures, s)
	if err != nil {
		return nil, err
	}

	merged, err := applyTendency(advanced, tendency, dt)
	if err != nil {
		return nil, err
	}

	return grid.ClampFields(merged, it.Bounds), nil
}

// applyTendency adds dt * tendency to the corresponding fields. The coupling
// is explicitly additive; fields without a tendency pass through untouched.
func applyTendency(s *grid.State, tendency map[string]grid.Field, dt float64) (*grid.State, error) {
	zero := true
	for _, tend := range tendency {
		for _, v := range tend {
			if v != 0 {
				zero = false
				break
			}
		}
		if !zero {
			break
		}
	}
	if zero {
		return s, nil
	}

	replace := make(map[string]grid.Field, len(tendency))
	for name, tend := range tendency {
		f, err := s.Field(name)
		if err != nil {
			return nil, err
		}
		if len(f) != len(tend) {
			return nil, &grid.ShapeMismatchError{Context: "tendency " + name, Want: len(f), Got: len(tend)}
		}
		replace[name] = f.AddScaled(tend, dt)
	}
	return s.WithFields(replace)
}
