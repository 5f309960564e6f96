package hybrid

import (
	"context"
	"math/rand"
	"sync"

	"github.com/Oscarrrhhhh/neuralgcm/internal/grid"
	"github.com/Oscarrrhhhh/neuralgcm/internal/nn"
)

// Ensemble runs independent rollouts from perturbed initial conditions.
// Members share the read-only parameter snapshot and never touch shared
// state, so they run concurrently without locking.
type Ensemble struct {
	Integrator *Integrator
	Members    int
	Spread     float64 // stddev of the temperature perturbation, K
	SeedStart  int64
}

// Run launches one goroutine per member and returns every member's
// trajectory. The context is checked between steps; cancellation surfaces
// as the context's error.
func (e *Ensemble) Run(ctx context.Context, initial *grid.State, p *nn.Params, dt float64, numSteps int) ([]Trajectory, error) {
	trajectories := make([]Trajectory, e.Members)
	errs := make([]error, e.Members)

	var wg sync.WaitGroup
	for m := 0; m < e.Members; m++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			member, err := e.perturb(initial, e.SeedStart+int64(idx))
			if err != nil {
				errs[idx] = err
				return
			}
			trajectories[idx], errs[idx] = e.run(ctx, member, p, dt, numSteps)
		}(m)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return trajectories, nil
}

func (e *Ensemble) run(ctx context.Context, initial *grid.State, p *nn.Params, dt float64, numSteps int) (Trajectory, error) {
	trajectory := make(Trajectory, 0, numSteps)
	state := initial
	for i := 0; i < numSteps; i++ {
		select {
		case <-ctx.Done():
			return trajectory, ctx.Err()
		default:
		}
		next, err := e.Integrator.Step(state, p, dt)
		if err != nil {
			return trajectory, &RolloutDivergedError{Step: i, Trajectory: trajectory, Err: err}
		}
		trajectory = append(trajectory, next)
		state = next
	}
	return trajectory, nil
}

// perturb adds seeded Gaussian noise to the temperature field. Each member
// gets its own state; the base initial state is never modified.
func (e *Ensemble) perturb(s *grid.State, seed int64) (*grid.State, error) {
	if e.Spread == 0 || !s.Has(grid.FieldTemperature) {
		return s, nil
	}
	rng := rand.New(rand.NewSource(seed))
	temp, err := s.Field(grid.FieldTemperature)
	if err != nil {
		return nil, err
	}
	perturbed := temp.Clone()
	for i := range perturbed {
		perturbed[i] += e.Spread * rng.NormFloat64()
	}
	return s.WithField(grid.FieldTemperature, perturbed)
}
