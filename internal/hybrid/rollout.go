package hybrid

import (
	"errors"
	"fmt"

	"github.com/Oscarrrhhhh/neuralgcm/internal/grid"
	"github.com/Oscarrrhhhh/neuralgcm/internal/nn"
)

// ErrRolloutDiverged indicates a rollout terminated early because a step
// failed. The typed error carries the partial trajectory.
var ErrRolloutDiverged = errors.New("hybrid: rollout diverged")

// Trajectory is the ordered sequence of states produced by a rollout.
// Index order is time order; the initial state is not included.
type Trajectory []*grid.State

// Final returns the last state of the trajectory, or nil when empty.
func (tr Trajectory) Final() *grid.State {
	if len(tr) == 0 {
		return nil
	}
	return tr[len(tr)-1]
}

// RolloutDivergedError is the terminal failure of a rollout. Step is the
// zero-based index of the step that failed; Trajectory holds the states of
// every completed step (length equals Step). Retrying identical inputs
// reproduces the failure, since every operation is deterministic.
type RolloutDivergedError struct {
	Step       int
	Trajectory Trajectory
	Err        error
}

func (e *RolloutDivergedError) Error() string {
	return fmt.Sprintf("rollout diverged at step %d: %v", e.Step, e.Err)
}

func (e *RolloutDivergedError) Unwrap() error { return e.Err }

func (e *RolloutDivergedError) Is(target error) bool {
	return target == ErrRolloutDiverged
}

// Observer receives every completed step of a rollout, for loss computation
// or reporting. Observers must not mutate the state.
type Observer interface {
	OnStep(step int, s *grid.State)
}

// Rollout applies Step sequentially numSteps times. On step failure it
// returns a *RolloutDivergedError wrapping the step error together with the
// partial trajectory; this is the only place a step failure is reclassified.
func (it *Integrator) Rollout(initial *grid.State, p *nn.Params, dt float64, numSteps int, observers ...Observer) (Trajectory, error) {
	trajectory := make(Trajectory, 0, numSteps)

	state := initial
	for i := 0; i < numSteps; i++ {
		next, err := it.Step(state, p, dt)
		if err != nil {
			return trajectory, &RolloutDivergedError{Step: i, Trajectory: trajectory, Err: err}
		}
		trajectory = append(trajectory, next)
		for _, obs := range observers {
			obs.OnStep(i, next)
		}
		state = next
	}

	return trajectory, nil
}
