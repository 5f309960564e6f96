// Package train provides the loss and gradient surface the core exposes to
// an external optimizer. The core itself never updates parameters; SGDStep
// is a convenience for callers driving training between rollouts.
//
// Gradients are computed by central finite differences over the rollout,
// which is valid because every step is a deterministic pure function of
// (state, params, dt) with training-mode stochasticity disabled.
package train

import (
	"github.com/Oscarrrhhhh/neuralgcm/internal/grid"
	"github.com/Oscarrrhhhh/neuralgcm/internal/hybrid"
	"github.com/Oscarrrhhhh/neuralgcm/internal/nn"
)

// LossFn evaluates a scalar loss for a parameter snapshot.
type LossFn func(p *nn.Params) (float64, error)

// FieldMSE is the mean squared error between two states over every shared
// field.
func FieldMSE(a, b *grid.State) (float64, error) {
	sum := 0.0
	count := 0
	for _, spec := range a.Specs() {
		fa, err := a.Field(spec.Name)
		if err != nil {
			return 0, err
		}
		fb, err := b.Field(spec.Name)
		if err != nil {
			return 0, err
		}
		if len(fa) != len(fb) {
			return 0, &grid.ShapeMismatchError{Context: "loss field " + spec.Name, Want: len(fa), Got: len(fb)}
		}
		for i := range fa {
			d := fa[i] - fb[i]
			sum += d * d
		}
		count += len(fa)
	}
	if count == 0 {
		return 0, nil
	}
	return sum / float64(count), nil
}

// TrajectoryMSE averages FieldMSE over corresponding trajectory entries.
func TrajectoryMSE(traj, reference hybrid.Trajectory) (float64, error) {
	if len(traj) != len(reference) {
		return 0, &grid.ShapeMismatchError{Context: "trajectory length", Want: len(reference), Got: len(traj)}
	}
	sum := 0.0
	for i := range traj {
		mse, err := FieldMSE(traj[i], reference[i])
		if err != nil {
			return 0, err
		}
		sum += mse
	}
	if len(traj) == 0 {
		return 0, nil
	}
	return sum / float64(len(traj)), nil
}

// RolloutLoss builds a LossFn measuring a rollout against a reference
// trajectory.
func RolloutLoss(it *hybrid.Integrator, initial *grid.State, dt float64, reference hybrid.Trajectory) LossFn {
	return func(p *nn.Params) (float64, error) {
		traj, err := it.Rollout(initial, p, dt, len(reference))
		if err != nil {
			return 0, err
		}
		return TrajectoryMSE(traj, reference)
	}
}

// Gradient computes d(loss)/d(params) by central finite differences with
// probe size eps. The input parameters are not modified.
func Gradient(loss LossFn, p *nn.Params, eps float64) ([]float64, error) {
	if eps <= 0 {
		eps = 1e-6
	}
	n := p.NumParams()
	gradient := make([]float64, n)
	probe := p.Clone()
	for i := 0; i < n; i++ {
		orig := probe.At(i)

		probe.SetAt(i, orig+eps)
		plus, err := loss(probe)
		if err != nil {
			return nil, err
		}

		probe.SetAt(i, orig-eps)
		minus, err := loss(probe)
		if err != nil {
			return nil, err
		}

		probe.SetAt(i, orig)
		gradient[i] = (plus - minus) / (2 * eps)
	}
	return gradient, nil
}

// SGDStep returns new parameters moved one step against the gradient. The
// input snapshot stays untouched, matching the ownership rule that rollouts
// only ever see immutable parameters.
func SGDStep(p *nn.Params, gradient []float64, lr float64) *nn.Params {
	next := p.Clone()
	for i := 0; i < next.NumParams() && i < len(gradient); i++ {
		next.SetAt(i, next.At(i)-lr*gradient[i])
	}
	return next
}

// BacktrackingStep takes one descent step with a backtracking line search:
// starting from lr, the step size is halved until the loss stops increasing.
// The coupling amplifies parameter changes by the normalization scale times
// dt, so a fixed step size has no safe universal value; the search finds one
// per update. Returns the accepted parameters and their loss; if no step
// size is accepted the input parameters come back unchanged.
func BacktrackingStep(loss LossFn, p *nn.Params, gradient []float64, lr float64) (*nn.Params, float64, error) {
	const maxHalvings = 40

	before, err := loss(p)
	if err != nil {
		return nil, 0, err
	}

	step := lr
	for i := 0; i < maxHalvings; i++ {
		next := SGDStep(p, gradient, step)
		after, err := loss(next)
		if err != nil {
			return nil, 0, err
		}
		if after <= before {
			return next, after, nil
		}
		step /= 2
	}
	return p, before, nil
}
