package hybrid_test

import (
	"errors"
	"testing"

	"github.com/Oscarrrhhhh/neuralgcm/internal/grid"
	"github.com/Oscarrrhhhh/neuralgcm/internal/hybrid"
)

func TestZeroCorrectionEqualsPureAdvance(t *testing.T) {
	it := newIntegrator()
	s := anomalyState()

	stepped, err := it.Step(s, zeroParams(), testDt)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	advanced, err := it.Core.Advance(s, testDt)
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}

	if !statesEqual(stepped, advanced) {
		t.Fatal("with an all-zero tendency, step must equal the pure core advance exactly")
	}
}

func TestStepDeterministic(t *testing.T) {
	it := newIntegrator()
	s := anomalyState()
	p := randomParams(5)

	a, err := it.Step(s, p, testDt)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	b, err := it.Step(s, p, testDt)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if !statesEqual(a, b) {
		t.Fatal("identical inputs must produce bit-identical outputs")
	}
}

func TestStepDoesNotMutateInput(t *testing.T) {
	it := newIntegrator()
	s := anomalyState()
	before, _ := s.Field(grid.FieldTemperature)
	snapshot := before.Clone()

	if _, err := it.Step(s, randomParams(6), testDt); err != nil {
		t.Fatalf("Step: %v", err)
	}
	after, _ := s.Field(grid.FieldTemperature)
	for i := range snapshot {
		if after[i] != snapshot[i] {
			t.Fatal("Step mutated its input state")
		}
	}
}

func TestStepAppliesStabilityClamp(t *testing.T) {
	it := newIntegrator()
	s := uniformState(288.0)

	// Bias-only corrector pushing temperature up hard: the clamp must keep
	// the result at the configured maximum.
	p := zeroParams()
	for o := range p.Layers[len(p.Layers)-1].B {
		p.Layers[len(p.Layers)-1].B[o] = 10.0
	}

	next, err := it.Step(s, p, testDt)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	temp, _ := next.Field(grid.FieldTemperature)
	for i, v := range temp {
		if v != 350.0 {
			t.Fatalf("expected clamp to 350 at %d, got %g", i, v)
		}
	}
}

func TestStepPropagatesShapeMismatch(t *testing.T) {
	it := newIntegrator()
	it.Encoder.Width = 99
	s := uniformState(288.0)

	_, err := it.Step(s, zeroParams(), testDt)
	if !errors.Is(err, grid.ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
	var diverged *hybrid.RolloutDivergedError
	if errors.As(err, &diverged) {
		t.Fatal("step-level errors must not be wrapped as rollout failures")
	}
}

func TestStepCorrectsOnlyEncodedFields(t *testing.T) {
	it := newIntegrator()
	s := uniformState(288.0)
	p := zeroParams()
	for o := range p.Layers[len(p.Layers)-1].B {
		p.Layers[len(p.Layers)-1].B[o] = 0.0001
	}

	next, err := it.Step(s, p, testDt)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}

	// Temperature moved; surface pressure holds the pure-core value.
	temp, _ := next.Field(grid.FieldTemperature)
	if temp[0] == 288.0 {
		t.Error("encoded field should receive the correction")
	}
	ps, _ := next.Field(grid.FieldSurfacePressure)
	if ps[0] != 101325.0 {
		t.Errorf("pass-through field changed: %g", ps[0])
	}
}

func TestTrajectoryFinal(t *testing.T) {
	var empty hybrid.Trajectory
	if empty.Final() != nil {
		t.Error("empty trajectory has no final state")
	}

	it := newIntegrator()
	traj, err := it.Rollout(uniformState(288.0), zeroParams(), testDt, 3)
	if err != nil {
		t.Fatalf("Rollout: %v", err)
	}
	if traj.Final() != traj[2] {
		t.Error("Final should be the last entry")
	}
}

var _ hybrid.Observer = observerFunc(nil)

type observerFunc func(step int, s *grid.State)

func (f observerFunc) OnStep(step int, s *grid.State) { f(step, s) }

func TestRolloutObserverSeesEveryStep(t *testing.T) {
	it := newIntegrator()
	var seen []int
	obs := observerFunc(func(step int, s *grid.State) {
		seen = append(seen, step)
	})

	if _, err := it.Rollout(uniformState(288.0), zeroParams(), testDt, 4, obs); err != nil {
		t.Fatalf("Rollout: %v", err)
	}
	if len(seen) != 4 || seen[0] != 0 || seen[3] != 3 {
		t.Errorf("observer calls: %v", seen)
	}
}

func TestRolloutParamsReadOnly(t *testing.T) {
	it := newIntegrator()
	p := randomParams(13)
	snapshot := p.Clone()

	if _, err := it.Rollout(anomalyState(), p, testDt, 3); err != nil {
		t.Fatalf("Rollout: %v", err)
	}
	for i := 0; i < p.NumParams(); i++ {
		if p.At(i) != snapshot.At(i) {
			t.Fatal("rollout must not modify parameters")
		}
	}
}
