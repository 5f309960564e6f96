package experiment

import (
	"context"

	"github.com/Oscarrrhhhh/neuralgcm/internal/config"
	"github.com/Oscarrrhhhh/neuralgcm/internal/grid"
	"github.com/Oscarrrhhhh/neuralgcm/internal/hybrid"
	"github.com/Oscarrrhhhh/neuralgcm/internal/metrics"
	"github.com/Oscarrrhhhh/neuralgcm/internal/nn"
)

// Experiment is one configured forecast run.
type Experiment struct {
	Config     *config.Config
	Integrator *hybrid.Integrator
	Params     *nn.Params
	Initial    *grid.State
	Metrics    []metrics.Metric
}

// Result carries the trajectory together with the reduced diagnostics.
type Result struct {
	Trajectory hybrid.Trajectory
	Metrics    map[string]float64
	Steps      int
}

// Build assembles an experiment from a configuration using the registry.
func Build(r *Registry, cfg *config.Config) (*Experiment, error) {
	core, err := r.Core(cfg.Core, cfg)
	if err != nil {
		return nil, err
	}
	corrector, params, err := r.Corrector(cfg.Corrector, cfg)
	if err != nil {
		return nil, err
	}
	initial, err := cfg.InitialState()
	if err != nil {
		return nil, err
	}

	encoder := Encoder(cfg)
	return &Experiment{
		Config: cfg,
		Integrator: &hybrid.Integrator{
			Core:      core,
			Encoder:   encoder,
			Corrector: corrector,
			Bounds:    cfg.FieldBounds(),
		},
		Params:  params,
		Initial: initial,
		Metrics: append(DefaultMetrics(), metrics.NewCorrectionRMS(encoder, corrector, params)),
	}, nil
}

// Run executes the rollout with metrics observing every step. The context
// is consulted once before the rollout starts; a running rollout is a
// single atomic computation and is never interrupted mid-step.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, m := range e.Metrics {
		m.Reset()
	}
	observers := make([]hybrid.Observer, len(e.Metrics))
	for i, m := range e.Metrics {
		observers[i] = m
	}

	traj, err := e.Integrator.Rollout(e.Initial, e.Params, e.Config.Dt, e.Config.Steps, observers...)
	if err != nil {
		return nil, err
	}

	values := make(map[string]float64, len(e.Metrics))
	for _, m := range e.Metrics {
		values[m.Name()] = m.Value()
	}
	return &Result{Trajectory: traj, Metrics: values, Steps: len(traj)}, nil
}
