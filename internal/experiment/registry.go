// Package experiment composes a configuration into a runnable forecast:
// core, encoder, corrector, and metrics selected by name.
package experiment

import (
	"fmt"

	"github.com/Oscarrrhhhh/neuralgcm/internal/config"
	"github.com/Oscarrrhhhh/neuralgcm/internal/coupling"
	"github.com/Oscarrrhhhh/neuralgcm/internal/dycore"
	"github.com/Oscarrrhhhh/neuralgcm/internal/metrics"
	"github.com/Oscarrrhhhh/neuralgcm/internal/nn"
)

type Registry struct {
	cores      map[string]func(cfg *config.Config) dycore.Core
	correctors map[string]func(cfg *config.Config) (*nn.Corrector, *nn.Params)
}

func NewRegistry() *Registry {
	r := &Registry{
		cores:      make(map[string]func(cfg *config.Config) dycore.Core),
		correctors: make(map[string]func(cfg *config.Config) (*nn.Corrector, *nn.Params)),
	}

	r.cores["finite_difference"] = func(cfg *config.Config) dycore.Core {
		return dycore.NewFiniteDifference(cfg.FieldBounds(), cfg.Dynamics.Diffusion, cfg.Dynamics.Spacing)
	}
	r.cores["persistence"] = func(cfg *config.Config) dycore.Core {
		return dycore.NewPersistence(cfg.FieldBounds())
	}

	r.correctors["zero"] = func(cfg *config.Config) (*nn.Corrector, *nn.Params) {
		return &nn.Corrector{}, nn.NewParams(cfg.LayerSizes())
	}
	r.correctors["mlp"] = func(cfg *config.Config) (*nn.Corrector, *nn.Params) {
		c := &nn.Corrector{
			Training: cfg.Network.Training,
			Dropout:  cfg.Network.Dropout,
			Seed:     cfg.Seed,
		}
		return c, nn.NewRandomParams(cfg.LayerSizes(), cfg.Seed)
	}

	return r
}

func (r *Registry) Core(name string, cfg *config.Config) (dycore.Core, error) {
	fn, ok := r.cores[name]
	if !ok {
		return nil, fmt.Errorf("unknown core: %s", name)
	}
	return fn(cfg), nil
}

func (r *Registry) Corrector(name string, cfg *config.Config) (*nn.Corrector, *nn.Params, error) {
	fn, ok := r.correctors[name]
	if !ok {
		return nil, nil, fmt.Errorf("unknown corrector: %s", name)
	}
	c, p := fn(cfg)
	return c, p, nil
}

// Encoder builds the coupling boundary described by the config.
func Encoder(cfg *config.Config) *coupling.Encoder {
	norms := make(map[string]coupling.ChannelNorm, len(cfg.Coupling.Norms))
	for name, n := range cfg.Coupling.Norms {
		norms[name] = coupling.ChannelNorm{Mean: n.Mean, Scale: n.Scale}
	}
	return &coupling.Encoder{
		Fields: cfg.Coupling.Fields,
		Width:  cfg.Coupling.Width,
		Norms:  norms,
	}
}

// DefaultMetrics is the diagnostic set attached to every experiment run.
func DefaultMetrics() []metrics.Metric {
	return []metrics.Metric{
		metrics.NewMassDrift(),
		metrics.NewTemperatureRange(),
		metrics.NewKineticEnergy(),
	}
}
