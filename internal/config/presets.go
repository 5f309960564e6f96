package config

import (
	"math"

	"github.com/Oscarrrhhhh/neuralgcm/internal/grid"
)

var presets = map[string]func() *Config{
	"baseline": DefaultConfig,
	"smallgrid": func() *Config {
		cfg := DefaultConfig()
		cfg.Grid = GridConfig{Levels: 2, Lat: 4, Lon: 8}
		cfg.Coupling.Width = 4
		cfg.Steps = 12
		cfg.Network.Hidden = []int{8}
		return cfg
	},
	"spinup": func() *Config {
		cfg := DefaultConfig()
		cfg.Init.WarmAnomaly = 10.0
		cfg.Init.ZonalWind = 15.0
		cfg.Steps = 96
		return cfg
	},
}

// GetPreset returns a named preset configuration, or nil when unknown.
func GetPreset(name string) *Config {
	fn, ok := presets[name]
	if !ok {
		return nil
	}
	return fn()
}

// ListPresets returns the available preset names.
func ListPresets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	return names
}

// InitialState builds the initial condition described by the config: uniform
// base fields, plus an optional zonal wind and a Gaussian warm anomaly at
// the grid center.
func (c *Config) InitialState() (*grid.State, error) {
	g := c.GridSpec()
	specs := []grid.FieldSpec{
		{Name: grid.FieldUWind},
		{Name: grid.FieldVWind},
		{Name: grid.FieldTemperature},
		{Name: grid.FieldHumidity},
		{Name: grid.FieldSurfacePressure, Surface: true},
	}

	temp := grid.Uniform(g.VolumeSize(), c.Init.Temperature)
	if c.Init.WarmAnomaly != 0 {
		ci, ck := g.Lat/2, g.Lon/2
		sigma := float64(g.Lon) / 8
		for l := 0; l < g.Levels; l++ {
			for i := 0; i < g.Lat; i++ {
				for k := 0; k < g.Lon; k++ {
					di, dk := float64(i-ci), float64(k-ck)
					w := math.Exp(-(di*di + dk*dk) / (2 * sigma * sigma))
					temp[(l*g.Lat+i)*g.Lon+k] += c.Init.WarmAnomaly * w
				}
			}
		}
	}

	return grid.NewState(g, specs, map[string]grid.Field{
		grid.FieldUWind:           grid.Uniform(g.VolumeSize(), c.Init.ZonalWind),
		grid.FieldVWind:           grid.Uniform(g.VolumeSize(), 0),
		grid.FieldTemperature:     temp,
		grid.FieldHumidity:        grid.Uniform(g.VolumeSize(), c.Init.Humidity),
		grid.FieldSurfacePressure: grid.Uniform(g.SurfaceSize(), c.Init.SurfacePressure),
	})
}
