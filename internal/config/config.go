// Package config holds the explicit configuration surface of the forecast
// engine: grid dimensions, coupling width, field bounds, normalization,
// corrector architecture, and integration settings. Nothing is read from
// global or environment state.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Oscarrrhhhh/neuralgcm/internal/grid"
)

const (
	DefaultDt          = 1800.0
	DefaultSteps       = 48
	DefaultDiffusion   = 1.0e4
	DefaultGridSpacing = 2.0e5
	DefaultHidden      = 32
	DefaultTemperature = 288.0
	DefaultPressure    = 101325.0
	DefaultHumidity    = 0.005
)

type Config struct {
	Core      string                  `yaml:"core"`
	Corrector string                  `yaml:"corrector"`
	Dt        float64                 `yaml:"dt"`
	Steps     int                     `yaml:"steps"`
	Seed      int64                   `yaml:"seed"`
	Grid      GridConfig              `yaml:"grid"`
	Coupling  CouplingConfig          `yaml:"coupling"`
	Bounds    map[string]BoundsConfig `yaml:"bounds"`
	Network   NetworkConfig           `yaml:"network"`
	Dynamics  DynamicsConfig          `yaml:"dynamics"`
	Init      InitConfig              `yaml:"init_state"`
}

type GridConfig struct {
	Levels int `yaml:"levels"`
	Lat    int `yaml:"lat"`
	Lon    int `yaml:"lon"`
}

type CouplingConfig struct {
	Width  int                   `yaml:"width"`
	Fields []string              `yaml:"fields"`
	Norms  map[string]NormConfig `yaml:"norms"`
}

type NormConfig struct {
	Mean  float64 `yaml:"mean"`
	Scale float64 `yaml:"scale"`
}

type BoundsConfig struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

type NetworkConfig struct {
	Hidden   []int   `yaml:"hidden"`
	Training bool    `yaml:"training"`
	Dropout  float64 `yaml:"dropout"`
}

type DynamicsConfig struct {
	Diffusion float64 `yaml:"diffusion"`
	Spacing   float64 `yaml:"spacing"`
}

type InitConfig struct {
	Temperature     float64 `yaml:"temperature"`
	SurfacePressure float64 `yaml:"surface_pressure"`
	Humidity        float64 `yaml:"humidity"`
	WarmAnomaly     float64 `yaml:"warm_anomaly"`
	ZonalWind       float64 `yaml:"zonal_wind"`
}

func DefaultConfig() *Config {
	return &Config{
		Core:      "finite_difference",
		Corrector: "mlp",
		Dt:        DefaultDt,
		Steps:     DefaultSteps,
		Grid:      GridConfig{Levels: 5, Lat: 8, Lon: 16},
		Coupling: CouplingConfig{
			Width:  10, // temperature + humidity, one channel per level
			Fields: []string{grid.FieldTemperature, grid.FieldHumidity},
			Norms: map[string]NormConfig{
				grid.FieldTemperature: {Mean: 288, Scale: 30},
				grid.FieldHumidity:    {Mean: 0.005, Scale: 0.01},
			},
		},
		Bounds: map[string]BoundsConfig{
			grid.FieldTemperature:     {Min: 150, Max: 350},
			grid.FieldSurfacePressure: {Min: 30000, Max: 110000},
			grid.FieldHumidity:        {Min: 0, Max: 0.1},
			grid.FieldUWind:           {Min: -150, Max: 150},
			grid.FieldVWind:           {Min: -150, Max: 150},
		},
		Network: NetworkConfig{
			Hidden: []int{DefaultHidden},
		},
		Dynamics: DynamicsConfig{
			Diffusion: DefaultDiffusion,
			Spacing:   DefaultGridSpacing,
		},
		Init: InitConfig{
			Temperature:     DefaultTemperature,
			SurfacePressure: DefaultPressure,
			Humidity:        DefaultHumidity,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// GridSpec converts the grid section to the core grid type.
func (c *Config) GridSpec() grid.Grid {
	return grid.Grid{Levels: c.Grid.Levels, Lat: c.Grid.Lat, Lon: c.Grid.Lon}
}

// FieldBounds converts the bounds section to the core bounds map.
func (c *Config) FieldBounds() map[string]grid.Bounds {
	out := make(map[string]grid.Bounds, len(c.Bounds))
	for name, b := range c.Bounds {
		out[name] = grid.Bounds{Min: b.Min, Max: b.Max}
	}
	return out
}

// LayerSizes is the corrector architecture: coupling width, hidden sizes,
// coupling width.
func (c *Config) LayerSizes() []int {
	sizes := make([]int, 0, len(c.Network.Hidden)+2)
	sizes = append(sizes, c.Coupling.Width)
	sizes = append(sizes, c.Network.Hidden...)
	sizes = append(sizes, c.Coupling.Width)
	return sizes
}
