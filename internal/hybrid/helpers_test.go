package hybrid_test

import (
	"github.com/Oscarrrhhhh/neuralgcm/internal/coupling"
	"github.com/Oscarrrhhhh/neuralgcm/internal/dycore"
	"github.com/Oscarrrhhhh/neuralgcm/internal/grid"
	"github.com/Oscarrrhhhh/neuralgcm/internal/hybrid"
	"github.com/Oscarrrhhhh/neuralgcm/internal/nn"
)

const (
	testDt        = 1800.0
	testDiffusion = 1e4
	testDx        = 2.0e5
)

func testGrid() grid.Grid {
	return grid.Grid{Levels: 3, Lat: 6, Lon: 8}
}

func testBounds() map[string]grid.Bounds {
	return map[string]grid.Bounds{
		grid.FieldTemperature:     {Min: 150, Max: 350},
		grid.FieldSurfacePressure: {Min: 30000, Max: 110000},
		grid.FieldUWind:           {Min: -150, Max: 150},
		grid.FieldVWind:           {Min: -150, Max: 150},
	}
}

func mustState(g grid.Grid, temp grid.Field) *grid.State {
	specs := []grid.FieldSpec{
		{Name: grid.FieldUWind},
		{Name: grid.FieldVWind},
		{Name: grid.FieldTemperature},
		{Name: grid.FieldSurfacePressure, Surface: true},
	}
	s, err := grid.NewState(g, specs, map[string]grid.Field{
		grid.FieldUWind:           grid.Uniform(g.VolumeSize(), 0),
		grid.FieldVWind:           grid.Uniform(g.VolumeSize(), 0),
		grid.FieldTemperature:     temp,
		grid.FieldSurfacePressure: grid.Uniform(g.SurfaceSize(), 101325),
	})
	if err != nil {
		panic(err)
	}
	return s
}

// uniformState is the constant-field scenario: uniform temperature, zero
// winds, uniform surface pressure.
func uniformState(temp float64) *grid.State {
	g := testGrid()
	return mustState(g, grid.Uniform(g.VolumeSize(), temp))
}

// anomalyState carries a warm bump and a gentle eastward wind so that the
// dynamics are non-trivial.
func anomalyState() *grid.State {
	g := testGrid()
	temp := grid.Uniform(g.VolumeSize(), 288.0)
	center := (g.Lat/2)*g.Lon + g.Lon/2
	temp[center] = 296.0
	temp[center+1] = 292.0
	s := mustState(g, temp)
	s, err := s.WithField(grid.FieldUWind, grid.Uniform(g.VolumeSize(), 12.0))
	if err != nil {
		panic(err)
	}
	return s
}

func testEncoder() *coupling.Encoder {
	return &coupling.Encoder{
		Fields: []string{grid.FieldTemperature},
		Width:  testGrid().Levels,
		Norms: map[string]coupling.ChannelNorm{
			grid.FieldTemperature: {Mean: 288, Scale: 30},
		},
	}
}

func newIntegrator() *hybrid.Integrator {
	return &hybrid.Integrator{
		Core:      dycore.NewFiniteDifference(testBounds(), testDiffusion, testDx),
		Encoder:   testEncoder(),
		Corrector: &nn.Corrector{},
		Bounds:    testBounds(),
	}
}

func zeroParams() *nn.Params {
	w := testGrid().Levels
	return nn.NewParams([]int{w, 2 * w, w})
}

func randomParams(seed int64) *nn.Params {
	w := testGrid().Levels
	return nn.NewRandomParams([]int{w, 2 * w, w}, seed)
}

func statesEqual(a, b *grid.State) bool {
	for _, spec := range a.Specs() {
		fa, err := a.Field(spec.Name)
		if err != nil {
			return false
		}
		fb, err := b.Field(spec.Name)
		if err != nil {
			return false
		}
		if len(fa) != len(fb) {
			return false
		}
		for i := range fa {
			if fa[i] != fb[i] {
				return false
			}
		}
	}
	return true
}
