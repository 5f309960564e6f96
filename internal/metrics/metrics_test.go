package metrics

import (
	"math"
	"testing"

	"github.com/Oscarrrhhhh/neuralgcm/internal/coupling"
	"github.com/Oscarrrhhhh/neuralgcm/internal/grid"
	"github.com/Oscarrrhhhh/neuralgcm/internal/nn"
)

func stateWith(t *testing.T, temp, ps float64, wind float64) *grid.State {
	t.Helper()
	g := grid.Grid{Levels: 2, Lat: 2, Lon: 4}
	specs := []grid.FieldSpec{
		{Name: grid.FieldUWind},
		{Name: grid.FieldVWind},
		{Name: grid.FieldTemperature},
		{Name: grid.FieldSurfacePressure, Surface: true},
	}
	s, err := grid.NewState(g, specs, map[string]grid.Field{
		grid.FieldUWind:           grid.Uniform(g.VolumeSize(), wind),
		grid.FieldVWind:           grid.Uniform(g.VolumeSize(), 0),
		grid.FieldTemperature:     grid.Uniform(g.VolumeSize(), temp),
		grid.FieldSurfacePressure: grid.Uniform(g.SurfaceSize(), ps),
	})
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	return s
}

func TestMassDrift(t *testing.T) {
	m := NewMassDrift()
	m.OnStep(0, stateWith(t, 288, 100000, 0))
	m.OnStep(1, stateWith(t, 288, 99000, 0))

	if math.Abs(m.Value()-0.01) > 1e-12 {
		t.Errorf("mass drift: got %g, want 0.01", m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("reset should clear the metric")
	}
}

func TestMassDriftConstant(t *testing.T) {
	m := NewMassDrift()
	for i := 0; i < 5; i++ {
		m.OnStep(i, stateWith(t, 288, 101325, 0))
	}
	if m.Value() != 0 {
		t.Errorf("constant pressure should give zero drift, got %g", m.Value())
	}
}

func TestTemperatureRange(t *testing.T) {
	m := NewTemperatureRange()
	m.OnStep(0, stateWith(t, 280, 101325, 0))
	m.OnStep(1, stateWith(t, 295, 101325, 0))

	if m.Value() != 15 {
		t.Errorf("temperature range: got %g, want 15", m.Value())
	}
}

func TestKineticEnergy(t *testing.T) {
	m := NewKineticEnergy()
	m.OnStep(0, stateWith(t, 288, 101325, 10))

	if math.Abs(m.Value()-50.0) > 1e-12 {
		t.Errorf("kinetic energy: got %g, want 50", m.Value())
	}
}

func TestCorrectionRMS(t *testing.T) {
	enc := &coupling.Encoder{
		Fields: []string{grid.FieldTemperature},
		Width:  2,
		Norms: map[string]coupling.ChannelNorm{
			grid.FieldTemperature: {Mean: 288, Scale: 30},
		},
	}
	corr := &nn.Corrector{}

	// A single zero-initialized linear layer outputs an all-zero tendency.
	zero := nn.NewParams([]int{2, 2})
	m := NewCorrectionRMS(enc, corr, zero)
	m.OnStep(0, stateWith(t, 288, 101325, 0))
	if m.Value() != 0 {
		t.Errorf("zero parameters should give zero RMS, got %g", m.Value())
	}

	// With zero weights and a constant bias every output equals the bias.
	biased := nn.NewParams([]int{2, 2})
	biased.Layers[0].B[0] = 0.5
	biased.Layers[0].B[1] = 0.5
	m = NewCorrectionRMS(enc, corr, biased)
	m.OnStep(0, stateWith(t, 288, 101325, 0))
	m.OnStep(1, stateWith(t, 295, 101325, 0))

	if math.Abs(m.Value()-0.5) > 1e-12 {
		t.Errorf("correction RMS: got %g, want 0.5", m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("reset should clear the metric")
	}
}
