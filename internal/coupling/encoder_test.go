package coupling

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/Oscarrrhhhh/neuralgcm/internal/grid"
)

func randomState(t *testing.T, seed int64) *grid.State {
	t.Helper()
	g := grid.Grid{Levels: 3, Lat: 4, Lon: 6}
	rng := rand.New(rand.NewSource(seed))

	randomField := func(size int, base, spread float64) grid.Field {
		f := make(grid.Field, size)
		for i := range f {
			f[i] = base + spread*rng.NormFloat64()
		}
		return f
	}

	specs := []grid.FieldSpec{
		{Name: grid.FieldUWind},
		{Name: grid.FieldVWind},
		{Name: grid.FieldTemperature},
		{Name: grid.FieldSurfacePressure, Surface: true},
	}
	s, err := grid.NewState(g, specs, map[string]grid.Field{
		grid.FieldUWind:           randomField(g.VolumeSize(), 0, 10),
		grid.FieldVWind:           randomField(g.VolumeSize(), 0, 10),
		grid.FieldTemperature:     randomField(g.VolumeSize(), 288, 15),
		grid.FieldSurfacePressure: randomField(g.SurfaceSize(), 101325, 500),
	})
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	return s
}

func testEncoder() *Encoder {
	return &Encoder{
		Fields: []string{grid.FieldTemperature, grid.FieldSurfacePressure},
		Width:  4, // 3 temperature levels + 1 surface pressure channel
		Norms: map[string]ChannelNorm{
			grid.FieldTemperature:     {Mean: 288, Scale: 30},
			grid.FieldSurfacePressure: {Mean: 101325, Scale: 5000},
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	s := randomState(t, 1)
	enc := testEncoder()

	features, err := enc.Encode(s)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if features.Width != 4 || features.Columns != 24 {
		t.Fatalf("unexpected feature shape: %dx%d", features.Width, features.Columns)
	}

	decoded, err := enc.Decode(features, s)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	// Pass-through fields reproduce exactly (shared storage).
	for _, name := range []string{grid.FieldUWind, grid.FieldVWind} {
		orig, _ := s.Field(name)
		got, _ := decoded.Field(name)
		if &orig[0] != &got[0] {
			t.Errorf("pass-through field %s was copied", name)
		}
	}

	// Encoded fields round-trip within numerical tolerance.
	for _, name := range enc.Fields {
		orig, _ := s.Field(name)
		got, _ := decoded.Field(name)
		for i := range orig {
			rel := math.Abs(got[i]-orig[i]) / math.Max(math.Abs(orig[i]), 1)
			if rel > 1e-9 {
				t.Fatalf("field %s index %d: %g vs %g", name, i, got[i], orig[i])
			}
		}
	}
}

func TestEncodeWidthMismatch(t *testing.T) {
	s := randomState(t, 2)
	enc := testEncoder()
	enc.Width = 7

	_, err := enc.Encode(s)
	if !errors.Is(err, grid.ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestDecodeFeatureWidthMismatch(t *testing.T) {
	s := randomState(t, 3)
	enc := testEncoder()

	features, err := enc.Encode(s)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	features.Width = 3
	features.Data = features.Data[:3*features.Columns]

	_, err = enc.Decode(features, s)
	if !errors.Is(err, grid.ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestEncodeUnknownField(t *testing.T) {
	s := randomState(t, 4)
	enc := &Encoder{Fields: []string{"vorticity"}, Width: 3}

	_, err := enc.Encode(s)
	if !errors.Is(err, grid.ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestUnpackTendencyScaling(t *testing.T) {
	s := randomState(t, 5)
	enc := testEncoder()

	features := &Features{
		Width:   enc.Width,
		Columns: s.Grid().Columns(),
		Data:    make([]float64, enc.Width*s.Grid().Columns()),
	}
	for i := range features.Data {
		features.Data[i] = 1.0
	}

	tend, err := enc.UnpackTendency(features, s)
	if err != nil {
		t.Fatalf("UnpackTendency: %v", err)
	}

	// Unit feature tendency maps to one normalization scale per second,
	// with no mean offset.
	if got := tend[grid.FieldTemperature][0]; got != 30.0 {
		t.Errorf("temperature tendency: got %g, want 30", got)
	}
	if got := tend[grid.FieldSurfacePressure][0]; got != 5000.0 {
		t.Errorf("pressure tendency: got %g, want 5000", got)
	}
}

func TestEncodeNormalization(t *testing.T) {
	g := grid.Grid{Levels: 1, Lat: 1, Lon: 2}
	specs := []grid.FieldSpec{{Name: grid.FieldTemperature}}
	s, err := grid.NewState(g, specs, map[string]grid.Field{
		grid.FieldTemperature: {318, 258},
	})
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}

	enc := &Encoder{
		Fields: []string{grid.FieldTemperature},
		Width:  1,
		Norms:  map[string]ChannelNorm{grid.FieldTemperature: {Mean: 288, Scale: 30}},
	}
	features, err := enc.Encode(s)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if features.Data[0] != 1.0 || features.Data[1] != -1.0 {
		t.Errorf("normalization off: got %v", features.Data)
	}
}
