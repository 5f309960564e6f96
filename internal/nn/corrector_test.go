package nn

import (
	"errors"
	"math"
	"testing"

	"github.com/Oscarrrhhhh/neuralgcm/internal/coupling"
	"github.com/Oscarrrhhhh/neuralgcm/internal/grid"
)

func testFeatures(width, columns int, seed int64) *coupling.Features {
	f := &coupling.Features{Width: width, Columns: columns, Data: make([]float64, width*columns)}
	v := float64(seed)
	for i := range f.Data {
		// Deterministic pseudo-pattern, bounded to keep tanh away from
		// saturation.
		v = math.Sin(v + float64(i))
		f.Data[i] = 0.5 * v
	}
	return f
}

func TestZeroParamsGiveZeroCorrection(t *testing.T) {
	p := NewParams([]int{4, 8, 4})
	c := &Corrector{}
	f := testFeatures(4, 6, 1)

	out, err := c.Apply(f, p)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	for i, v := range out.Data {
		if v != 0 {
			t.Fatalf("expected zero output, got %g at %d", v, i)
		}
	}
}

func TestApplyDeterministic(t *testing.T) {
	p := NewRandomParams([]int{4, 8, 4}, 42)
	c := &Corrector{}
	f := testFeatures(4, 6, 2)

	a, err := c.Apply(f, p)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	b, err := c.Apply(f, p)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			t.Fatalf("non-deterministic output at %d: %g vs %g", i, a.Data[i], b.Data[i])
		}
	}
}

func TestDropoutSeededDeterminism(t *testing.T) {
	p := NewRandomParams([]int{4, 16, 4}, 7)
	f := testFeatures(4, 8, 3)

	c1 := &Corrector{Training: true, Dropout: 0.5, Seed: 11}
	c2 := &Corrector{Training: true, Dropout: 0.5, Seed: 11}
	a, _ := c1.Apply(f, p)
	b, _ := c2.Apply(f, p)
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			t.Fatal("same seed must produce identical dropout masks")
		}
	}

	c3 := &Corrector{Training: true, Dropout: 0.5, Seed: 12}
	d, _ := c3.Apply(f, p)
	same := true
	for i := range a.Data {
		if a.Data[i] != d.Data[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds should produce different masks")
	}

	inference := &Corrector{Training: false, Dropout: 0.5, Seed: 11}
	e, _ := inference.Apply(f, p)
	zero := &Corrector{}
	g, _ := zero.Apply(f, p)
	for i := range e.Data {
		if e.Data[i] != g.Data[i] {
			t.Fatal("training=false must disable dropout entirely")
		}
	}
}

func TestApplyWidthMismatch(t *testing.T) {
	p := NewParams([]int{5, 8, 5})
	c := &Corrector{}
	f := testFeatures(4, 6, 4)

	_, err := c.Apply(f, p)
	if !errors.Is(err, grid.ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestBackwardMatchesFiniteDifferences(t *testing.T) {
	p := NewRandomParams([]int{3, 5, 3}, 9)
	c := &Corrector{}
	f := testFeatures(3, 4, 5)

	// Loss = sum of outputs, so upstream gradient is all ones.
	upstream := &coupling.Features{
		Width:   f.Width,
		Columns: f.Columns,
		Data:    make([]float64, f.Width*f.Columns),
	}
	for i := range upstream.Data {
		upstream.Data[i] = 1.0
	}

	gradP, err := Backward(f, p, upstream)
	if err != nil {
		t.Fatalf("Backward: %v", err)
	}

	loss := func(params *Params) float64 {
		out, err := c.Apply(f, params)
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		sum := 0.0
		for _, v := range out.Data {
			sum += v
		}
		return sum
	}

	const eps = 1e-6
	for i := 0; i < p.NumParams(); i++ {
		plus := p.Clone()
		plus.SetAt(i, plus.At(i)+eps)
		minus := p.Clone()
		minus.SetAt(i, minus.At(i)-eps)
		numeric := (loss(plus) - loss(minus)) / (2 * eps)

		analytic := gradP.At(i)
		if math.Abs(numeric-analytic) > 1e-5*math.Max(1, math.Abs(numeric)) {
			t.Fatalf("gradient mismatch at param %d: analytic %g, numeric %g", i, analytic, numeric)
		}
	}
}

func TestParamsFlatIndexing(t *testing.T) {
	p := NewParams([]int{2, 3, 2})
	n := p.NumParams()
	want := 2*3 + 3 + 3*2 + 2
	if n != want {
		t.Fatalf("NumParams: got %d, want %d", n, want)
	}

	for i := 0; i < n; i++ {
		p.SetAt(i, float64(i)+1)
	}
	for i := 0; i < n; i++ {
		if p.At(i) != float64(i)+1 {
			t.Fatalf("At(%d): got %g", i, p.At(i))
		}
	}
}
