package nn

import (
	"math"
	"math/rand"

	"github.com/Oscarrrhhhh/neuralgcm/internal/coupling"
	"github.com/Oscarrrhhhh/neuralgcm/internal/grid"
)

// Corrector applies the dense column network to every grid column of a
// feature tensor. Hidden layers use tanh, the output layer is linear.
//
// With Training=false the output is fully deterministic. Training=true
// enables dropout on hidden activations, driven by an explicit seeded RNG;
// two calls with the same seed produce identical masks.
type Corrector struct {
	Training bool
	Dropout  float64
	Seed     int64
}

// Apply computes the feature-space tendency for every column. The first
// layer's input width and the last layer's output width must match the
// feature width.
func (c *Corrector) Apply(f *coupling.Features, p *Params) (*coupling.Features, error) {
	if len(p.Layers) == 0 {
		return nil, &grid.ShapeMismatchError{Context: "corrector layers", Want: 1, Got: 0}
	}
	if p.Layers[0].In != f.Width {
		return nil, &grid.ShapeMismatchError{Context: "corrector input width", Want: p.Layers[0].In, Got: f.Width}
	}
	last := p.Layers[len(p.Layers)-1]
	if last.Out != f.Width {
		return nil, &grid.ShapeMismatchError{Context: "corrector output width", Want: f.Width, Got: last.Out}
	}

	var rng *rand.Rand
	if c.Training && c.Dropout > 0 {
		rng = rand.New(rand.NewSource(c.Seed))
	}

	out := &coupling.Features{
		Width:   f.Width,
		Columns: f.Columns,
		Data:    make([]float64, f.Width*f.Columns),
	}

	x := make([]float64, f.Width)
	for j := 0; j < f.Columns; j++ {
		for ch := 0; ch < f.Width; ch++ {
			x[ch] = f.Data[ch*f.Columns+j]
		}
		y := c.forwardColumn(x, p, rng)
		for ch := 0; ch < f.Width; ch++ {
			out.Data[ch*f.Columns+j] = y[ch]
		}
	}
	return out, nil
}

// forwardColumn runs one column through the network and returns the output
// activations.
func (c *Corrector) forwardColumn(x []float64, p *Params, rng *rand.Rand) []float64 {
	a := x
	for l, layer := range p.Layers {
		z := make([]float64, layer.Out)
		for o := 0; o < layer.Out; o++ {
			sum := layer.B[o]
			for i := 0; i < layer.In; i++ {
				sum += a[i] * layer.W[i*layer.Out+o]
			}
			z[o] = sum
		}
		if l < len(p.Layers)-1 {
			for o := range z {
				z[o] = math.Tanh(z[o])
			}
			if rng != nil {
				keep := 1 - c.Dropout
				for o := range z {
					if rng.Float64() < c.Dropout {
						z[o] = 0
					} else {
						z[o] /= keep
					}
				}
			}
		}
		a = z
	}
	return a
}

// forwardActivations runs one column keeping post-activation values per
// layer, for the backward pass. Dropout is not applied; gradients are
// defined for the deterministic inference path.
func forwardActivations(x []float64, p *Params) [][]float64 {
	acts := make([][]float64, 0, len(p.Layers)+1)
	acts = append(acts, x)
	a := x
	for l, layer := range p.Layers {
		z := make([]float64, layer.Out)
		for o := 0; o < layer.Out; o++ {
			sum := layer.B[o]
			for i := 0; i < layer.In; i++ {
				sum += a[i] * layer.W[i*layer.Out+o]
			}
			z[o] = sum
		}
		if l < len(p.Layers)-1 {
			for o := range z {
				z[o] = math.Tanh(z[o])
			}
		}
		acts = append(acts, z)
		a = z
	}
	return acts
}
