package nn

import (
	"github.com/Oscarrrhhhh/neuralgcm/internal/coupling"
	"github.com/Oscarrrhhhh/neuralgcm/internal/grid"
)

// Backward accumulates the gradient of a scalar loss with respect to the
// parameters, given the upstream gradient on the corrector output for every
// column. The returned structure mirrors Params layer-for-layer.
//
// Gradients are defined for the deterministic path (no dropout); callers
// training with dropout should treat the mask as part of the architecture
// and keep Training=false while differentiating.
func Backward(f *coupling.Features, p *Params, upstream *coupling.Features) (*Params, error) {
	if upstream.Width != f.Width || upstream.Columns != f.Columns {
		return nil, &grid.ShapeMismatchError{
			Context: "upstream gradient",
			Want:    f.Width * f.Columns,
			Got:     upstream.Width * upstream.Columns,
		}
	}
	if len(p.Layers) == 0 || p.Layers[0].In != f.Width {
		return nil, &grid.ShapeMismatchError{Context: "corrector input width", Want: f.Width, Got: layerIn(p)}
	}

	gradP := NewParams(layerSizes(p))

	x := make([]float64, f.Width)
	g := make([]float64, f.Width)
	for j := 0; j < f.Columns; j++ {
		for ch := 0; ch < f.Width; ch++ {
			x[ch] = f.Data[ch*f.Columns+j]
			g[ch] = upstream.Data[ch*f.Columns+j]
		}
		backwardColumn(x, g, p, gradP)
	}
	return gradP, nil
}

func backwardColumn(x, upstream []float64, p, gradP *Params) {
	acts := forwardActivations(x, p)

	grad := make([]float64, len(upstream))
	copy(grad, upstream)

	for l := len(p.Layers) - 1; l >= 0; l-- {
		layer := p.Layers[l]
		in := acts[l]
		out := acts[l+1]

		// Hidden layers stored tanh outputs; fold in the activation
		// derivative before the linear part. The last layer is linear.
		if l < len(p.Layers)-1 {
			for o := range grad {
				grad[o] *= 1 - out[o]*out[o]
			}
		}

		gl := &gradP.Layers[l]
		next := make([]float64, layer.In)
		for o := 0; o < layer.Out; o++ {
			gl.B[o] += grad[o]
			for i := 0; i < layer.In; i++ {
				gl.W[i*layer.Out+o] += in[i] * grad[o]
				next[i] += layer.W[i*layer.Out+o] * grad[o]
			}
		}
		grad = next
	}
}

func layerSizes(p *Params) []int {
	sizes := make([]int, 0, len(p.Layers)+1)
	if len(p.Layers) == 0 {
		return sizes
	}
	sizes = append(sizes, p.Layers[0].In)
	for _, layer := range p.Layers {
		sizes = append(sizes, layer.Out)
	}
	return sizes
}

func layerIn(p *Params) int {
	if len(p.Layers) == 0 {
		return 0
	}
	return p.Layers[0].In
}
