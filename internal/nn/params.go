// Package nn implements the learned physics correction module: a dense
// column network mapping encoded features to feature-space tendencies.
//
// Parameters are owned by the training process. They are read-only during a
// forward rollout and updated only by an external optimizer between rollouts.
package nn

import (
	"math"
	"math/rand"
)

// Layer holds the weights of one dense layer. Weights are stored flat with
// index i*Out+o for the connection from input i to output o.
type Layer struct {
	In  int       `json:"in"`
	Out int       `json:"out"`
	W   []float64 `json:"w"`
	B   []float64 `json:"b"`
}

// Params is the full trainable parameter set of the correction module.
type Params struct {
	Layers []Layer `json:"layers"`
}

// NewParams builds zero-initialized parameters for the given layer sizes,
// e.g. sizes = [width, hidden, width]. A zero-initialized network produces
// an all-zero correction.
func NewParams(sizes []int) *Params {
	p := &Params{Layers: make([]Layer, 0, len(sizes)-1)}
	for l := 0; l+1 < len(sizes); l++ {
		in, out := sizes[l], sizes[l+1]
		p.Layers = append(p.Layers, Layer{
			In:  in,
			Out: out,
			W:   make([]float64, in*out),
			B:   make([]float64, out),
		})
	}
	return p
}

// NewRandomParams builds He-initialized parameters from an explicit seed.
func NewRandomParams(sizes []int, seed int64) *Params {
	rng := rand.New(rand.NewSource(seed))
	p := NewParams(sizes)
	for l := range p.Layers {
		stddev := math.Sqrt(2.0 / float64(p.Layers[l].In))
		for i := range p.Layers[l].W {
			p.Layers[l].W[i] = rng.NormFloat64() * stddev
		}
	}
	return p
}

func (p *Params) Clone() *Params {
	c := &Params{Layers: make([]Layer, len(p.Layers))}
	for l, layer := range p.Layers {
		w := make([]float64, len(layer.W))
		copy(w, layer.W)
		b := make([]float64, len(layer.B))
		copy(b, layer.B)
		c.Layers[l] = Layer{In: layer.In, Out: layer.Out, W: w, B: b}
	}
	return c
}

// NumParams is the total number of scalar parameters.
func (p *Params) NumParams() int {
	n := 0
	for _, layer := range p.Layers {
		n += len(layer.W) + len(layer.B)
	}
	return n
}

// At reads the parameter at flat index i (weights before biases, layer by
// layer). Used by external optimizers and finite-difference probes.
func (p *Params) At(i int) float64 {
	for _, layer := range p.Layers {
		if i < len(layer.W) {
			return layer.W[i]
		}
		i -= len(layer.W)
		if i < len(layer.B) {
			return layer.B[i]
		}
		i -= len(layer.B)
	}
	return 0
}

// SetAt writes the parameter at flat index i.
func (p *Params) SetAt(i int, v float64) {
	for l := range p.Layers {
		if i < len(p.Layers[l].W) {
			p.Layers[l].W[i] = v
			return
		}
		i -= len(p.Layers[l].W)
		if i < len(p.Layers[l].B) {
			p.Layers[l].B[i] = v
			return
		}
		i -= len(p.Layers[l].B)
	}
}
