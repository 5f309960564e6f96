// Package coupling translates between the physical state representation and
// the feature space consumed and produced by the learned correction module.
//
// Encoding packs a configured subset of fields into a channel-major tensor,
// normalizing each field with a fixed affine transform. Decoding inverts the
// transform and preserves every field not represented in the features.
package coupling

import (
	"github.com/Oscarrrhhhh/neuralgcm/internal/grid"
)

// Features is the encoded form of a state: Width channels by Columns grid
// columns, channel-major (Data[c*Columns+j]).
type Features struct {
	Width   int
	Columns int
	Data    []float64
}

func (f *Features) Clone() *Features {
	data := make([]float64, len(f.Data))
	copy(data, f.Data)
	return &Features{Width: f.Width, Columns: f.Columns, Data: data}
}

// ChannelNorm is the per-field normalization applied on encode:
// encoded = (value - Mean) / Scale.
type ChannelNorm struct {
	Mean  float64
	Scale float64
}

func (n ChannelNorm) scale() float64 {
	if n.Scale == 0 {
		return 1
	}
	return n.Scale
}

// Encoder maps between states and features. Fields lists the encoded fields
// in channel order: a volume field contributes one channel per level, a
// surface field one channel. Width is the configured coupling width and must
// equal the total channel count of Fields on the grid in use.
type Encoder struct {
	Fields []string
	Width  int
	Norms  map[string]ChannelNorm
}

func (e *Encoder) norm(name string) ChannelNorm {
	if n, ok := e.Norms[name]; ok {
		return n
	}
	return ChannelNorm{Scale: 1}
}

// channelCount sums the channels contributed by the encoded fields of s.
func (e *Encoder) channelCount(s *grid.State) (int, error) {
	total := 0
	for _, name := range e.Fields {
		spec, ok := s.Spec(name)
		if !ok {
			return 0, &grid.UnknownFieldError{Name: name}
		}
		total += spec.Channels(s.Grid())
	}
	return total, nil
}

// Encode packs the configured fields into a feature tensor. It fails with a
// shape mismatch if the configured coupling width does not match the channel
// total of the encoded fields.
func (e *Encoder) Encode(s *grid.State) (*Features, error) {
	channels, err := e.channelCount(s)
	if err != nil {
		return nil, err
	}
	if channels != e.Width {
		return nil, &grid.ShapeMismatchError{Context: "coupling width", Want: e.Width, Got: channels}
	}

	columns := s.Grid().Columns()
	data := make([]float64, channels*columns)

	row := 0
	for _, name := range e.Fields {
		spec, _ := s.Spec(name)
		f, err := s.Field(name)
		if err != nil {
			return nil, err
		}
		n := e.norm(name)
		for c := 0; c < spec.Channels(s.Grid()); c++ {
			src := f[c*columns : (c+1)*columns]
			dst := data[row*columns : (row+1)*columns]
			for j, v := range src {
				dst[j] = (v - n.Mean) / n.scale()
			}
			row++
		}
	}

	return &Features{Width: channels, Columns: columns, Data: data}, nil
}

// Decode unpacks features into a copy of template. Encoded fields are
// denormalized back to physical units; every other field of template passes
// through untouched.
func (e *Encoder) Decode(f *Features, template *grid.State) (*grid.State, error) {
	if err := e.checkFeatures(f, template); err != nil {
		return nil, err
	}

	columns := template.Grid().Columns()
	replace := make(map[string]grid.Field, len(e.Fields))

	row := 0
	for _, name := range e.Fields {
		spec, _ := template.Spec(name)
		n := e.norm(name)
		out := make(grid.Field, spec.Size(template.Grid()))
		for c := 0; c < spec.Channels(template.Grid()); c++ {
			src := f.Data[row*columns : (row+1)*columns]
			dst := out[c*columns : (c+1)*columns]
			for j, v := range src {
				dst[j] = v*n.scale() + n.Mean
			}
			row++
		}
		replace[name] = out
	}

	return template.WithFields(replace)
}

// UnpackTendency maps a feature-space tendency back onto physical fields.
// Only the normalization scale is inverted; tendencies are rates, so the
// mean offset does not apply.
func (e *Encoder) UnpackTendency(f *Features, template *grid.State) (map[string]grid.Field, error) {
	if err := e.checkFeatures(f, template); err != nil {
		return nil, err
	}

	columns := template.Grid().Columns()
	out := make(map[string]grid.Field, len(e.Fields))

	row := 0
	for _, name := range e.Fields {
		spec, _ := template.Spec(name)
		n := e.norm(name)
		tend := make(grid.Field, spec.Size(template.Grid()))
		for c := 0; c < spec.Channels(template.Grid()); c++ {
			src := f.Data[row*columns : (row+1)*columns]
			dst := tend[c*columns : (c+1)*columns]
			for j, v := range src {
				dst[j] = v * n.scale()
			}
			row++
		}
		out[name] = tend
	}

	return out, nil
}

func (e *Encoder) checkFeatures(f *Features, template *grid.State) error {
	channels, err := e.channelCount(template)
	if err != nil {
		return err
	}
	if channels != e.Width {
		return &grid.ShapeMismatchError{Context: "coupling width", Want: e.Width, Got: channels}
	}
	if f.Width != e.Width {
		return &grid.ShapeMismatchError{Context: "feature width", Want: e.Width, Got: f.Width}
	}
	if f.Columns != template.Grid().Columns() {
		return &grid.ShapeMismatchError{Context: "feature columns", Want: template.Grid().Columns(), Got: f.Columns}
	}
	if len(f.Data) != f.Width*f.Columns {
		return &grid.ShapeMismatchError{Context: "feature data", Want: f.Width * f.Columns, Got: len(f.Data)}
	}
	return nil
}
