package grid

import "math"

// Canonical field names used by the reference dynamical core and the
// built-in presets. States may carry additional tracer fields.
const (
	FieldUWind           = "u_wind"
	FieldVWind           = "v_wind"
	FieldTemperature     = "temperature"
	FieldSurfacePressure = "surface_pressure"
	FieldHumidity        = "specific_humidity"
)

// Grid is the shared coordinate specification. Volume fields have
// Levels*Lat*Lon values laid out level-major; surface fields have Lat*Lon.
type Grid struct {
	Levels int
	Lat    int
	Lon    int
}

func (g Grid) Columns() int     { return g.Lat * g.Lon }
func (g Grid) VolumeSize() int  { return g.Levels * g.Lat * g.Lon }
func (g Grid) SurfaceSize() int { return g.Lat * g.Lon }

func (g Grid) Valid() bool {
	return g.Levels > 0 && g.Lat > 0 && g.Lon > 0
}

// FieldSpec names a field and records whether it is a surface field
// (single level) or a volume field (one value per level).
type FieldSpec struct {
	Name    string
	Surface bool
}

// Channels is the number of encoder channels the field contributes:
// one per level for volume fields, one for surface fields.
func (fs FieldSpec) Channels(g Grid) int {
	if fs.Surface {
		return 1
	}
	return g.Levels
}

func (fs FieldSpec) Size(g Grid) int {
	return fs.Channels(g) * g.Columns()
}

// Field holds one physical field as a flat array.
type Field []float64

func (f Field) Clone() Field {
	c := make(Field, len(f))
	copy(c, f)
	return c
}

func (f Field) IsValid() bool {
	for _, v := range f {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (f Field) Norm() float64 {
	sum := 0.0
	for _, v := range f {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (f Field) Mean() float64 {
	if len(f) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range f {
		sum += v
	}
	return sum / float64(len(f))
}

func (f Field) Add(other Field) Field {
	result := make(Field, len(f))
	for i := range f {
		if i < len(other) {
			result[i] = f[i] + other[i]
		} else {
			result[i] = f[i]
		}
	}
	return result
}

// AddScaled returns f + factor*other.
func (f Field) AddScaled(other Field, factor float64) Field {
	result := make(Field, len(f))
	for i := range f {
		if i < len(other) {
			result[i] = f[i] + factor*other[i]
		} else {
			result[i] = f[i]
		}
	}
	return result
}

func (f Field) Scale(factor float64) Field {
	result := make(Field, len(f))
	for i := range f {
		result[i] = f[i] * factor
	}
	return result
}

// Uniform returns a field of the given size filled with value.
func Uniform(size int, value float64) Field {
	f := make(Field, size)
	for i := range f {
		f[i] = value
	}
	return f
}
