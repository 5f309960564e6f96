package dycore

import (
	"github.com/Oscarrrhhhh/neuralgcm/internal/grid"
)

// FiniteDifference is the reference core: horizontal advection of tracer
// fields by the resolved winds plus scalar diffusion, with a surface
// pressure tendency from the column-integrated wind divergence. Longitude
// is periodic; latitude uses one-sided differences at the poles.
//
// Forward Euler in time. A state with uniform fields and zero winds is a
// fixed point.
type FiniteDifference struct {
	Bounds    map[string]grid.Bounds
	Diffusion float64 // diffusivity, m^2/s
	Dx        float64 // horizontal grid spacing, m
	Advected  []string
}

func NewFiniteDifference(bounds map[string]grid.Bounds, diffusion, dx float64) *FiniteDifference {
	return &FiniteDifference{
		Bounds:    bounds,
		Diffusion: diffusion,
		Dx:        dx,
		Advected:  []string{grid.FieldTemperature, grid.FieldHumidity},
	}
}

// level addresses one vertical level of a volume field as a Lat x Lon plane.
type level struct {
	data grid.Field
	lat  int
	lon  int
	dx   float64
}

func (p level) at(i, k int) float64 {
	return p.data[i*p.lon+k]
}

// wrapped longitude neighbor access.
func (p level) atLon(i, k int) float64 {
	k = (k + p.lon) % p.lon
	return p.data[i*p.lon+k]
}

func (p level) ddx(i, k int) float64 {
	return (p.atLon(i, k+1) - p.atLon(i, k-1)) / (2 * p.dx)
}

func (p level) ddy(i, k int) float64 {
	switch {
	case i == 0:
		return (p.at(i+1, k) - p.at(i, k)) / p.dx
	case i == p.lat-1:
		return (p.at(i, k) - p.at(i-1, k)) / p.dx
	default:
		return (p.at(i+1, k) - p.at(i-1, k)) / (2 * p.dx)
	}
}

func (p level) laplacian(i, k int) float64 {
	c := p.at(i, k)
	ym, yp := c, c
	if i > 0 {
		ym = p.at(i-1, k)
	}
	if i < p.lat-1 {
		yp = p.at(i+1, k)
	}
	dx2 := p.dx * p.dx
	lx := (p.atLon(i, k+1) - 2*c + p.atLon(i, k-1)) / dx2
	ly := (yp - 2*c + ym) / dx2
	return lx + ly
}

func (c *FiniteDifference) Advance(s *grid.State, dt float64) (*grid.State, error) {
	if err := grid.CheckBounds(s, c.Bounds); err != nil {
		return nil, err
	}
	g := s.Grid()
	u, err := s.Field(grid.FieldUWind)
	if err != nil {
		return nil, err
	}
	v, err := s.Field(grid.FieldVWind)
	if err != nil {
		return nil, err
	}

	cols := g.Columns()
	lev := func(f grid.Field, l int) level {
		return level{data: f[l*cols : (l+1)*cols], lat: g.Lat, lon: g.Lon, dx: c.Dx}
	}

	replace := make(map[string]grid.Field)

	// Tracer advection and diffusion.
	for _, name := range c.Advected {
		if !s.Has(name) {
			continue
		}
		q, err := s.Field(name)
		if err != nil {
			return nil, err
		}
		out := make(grid.Field, len(q))
		for l := 0; l < g.Levels; l++ {
			ql, ul, vl := lev(q, l), lev(u, l), lev(v, l)
			for i := 0; i < g.Lat; i++ {
				for k := 0; k < g.Lon; k++ {
					tend := -(ul.at(i, k)*ql.ddx(i, k) + vl.at(i, k)*ql.ddy(i, k)) +
						c.Diffusion*ql.laplacian(i, k)
					out[l*cols+i*g.Lon+k] = ql.at(i, k) + dt*tend
				}
			}
		}
		replace[name] = out
	}

	// Momentum diffusion.
	for _, wind := range []struct {
		name string
		f    grid.Field
	}{{grid.FieldUWind, u}, {grid.FieldVWind, v}} {
		out := make(grid.Field, len(wind.f))
		for l := 0; l < g.Levels; l++ {
			wl := lev(wind.f, l)
			for i := 0; i < g.Lat; i++ {
				for k := 0; k < g.Lon; k++ {
					out[l*cols+i*g.Lon+k] = wl.at(i, k) + dt*c.Diffusion*wl.laplacian(i, k)
				}
			}
		}
		replace[wind.name] = out
	}

	// Surface pressure responds to column-integrated divergence.
	if s.Has(grid.FieldSurfacePressure) {
		ps, err := s.Field(grid.FieldSurfacePressure)
		if err != nil {
			return nil, err
		}
		out := make(grid.Field, len(ps))
		for i := 0; i < g.Lat; i++ {
			for k := 0; k < g.Lon; k++ {
				div := 0.0
				for l := 0; l < g.Levels; l++ {
					div += lev(u, l).ddx(i, k) + lev(v, l).ddy(i, k)
				}
				div /= float64(g.Levels)
				out[i*g.Lon+k] = ps[i*g.Lon+k] * (1 - dt*div)
			}
		}
		replace[grid.FieldSurfacePressure] = out
	}

	return s.WithFields(replace)
}
