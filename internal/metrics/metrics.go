// Package metrics provides trajectory observers reporting physical
// diagnostics of a rollout.
package metrics

import (
	"math"

	"github.com/Oscarrrhhhh/neuralgcm/internal/coupling"
	"github.com/Oscarrrhhhh/neuralgcm/internal/grid"
	"github.com/Oscarrrhhhh/neuralgcm/internal/nn"
)

// Metric observes rollout states and reduces them to a single diagnostic
// value. Metrics satisfy hybrid.Observer.
type Metric interface {
	Name() string
	OnStep(step int, s *grid.State)
	Value() float64
	Reset()
}

// MassDrift tracks the relative drift of the global mean surface pressure,
// a proxy for mass conservation.
type MassDrift struct {
	initial float64
	current float64
	seen    bool
}

func NewMassDrift() *MassDrift { return &MassDrift{} }

func (m *MassDrift) Name() string { return "mass_drift" }

func (m *MassDrift) OnStep(step int, s *grid.State) {
	ps, err := s.Field(grid.FieldSurfacePressure)
	if err != nil {
		return
	}
	mean := ps.Mean()
	if !m.seen {
		m.initial = mean
		m.seen = true
	}
	m.current = mean
}

func (m *MassDrift) Value() float64 {
	if !m.seen || m.initial == 0 {
		return 0
	}
	return math.Abs(m.current-m.initial) / math.Abs(m.initial)
}

func (m *MassDrift) Reset() { *m = MassDrift{} }

// TemperatureRange tracks the spread between the coldest and warmest value
// seen anywhere in the rollout.
type TemperatureRange struct {
	min  float64
	max  float64
	seen bool
}

func NewTemperatureRange() *TemperatureRange { return &TemperatureRange{} }

func (m *TemperatureRange) Name() string { return "temperature_range" }

func (m *TemperatureRange) OnStep(step int, s *grid.State) {
	temp, err := s.Field(grid.FieldTemperature)
	if err != nil {
		return
	}
	for _, v := range temp {
		if !m.seen {
			m.min, m.max = v, v
			m.seen = true
			continue
		}
		if v < m.min {
			m.min = v
		}
		if v > m.max {
			m.max = v
		}
	}
}

func (m *TemperatureRange) Value() float64 {
	if !m.seen {
		return 0
	}
	return m.max - m.min
}

func (m *TemperatureRange) Reset() { *m = TemperatureRange{} }

// KineticEnergy reports the mean specific kinetic energy of the final
// observed state.
type KineticEnergy struct {
	value float64
}

func NewKineticEnergy() *KineticEnergy { return &KineticEnergy{} }

func (m *KineticEnergy) Name() string { return "kinetic_energy" }

func (m *KineticEnergy) OnStep(step int, s *grid.State) {
	u, err := s.Field(grid.FieldUWind)
	if err != nil {
		return
	}
	v, err := s.Field(grid.FieldVWind)
	if err != nil {
		return
	}
	sum := 0.0
	for i := range u {
		sum += 0.5 * (u[i]*u[i] + v[i]*v[i])
	}
	m.value = sum / float64(len(u))
}

func (m *KineticEnergy) Value() float64 { return m.value }

func (m *KineticEnergy) Reset() { m.value = 0 }

// CorrectionRMS reports the root mean square of the learned tendency over
// all observed steps, in normalized feature units. It re-evaluates the
// corrector on each observed state; steps whose encoding fails are skipped.
type CorrectionRMS struct {
	encoder   *coupling.Encoder
	corrector *nn.Corrector
	params    *nn.Params

	sumSquares float64
	count      int
}

func NewCorrectionRMS(enc *coupling.Encoder, c *nn.Corrector, p *nn.Params) *CorrectionRMS {
	return &CorrectionRMS{encoder: enc, corrector: c, params: p}
}

func (m *CorrectionRMS) Name() string { return "correction_rms" }

func (m *CorrectionRMS) OnStep(step int, s *grid.State) {
	features, err := m.encoder.Encode(s)
	if err != nil {
		return
	}
	tendency, err := m.corrector.Apply(features, m.params)
	if err != nil {
		return
	}
	for _, v := range tendency.Data {
		m.sumSquares += v * v
	}
	m.count += len(tendency.Data)
}

func (m *CorrectionRMS) Value() float64 {
	if m.count == 0 {
		return 0
	}
	return math.Sqrt(m.sumSquares / float64(m.count))
}

func (m *CorrectionRMS) Reset() {
	m.sumSquares = 0
	m.count = 0
}
