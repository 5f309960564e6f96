package grid

import "math"

// Bounds is the physically valid value range for one field.
type Bounds struct {
	Min float64
	Max float64
}

func (b Bounds) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

func (b Bounds) Clamp(v float64) float64 {
	if v < b.Min {
		return b.Min
	}
	if v > b.Max {
		return b.Max
	}
	return v
}

// CheckBounds returns an *InstabilityError for the first value found outside
// its configured bounds. Fields without configured bounds are only checked
// for NaN/Inf.
func CheckBounds(s *State, bounds map[string]Bounds) error {
	for _, spec := range s.Specs() {
		f, err := s.Field(spec.Name)
		if err != nil {
			return err
		}
		b, bounded := bounds[spec.Name]
		for i, v := range f {
			if bounded && !b.Contains(v) {
				return &InstabilityError{Field: spec.Name, Index: i, Value: v, Valid: b}
			}
			if !bounded && (math.IsNaN(v) || math.IsInf(v, 0)) {
				return &InstabilityError{Field: spec.Name, Index: i, Value: v}
			}
		}
	}
	return nil
}

// ClampFields returns a snapshot with every bounded field clamped to its
// valid range. Fields already inside bounds are shared, not copied, so a
// state that needs no clamping comes back unchanged field-for-field.
func ClampFields(s *State, bounds map[string]Bounds) *State {
	replace := make(map[string]Field)
	for name, b := range bounds {
		f, err := s.Field(name)
		if err != nil {
			continue
		}
		var clamped Field
		for i, v := range f {
			if !b.Contains(v) {
				if clamped == nil {
					clamped = f.Clone()
				}
				clamped[i] = b.Clamp(v)
			}
		}
		if clamped != nil {
			replace[name] = clamped
		}
	}
	if len(replace) == 0 {
		return s
	}
	out, err := s.WithFields(replace)
	if err != nil {
		// Replacements came from the state's own fields; sizes cannot differ.
		return s
	}
	return out
}
