package grid

// State is an immutable snapshot of named fields on a common grid.
type State struct {
	grid   Grid
	specs  []FieldSpec
	fields map[string]Field
}

// NewState validates that every spec has a field of the matching size and
// returns the snapshot. The fields map is captured, not copied; callers must
// not retain references they intend to modify.
func NewState(g Grid, specs []FieldSpec, fields map[string]Field) (*State, error) {
	if !g.Valid() {
		return nil, ErrInvalidGrid
	}
	if len(specs) != len(fields) {
		return nil, &ShapeMismatchError{Context: "state field count", Want: len(specs), Got: len(fields)}
	}
	for _, spec := range specs {
		f, ok := fields[spec.Name]
		if !ok {
			return nil, &UnknownFieldError{Name: spec.Name}
		}
		if len(f) != spec.Size(g) {
			return nil, &ShapeMismatchError{
				Context: "field " + spec.Name,
				Want:    spec.Size(g),
				Got:     len(f),
			}
		}
	}
	return &State{grid: g, specs: specs, fields: fields}, nil
}

func (s *State) Grid() Grid { return s.grid }

// Specs returns the field specifications in their canonical order.
func (s *State) Specs() []FieldSpec {
	out := make([]FieldSpec, len(s.specs))
	copy(out, s.specs)
	return out
}

// Spec looks up the specification for a named field.
func (s *State) Spec(name string) (FieldSpec, bool) {
	for _, spec := range s.specs {
		if spec.Name == name {
			return spec, true
		}
	}
	return FieldSpec{}, false
}

// Field returns the named field. The returned slice is shared with the
// snapshot and must not be modified.
func (s *State) Field(name string) (Field, error) {
	f, ok := s.fields[name]
	if !ok {
		return nil, &UnknownFieldError{Name: name}
	}
	return f, nil
}

func (s *State) Has(name string) bool {
	_, ok := s.fields[name]
	return ok
}

// Clone deep-copies every field.
func (s *State) Clone() *State {
	fields := make(map[string]Field, len(s.fields))
	for name, f := range s.fields {
		fields[name] = f.Clone()
	}
	return &State{grid: s.grid, specs: s.specs, fields: fields}
}

// WithField returns a new snapshot with one field replaced. All other fields
// are shared with the receiver.
func (s *State) WithField(name string, f Field) (*State, error) {
	return s.WithFields(map[string]Field{name: f})
}

// WithFields returns a new snapshot with the given fields replaced.
func (s *State) WithFields(replace map[string]Field) (*State, error) {
	fields := make(map[string]Field, len(s.fields))
	for name, f := range s.fields {
		fields[name] = f
	}
	for name, f := range replace {
		spec, ok := s.Spec(name)
		if !ok {
			return nil, &UnknownFieldError{Name: name}
		}
		if len(f) != spec.Size(s.grid) {
			return nil, &ShapeMismatchError{
				Context: "field " + name,
				Want:    spec.Size(s.grid),
				Got:     len(f),
			}
		}
		fields[name] = f
	}
	return &State{grid: s.grid, specs: s.specs, fields: fields}, nil
}

// IsValid reports whether every field is free of NaN and Inf values.
func (s *State) IsValid() bool {
	for _, f := range s.fields {
		if !f.IsValid() {
			return false
		}
	}
	return true
}
