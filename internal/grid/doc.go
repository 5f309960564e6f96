// Package grid provides the atmospheric state representation shared by the
// dynamical core and the learned correction modules.
//
// The package defines the fundamental types for gridded physical fields:
//
//   - [Grid]: horizontal/vertical coordinate specification
//   - [Field]: flat numeric array holding one physical field
//   - [State]: immutable snapshot of named fields on a common grid
//   - [Bounds]: valid value range used for stability checks and clamping
//
// # Example
//
//	g := grid.Grid{Levels: 5, Lat: 8, Lon: 16}
//	s, _ := grid.NewState(g, specs, fields)
//	next, _ := s.WithField(grid.FieldTemperature, warmed)
//
// # Immutability
//
// A State is never mutated in place. WithField and WithFields return new
// snapshots; fields not replaced are shared between snapshots, which is safe
// because no code writes through a State's field slices.
package grid
