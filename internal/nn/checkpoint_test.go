package nn

import (
	"path/filepath"
	"testing"
)

func TestCheckpointRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.json")
	p := NewRandomParams([]int{4, 8, 4}, 21)

	if err := SaveCheckpoint(path, p); err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}
	restored, err := LoadCheckpoint(path)
	if err != nil {
		t.Fatalf("LoadCheckpoint: %v", err)
	}

	if restored.NumParams() != p.NumParams() {
		t.Fatalf("param count changed: %d vs %d", restored.NumParams(), p.NumParams())
	}
	for i := 0; i < p.NumParams(); i++ {
		if restored.At(i) != p.At(i) {
			t.Fatalf("param %d changed: %g vs %g", i, restored.At(i), p.At(i))
		}
	}
}

func TestLoadCheckpointRejectsInconsistentShapes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.json")
	p := NewRandomParams([]int{3, 3}, 1)
	p.Layers[0].W = p.Layers[0].W[:4]

	if err := SaveCheckpoint(path, p); err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}
	if _, err := LoadCheckpoint(path); err == nil {
		t.Fatal("expected shape consistency error")
	}
}
