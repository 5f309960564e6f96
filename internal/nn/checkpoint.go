package nn

import (
	"encoding/json"
	"fmt"
	"os"
)

// SaveCheckpoint writes the parameters as indented JSON. The checkpoint
// format carries only weights and layer shapes; the surrounding framework
// owns scheduling and optimizer state.
func SaveCheckpoint(path string, p *Params) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(p)
}

// LoadCheckpoint restores parameters saved by SaveCheckpoint and validates
// layer shape consistency.
func LoadCheckpoint(path string) (*Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p := &Params{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, err
	}
	for l, layer := range p.Layers {
		if len(layer.W) != layer.In*layer.Out || len(layer.B) != layer.Out {
			return nil, fmt.Errorf("checkpoint %s: layer %d has inconsistent shapes", path, l)
		}
		if l > 0 && p.Layers[l-1].Out != layer.In {
			return nil, fmt.Errorf("checkpoint %s: layer %d input does not match layer %d output", path, l, l-1)
		}
	}
	return p, nil
}
