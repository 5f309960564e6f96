package storage

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
)

// ExportData is the JSON export shape consumed by external tooling.
type ExportData struct {
	Meta   RunMetadata          `json:"meta"`
	Series map[string][]float64 `json:"series"`
}

// Export writes a full run (metadata plus mean series) as indented JSON.
func (s *Store) Export(runID string, w io.Writer) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	series, err := s.LoadMeans(runID)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(ExportData{Meta: meta, Series: series})
}

// ExportFile is Export to a file path.
func (s *Store) ExportFile(runID, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return s.Export(runID, file)
}
