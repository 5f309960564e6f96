// Package storage persists forecast runs: metadata, per-step field means,
// and the parameter checkpoint used for the rollout.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/Oscarrrhhhh/neuralgcm/internal/hybrid"
	"github.com/Oscarrrhhhh/neuralgcm/internal/nn"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Timestamp time.Time          `json:"timestamp"`
	Preset    string             `json:"preset"`
	Core      string             `json:"core"`
	Corrector string             `json:"corrector"`
	Dt        float64            `json:"dt"`
	Steps     int                `json:"steps"`
	Seed      int64              `json:"seed"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Save writes one run directory: metadata.json, means.csv with the global
// mean of every field per step, and params.json when parameters are given.
func (s *Store) Save(meta RunMetadata, traj hybrid.Trajectory, params *nn.Params) (string, error) {
	if meta.ID == "" {
		meta.ID = fmt.Sprintf("run_%d", time.Now().Unix())
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}
	meta.Steps = len(traj)

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	encoder := json.NewEncoder(metaFile)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(meta); err != nil {
		metaFile.Close()
		return "", err
	}
	metaFile.Close()

	if err := s.writeMeans(filepath.Join(runDir, "means.csv"), traj, meta.Dt); err != nil {
		return "", err
	}

	if params != nil {
		if err := nn.SaveCheckpoint(filepath.Join(runDir, "params.json"), params); err != nil {
			return "", err
		}
	}
	return meta.ID, nil
}

func (s *Store) writeMeans(path string, traj hybrid.Trajectory, dt float64) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	if len(traj) == 0 {
		return w.Write([]string{"step", "time"})
	}

	specs := traj[0].Specs()
	header := []string{"step", "time"}
	for _, spec := range specs {
		header = append(header, spec.Name)
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i, state := range traj {
		row := []string{
			strconv.Itoa(i),
			strconv.FormatFloat(float64(i+1)*dt, 'f', 1, 64),
		}
		for _, spec := range specs {
			f, err := state.Field(spec.Name)
			if err != nil {
				return err
			}
			row = append(row, strconv.FormatFloat(f.Mean(), 'g', 12, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// List returns metadata for every stored run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var runs []RunMetadata
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, meta)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return RunMetadata{}, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return RunMetadata{}, err
	}
	return meta, nil
}

// LoadMeans reads back the per-step field means of a run as named series.
func (s *Store) LoadMeans(runID string) (map[string][]float64, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "means.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("run %s: empty means file", runID)
	}

	header := records[0]
	series := make(map[string][]float64)
	for _, row := range records[1:] {
		for col := 2; col < len(header) && col < len(row); col++ {
			v, err := strconv.ParseFloat(row[col], 64)
			if err != nil {
				return nil, err
			}
			series[header[col]] = append(series[header[col]], v)
		}
	}
	return series, nil
}

// LoadParams restores the checkpoint stored with a run.
func (s *Store) LoadParams(runID string) (*nn.Params, error) {
	return nn.LoadCheckpoint(filepath.Join(s.baseDir, runID, "params.json"))
}
