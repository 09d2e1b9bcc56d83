// Package storage persists propagation runs as a metadata file plus CSV
// tables of the nominal states and the composite matrices.
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

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/varsens/internal/config"
	"github.com/san-kum/varsens/internal/propagation"
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
	ID         string             `json:"id"`
	Scenario   string             `json:"scenario"`
	Timestamp  time.Time          `json:"timestamp"`
	Mode       string             `json:"mode"`
	Integrator string             `json:"integrator"`
	Dt         float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	Steps      int                `json:"steps"`
	Rejected   int                `json:"rejected"`
	StateSize  int                `json:"state_size"`
	Labels     []string           `json:"labels"`
	Metrics    map[string]float64 `json:"metrics"`
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func (s *Store) Save(sc *config.Scenario, result *propagation.Result) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", sc.Name, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:         runID,
		Scenario:   sc.Name,
		Timestamp:  now,
		Mode:       result.Mode.String(),
		Integrator: sc.Integrator,
		Dt:         sc.Dt,
		Duration:   sc.Duration,
		Steps:      result.StepsTaken,
		Rejected:   result.Rejected,
		StateSize:  result.StateSize,
		Labels:     result.Labels,
		Metrics:    result.Metrics,
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	header := []string{"time"}
	for i := 0; i < result.StateSize; i++ {
		header = append(header, fmt.Sprintf("x%d", i))
	}
	rows := make([][]float64, len(result.States))
	for i, x := range result.States {
		rows[i] = x
	}
	if err := writeTable(filepath.Join(runDir, "states.csv"), header, result.Times, rows); err != nil {
		return "", err
	}

	header = []string{"time"}
	for i := 0; i < result.StateSize; i++ {
		for j := range result.Labels {
			header = append(header, fmt.Sprintf("c%d_%d", i, j))
		}
	}
	rows = make([][]float64, len(result.Composites))
	for i, c := range result.Composites {
		rows[i] = mat.DenseCopyOf(c).RawMatrix().Data
	}
	if err := writeTable(filepath.Join(runDir, "sensitivity.csv"), header, result.CompositeTimes, rows); err != nil {
		return "", err
	}

	return runID, nil
}

func writeTable(path string, header []string, times []float64, rows [][]float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for i, vals := range rows {
		row := make([]string, 0, len(vals)+1)
		row = append(row, formatFloat(times[i]))
		for _, v := range vals {
			row = append(row, formatFloat(v))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns the stored runs, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })

	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

func (s *Store) LoadStates(runID string) ([][]float64, []float64, error) {
	return readTable(filepath.Join(s.baseDir, runID, "states.csv"))
}

// LoadComposite reads back the sampled [Φ | S] matrices of a run.
func (s *Store) LoadComposite(runID string) ([]*mat.Dense, []float64, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	rows, times, err := readTable(filepath.Join(s.baseDir, runID, "sensitivity.csv"))
	if err != nil {
		return nil, nil, err
	}

	n, p := meta.StateSize, len(meta.Labels)
	out := make([]*mat.Dense, len(rows))
	for i, row := range rows {
		if len(row) != n*p {
			return nil, nil, fmt.Errorf("storage: %s row %d has %d values, want %d", runID, i, len(row), n*p)
		}
		out[i] = mat.NewDense(n, p, row)
	}
	return out, times, nil
}

func readTable(path string) ([][]float64, []float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}

	if len(records) < 2 {
		return [][]float64{}, []float64{}, nil
	}

	times := make([]float64, 0, len(records)-1)
	rows := make([][]float64, 0, len(records)-1)

	for _, record := range records[1:] {
		if len(record) == 0 {
			continue
		}

		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("storage: %s: %w", path, err)
		}

		vals := make([]float64, 0, len(record)-1)
		for _, field := range record[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("storage: %s: %w", path, err)
			}
			vals = append(vals, v)
		}
		times = append(times, t)
		rows = append(rows, vals)
	}

	return rows, times, nil
}
