package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/varsens/internal/config"
	"github.com/san-kum/varsens/internal/dynamo"
	"github.com/san-kum/varsens/internal/propagation"
)

type ExportData struct {
	Scenario       string             `json:"scenario"`
	Mode           string             `json:"mode"`
	Integrator     string             `json:"integrator"`
	Dt             float64            `json:"dt"`
	Duration       float64            `json:"duration"`
	Steps          int                `json:"steps"`
	Labels         []string           `json:"labels"`
	Times          []float64          `json:"times"`
	States         [][]float64        `json:"states"`
	CompositeTimes []float64          `json:"composite_times"`
	Composites     [][][]float64      `json:"composites"`
	Metrics        map[string]float64 `json:"metrics"`
}

func exportData(sc *config.Scenario, result *propagation.Result) ExportData {
	data := ExportData{
		Scenario:       sc.Name,
		Mode:           result.Mode.String(),
		Integrator:     sc.Integrator,
		Dt:             sc.Dt,
		Duration:       sc.Duration,
		Steps:          result.StepsTaken,
		Labels:         result.Labels,
		Times:          result.Times,
		States:         make([][]float64, len(result.States)),
		CompositeTimes: result.CompositeTimes,
		Composites:     make([][][]float64, len(result.Composites)),
		Metrics:        result.Metrics,
	}

	for i, s := range result.States {
		data.States[i] = s
	}
	for i, c := range result.Composites {
		r, cols := c.Dims()
		rows := make([][]float64, r)
		for j := range rows {
			rows[j] = make([]float64, cols)
			for k := range rows[j] {
				rows[j][k] = c.At(j, k)
			}
		}
		data.Composites[i] = rows
	}
	return data
}

func WriteJSON(w io.Writer, sc *config.Scenario, result *propagation.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(exportData(sc, result))
}

func ExportJSON(path string, sc *config.Scenario, result *propagation.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, sc, result)
}

// Export writes a stored run in the same layout as WriteJSON.
func (s *Store) Export(runID string, w io.Writer) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	states, times, err := s.LoadStates(runID)
	if err != nil {
		return err
	}
	comps, compTimes, err := s.LoadComposite(runID)
	if err != nil {
		return err
	}

	sc := &config.Scenario{Name: meta.Scenario, Integrator: meta.Integrator, Dt: meta.Dt, Duration: meta.Duration}
	mode, err := propagation.ParseMode(meta.Mode)
	if err != nil {
		return err
	}
	result := &propagation.Result{
		Mode:           mode,
		Labels:         meta.Labels,
		StateSize:      meta.StateSize,
		Times:          times,
		States:         make([]dynamo.State, len(states)),
		CompositeTimes: compTimes,
		Composites:     comps,
		Metrics:        meta.Metrics,
		StepsTaken:     meta.Steps,
		Rejected:       meta.Rejected,
	}
	for i, x := range states {
		result.States[i] = x
	}
	return WriteJSON(w, sc, result)
}
