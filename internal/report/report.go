// Package report writes run results to an output directory as CSV and JSON
// artifacts.
package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/GoSim-25-26J-441/paynet-sim/internal/simulation"
	"github.com/GoSim-25-26J-441/paynet-sim/pkg/config"
	"github.com/GoSim-25-26J-441/paynet-sim/pkg/models"
)

// Artifact file names
const (
	FileDegrees      = "node_index_vs_degree.csv"
	FileDistribution = "degree_vs_proba.csv"
	FileSeries       = "success_ratios.csv"
	FileChannels     = "channels.csv"
	FileSummary      = "summary.json"
	FileConfig       = "config.yaml"
)

// Artifacts lists every file a run may write
var Artifacts = []string{
	FileDegrees,
	FileDistribution,
	FileSeries,
	FileChannels,
	FileSummary,
	FileConfig,
}

// PrepareDir makes sure dir exists. With clean set, artifacts left by an
// earlier run are removed first; other files are never touched.
func PrepareDir(dir string, clean bool) error {
	if dir == "" {
		return fmt.Errorf("output dir cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	if clean {
		for _, name := range Artifacts {
			path := filepath.Join(dir, name)
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to clear %s: %w", path, err)
			}
		}
	}
	return nil
}

// Writer writes artifacts into a single directory
type Writer struct {
	dir string
}

// NewWriter creates a writer for dir. The directory must already exist.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Dir returns the output directory
func (w *Writer) Dir() string {
	return w.dir
}

// WriteResult writes every artifact for res and returns the paths written
func (w *Writer) WriteResult(res *simulation.Result) ([]string, error) {
	var written []string
	add := func(path string, err error) error {
		if err == nil {
			written = append(written, path)
		}
		return err
	}

	if res.Graph != nil {
		if err := add(w.WriteDegrees(res.Graph.Degrees)); err != nil {
			return written, err
		}
		if err := add(w.WriteDistribution(res.Distribution)); err != nil {
			return written, err
		}
		if err := add(w.WriteChannels(res.Graph.Edges, res.Capacities)); err != nil {
			return written, err
		}
	}
	if err := add(w.WriteSeries(res.Series)); err != nil {
		return written, err
	}
	if err := add(w.WriteSummary(res.Seed, res.Summary())); err != nil {
		return written, err
	}
	return written, nil
}

// WriteDegrees writes one (index, degree) row per node
func (w *Writer) WriteDegrees(degrees []int) (string, error) {
	rows := make([][]string, len(degrees))
	for i, d := range degrees {
		rows[i] = []string{strconv.Itoa(i), strconv.Itoa(d)}
	}
	return w.writeCSV(FileDegrees, []string{"index", "degree"}, rows)
}

// WriteDistribution writes (degree, probability) rows in ascending degree order
func (w *Writer) WriteDistribution(dist models.DegreeDistribution) (string, error) {
	points := dist.Points()
	rows := make([][]string, len(points))
	for i, p := range points {
		rows[i] = []string{strconv.Itoa(p.Degree), formatFloat(p.Probability)}
	}
	return w.writeCSV(FileDistribution, []string{"degree", "probability"}, rows)
}

// WriteSeries writes one (checkpoint, trials, ratio) row per checkpoint
func (w *Writer) WriteSeries(series models.SuccessRatioSeries) (string, error) {
	checkpoints := series.Checkpoints()
	rows := make([][]string, len(series.Ratios))
	for i, r := range series.Ratios {
		rows[i] = []string{strconv.Itoa(i + 1), strconv.Itoa(checkpoints[i]), formatFloat(r)}
	}
	return w.writeCSV(FileSeries, []string{"checkpoint", "trials", "ratio"}, rows)
}

// WriteChannels writes one (u, v, capacity) row per edge
func (w *Writer) WriteChannels(edges []models.Edge, capacities []float64) (string, error) {
	if len(edges) != len(capacities) {
		return "", fmt.Errorf("%d edges but %d capacities", len(edges), len(capacities))
	}
	rows := make([][]string, len(edges))
	for i, e := range edges {
		rows[i] = []string{strconv.Itoa(e.U), strconv.Itoa(e.V), formatFloat(capacities[i])}
	}
	return w.writeCSV(FileChannels, []string{"u", "v", "capacity"}, rows)
}

// Summary is the content of summary.json
type Summary struct {
	Seed int64 `json:"seed"`
	*models.RunSummary
}

// WriteSummary writes the run summary as indented JSON
func (w *Writer) WriteSummary(seed int64, s *models.RunSummary) (string, error) {
	data, err := json.MarshalIndent(Summary{Seed: seed, RunSummary: s}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode summary: %w", err)
	}
	path := filepath.Join(w.dir, FileSummary)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// WriteConfig records the resolved configuration a run was started with
func (w *Writer) WriteConfig(cfg *config.Config) (string, error) {
	data, err := config.MarshalYAML(cfg)
	if err != nil {
		return "", err
	}
	path := filepath.Join(w.dir, FileConfig)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

func (w *Writer) writeCSV(name string, header []string, rows [][]string) (path string, err error) {
	path = filepath.Join(w.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
