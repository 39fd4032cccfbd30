package eval

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// UserMetrics is the per-user result at a single cutoff.
type UserMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	NDCG      float64 `json:"ndcg"`
	HitRate   float64 `json:"hit_rate"`
}

// CutoffMetrics aggregates user samples at one rank cutoff.
type CutoffMetrics struct {
	K         int     `json:"k"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	NDCG      float64 `json:"ndcg"`
	HitRate   float64 `json:"hit_rate"`
	Users     int     `json:"users"`
}

// Report is the JSON artifact written at the end of an evaluation run.
type Report struct {
	RunID        string          `json:"run_id"`
	Name         string          `json:"name"`
	Scorer       string          `json:"scorer"`
	Dataset      string          `json:"dataset"`
	Cutoffs      []CutoffMetrics `json:"cutoffs"`
	MRR          float64         `json:"mrr"`
	SkippedUsers int             `json:"skipped_users"`
	FailedUsers  int             `json:"failed_users"`
	StartedAt    time.Time       `json:"started_at"`
	ElapsedMs    int64           `json:"elapsed_ms"`
}

// WriteJSON writes the report to dir as <run_id>.json, creating dir if
// needed.
func (r *Report) WriteJSON(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report dir: %w", err)
	}
	path := filepath.Join(dir, r.RunID+".json")
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// Accumulator collects per-user samples and folds them into a report.
type Accumulator struct {
	cutoffs   []int
	precision map[int][]float64
	recall    map[int][]float64
	ndcg      map[int][]float64
	hitRate   map[int][]float64
	mrr       []float64
}

func NewAccumulator(cutoffs []int) *Accumulator {
	a := &Accumulator{
		cutoffs:   cutoffs,
		precision: make(map[int][]float64),
		recall:    make(map[int][]float64),
		ndcg:      make(map[int][]float64),
		hitRate:   make(map[int][]float64),
	}
	return a
}

// Add records one user's ranking against their relevant set.
func (a *Accumulator) Add(ranked []string, relevant map[string]bool) {
	for _, k := range a.cutoffs {
		a.precision[k] = append(a.precision[k], PrecisionAtK(ranked, relevant, k))
		a.recall[k] = append(a.recall[k], RecallAtK(ranked, relevant, k))
		a.ndcg[k] = append(a.ndcg[k], NDCGAtK(ranked, relevant, k))
		a.hitRate[k] = append(a.hitRate[k], HitRateAtK(ranked, relevant, k))
	}
	a.mrr = append(a.mrr, MRR(ranked, relevant))
}

// Users returns the number of samples recorded so far.
func (a *Accumulator) Users() int {
	return len(a.mrr)
}

// Summarize folds the samples into per-cutoff means.
func (a *Accumulator) Summarize() ([]CutoffMetrics, float64) {
	out := make([]CutoffMetrics, 0, len(a.cutoffs))
	for _, k := range a.cutoffs {
		out = append(out, CutoffMetrics{
			K:         k,
			Precision: Mean(a.precision[k]),
			Recall:    Mean(a.recall[k]),
			NDCG:      Mean(a.ndcg[k]),
			HitRate:   Mean(a.hitRate[k]),
			Users:     len(a.precision[k]),
		})
	}
	return out, Mean(a.mrr)
}
