package scorer

import (
	"context"
	"fmt"
	"sort"
)

// Fusion selects how the hybrid scorer combines two rankings.
type Fusion string

const (
	// FusionWeighted min-max normalizes each side's scores and mixes them
	// as alpha*lexical + (1-alpha)*dense.
	FusionWeighted Fusion = "weighted"
	// FusionRRF ignores raw scores and fuses by reciprocal rank with the
	// conventional constant 60.
	FusionRRF Fusion = "rrf"
)

const rrfConstant = 60.0

// HybridScorer fuses a lexical and a dense scorer. Both sides are queried
// with an over-fetch of k so documents ranked by only one side still
// survive fusion.
type HybridScorer struct {
	Lexical Scorer
	Dense   Scorer
	Alpha   float64
	Mode    Fusion
}

func NewHybridScorer(lexical, dense Scorer, alpha float64, mode Fusion) (*HybridScorer, error) {
	if alpha < 0 || alpha > 1 {
		return nil, fmt.Errorf("alpha must be in [0,1], got %v", alpha)
	}
	switch mode {
	case FusionWeighted, FusionRRF:
	case "":
		mode = FusionWeighted
	default:
		return nil, fmt.Errorf("unknown fusion mode: %s", mode)
	}
	return &HybridScorer{Lexical: lexical, Dense: dense, Alpha: alpha, Mode: mode}, nil
}

func (s *HybridScorer) Name() string { return "hybrid-" + string(s.Mode) }

func (s *HybridScorer) Score(ctx context.Context, query string, k int) ([]Result, error) {
	if k <= 0 {
		return nil, nil
	}
	fetch := k * 3

	lex, err := s.Lexical.Score(ctx, query, fetch)
	if err != nil {
		return nil, fmt.Errorf("lexical side failed: %w", err)
	}
	dense, err := s.Dense.Score(ctx, query, fetch)
	if err != nil {
		return nil, fmt.Errorf("dense side failed: %w", err)
	}

	var fused map[string]float64
	switch s.Mode {
	case FusionRRF:
		fused = fuseRRF(lex, dense)
	default:
		fused = fuseWeighted(lex, dense, s.Alpha)
	}

	results := make([]Result, 0, len(fused))
	for id, score := range fused {
		results = append(results, Result{ID: id, Score: score})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func fuseWeighted(lex, dense []Result, alpha float64) map[string]float64 {
	fused := make(map[string]float64, len(lex)+len(dense))
	for id, s := range minMax(lex) {
		fused[id] += alpha * s
	}
	for id, s := range minMax(dense) {
		fused[id] += (1 - alpha) * s
	}
	return fused
}

func fuseRRF(lex, dense []Result) map[string]float64 {
	fused := make(map[string]float64, len(lex)+len(dense))
	for rank, r := range lex {
		fused[r.ID] += 1 / (rrfConstant + float64(rank+1))
	}
	for rank, r := range dense {
		fused[r.ID] += 1 / (rrfConstant + float64(rank+1))
	}
	return fused
}

// minMax rescales scores to [0,1]. A constant list maps to all 1s so a
// single-hit side still contributes.
func minMax(results []Result) map[string]float64 {
	out := make(map[string]float64, len(results))
	if len(results) == 0 {
		return out
	}

	lo, hi := results[0].Score, results[0].Score
	for _, r := range results[1:] {
		if r.Score < lo {
			lo = r.Score
		}
		if r.Score > hi {
			hi = r.Score
		}
	}

	for _, r := range results {
		if hi == lo {
			out[r.ID] = 1
		} else {
			out[r.ID] = (r.Score - lo) / (hi - lo)
		}
	}
	return out
}
