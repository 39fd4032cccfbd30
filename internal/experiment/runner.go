package experiment

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/reclab-io/reclab/internal/dataset"
	"github.com/reclab-io/reclab/internal/eval"
	"github.com/reclab-io/reclab/internal/metrics"
	"github.com/reclab-io/reclab/internal/recommender"
	"github.com/reclab-io/reclab/internal/scorer"
	"github.com/reclab-io/reclab/internal/store"
)

// Runner evaluates a scorer against a held-out split: one query per test
// user built from their training profile, ranked ids judged against their
// held-out relevant items.
type Runner struct {
	Scorer             scorer.Scorer
	Catalog            map[string]dataset.Item
	Cutoffs            []int
	RelevanceThreshold float64
	UserTimeout        time.Duration

	// Name and DatasetName label the report; ReportDir and Runs are the
	// optional JSON-file and sqlite sinks.
	Name        string
	DatasetName string
	ReportDir   string
	Runs        *store.RunStore
}

// Run executes the evaluation loop. Users without relevant held-out items
// are skipped; a scorer failure on one user skips that user and counts it.
// The run errors out only when configuration is unusable or every single
// user failed.
func (r *Runner) Run(ctx context.Context, split dataset.Split) (*eval.Report, error) {
	if r.Scorer == nil {
		return nil, fmt.Errorf("no scorer configured")
	}
	if len(r.Cutoffs) == 0 {
		return nil, fmt.Errorf("no cutoffs configured")
	}
	if len(split.Test) == 0 {
		return nil, fmt.Errorf("empty test split")
	}

	started := time.Now()
	maxK := 0
	for _, k := range r.Cutoffs {
		if k > maxK {
			maxK = k
		}
	}

	trainByUser := dataset.ByUser(split.Train)
	relevant := dataset.RelevantItems(split.Test, r.RelevanceThreshold)

	userIDs := make([]string, 0, len(relevant))
	for uid := range relevant {
		userIDs = append(userIDs, uid)
	}
	sort.Strings(userIDs)

	testUsers := make(map[string]bool)
	for _, in := range split.Test {
		testUsers[in.UserID] = true
	}
	skipped := len(testUsers) - len(userIDs)

	acc := eval.NewAccumulator(r.Cutoffs)
	failed := 0

	for _, uid := range userIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		profile := trainByUser[uid]
		query := BuildQuery(profile, r.Catalog, r.RelevanceThreshold)
		if query == "" {
			skipped++
			metrics.EvaluatedUsers.WithLabelValues("skipped").Inc()
			continue
		}

		ranked, err := r.scoreUser(ctx, uid, query, profile, maxK)
		if err != nil {
			failed++
			metrics.EvaluatedUsers.WithLabelValues("failed").Inc()
			log.Warn().Str("user", uid).Err(err).Msg("scoring failed, skipping user")
			continue
		}

		acc.Add(ranked, relevant[uid])
		metrics.EvaluatedUsers.WithLabelValues("ok").Inc()
	}

	if acc.Users() == 0 {
		return nil, fmt.Errorf("no user could be evaluated (%d skipped, %d failed)", skipped, failed)
	}

	cutoffs, mrr := acc.Summarize()
	report := &eval.Report{
		RunID:        uuid.New().String(),
		Name:         r.Name,
		Scorer:       r.Scorer.Name(),
		Dataset:      r.DatasetName,
		Cutoffs:      cutoffs,
		MRR:          mrr,
		SkippedUsers: skipped,
		FailedUsers:  failed,
		StartedAt:    started.UTC(),
		ElapsedMs:    time.Since(started).Milliseconds(),
	}

	if r.ReportDir != "" {
		path, err := report.WriteJSON(r.ReportDir)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", path).Msg("report written")
	}
	if r.Runs != nil {
		if err := r.Runs.Save(report); err != nil {
			return nil, err
		}
	}

	return report, nil
}

// scoreUser ranks the corpus for one user under the per-user timeout and
// filters out items they already interacted with.
func (r *Runner) scoreUser(ctx context.Context, uid, query string, profile []dataset.Interaction, maxK int) ([]string, error) {
	if r.UserTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.UserTimeout)
		defer cancel()
	}

	seen := make(map[string]bool, len(profile))
	for _, in := range profile {
		seen[in.ItemID] = true
	}

	// Over-fetch so filtering seen items still leaves maxK candidates.
	results, err := r.Scorer.Score(ctx, query, maxK+len(seen))
	if err != nil {
		return nil, err
	}

	pipe := recommender.NewPipeline(
		&recommender.FilterSeen{Seen: seen},
		&recommender.Truncate{Limit: maxK},
	)
	results, err = pipe.Run(ctx, query, results)
	if err != nil {
		return nil, err
	}
	return scorer.IDs(results), nil
}

// BuildQuery concatenates the texts of the user's well-rated training
// items into the query representation. Users whose ratings all fall below
// the threshold fall back to their full profile.
func BuildQuery(profile []dataset.Interaction, catalog map[string]dataset.Item, threshold float64) string {
	var liked, all []string
	for _, in := range profile {
		it, ok := catalog[in.ItemID]
		if !ok || it.Text() == "" {
			continue
		}
		all = append(all, it.Text())
		if in.Rating >= threshold {
			liked = append(liked, it.Text())
		}
	}
	if len(liked) > 0 {
		return strings.Join(liked, " ")
	}
	return strings.Join(all, " ")
}
