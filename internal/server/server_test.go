package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reclab-io/reclab/internal/dataset"
	"github.com/reclab-io/reclab/internal/eval"
	"github.com/reclab-io/reclab/internal/experiment"
	"github.com/reclab-io/reclab/internal/recommender"
	"github.com/reclab-io/reclab/internal/scorer"
	"github.com/reclab-io/reclab/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testCatalog() map[string]dataset.Item {
	return map[string]dataset.Item{
		"sw": {ID: "sw", Title: "Star Wars", Genres: []string{"SciFi"}},
		"st": {ID: "st", Title: "Star Trek", Genres: []string{"SciFi"}},
		"nb": {ID: "nb", Title: "The Notebook", Genres: []string{"Romance"}},
	}
}

func testServer(t *testing.T) *Server {
	t.Helper()

	catalog := testCatalog()
	train := []dataset.Interaction{
		{UserID: "u1", ItemID: "sw", Rating: 5},
		{UserID: "u1", ItemID: "nb", Rating: 1},
		{UserID: "u2", ItemID: "sw", Rating: 5},
		{UserID: "u2", ItemID: "st", Rating: 5},
		{UserID: "u2", ItemID: "nb", Rating: 1},
		{UserID: "u3", ItemID: "nb", Rating: 5},
		{UserID: "u3", ItemID: "sw", Rating: 1},
	}

	runs, err := store.OpenRunStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { runs.Close() })

	bm25 := scorer.NewBM25Scorer(experiment.BuildBM25Index(catalog, 0, 0))
	srv := New(
		map[string]scorer.Scorer{bm25.Name(): bm25},
		catalog,
		recommender.TrainItemKNN(train, 10),
		runs,
		time.Minute,
	)
	return srv
}

func sampleReport(id, scorerName, name string) *eval.Report {
	return &eval.Report{
		RunID:     id,
		Name:      name,
		Scorer:    scorerName,
		Dataset:   "toy",
		Cutoffs:   []eval.CutoffMetrics{{K: 10, Precision: 0.1, Users: 3}},
		StartedAt: time.Now().UTC(),
	}
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	r := testServer(t).SetupRouter()
	w := doJSON(t, r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSearchReturnsTitledResults(t *testing.T) {
	r := testServer(t).SetupRouter()

	w := doJSON(t, r, http.MethodPost, "/search", gin.H{"query": "star wars", "k": 5})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Results []struct {
			ID    string  `json:"id"`
			Title string  `json:"title"`
			Score float64 `json:"score"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "sw", resp.Results[0].ID)
	assert.Equal(t, "Star Wars", resp.Results[0].Title)
}

func TestSearchValidation(t *testing.T) {
	r := testServer(t).SetupRouter()

	w := doJSON(t, r, http.MethodPost, "/search", gin.H{"k": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/search", gin.H{"query": "x", "scorer": "bogus"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecommendCachesSecondCall(t *testing.T) {
	r := testServer(t).SetupRouter()

	w := doJSON(t, r, http.MethodPost, "/recommend", gin.H{"user_id": "u1", "k": 2})
	require.Equal(t, http.StatusOK, w.Code)

	var first struct {
		Cached          bool `json:"cached"`
		Recommendations []struct {
			ID string `json:"id"`
		} `json:"recommendations"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	assert.False(t, first.Cached)
	require.NotEmpty(t, first.Recommendations)
	// u1 liked Star Wars; u2 links it to Star Trek.
	assert.Equal(t, "st", first.Recommendations[0].ID)

	w = doJSON(t, r, http.MethodPost, "/recommend", gin.H{"user_id": "u1", "k": 2})
	require.Equal(t, http.StatusOK, w.Code)

	var second struct {
		Cached bool `json:"cached"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	assert.True(t, second.Cached)
}

func TestRelatedItems(t *testing.T) {
	srv := testServer(t)
	srv.Clusters = recommender.BuildItemClusters([]dataset.Interaction{
		{UserID: "u2", ItemID: "sw", Rating: 5},
		{UserID: "u2", ItemID: "st", Rating: 5},
	}, 4.0)
	r := srv.SetupRouter()

	w := doJSON(t, r, http.MethodGet, "/items/sw/related", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Star Trek")

	w = doJSON(t, r, http.MethodGet, "/items/bogus/related", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRelatedItemsWithoutClusters(t *testing.T) {
	r := testServer(t).SetupRouter()
	w := doJSON(t, r, http.MethodGet, "/items/sw/related", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecommendUnknownUser(t *testing.T) {
	r := testServer(t).SetupRouter()
	w := doJSON(t, r, http.MethodPost, "/recommend", gin.H{"user_id": "nobody", "k": 5})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExperimentLifecycle(t *testing.T) {
	srv := testServer(t)
	srv.Launch = func(c *gin.Context, scorerName, runName string) (string, error) {
		report := sampleReport("run-x", scorerName, runName)
		require.NoError(t, srv.Runs.Save(report))
		return report.RunID, nil
	}
	r := srv.SetupRouter()

	w := doJSON(t, r, http.MethodPost, "/experiments", gin.H{"scorer": "bm25", "name": "baseline"})
	require.Equal(t, http.StatusOK, w.Code)

	var launched struct {
		RunID string `json:"run_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &launched))
	require.Equal(t, "run-x", launched.RunID)

	w = doJSON(t, r, http.MethodGet, "/experiments/run-x", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"scorer":"bm25"`)

	w = doJSON(t, r, http.MethodGet, "/experiments", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "run-x")
}

func TestExperimentUnknownScorer(t *testing.T) {
	srv := testServer(t)
	srv.Launch = func(c *gin.Context, scorerName, runName string) (string, error) {
		t.Fatal("launch must not be called for unknown scorer")
		return "", nil
	}
	r := srv.SetupRouter()

	w := doJSON(t, r, http.MethodPost, "/experiments", gin.H{"scorer": "bogus"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExperimentNotFound(t *testing.T) {
	r := testServer(t).SetupRouter()
	w := doJSON(t, r, http.MethodGet, "/experiments/absent", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExperimentLaunchNotConfigured(t *testing.T) {
	r := testServer(t).SetupRouter()
	w := doJSON(t, r, http.MethodPost, "/experiments", gin.H{"scorer": "bm25"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
