package batch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	repcheck "github.com/lucasjlepore/rep-analyzer"
	"github.com/lucasjlepore/rep-analyzer/framesource"
	"github.com/lucasjlepore/rep-analyzer/internal/metrics"
	"github.com/lucasjlepore/rep-analyzer/pipeline"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/multierr"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// pullupFile writes three pull-ups; the chin clears the shoulders on every
// rep unless low is set.
func pullupFile(t *testing.T, dir string, low bool) string {
	t.Helper()
	top := 100.0
	if low {
		top = 190
	}
	ys := []float64{300, 200, top, 200, 300, 200, top, 200, 300, 200, top, 200, 300}
	frames := make([]repcheck.Frame, 0, len(ys))
	for i, y := range ys {
		kpts := make([][2]float64, 17)
		kpts[repcheck.Nose] = [2]float64{100, y}
		kpts[repcheck.LeftShoulder] = [2]float64{80, 180}
		kpts[repcheck.RightShoulder] = [2]float64{120, 180}
		frames = append(frames, repcheck.Frame{
			Index:      i + 1,
			TimeS:      float64(i+1) / 10,
			Detections: []repcheck.Detection{{Confidence: 0.9, Keypoints: kpts}},
		})
	}
	name := "pullups.jsonl"
	if low {
		name = "pullups_low.jsonl"
	}
	path := filepath.Join(dir, name)
	require.NoError(t, framesource.WriteFile(path, frames))
	return path
}

func newTestRunner(t *testing.T, opts Options) (*Runner, *metrics.Manager) {
	t.Helper()
	m := metrics.NewTestManager()
	opts.Metrics = m
	r, err := NewRunner(opts)
	require.NoError(t, err)
	return r, m
}

func TestRunner_RunsJobsInOrder(t *testing.T) {
	dir := t.TempDir()
	good := pullupFile(t, dir, false)
	low := pullupFile(t, dir, true)

	// one worker so the repeated file is analyzed twice rather than shared
	r, m := newTestRunner(t, Options{Workers: 1})
	results, err := r.Run(context.Background(), []Job{
		{ID: "a", Exercise: "pull-ups", FramesPath: good},
		{ID: "b", Exercise: "Pull_Ups", FramesPath: low},
		{Exercise: "pullups", FramesPath: good},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "a", results[0].JobID)
	assert.Equal(t, repcheck.PullUps, results[0].Exercise)
	assert.Equal(t, 3, results[0].Result.GoodReps)
	assert.Equal(t, "b", results[1].JobID)
	assert.Equal(t, 3, results[1].Result.BadReps)
	assert.NotEmpty(t, results[2].JobID)
	assert.NotEmpty(t, results[0].Result.LoadSuggestion)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.CounterRuns.WithLabelValues("pull-ups", "ok")))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.CounterReps.WithLabelValues("pull-ups", "good")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CounterReps.WithLabelValues("pull-ups", "bad")))
	assert.Zero(t, testutil.ToFloat64(m.GaugeActiveRuns))
}

func TestRunner_CachesByContent(t *testing.T) {
	dir := t.TempDir()
	path := pullupFile(t, dir, false)

	r, m := newTestRunner(t, Options{Workers: 1, CacheSizeMB: 1})
	job := Job{ID: "first", Exercise: "pull-ups", FramesPath: path}

	results, err := r.Run(context.Background(), []Job{job})
	require.NoError(t, err)
	assert.False(t, results[0].Cached)

	// same content under another name is a hit
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	copyPath := filepath.Join(dir, "copy.jsonl")
	require.NoError(t, os.WriteFile(copyPath, data, 0o644))

	results, err = r.Run(context.Background(), []Job{{ID: "second", Exercise: "pull-ups", FramesPath: copyPath}})
	require.NoError(t, err)
	assert.True(t, results[0].Cached)
	assert.Equal(t, 3, results[0].Result.GoodReps)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterCacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterRuns.WithLabelValues("pull-ups", "cached")))

	// a different exercise over the same file is analyzed again
	results, err = r.Run(context.Background(), []Job{{ID: "third", Exercise: "push-ups", FramesPath: copyPath}})
	require.NoError(t, err)
	assert.False(t, results[0].Cached)
}

func TestRunner_SharedRunsCountAsCacheHits(t *testing.T) {
	dir := t.TempDir()
	path := pullupFile(t, dir, false)

	r, m := newTestRunner(t, Options{Workers: 4, CacheSizeMB: 1})
	jobs := make([]Job, 8)
	for i := range jobs {
		jobs[i] = Job{Exercise: "pull-ups", FramesPath: path}
	}
	results, err := r.Run(context.Background(), jobs)
	require.NoError(t, err)

	cached := 0
	for _, res := range results {
		require.NotNil(t, res.Result)
		assert.Equal(t, 3, res.Result.GoodReps)
		if res.Cached {
			cached++
		}
	}
	assert.Less(t, cached, len(jobs))
	assert.Equal(t, float64(cached), testutil.ToFloat64(m.CounterCacheHits))
	assert.Equal(t, float64(cached), testutil.ToFloat64(m.CounterRuns.WithLabelValues("pull-ups", "cached")))
	assert.Equal(t, float64(len(jobs)-cached), testutil.ToFloat64(m.CounterRuns.WithLabelValues("pull-ups", "ok")))
}

func TestNewRunner_WithoutMetrics(t *testing.T) {
	dir := t.TempDir()
	path := pullupFile(t, dir, false)

	r, err := NewRunner(Options{})
	require.NoError(t, err)
	results, err := r.Run(context.Background(), []Job{{Exercise: "pull-ups", FramesPath: path}})
	require.NoError(t, err)
	assert.Equal(t, 3, results[0].Result.TotalReps)
}

func TestRunner_IsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	good := pullupFile(t, dir, false)

	r, m := newTestRunner(t, Options{Workers: 3})
	results, err := r.Run(context.Background(), []Job{
		{ID: "ok", Exercise: "pull-ups", FramesPath: good},
		{ID: "unknown", Exercise: "squats", FramesPath: good},
		{ID: "missing", Exercise: "pull-ups", FramesPath: filepath.Join(dir, "missing.jsonl")},
	})
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Contains(t, err.Error(), "job unknown")
	assert.Contains(t, err.Error(), "job missing")

	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.NotNil(t, results[0].Result)
	assert.ErrorIs(t, results[1].Err, repcheck.ErrUnknownExercise)
	assert.Nil(t, results[1].Result)
	assert.NotEmpty(t, results[2].Error)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterRuns.WithLabelValues("", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterRuns.WithLabelValues("pull-ups", "error")))
}

func TestRunner_WritesBundles(t *testing.T) {
	dir := t.TempDir()
	path := pullupFile(t, dir, false)
	outDir := filepath.Join(dir, "bundle")

	r, _ := newTestRunner(t, Options{Format: "csv", CacheSizeMB: 1})
	results, err := r.Run(context.Background(), []Job{{ID: "bundle-run", Exercise: "pull-ups", FramesPath: path, OutDir: outDir}})
	require.NoError(t, err)
	assert.False(t, results[0].Cached)
	assert.Equal(t, 3, results[0].Result.TotalReps)

	for _, name := range []string{pipeline.AnalysisFile, pipeline.ManifestFile, pipeline.ActivityFile, "rep_details.csv"} {
		_, err := os.Stat(filepath.Join(outDir, name))
		assert.NoError(t, err, name)
	}
}

func TestRunner_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	path := pullupFile(t, dir, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, _ := newTestRunner(t, Options{Workers: 2})
	results, err := r.Run(ctx, []Job{
		{ID: "a", Exercise: "pull-ups", FramesPath: path},
		{ID: "b", Exercise: "pull-ups", FramesPath: path},
	})
	require.Error(t, err)
	for _, res := range results {
		assert.ErrorIs(t, res.Err, context.Canceled)
	}
}

func TestNewRunner_RejectsInvalidThresholds(t *testing.T) {
	th := repcheck.DefaultThresholds()
	th.BenchDepthMinDeg = 150
	_, err := NewRunner(Options{Thresholds: th})
	assert.ErrorIs(t, err, repcheck.ErrInvalidThresholds)
}
