package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/coocood/freecache"
	"github.com/google/uuid"
	repcheck "github.com/lucasjlepore/rep-analyzer"
	"github.com/lucasjlepore/rep-analyzer/framesource"
	"github.com/lucasjlepore/rep-analyzer/internal/metrics"
	"github.com/lucasjlepore/rep-analyzer/pipeline"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	megabyte = 1024 * 1024
	// cached results never expire; entries are keyed by content hash
	resultCacheExpire = 0
)

// Job is one video's worth of detector output to analyze.
type Job struct {
	ID         string `json:"id,omitempty"`
	Exercise   string `json:"exercise"`
	FramesPath string `json:"frames_path"`
	// OutDir, when set, makes the job write the full artifact bundle.
	OutDir string `json:"out_dir,omitempty"`
}

// JobResult is the outcome of one Job. Err is set instead of Result when the
// job failed.
type JobResult struct {
	JobID      string                   `json:"job_id"`
	Exercise   repcheck.ExerciseID      `json:"exercise,omitempty"`
	FramesPath string                   `json:"frames_path"`
	Result     *repcheck.AnalysisResult `json:"result,omitempty"`
	Cached     bool                     `json:"cached"`
	Duration   time.Duration            `json:"duration_ns"`
	Err        error                    `json:"-"`
	Error      string                   `json:"error,omitempty"`
}

type Options struct {
	Workers     int
	CacheSizeMB int
	Stride      int
	FPS         float64
	Format      string
	Overwrite   bool
	Thresholds  repcheck.Thresholds
	Metrics     *metrics.Manager
}

// Runner executes independent analysis jobs concurrently. Runs share no
// mutable analysis state; only the result cache and metrics are shared.
type Runner struct {
	opts     Options
	registry *repcheck.Registry
	cache    *freecache.Cache
	flight   singleflight.Group
	instr    *metrics.Manager
}

func NewRunner(opts Options) (*Runner, error) {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Thresholds == (repcheck.Thresholds{}) {
		opts.Thresholds = repcheck.DefaultThresholds()
	}
	registry, err := repcheck.NewRegistry(opts.Thresholds)
	if err != nil {
		return nil, err
	}
	r := &Runner{
		opts:     opts,
		registry: registry,
		instr:    opts.Metrics,
	}
	if opts.CacheSizeMB > 0 {
		r.cache = freecache.NewCache(opts.CacheSizeMB * megabyte)
	}
	if r.instr == nil {
		r.instr = metrics.NewStandaloneManager("rep_analyzer", "batch")
	}
	return r, nil
}

// Run executes jobs with at most Workers in flight and returns one result per
// job in input order. A failing job does not stop the others; the returned
// error combines every job error.
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]JobResult, error) {
	results := make([]JobResult, len(jobs))

	g := new(errgroup.Group)
	g.SetLimit(r.opts.Workers)
	for i, job := range jobs {
		i, job := i, job
		if strings.TrimSpace(job.ID) == "" {
			job.ID = uuid.NewString()
		}
		g.Go(func() error {
			results[i] = r.runJob(ctx, job)
			return nil
		})
	}
	_ = g.Wait()

	var errs error
	for _, res := range results {
		if res.Err != nil {
			errs = multierr.Append(errs, fmt.Errorf("job %s: %w", res.JobID, res.Err))
		}
	}
	return results, errs
}

func (r *Runner) runJob(ctx context.Context, job Job) (res JobResult) {
	started := time.Now()
	res = JobResult{JobID: job.ID, FramesPath: job.FramesPath}
	logger := log.WithFields(log.Fields{"job_id": job.ID, "frames": job.FramesPath})

	r.instr.GaugeActiveRuns.Inc()
	defer func() {
		r.instr.GaugeActiveRuns.Dec()
		res.Duration = time.Since(started)
		r.instr.HistRunDuration.Observe(res.Duration.Seconds())
		outcome := "ok"
		switch {
		case res.Err != nil:
			outcome = "error"
			res.Error = res.Err.Error()
		case res.Cached:
			outcome = "cached"
			r.instr.CounterCacheHits.Inc()
		}
		r.instr.CounterRuns.WithLabelValues(string(res.Exercise), outcome).Inc()
	}()

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	ex, err := r.registry.Lookup(job.Exercise)
	if err != nil {
		res.Err = err
		return res
	}
	res.Exercise = ex.ID

	if job.OutDir != "" {
		out, err := r.runPipeline(job, ex, logger)
		if err != nil {
			res.Err = err
			return res
		}
		res.Result = out
		r.countReps(ex.ID, out)
		return res
	}

	digest, err := framesource.HashFile(job.FramesPath)
	if err != nil {
		res.Err = err
		return res
	}
	key := r.cacheKey(ex.ID, digest)
	if cached, ok := r.cached(key, logger); ok {
		res.Result = cached
		res.Cached = true
		return res
	}

	// identical jobs in flight at the same time share one analysis
	executed := false
	v, err, _ := r.flight.Do(key, func() (any, error) {
		executed = true
		out, err := r.analyze(job, ex, logger)
		if err != nil {
			return nil, err
		}
		r.countReps(ex.ID, out)
		r.store(key, out, logger)
		return out, nil
	})
	if err != nil {
		res.Err = err
		return res
	}
	out := *v.(*repcheck.AnalysisResult)
	res.Result = &out
	res.Cached = !executed
	return res
}

func (r *Runner) analyze(job Job, ex repcheck.Exercise, logger log.FieldLogger) (res *repcheck.AnalysisResult, err error) {
	src, err := framesource.Open(job.FramesPath, framesource.Options{Stride: r.opts.Stride, FPS: r.opts.FPS})
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			err = multierr.Append(err, cerr)
			res = nil
		}
	}()

	session, err := repcheck.NewAnalyzer(r.registry, repcheck.WithLogger(logger)).Run(string(ex.ID), src)
	if err != nil {
		return nil, err
	}
	r.instr.CounterFramesSkipped.Add(float64(session.FramesSkipped))

	out := repcheck.WithSuggestion(string(ex.ID), session.Result)
	logger.WithFields(log.Fields{
		"exercise":   ex.ID,
		"total_reps": out.TotalReps,
		"skipped":    session.FramesSkipped,
	}).Debug("job analyzed")
	return &out, nil
}

func (r *Runner) runPipeline(job Job, ex repcheck.Exercise, logger log.FieldLogger) (*repcheck.AnalysisResult, error) {
	th := r.registry.Thresholds()
	out, err := pipeline.Run(pipeline.Options{
		FramesPath: job.FramesPath,
		Exercise:   string(ex.ID),
		OutDir:     job.OutDir,
		Format:     r.opts.Format,
		Overwrite:  r.opts.Overwrite,
		Stride:     r.opts.Stride,
		FPS:        r.opts.FPS,
		Thresholds: &th,
		RunID:      job.ID,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	return &out.Analysis, nil
}

func (r *Runner) cacheKey(id repcheck.ExerciseID, d framesource.Digest) string {
	return fmt.Sprintf("analysis::%s::%s::stride=%d", id, d.SHA256, r.opts.Stride)
}

func (r *Runner) cached(key string, logger *log.Entry) (*repcheck.AnalysisResult, bool) {
	if r.cache == nil {
		return nil, false
	}
	data, err := r.cache.Get([]byte(key))
	if err != nil {
		logger.Tracef("result cache miss: %s", err)
		return nil, false
	}
	out := &repcheck.AnalysisResult{}
	if err := json.Unmarshal(data, out); err != nil {
		logger.Errorf("failed to unmarshal cached result: %s", err)
		return nil, false
	}
	return out, true
}

func (r *Runner) store(key string, res *repcheck.AnalysisResult, logger log.FieldLogger) {
	if r.cache == nil {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		logger.Errorf("failed to marshal result for cache: %s", err)
		return
	}
	if err := r.cache.Set([]byte(key), data, resultCacheExpire); err != nil {
		logger.Errorf("failed to write result cache: %s", err)
	}
}

func (r *Runner) countReps(id repcheck.ExerciseID, res *repcheck.AnalysisResult) {
	r.instr.CounterReps.WithLabelValues(string(id), string(repcheck.StatusGood)).Add(float64(res.GoodReps))
	r.instr.CounterReps.WithLabelValues(string(id), string(repcheck.StatusBad)).Add(float64(res.BadReps))
}
