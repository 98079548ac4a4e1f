package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/lucasjlepore/rep-analyzer/batch"
	"github.com/lucasjlepore/rep-analyzer/internal/config"
	"github.com/lucasjlepore/rep-analyzer/internal/logging"
	"github.com/lucasjlepore/rep-analyzer/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

func main() {
	var (
		env         = flag.String("env", "", "Config environment: development|production (default $REP_ANALYZER_ENV)")
		configPath  = flag.String("config", "", "Path to config.toml (default $REP_ANALYZER_CONFIG or ./config.toml)")
		jobsPath    = flag.String("jobs", "", "JSON file with a list of {id, exercise, frames_path, out_dir} jobs")
		exercise    = flag.String("exercise", "", "Exercise for frames files given as arguments")
		outRoot     = flag.String("out", "", "When set, write a full bundle per job under this directory")
		metricsPath = flag.String("metrics", "", "Write run metrics in Prometheus text format to this file")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [--config config.toml] (--jobs jobs.json | --exercise push-ups frames1.jsonl frames2.jsonl ...)\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(config.ResolveEnv(*env), config.ResolvePath(*configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}

	closer := logging.Setup(logging.LoggerSetupParams{
		LogFileName:   cfg.LogsPath,
		LogToStdout:   cfg.LogToStdout,
		LogLevel:      cfg.LogLevel,
		LogFormatJSON: cfg.LogFormatJSON,
	})
	if closer != nil {
		defer closer.Close()
	}

	jobs, err := loadJobs(*jobsPath, *exercise, *outRoot, flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		flag.Usage()
		os.Exit(2)
	}

	reg := prometheus.NewRegistry()
	runner, err := batch.NewRunner(batch.Options{
		Workers:     cfg.Workers,
		CacheSizeMB: cfg.CacheSizeMB,
		Stride:      cfg.FrameStride,
		FPS:         cfg.FPS,
		Format:      cfg.Format,
		Overwrite:   true,
		Thresholds:  cfg.Thresholds,
		Metrics:     metrics.NewManager("rep_analyzer", "batch", reg),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "create runner failed: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infof("running %d jobs with %d workers", len(jobs), cfg.Workers)
	results, runErr := runner.Run(ctx, jobs)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		fmt.Fprintf(os.Stderr, "json encode failed: %v\n", err)
		os.Exit(1)
	}

	if *metricsPath != "" {
		if err := prometheus.WriteToTextfile(*metricsPath, reg); err != nil {
			log.Errorf("write metrics: %s", err)
		}
	}

	if runErr != nil {
		log.Errorf("batch finished with failures: %s", runErr)
		os.Exit(1)
	}
}

func loadJobs(jobsPath, exercise, outRoot string, args []string) ([]batch.Job, error) {
	if jobsPath != "" {
		data, err := os.ReadFile(jobsPath)
		if err != nil {
			return nil, fmt.Errorf("read jobs file: %w", err)
		}
		var jobs []batch.Job
		if err := json.Unmarshal(data, &jobs); err != nil {
			return nil, fmt.Errorf("parse jobs file: %w", err)
		}
		if len(jobs) == 0 {
			return nil, fmt.Errorf("jobs file %s has no jobs", jobsPath)
		}
		return jobs, nil
	}

	if strings.TrimSpace(exercise) == "" || len(args) == 0 {
		return nil, fmt.Errorf("either --jobs or --exercise with frames files is required")
	}
	jobs := make([]batch.Job, 0, len(args))
	for _, path := range args {
		job := batch.Job{Exercise: exercise, FramesPath: path}
		if outRoot != "" {
			name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			job.OutDir = filepath.Join(outRoot, name)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
