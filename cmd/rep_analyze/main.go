package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/lucasjlepore/rep-analyzer/internal/logging"
	"github.com/lucasjlepore/rep-analyzer/pipeline"
	log "github.com/sirupsen/logrus"
)

func main() {
	var (
		framesPath     = flag.String("frames", "", "Path to detector output (.jsonl, one frame per line)")
		exercise       = flag.String("exercise", "", "Exercise: push-ups|pull-ups|bench press|curls|crunches")
		outDir         = flag.String("out", "", "Output directory")
		format         = flag.String("format", "parquet", "Rep details and frame signals format: parquet|csv")
		stride         = flag.Int("stride", 1, "Keep every Nth frame of the frames file")
		fps            = flag.Float64("fps", 0, "Video frame rate, used for frames without a timestamp")
		thresholdsPath = flag.String("thresholds", "", "Optional TOML file overriding grading thresholds")
		overwrite      = flag.Bool("overwrite", true, "Allow writing into non-empty output directories")
		logLevel       = flag.String("log-level", "info", "Log level: trace|debug|info|warn|error")
		logFile        = flag.String("log-file", "", "Also write logs to this rotated file")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s --frames frames.jsonl --exercise push-ups --out outdir [--format parquet|csv] [--stride 3] [--fps 30]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if strings.TrimSpace(*framesPath) == "" || strings.TrimSpace(*outDir) == "" || strings.TrimSpace(*exercise) == "" {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	closer := logging.Setup(logging.LoggerSetupParams{
		LogFileName: *logFile,
		LogToStdout: *logFile != "",
		LogLevel:    *logLevel,
	})
	if closer != nil {
		defer closer.Close()
	}

	result, err := pipeline.Run(pipeline.Options{
		FramesPath:     *framesPath,
		Exercise:       *exercise,
		OutDir:         *outDir,
		Format:         *format,
		Stride:         *stride,
		FPS:            *fps,
		ThresholdsPath: *thresholdsPath,
		Overwrite:      *overwrite,
		Logger:         log.StandardLogger(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "rep_analyze failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("rep_analyze complete\n")
	fmt.Printf("Run id:              %s\n", result.RunID)
	fmt.Printf("Output dir:          %s\n", result.OutputDir)
	fmt.Printf("analysis.json:       %s\n", result.AnalysisPath)
	fmt.Printf("report.md:           %s\n", result.ReportPath)
	fmt.Printf("rep details:         %s\n", result.RepDetailsPath)
	fmt.Printf("frame signals:       %s\n", result.FrameSignalsPath)
	fmt.Printf("activity.fit:        %s\n", result.ActivityPath)
	fmt.Printf("manifest.json:       %s\n", result.ManifestPath)
	fmt.Printf("Reps:                %d total, %d good, %d bad\n", result.Analysis.TotalReps, result.Analysis.GoodReps, result.Analysis.BadReps)
	fmt.Printf("Suggestion:          %s\n", result.Analysis.LoadSuggestion)
}
