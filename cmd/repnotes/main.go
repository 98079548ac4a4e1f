package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	repcheck "github.com/lucasjlepore/rep-analyzer"
	"github.com/lucasjlepore/rep-analyzer/framesource"
	"github.com/lucasjlepore/rep-analyzer/internal/logging"
	log "github.com/sirupsen/logrus"
)

func main() {
	var (
		exercise       = flag.String("exercise", "", "Exercise: push-ups|pull-ups|bench press|curls|crunches")
		stride         = flag.Int("stride", 1, "Keep every Nth frame of the frames file")
		fps            = flag.Float64("fps", 0, "Video frame rate, used for frames without a timestamp")
		thresholdsPath = flag.String("thresholds", "", "Optional TOML file overriding grading thresholds")
		jsonOut        = flag.Bool("json", false, "Emit the analysis result as JSON")
		showReps       = flag.Bool("windows", false, "Include rep window timing in text output")
		catalog        = flag.Bool("catalog", false, "Print the supported exercises and recording setup, then exit")
		logLevel       = flag.String("log-level", "warn", "Log level: trace|debug|info|warn|error")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] --exercise <name> <path-to-frames.jsonl>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	logging.Setup(logging.LoggerSetupParams{LogLevel: *logLevel})

	th := repcheck.DefaultThresholds()
	if *thresholdsPath != "" {
		loaded, err := repcheck.LoadThresholds(*thresholdsPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load thresholds failed: %v\n", err)
			os.Exit(1)
		}
		th = loaded
	}
	registry, err := repcheck.NewRegistry(th)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build registry failed: %v\n", err)
		os.Exit(1)
	}

	if *catalog {
		printCatalog(registry.Catalog())
		return
	}

	if flag.NArg() < 1 || *exercise == "" {
		flag.Usage()
		os.Exit(2)
	}

	src, err := framesource.Open(flag.Arg(0), framesource.Options{Stride: *stride, FPS: *fps})
	if err != nil {
		fmt.Fprintf(os.Stderr, "analysis failed: %v\n", err)
		os.Exit(1)
	}
	session, err := repcheck.NewAnalyzer(registry, repcheck.WithLogger(log.StandardLogger())).Run(*exercise, src)
	closeErr := src.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "analysis failed: %v\n", err)
		os.Exit(1)
	}
	if closeErr != nil {
		fmt.Fprintf(os.Stderr, "close frames file failed: %v\n", closeErr)
		os.Exit(1)
	}

	result := repcheck.WithSuggestion(*exercise, session.Result)
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			fmt.Fprintf(os.Stderr, "json encode failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Println(repcheck.BuildReport(string(session.Exercise), session, result.LoadSuggestion))
	if *showReps && len(session.Windows) > 0 {
		fmt.Println()
		fmt.Println("Rep Windows")
		for _, w := range session.Windows {
			fmt.Printf(
				"- Rep %02d | frames %5d-%-5d | %6.2fs-%6.2fs | %3d samples\n",
				w.Rep,
				w.StartFrame,
				w.EndFrame,
				w.StartTimeS,
				w.EndTimeS,
				w.Frames,
			)
		}
	}
}

func printCatalog(entries []repcheck.CatalogEntry) {
	for i, e := range entries {
		if i > 0 {
			fmt.Println()
		}
		fmt.Printf("%s (%s)\n", e.Name, e.ID)
		fmt.Printf("  Camera: %s\n", e.Setup.RecommendedAngle)
		fmt.Printf("  Setup:  %s\n", e.Setup.Instructions)
		fmt.Printf("  Metric: %s\n", e.Metric.Description)
	}
}
