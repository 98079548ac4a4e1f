package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	repcheck "github.com/lucasjlepore/rep-analyzer"
	"github.com/lucasjlepore/rep-analyzer/framesource"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// Run analyzes one frames file and writes all artifacts to opts.OutDir.
func Run(opts Options) (res *Result, err error) {
	if strings.TrimSpace(opts.FramesPath) == "" {
		return nil, fmt.Errorf("frames path is required")
	}
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	format, err := normalizeFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	th, err := resolveThresholds(opts.Thresholds, opts.ThresholdsPath)
	if err != nil {
		return nil, err
	}
	registry, err := repcheck.NewRegistry(th)
	if err != nil {
		return nil, err
	}
	ex, err := registry.Lookup(opts.Exercise)
	if err != nil {
		return nil, err
	}

	digest, err := framesource.HashFile(opts.FramesPath)
	if err != nil {
		return nil, err
	}
	if err := ensureOutputDir(opts.OutDir, opts.Overwrite); err != nil {
		return nil, err
	}

	src, err := framesource.Open(opts.FramesPath, framesource.Options{Stride: opts.Stride, FPS: opts.FPS})
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close frames file: %w", cerr))
			res = nil
		}
	}()

	logger := loggerOrDefault(opts.Logger)
	runID := runIDOrNew(opts.RunID)
	logger = logger.WithField("run_id", runID)

	session, err := repcheck.NewAnalyzer(registry, repcheck.WithLogger(logger)).Run(string(ex.ID), src)
	if err != nil {
		return nil, fmt.Errorf("analyze frames: %w", err)
	}

	b, err := assemble(ex, th, session, runID, startOrNow(opts.StartTime))
	if err != nil {
		return nil, err
	}

	ext := formatExtension(format)
	paths := map[string]string{
		AnalysisFile: filepath.Join(opts.OutDir, AnalysisFile),
		ReportFile:   filepath.Join(opts.OutDir, ReportFile),
		"rep":        filepath.Join(opts.OutDir, RepDetailsBase+"."+ext),
		"signals":    filepath.Join(opts.OutDir, FrameSignalsBase+"."+ext),
		ActivityFile: filepath.Join(opts.OutDir, ActivityFile),
		ManifestFile: filepath.Join(opts.OutDir, ManifestFile),
	}

	if err := writeJSON(paths[AnalysisFile], b.document); err != nil {
		return nil, fmt.Errorf("write %s: %w", AnalysisFile, err)
	}
	if err := os.WriteFile(paths[ReportFile], []byte(b.report), 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", ReportFile, err)
	}
	switch format {
	case "csv":
		if err := writeCSVFile(paths["rep"], func(w io.Writer) error { return encodeRepDetailsCSV(w, b.repRows) }); err != nil {
			return nil, fmt.Errorf("write rep details csv: %w", err)
		}
		if err := writeCSVFile(paths["signals"], func(w io.Writer) error { return encodeFrameSignalsCSV(w, b.signalRows) }); err != nil {
			return nil, fmt.Errorf("write frame signals csv: %w", err)
		}
	case "parquet":
		if err := writeRepDetailsParquet(paths["rep"], b.repRows); err != nil {
			return nil, fmt.Errorf("write rep details parquet: %w", err)
		}
		if err := writeFrameSignalsParquet(paths["signals"], b.signalRows); err != nil {
			return nil, fmt.Errorf("write frame signals parquet: %w", err)
		}
	}
	if err := os.WriteFile(paths[ActivityFile], b.activity, 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", ActivityFile, err)
	}

	manifest := b.manifest(opts.FramesPath, digest, opts.Stride, src.FramesRead())
	manifest.Files = []string{
		AnalysisFile,
		ReportFile,
		filepath.Base(paths["rep"]),
		filepath.Base(paths["signals"]),
		ActivityFile,
	}
	if err := writeJSON(paths[ManifestFile], manifest); err != nil {
		return nil, fmt.Errorf("write %s: %w", ManifestFile, err)
	}

	logger.WithFields(logrus.Fields{
		"exercise":   ex.ID,
		"total_reps": b.document.TotalReps,
		"good_reps":  b.document.GoodReps,
		"out_dir":    opts.OutDir,
	}).Info("rep analysis complete")

	return &Result{
		RunID:            runID,
		OutputDir:        opts.OutDir,
		ManifestPath:     paths[ManifestFile],
		AnalysisPath:     paths[AnalysisFile],
		ReportPath:       paths[ReportFile],
		RepDetailsPath:   paths["rep"],
		FrameSignalsPath: paths["signals"],
		ActivityPath:     paths[ActivityFile],
		Analysis:         b.document.AnalysisResult,
	}, nil
}

// RunBytes is Run over an in-memory frames file, returning the artifacts
// instead of writing them.
func RunBytes(opts BytesOptions) (*BytesResult, error) {
	if len(opts.FramesData) == 0 {
		return nil, fmt.Errorf("frames data is required")
	}
	format, err := normalizeFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	th, err := resolveThresholds(opts.Thresholds, "")
	if err != nil {
		return nil, err
	}
	registry, err := repcheck.NewRegistry(th)
	if err != nil {
		return nil, err
	}
	ex, err := registry.Lookup(opts.Exercise)
	if err != nil {
		return nil, err
	}

	src := framesource.FromBytes(opts.FramesData, framesource.Options{Stride: opts.Stride, FPS: opts.FPS})
	defer src.Close()

	runID := runIDOrNew(opts.RunID)
	logger := loggerOrDefault(opts.Logger).WithField("run_id", runID)
	session, err := repcheck.NewAnalyzer(registry, repcheck.WithLogger(logger)).Run(string(ex.ID), src)
	if err != nil {
		return nil, fmt.Errorf("analyze frames: %w", err)
	}

	b, err := assemble(ex, th, session, runID, startOrNow(opts.StartTime))
	if err != nil {
		return nil, err
	}

	files := make(map[string][]byte, 6)
	analysisJSON, err := marshalJSON(b.document)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", AnalysisFile, err)
	}
	files[AnalysisFile] = analysisJSON
	files[ReportFile] = []byte(b.report)

	ext := formatExtension(format)
	repName := RepDetailsBase + "." + ext
	signalsName := FrameSignalsBase + "." + ext
	switch format {
	case "csv":
		if files[repName], err = marshalCSV(func(w io.Writer) error { return encodeRepDetailsCSV(w, b.repRows) }); err != nil {
			return nil, fmt.Errorf("marshal rep details csv: %w", err)
		}
		if files[signalsName], err = marshalCSV(func(w io.Writer) error { return encodeFrameSignalsCSV(w, b.signalRows) }); err != nil {
			return nil, fmt.Errorf("marshal frame signals csv: %w", err)
		}
	case "parquet":
		if files[repName], err = marshalRepDetailsParquet(b.repRows); err != nil {
			return nil, fmt.Errorf("marshal rep details parquet: %w", err)
		}
		if files[signalsName], err = marshalFrameSignalsParquet(b.signalRows); err != nil {
			return nil, fmt.Errorf("marshal frame signals parquet: %w", err)
		}
	}
	files[ActivityFile] = b.activity

	name := opts.SourceFileName
	if strings.TrimSpace(name) == "" {
		name = "frames.jsonl"
	}
	manifest := b.manifest(name, framesource.HashBytes(opts.FramesData), opts.Stride, src.FramesRead())
	manifest.SourceFile = ""
	manifest.Files = sortedNames(files)
	manifestJSON, err := marshalJSON(manifest)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", ManifestFile, err)
	}
	files[ManifestFile] = manifestJSON

	return &BytesResult{
		RunID:    runID,
		Files:    files,
		Analysis: b.document.AnalysisResult,
		Warnings: b.warnings,
	}, nil
}

type bundle struct {
	exercise   repcheck.Exercise
	thresholds repcheck.Thresholds
	session    *repcheck.Session
	document   AnalysisDocument
	report     string
	repRows    []RepDetailRow
	signalRows []FrameSignalRow
	activity   []byte
	warnings   []string
}

func assemble(ex repcheck.Exercise, th repcheck.Thresholds, session *repcheck.Session, runID string, start time.Time) (*bundle, error) {
	result := repcheck.WithSuggestion(string(ex.ID), session.Result)
	doc := AnalysisDocument{
		RunID:          runID,
		Exercise:       ex.ID,
		AnalysisResult: result,
		SetStructure:   repcheck.SummarizeSet(session),
	}

	activity, err := encodeActivity(session, start)
	if err != nil {
		return nil, fmt.Errorf("build activity file: %w", err)
	}

	b := &bundle{
		exercise:   ex,
		thresholds: th,
		session:    session,
		document:   doc,
		report:     renderReportMarkdown(ex, session, result.LoadSuggestion),
		repRows:    buildRepRows(session),
		signalRows: buildSignalRows(session),
		activity:   activity,
	}
	analyzed := session.FramesSeen - session.FramesSkipped
	switch {
	case session.FramesSeen == 0:
		b.warnings = append(b.warnings, "frames file contained no frames")
	case analyzed == 0:
		b.warnings = append(b.warnings, fmt.Sprintf("no frame had the joints %s needs; check the camera angle (%s)", ex.Name, ex.Setup.RecommendedAngle))
	}
	return b, nil
}

func (b *bundle) manifest(source string, digest framesource.Digest, stride, framesRead int) Manifest {
	if stride < 1 {
		stride = 1
	}
	return Manifest{
		FormatVersion:  ManifestFormatVersion,
		RunID:          b.document.RunID,
		GeneratedAt:    time.Now().UTC(),
		SourceFile:     source,
		SourceFileName: filepath.Base(source),
		Source:         digest,
		Exercise:       b.exercise.ID,
		Stride:         stride,
		FramesRead:     framesRead,
		FramesAnalyzed: b.session.FramesSeen - b.session.FramesSkipped,
		FramesSkipped:  b.session.FramesSkipped,
		Channels:       append([]string(nil), b.exercise.Channels...),
		Thresholds:     b.thresholds,
		Warnings:       b.warnings,
		SchemaNotes: []string{
			"analysis.json top-level total_reps/good_reps/bad_reps/rep_details match the persisted AnalysisResult shape.",
			"frame_signals secondary_N columns follow the channels list order; empty or NaN means the reading was absent.",
			"activity.fit holds one lap per graded rep; lap times are offsets into the video.",
		},
	}
}

func buildRepRows(s *repcheck.Session) []RepDetailRow {
	rows := make([]RepDetailRow, 0, len(s.Result.RepDetails))
	for i, rep := range s.Result.RepDetails {
		row := RepDetailRow{
			Rep:         rep.Rep,
			Status:      string(rep.Status),
			MetricValue: rep.MetricValue,
			Feedback:    rep.Feedback,
		}
		if i < len(s.Windows) {
			w := s.Windows[i]
			row.StartFrame = w.StartFrame
			row.EndFrame = w.EndFrame
			row.StartTimeS = w.StartTimeS
			row.EndTimeS = w.EndTimeS
			row.DurationS = w.DurationS()
			row.Frames = w.Frames
		}
		rows = append(rows, row)
	}
	return rows
}

func buildSignalRows(s *repcheck.Session) []FrameSignalRow {
	rows := make([]FrameSignalRow, 0, len(s.Trace))
	for _, tp := range s.Trace {
		row := FrameSignalRow{
			Frame:          tp.Signal.Frame,
			TimeS:          tp.Signal.TimeS,
			Primary:        tp.Signal.Primary,
			Phase:          string(tp.Phase),
			EnterThreshold: tp.EnterThreshold,
			ExitThreshold:  tp.ExitThreshold,
		}
		if len(tp.Signal.Secondary) > 0 && tp.Signal.Secondary[0].Valid {
			row.Secondary1 = floatPtr(tp.Signal.Secondary[0].Value)
		}
		if len(tp.Signal.Secondary) > 1 && tp.Signal.Secondary[1].Valid {
			row.Secondary2 = floatPtr(tp.Signal.Secondary[1].Value)
		}
		rows = append(rows, row)
	}
	return rows
}

func renderReportMarkdown(ex repcheck.Exercise, s *repcheck.Session, suggestion string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s analysis\n\n", ex.Name)
	b.WriteString(repcheck.BuildReport(ex.Name, s, suggestion))
	b.WriteByte('\n')
	return b.String()
}

func resolveThresholds(override *repcheck.Thresholds, path string) (repcheck.Thresholds, error) {
	if override != nil {
		if err := override.Validate(); err != nil {
			return repcheck.Thresholds{}, err
		}
		return *override, nil
	}
	if strings.TrimSpace(path) != "" {
		return repcheck.LoadThresholds(path)
	}
	return repcheck.DefaultThresholds(), nil
}

func normalizeFormat(format string) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "parquet"
	}
	if format != "parquet" && format != "csv" {
		return "", fmt.Errorf("unsupported format %q (expected parquet|csv)", format)
	}
	return format, nil
}

func formatExtension(format string) string {
	if format == "csv" {
		return "csv"
	}
	return "parquet"
}

func loggerOrDefault(l logrus.FieldLogger) logrus.FieldLogger {
	if l == nil {
		return logrus.StandardLogger()
	}
	return l
}

func runIDOrNew(id string) string {
	if strings.TrimSpace(id) != "" {
		return id
	}
	return uuid.NewString()
}

func startOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

func ensureOutputDir(path string, overwrite bool) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("read output directory: %w", err)
	}
	if len(entries) > 0 && !overwrite {
		return fmt.Errorf("output directory is not empty: %s (set overwrite=true to allow)", path)
	}
	return nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func marshalJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func sortedNames(files map[string][]byte) []string {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func floatPtr(v float64) *float64 {
	return &v
}
