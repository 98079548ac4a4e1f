package pipeline

import (
	"time"

	repcheck "github.com/lucasjlepore/rep-analyzer"
	"github.com/lucasjlepore/rep-analyzer/framesource"
	"github.com/sirupsen/logrus"
)

// ManifestFormatVersion identifies the artifact bundle layout.
const ManifestFormatVersion = "rep_analysis_bundle_v1"

// Artifact file names.
const (
	AnalysisFile     = "analysis.json"
	ReportFile       = "report.md"
	RepDetailsBase   = "rep_details"
	FrameSignalsBase = "frame_signals"
	ActivityFile     = "activity.fit"
	ManifestFile     = "manifest.json"
)

// Options configures the rep_analyze pipeline.
type Options struct {
	FramesPath string
	Exercise   string
	OutDir     string
	Format     string // parquet|csv
	Overwrite  bool

	// Stride keeps every Nth frame of the frames file. Zero keeps all.
	Stride int
	// FPS fills in timestamps for frames that carry none.
	FPS float64

	// Thresholds overrides the grading policy. ThresholdsPath is read when
	// Thresholds is nil; both empty means defaults.
	Thresholds     *repcheck.Thresholds
	ThresholdsPath string

	// RunID is generated when empty.
	RunID string
	// StartTime anchors the activity file; zero means now.
	StartTime time.Time
	Logger    logrus.FieldLogger
}

// BytesOptions configures RunBytes.
type BytesOptions struct {
	SourceFileName string
	FramesData     []byte
	Exercise       string
	Format         string
	Stride         int
	FPS            float64
	Thresholds     *repcheck.Thresholds
	RunID          string
	StartTime      time.Time
	Logger         logrus.FieldLogger
}

// Result returns generated output paths.
type Result struct {
	RunID            string                  `json:"run_id"`
	OutputDir        string                  `json:"output_dir"`
	ManifestPath     string                  `json:"manifest_path"`
	AnalysisPath     string                  `json:"analysis_path"`
	ReportPath       string                  `json:"report_path"`
	RepDetailsPath   string                  `json:"rep_details_path"`
	FrameSignalsPath string                  `json:"frame_signals_path"`
	ActivityPath     string                  `json:"activity_path"`
	Analysis         repcheck.AnalysisResult `json:"analysis"`
}

// BytesResult holds in-memory artifacts keyed by file name.
type BytesResult struct {
	RunID    string                  `json:"run_id"`
	Files    map[string][]byte       `json:"-"`
	Analysis repcheck.AnalysisResult `json:"analysis"`
	Warnings []string                `json:"warnings,omitempty"`
}

// AnalysisDocument is the analysis.json payload: the AnalysisResult fields at
// the top level plus run context.
type AnalysisDocument struct {
	RunID    string              `json:"run_id"`
	Exercise repcheck.ExerciseID `json:"exercise"`
	repcheck.AnalysisResult
	SetStructure repcheck.SetStructure `json:"set_structure"`
}

// Manifest captures run metadata and pointers to generated files.
type Manifest struct {
	FormatVersion  string              `json:"format_version"`
	RunID          string              `json:"run_id"`
	GeneratedAt    time.Time           `json:"generated_at"`
	SourceFile     string              `json:"source_file,omitempty"`
	SourceFileName string              `json:"source_file_name"`
	Source         framesource.Digest  `json:"source"`
	Exercise       repcheck.ExerciseID `json:"exercise"`
	Stride         int                 `json:"stride"`
	FramesRead     int                 `json:"frames_read"`
	FramesAnalyzed int                 `json:"frames_analyzed"`
	FramesSkipped  int                 `json:"frames_skipped"`
	Channels       []string            `json:"channels"`
	Thresholds     repcheck.Thresholds `json:"thresholds"`
	Files          []string            `json:"files"`
	Warnings       []string            `json:"warnings,omitempty"`
	SchemaNotes    []string            `json:"schema_notes"`
}

// RepDetailRow is one line of rep_details.
type RepDetailRow struct {
	Rep         int     `json:"rep"`
	Status      string  `json:"status"`
	MetricValue float64 `json:"metric_value"`
	Feedback    string  `json:"feedback"`
	StartFrame  int     `json:"start_frame"`
	EndFrame    int     `json:"end_frame"`
	StartTimeS  float64 `json:"start_time_s"`
	EndTimeS    float64 `json:"end_time_s"`
	DurationS   float64 `json:"duration_s"`
	Frames      int     `json:"frames"`
}

// FrameSignalRow is one valid frame of frame_signals. Secondary channels are
// positional; the manifest lists their names.
type FrameSignalRow struct {
	Frame          int      `json:"frame"`
	TimeS          float64  `json:"t"`
	Primary        float64  `json:"primary"`
	Phase          string   `json:"phase"`
	EnterThreshold float64  `json:"enter_threshold"`
	ExitThreshold  float64  `json:"exit_threshold"`
	Secondary1     *float64 `json:"secondary_1,omitempty"`
	Secondary2     *float64 `json:"secondary_2,omitempty"`
}
