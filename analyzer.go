package repcheck

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// RepStatus is the grade of a single repetition.
type RepStatus string

const (
	StatusGood RepStatus = "good"
	StatusBad  RepStatus = "bad"
)

// RepResult is one graded repetition.
type RepResult struct {
	Rep         int       `json:"rep"`
	Status      RepStatus `json:"status"`
	MetricValue float64   `json:"metric_value"`
	Feedback    string    `json:"feedback"`
}

// AnalysisResult is the per-video report consumed by the persistence layer.
// LoadSuggestion is attached by the caller after the run (see Suggest).
type AnalysisResult struct {
	TotalReps      int         `json:"total_reps"`
	GoodReps       int         `json:"good_reps"`
	BadReps        int         `json:"bad_reps"`
	RepDetails     []RepResult `json:"rep_details"`
	LoadSuggestion string      `json:"load_suggestion,omitempty"`
}

// RepWindow is the span between entering the active phase and returning to
// rest, with the secondary readings accumulated in between.
type RepWindow struct {
	Rep        int         `json:"rep"`
	StartFrame int         `json:"start_frame"`
	EndFrame   int         `json:"end_frame"`
	StartTimeS float64     `json:"start_time_s"`
	EndTimeS   float64     `json:"end_time_s"`
	Frames     int         `json:"frames"`
	Samples    [][]float64 `json:"-"`
	// Last is the signal of the frame that closed the window.
	Last FrameSignal `json:"-"`
}

// Channel returns the valid samples of secondary channel i.
func (w *RepWindow) Channel(i int) []float64 {
	if i < 0 || i >= len(w.Samples) {
		return nil
	}
	return w.Samples[i]
}

// DurationS is the elapsed stream time of the window.
func (w RepWindow) DurationS() float64 {
	return w.EndTimeS - w.StartTimeS
}

// TracePoint records one valid frame as the engine saw it.
type TracePoint struct {
	Signal         FrameSignal `json:"signal"`
	Phase          Phase       `json:"phase"`
	EnterThreshold float64     `json:"enter_threshold"`
	ExitThreshold  float64     `json:"exit_threshold"`
}

// Session is the full outcome of one run.
type Session struct {
	Exercise      ExerciseID     `json:"exercise"`
	Result        AnalysisResult `json:"result"`
	Windows       []RepWindow    `json:"windows"`
	Trace         []TracePoint   `json:"-"`
	FramesSeen    int            `json:"frames_seen"`
	FramesSkipped int            `json:"frames_skipped"`
}

// Analyzer runs the per-exercise pipeline over a frame stream.
type Analyzer struct {
	registry *Registry
	logger   logrus.FieldLogger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger used for per-rep debug output.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func NewAnalyzer(registry *Registry, opts ...Option) *Analyzer {
	a := &Analyzer{
		registry: registry,
		logger:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze runs one exercise over src and returns the rep report. The source
// is not closed; its owner must close it.
func Analyze(registry *Registry, exercise string, src FrameSource) (*AnalysisResult, error) {
	session, err := NewAnalyzer(registry).Run(exercise, src)
	if err != nil {
		return nil, err
	}
	return &session.Result, nil
}

// Run consumes src until io.EOF. An unknown exercise fails before any frame
// is read; a stream error aborts the run without a partial result.
func (a *Analyzer) Run(exercise string, src FrameSource) (*Session, error) {
	ex, err := a.registry.Lookup(exercise)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("frame source is required")
	}

	r := a.newRun(ex)
	for {
		frame, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read frame %d: %w", r.session.FramesSeen+1, err)
		}
		r.session.FramesSeen++

		joints, ok := SelectPerson(frame.Detections)
		if !ok {
			r.skip(frame.Index, "no person")
			continue
		}
		sig, ok := ex.Extract(joints)
		if !ok || !isFinite(sig.Primary) {
			r.skip(frame.Index, "required joints missing")
			continue
		}
		sig.Frame = frame.Index
		sig.TimeS = frame.TimeS
		r.step(sig)
	}
	return r.finish(), nil
}

// RunSignals drives the engine directly from precomputed signals.
func (a *Analyzer) RunSignals(exercise string, signals []FrameSignal) (*Session, error) {
	ex, err := a.registry.Lookup(exercise)
	if err != nil {
		return nil, err
	}
	r := a.newRun(ex)
	for _, sig := range signals {
		r.session.FramesSeen++
		if !isFinite(sig.Primary) {
			r.skip(sig.Frame, "non-finite primary")
			continue
		}
		r.step(sig)
	}
	return r.finish(), nil
}

type run struct {
	ex      Exercise
	logger  logrus.FieldLogger
	cal     RangeCalibrator
	machine PhaseMachine
	window  *RepWindow
	session *Session
}

func (a *Analyzer) newRun(ex Exercise) *run {
	return &run{
		ex:      ex,
		logger:  a.logger.WithField("exercise", ex.ID),
		machine: NewPhaseMachine(ex),
		session: &Session{
			Exercise: ex.ID,
			Result:   AnalysisResult{RepDetails: []RepResult{}},
			Windows:  []RepWindow{},
		},
	}
}

func (r *run) skip(frame int, reason string) {
	r.session.FramesSkipped++
	r.logger.WithField("frame", frame).Tracef("frame skipped: %s", reason)
}

func (r *run) step(sig FrameSignal) {
	r.cal.Observe(sig.Primary)
	enter, exit := r.machine.Thresholds(r.cal)

	if r.machine.Opens(sig.Primary, r.cal) {
		r.window = &RepWindow{
			StartFrame: sig.Frame,
			StartTimeS: sig.TimeS,
			Samples:    make([][]float64, len(r.ex.Channels)),
		}
	}

	if r.machine.Active() && r.window != nil {
		r.window.Frames++
		for i, reading := range sig.Secondary {
			if i < len(r.window.Samples) && reading.Valid && isFinite(reading.Value) {
				r.window.Samples[i] = append(r.window.Samples[i], reading.Value)
			}
		}
		if r.machine.Closes(sig.Primary, r.cal) {
			r.window.EndFrame = sig.Frame
			r.window.EndTimeS = sig.TimeS
			r.window.Last = sig
			r.grade(r.window)
			r.window = nil
		}
	}

	r.session.Trace = append(r.session.Trace, TracePoint{
		Signal:         sig,
		Phase:          r.machine.Phase(),
		EnterThreshold: enter,
		ExitThreshold:  exit,
	})
}

func (r *run) grade(w *RepWindow) {
	g, counted := r.ex.Grade(w)
	if !counted {
		r.logger.WithField("frame", w.EndFrame).Debug("rep window closed without gradable samples")
		return
	}

	res := &r.session.Result
	w.Rep = res.GoodReps + res.BadReps + 1
	if g.Status == StatusGood {
		res.GoodReps++
	} else {
		res.BadReps++
	}
	res.TotalReps = res.GoodReps + res.BadReps
	res.RepDetails = append(res.RepDetails, RepResult{
		Rep:         w.Rep,
		Status:      g.Status,
		MetricValue: round1(g.Metric),
		Feedback:    g.Feedback,
	})
	r.session.Windows = append(r.session.Windows, *w)

	r.logger.WithFields(logrus.Fields{
		"rep":    w.Rep,
		"status": g.Status,
		"metric": round1(g.Metric),
		"frames": w.Frames,
	}).Debug("rep graded")
}

func (r *run) finish() *Session {
	if r.window != nil {
		r.logger.WithField("start_frame", r.window.StartFrame).Debug("stream ended inside an open rep window")
	}
	return r.session
}
