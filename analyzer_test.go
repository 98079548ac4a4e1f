package repcheck

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietAnalyzer() *Analyzer {
	logger, _ := test.NewNullLogger()
	return NewAnalyzer(DefaultRegistry(), WithLogger(logger))
}

func assertConsistent(t *testing.T, res AnalysisResult) {
	t.Helper()
	assert.Equal(t, res.TotalReps, res.GoodReps+res.BadReps)
	require.Len(t, res.RepDetails, res.TotalReps)
	for i, rep := range res.RepDetails {
		assert.Equal(t, i+1, rep.Rep)
		assert.Contains(t, []RepStatus{StatusGood, StatusBad}, rep.Status)
	}
}

func TestRunSignals_PushupSawtooth(t *testing.T) {
	primary := sawtooth(100, 200)
	signals := make([]FrameSignal, 0, len(primary))
	for i, v := range primary {
		frame := i + 1
		flare := 40.0
		// second cycle flares
		if frame >= 6 && frame <= 9 {
			flare = 90
		}
		signals = append(signals, flareSignal(frame, v, flare))
	}

	session, err := quietAnalyzer().RunSignals("push-ups", signals)
	require.NoError(t, err)

	res := session.Result
	assertConsistent(t, res)
	assert.Equal(t, 3, res.TotalReps)
	assert.Equal(t, 2, res.GoodReps)
	assert.Equal(t, 1, res.BadReps)

	assert.Equal(t, StatusGood, res.RepDetails[0].Status)
	assert.Equal(t, 40.0, res.RepDetails[0].MetricValue)
	assert.Equal(t, "Good form: elbows tucked properly.", res.RepDetails[0].Feedback)

	assert.Equal(t, StatusBad, res.RepDetails[1].Status)
	assert.Equal(t, 90.0, res.RepDetails[1].MetricValue)
	assert.Equal(t, "Elbow flare too wide (90.0° > 75°). Keep elbows closer to your body.", res.RepDetails[1].Feedback)

	require.Len(t, session.Windows, 3)
	assert.Equal(t, 2, session.Windows[0].StartFrame)
	assert.Equal(t, 5, session.Windows[0].EndFrame)
	assert.Equal(t, 7, session.Windows[1].StartFrame)
	assert.Equal(t, 9, session.Windows[1].EndFrame)
	assert.InDelta(t, 0.3, session.Windows[0].DurationS(), 1e-9)

	require.Len(t, session.Trace, len(signals))
	assert.Equal(t, PhaseUp, session.Trace[0].Phase)
	assert.Equal(t, PhaseDown, session.Trace[2].Phase)
	assert.Equal(t, PhaseUp, session.Trace[4].Phase)
}

func TestRunSignals_PullupFallingDirection(t *testing.T) {
	primary := sawtooth(300, 100)
	signals := make([]FrameSignal, 0, len(primary))
	for i, v := range primary {
		chin := 0.0
		if v <= 100 {
			chin = 1
		}
		signals = append(signals, FrameSignal{
			Frame:     i + 1,
			Primary:   v,
			Secondary: []Reading{valid(chin)},
		})
	}

	session, err := quietAnalyzer().RunSignals("pullups", signals)
	require.NoError(t, err)
	assert.Equal(t, PullUps, session.Exercise)
	assertConsistent(t, session.Result)
	assert.Equal(t, 3, session.Result.TotalReps)
	assert.Equal(t, 3, session.Result.GoodReps)
	for _, rep := range session.Result.RepDetails {
		assert.Equal(t, 1.0, rep.MetricValue)
	}
}

func TestRunSignals_WindowWithoutSamplesIsNotCounted(t *testing.T) {
	primary := sawtooth(100, 200)
	signals := make([]FrameSignal, 0, len(primary))
	for i, v := range primary {
		signals = append(signals, FrameSignal{Frame: i + 1, Primary: v, Secondary: []Reading{{}}})
	}

	session, err := quietAnalyzer().RunSignals("push-ups", signals)
	require.NoError(t, err)
	assert.Zero(t, session.Result.TotalReps)
	assert.Empty(t, session.Result.RepDetails)
	assert.Empty(t, session.Windows)
}

func TestRun_PushupFrames(t *testing.T) {
	var frames []Frame
	for i, y := range sawtooth(200, 400) {
		frames = append(frames, pushupFrame(i+1, y, 35))
	}
	// a frame with nobody in it
	frames = append(frames[:6], append([]Frame{{Index: 100}}, frames[6:]...)...)

	src := NewSliceSource(frames)
	session, err := quietAnalyzer().Run("Push-Ups", src)
	require.NoError(t, err)
	assert.False(t, src.Closed(), "Run must not close a source it does not own")

	assertConsistent(t, session.Result)
	assert.Equal(t, 3, session.Result.TotalReps)
	assert.Equal(t, 3, session.Result.GoodReps)
	assert.Equal(t, len(frames), session.FramesSeen)
	assert.Equal(t, 1, session.FramesSkipped)
	for _, rep := range session.Result.RepDetails {
		assert.InDelta(t, 55.0, rep.MetricValue, 0.1)
	}
}

func TestRun_Deterministic(t *testing.T) {
	var frames []Frame
	for i, y := range sawtooth(200, 400) {
		dx := 35.0
		if i%4 == 0 {
			dx = 0
		}
		frames = append(frames, pushupFrame(i+1, y, dx))
	}

	first, err := Analyze(DefaultRegistry(), "push-ups", NewSliceSource(frames))
	require.NoError(t, err)
	second, err := Analyze(DefaultRegistry(), "push-ups", NewSliceSource(frames))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRun_NoFrames(t *testing.T) {
	res, err := Analyze(DefaultRegistry(), "pull-ups", NewSliceSource(nil))
	require.NoError(t, err)
	assert.Zero(t, res.TotalReps)
	assert.NotNil(t, res.RepDetails)

	withSuggestion := WithSuggestion("pull-ups", *res)
	assert.Equal(t, "No reps detected. Try recording from the recommended angle with better lighting.", withSuggestion.LoadSuggestion)
}

func TestRun_UnknownExerciseReadsNothing(t *testing.T) {
	src := NewSliceSource([]Frame{pushupFrame(1, 200, 0)})
	_, err := quietAnalyzer().Run("deadlift", src)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownExercise))
	assert.Contains(t, err.Error(), `"deadlift"`)
	assert.Zero(t, src.pos)
}

type failingSource struct {
	after int
	n     int
}

func (s *failingSource) Next() (Frame, error) {
	if s.n >= s.after {
		return Frame{}, errors.New("stream broke")
	}
	s.n++
	return pushupFrame(s.n, 200, 0), nil
}

func (s *failingSource) Close() error { return nil }

func TestRun_StreamErrorAborts(t *testing.T) {
	session, err := quietAnalyzer().Run("push-ups", &failingSource{after: 2})
	require.Error(t, err)
	assert.Nil(t, session)
	assert.Contains(t, err.Error(), "read frame 3")
	assert.NotErrorIs(t, err, io.EOF)
}

func TestRun_LogsGradedReps(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	signals := make([]FrameSignal, 0, 13)
	for i, v := range sawtooth(100, 200) {
		signals = append(signals, flareSignal(i+1, v, 40))
	}
	_, err := NewAnalyzer(DefaultRegistry(), WithLogger(logger)).RunSignals("push-ups", signals)
	require.NoError(t, err)

	graded := 0
	for _, e := range hook.AllEntries() {
		if e.Message == "rep graded" {
			graded++
			assert.Equal(t, PushUps, e.Data["exercise"])
		}
	}
	assert.Equal(t, 3, graded)
}

func TestRunSignals_FinePushupSawtooth(t *testing.T) {
	var signals []FrameSignal
	frame := 0
	add := func(v float64) {
		frame++
		signals = append(signals, flareSignal(frame, v, 61))
	}
	add(0)
	for cycle := 0; cycle < 3; cycle++ {
		for v := 1; v <= 100; v++ {
			add(float64(v))
		}
		for v := 99; v >= 0; v-- {
			add(float64(v))
		}
	}

	session, err := quietAnalyzer().RunSignals("push-ups", signals)
	require.NoError(t, err)
	assertConsistent(t, session.Result)
	assert.Equal(t, 3, session.Result.TotalReps)
	assert.Equal(t, 3, session.Result.GoodReps)
}

func TestPushupFlareMedian(t *testing.T) {
	grade := gradePushup(DefaultThresholds())

	v, ok := grade(window(nil, []float64{60, 62, 61}))
	require.True(t, ok)
	assert.Equal(t, StatusGood, v.Status)

	v, ok = grade(window(nil, []float64{80, 82, 81}))
	require.True(t, ok)
	assert.Equal(t, StatusBad, v.Status)
	assert.Contains(t, v.Feedback, "flare")
}

func TestRunSignals_BenchPress(t *testing.T) {
	// wrist Y goes down to the chest and back twice; the elbow angle follows
	type sample struct{ wristY, elbow float64 }
	samples := []sample{
		{100, 170}, {150, 130}, {200, 95}, {150, 130}, {100, 170},
		{150, 120}, {200, 60}, {150, 100}, {100, 150},
	}
	signals := make([]FrameSignal, 0, len(samples))
	for i, s := range samples {
		signals = append(signals, FrameSignal{
			Frame:     i + 1,
			Primary:   s.wristY,
			Secondary: []Reading{valid(s.elbow)},
		})
	}

	session, err := quietAnalyzer().RunSignals("bench press", signals)
	require.NoError(t, err)
	res := session.Result
	require.Equal(t, 2, res.TotalReps)

	assert.Equal(t, StatusGood, res.RepDetails[0].Status)
	assert.Equal(t, 95.0, res.RepDetails[0].MetricValue)

	assert.Equal(t, StatusBad, res.RepDetails[1].Status)
	assert.Equal(t, 60.0, res.RepDetails[1].MetricValue)
	feedback := strings.ToLower(res.RepDetails[1].Feedback)
	assert.Contains(t, feedback, "too deep")
	assert.Contains(t, feedback, "did not lock out")
}
