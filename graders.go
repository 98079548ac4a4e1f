package repcheck

import (
	"fmt"
	"strings"
)

// Verdict is a grader's decision for one closed rep window.
type Verdict struct {
	Status   RepStatus
	Metric   float64
	Feedback string
}

// GradeFunc grades a closed window. It returns false when the window holds
// nothing to grade, in which case no rep is counted.
type GradeFunc func(w *RepWindow) (Verdict, bool)

func verdict(metric float64, issues []string, praise string) Verdict {
	if len(issues) > 0 {
		return Verdict{Status: StatusBad, Metric: metric, Feedback: strings.Join(issues, " ")}
	}
	return Verdict{Status: StatusGood, Metric: metric, Feedback: praise}
}

// lastReading returns secondary channel i of the window's closing frame.
func lastReading(w *RepWindow, i int) Reading {
	if i < 0 || i >= len(w.Last.Secondary) {
		return Reading{}
	}
	return w.Last.Secondary[i]
}

// gradePushup reduces the flare samples to their median.
func gradePushup(th Thresholds) GradeFunc {
	return func(w *RepWindow) (Verdict, bool) {
		flares := w.Channel(0)
		if len(flares) == 0 {
			return Verdict{}, false
		}
		flare := median(flares)
		var issues []string
		if flare > th.PushupFlareMaxDeg {
			issues = append(issues, fmt.Sprintf(
				"Elbow flare too wide (%.1f° > %g°). Keep elbows closer to your body.",
				round1(flare), th.PushupFlareMaxDeg,
			))
		}
		return verdict(flare, issues, "Good form: elbows tucked properly."), true
	}
}

// gradePullup passes when the chin cleared the shoulder line at any frame of
// the rep.
func gradePullup() GradeFunc {
	return func(w *RepWindow) (Verdict, bool) {
		cleared := maxValue(w.Channel(0)) >= 1
		if !cleared {
			return verdict(0, []string{"Chin did not clear bar height. Pull higher."}, ""), true
		}
		return verdict(1, nil, "Chin cleared the bar: full range of motion."), true
	}
}

// gradeBench checks bottom depth from the minimum elbow angle and lockout
// from the elbow angle of the frame that completed the press.
func gradeBench(th Thresholds) GradeFunc {
	return func(w *RepWindow) (Verdict, bool) {
		bottom := minValue(w.Channel(0))
		var issues []string
		switch {
		case bottom < th.BenchDepthMinDeg:
			issues = append(issues, fmt.Sprintf(
				"Went too deep (%.1f°). Stay within %g-%g° at the bottom.",
				round1(bottom), th.BenchDepthMinDeg, th.BenchDepthMaxDeg,
			))
		case bottom > th.BenchDepthMaxDeg:
			issues = append(issues, fmt.Sprintf(
				"Insufficient depth (%.1f°). Lower the bar more.", round1(bottom),
			))
		}
		final := lastReading(w, 0)
		if !final.Valid || final.Value <= th.BenchLockoutDeg {
			issues = append(issues, "Did not lock out fully at the top.")
		}
		return verdict(bottom, issues, "Good depth and full lockout."), true
	}
}

// gradeCurl checks range of motion and upper-arm stability.
func gradeCurl(th Thresholds) GradeFunc {
	return func(w *RepWindow) (Verdict, bool) {
		elbow := w.Channel(0)
		rom := maxValue(elbow) - minValue(elbow)
		var issues []string
		if rom < th.CurlMinROMDeg {
			issues = append(issues, fmt.Sprintf(
				"Limited range of motion (%.1f°). Extend fully and curl completely.", round1(rom),
			))
		}
		if swing := w.Channel(1); len(swing) > 0 && stddev(swing) > th.CurlMaxUpperArmStdDeg {
			issues = append(issues, "Upper arm swinging. Keep your elbow pinned to your side.")
		}
		return verdict(rom, issues, "Good range of motion and stable upper arm."), true
	}
}

// gradeCrunch checks peak trunk lift and the neck distance at the close of
// the rep.
func gradeCrunch(th Thresholds) GradeFunc {
	return func(w *RepWindow) (Verdict, bool) {
		lift := maxValue(w.Channel(0))
		var issues []string
		switch {
		case lift < th.CrunchLiftMinDeg:
			issues = append(issues, fmt.Sprintf(
				"Insufficient lift (%.1f°). Curl your torso up more.", round1(lift),
			))
		case lift > th.CrunchLiftMaxDeg:
			issues = append(issues, fmt.Sprintf(
				"Over-flexion (%.1f°). You're doing a sit-up, not a crunch.", round1(lift),
			))
		}
		if neck := lastReading(w, 1); neck.Valid && neck.Value > th.CrunchNeckMaxPx {
			issues = append(issues, "Neck strained. Keep your gaze upward and don't pull your head forward.")
		}
		return verdict(lift, issues, "Good crunch form: proper lift and neutral neck."), true
	}
}
