package repcheck

import (
	"fmt"
	"math"
	"strings"
)

// Suggest maps the good/total ratio of a set to a load-adjustment tier. The
// exercise name does not change the text.
func Suggest(_ string, goodReps, totalReps int) string {
	if totalReps <= 0 {
		return "No reps detected. Try recording from the recommended angle with better lighting."
	}
	if goodReps < 0 {
		goodReps = 0
	}
	if goodReps > totalReps {
		goodReps = totalReps
	}
	ratio := float64(goodReps) / float64(totalReps)
	switch {
	case goodReps == totalReps:
		return fmt.Sprintf("Excellent form on all %d reps! Consider increasing weight or reps for progressive overload.", totalReps)
	case ratio >= 0.75:
		return fmt.Sprintf("Good form on %d/%d reps. Maintain current load and focus on perfecting the remaining reps.", goodReps, totalReps)
	case ratio >= 0.5:
		return fmt.Sprintf("Form broke down on %d reps. Consider reducing weight by 5-10%% to build better movement patterns.", totalReps-goodReps)
	default:
		return fmt.Sprintf("Only %d/%d reps had good form. Reduce the load significantly and focus on controlled, quality reps.", goodReps, totalReps)
	}
}

// WithSuggestion returns a copy of the result with its load suggestion set.
func WithSuggestion(exercise string, res AnalysisResult) AnalysisResult {
	res.LoadSuggestion = Suggest(exercise, res.GoodReps, res.TotalReps)
	return res
}

// BuildReport renders a session as a plain-text coaching summary.
func BuildReport(exercise string, s *Session, suggestion string) string {
	if s == nil {
		return ""
	}
	res := s.Result

	var b strings.Builder
	fmt.Fprintf(&b, "Exercise: %s\n", exercise)
	fmt.Fprintf(
		&b,
		"Reps %d | Good %d | Bad %d | Frames %d analyzed / %d skipped\n",
		res.TotalReps,
		res.GoodReps,
		res.BadReps,
		s.FramesSeen-s.FramesSkipped,
		s.FramesSkipped,
	)

	if len(res.RepDetails) > 0 {
		b.WriteString("\nRep Breakdown\n")
		for i, rep := range res.RepDetails {
			dur := ""
			if i < len(s.Windows) {
				dur = " in " + formatDuration(s.Windows[i].DurationS())
			}
			fmt.Fprintf(
				&b,
				"- Rep %d [%s] metric %.1f%s: %s\n",
				rep.Rep,
				rep.Status,
				rep.MetricValue,
				dur,
				rep.Feedback,
			)
		}
	}

	set := SummarizeSet(s)
	if set.Reps >= 2 {
		b.WriteString("\nSet Structure\n")
		fmt.Fprintf(
			&b,
			"- Rep duration %s avg (±%.2fs), tempo drift %+.1f%% first to last rep.\n",
			formatDuration(set.MeanDurationS),
			set.StdDurationS,
			set.TempoDriftPct,
		)
		fmt.Fprintf(&b, "- Metric drift %+.1f first to last rep.\n", set.MetricDrift)
		fmt.Fprintf(&b, "- Longest good-rep streak: %d.\n", set.LongestGoodStreak)
		if set.FatigueOnset > 0 {
			fmt.Fprintf(&b, "- Form first broke down on rep %d after a clean start.\n", set.FatigueOnset)
		}
	}

	if suggestion != "" {
		b.WriteString("\nLoad Suggestion\n- ")
		b.WriteString(suggestion)
		b.WriteByte('\n')
	}

	return strings.TrimSpace(b.String())
}

func formatDuration(seconds float64) string {
	if seconds <= 0 || math.IsNaN(seconds) {
		return "0s"
	}
	if seconds < 60 {
		return fmt.Sprintf("%.1fs", seconds)
	}
	s := int(math.Round(seconds))
	return fmt.Sprintf("%dm%02ds", s/60, s%60)
}
