package repcheck

const setStructureSchemaVersion = "set_structure_v1"

// SetStructure summarizes how a set unfolded across its reps.
type SetStructure struct {
	SchemaVersion     string           `json:"schema_version"`
	Reps              int              `json:"reps"`
	MeanDurationS     float64          `json:"mean_duration_s"`
	StdDurationS      float64          `json:"std_duration_s"`
	TempoDriftPct     float64          `json:"tempo_drift_pct"`
	MetricDrift       float64          `json:"metric_drift"`
	LongestGoodStreak int              `json:"longest_good_streak"`
	FatigueOnset      int              `json:"fatigue_onset_rep,omitempty"`
	RepsDetail        []SetRepDetail   `json:"reps_detail,omitempty"`
	Blocks            []SetStatusBlock `json:"blocks,omitempty"`
}

// SetRepDetail stores timing for one graded rep.
type SetRepDetail struct {
	Rep        int       `json:"rep"`
	Status     RepStatus `json:"status"`
	StartFrame int       `json:"start_frame"`
	EndFrame   int       `json:"end_frame"`
	DurationS  float64   `json:"duration_s"`
	// VsMeanPct compares this rep's duration with the set mean.
	VsMeanPct float64 `json:"vs_mean_pct"`
	Metric    float64 `json:"metric_value"`
}

// SetStatusBlock is a run of consecutive reps with the same status.
type SetStatusBlock struct {
	Status   RepStatus `json:"status"`
	StartRep int       `json:"start_rep"`
	EndRep   int       `json:"end_rep"`
}

// SummarizeSet derives tempo and form trends from a session's graded windows.
func SummarizeSet(s *Session) SetStructure {
	ss := SetStructure{SchemaVersion: setStructureSchemaVersion}
	if s == nil {
		return ss
	}
	details := s.Result.RepDetails
	n := len(details)
	if len(s.Windows) < n {
		n = len(s.Windows)
	}
	ss.Reps = n
	if n == 0 {
		return ss
	}

	durations := make([]float64, 0, n)
	metrics := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		durations = append(durations, s.Windows[i].DurationS())
		metrics = append(metrics, details[i].MetricValue)
	}
	ss.MeanDurationS = average(durations)
	ss.StdDurationS = stddev(durations)
	ss.TempoDriftPct = pctChange(firstValue(durations), lastValue(durations))
	ss.MetricDrift = round1(lastValue(metrics) - firstValue(metrics))

	for i := 0; i < n; i++ {
		w := s.Windows[i]
		d := SetRepDetail{
			Rep:        details[i].Rep,
			Status:     details[i].Status,
			StartFrame: w.StartFrame,
			EndFrame:   w.EndFrame,
			DurationS:  w.DurationS(),
			Metric:     details[i].MetricValue,
		}
		if ss.MeanDurationS > 0 {
			d.VsMeanPct = pctChange(ss.MeanDurationS, d.DurationS)
		}
		ss.RepsDetail = append(ss.RepsDetail, d)
	}

	streak := 0
	for i, d := range details[:n] {
		if d.Status == StatusGood {
			streak++
			if streak > ss.LongestGoodStreak {
				ss.LongestGoodStreak = streak
			}
		} else {
			streak = 0
			if ss.FatigueOnset == 0 && i > 0 && details[i-1].Status == StatusGood && details[0].Status == StatusGood {
				ss.FatigueOnset = d.Rep
			}
		}

		last := len(ss.Blocks) - 1
		if last >= 0 && ss.Blocks[last].Status == d.Status {
			ss.Blocks[last].EndRep = d.Rep
			continue
		}
		ss.Blocks = append(ss.Blocks, SetStatusBlock{Status: d.Status, StartRep: d.Rep, EndRep: d.Rep})
	}

	return ss
}
