package pipeline

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	repcheck "github.com/lucasjlepore/rep-analyzer"
	"github.com/tormoder/fit"
)

// encodeActivity renders a session as a FIT activity: one strength-training
// session with one lap per graded rep. Lap times are stream offsets from
// start.
func encodeActivity(s *repcheck.Session, start time.Time) ([]byte, error) {
	header := fit.NewHeader(fit.V20, true)
	file, err := fit.NewFile(fit.FileTypeActivity, header)
	if err != nil {
		return nil, fmt.Errorf("new fit file: %w", err)
	}
	activity, err := file.Activity()
	if err != nil {
		return nil, fmt.Errorf("activity accessor: %w", err)
	}

	start = start.UTC().Truncate(time.Second)
	end := start.Add(secondsToDuration(streamDuration(s)))

	begin := fit.NewEventMsg()
	begin.Timestamp = start
	begin.Event = fit.EventTimer
	begin.EventType = fit.EventTypeStart
	activity.Events = append(activity.Events, begin)

	for i, w := range s.Windows {
		lap := fit.NewLapMsg()
		lap.StartTime = start.Add(secondsToDuration(w.StartTimeS))
		lap.Timestamp = start.Add(secondsToDuration(w.EndTimeS))
		lap.TotalElapsedTime = scaledMillis(w.DurationS())
		lap.TotalTimerTime = scaledMillis(w.DurationS())
		lap.Event = fit.EventLap
		lap.EventType = fit.EventTypeStop
		lap.Sport = fit.SportTraining
		lap.SubSport = fit.SubSportStrengthTraining
		lap.TotalCycles = 1
		if i < len(s.Result.RepDetails) && s.Result.RepDetails[i].Status == repcheck.StatusGood {
			lap.Intensity = fit.IntensityActive
		} else {
			lap.Intensity = fit.IntensityRest
		}
		activity.Laps = append(activity.Laps, lap)
	}

	session := fit.NewSessionMsg()
	session.StartTime = start
	session.Timestamp = end
	session.TotalElapsedTime = scaledMillis(streamDuration(s))
	session.TotalTimerTime = scaledMillis(streamDuration(s))
	session.Sport = fit.SportTraining
	session.SubSport = fit.SubSportStrengthTraining
	session.Event = fit.EventSession
	session.EventType = fit.EventTypeStop
	session.NumLaps = uint16(len(activity.Laps))
	session.TotalCycles = uint32(s.Result.TotalReps)
	activity.Sessions = append(activity.Sessions, session)

	stop := fit.NewEventMsg()
	stop.Timestamp = end
	stop.Event = fit.EventTimer
	stop.EventType = fit.EventTypeStop
	activity.Events = append(activity.Events, stop)

	var buf bytes.Buffer
	if err := fit.Encode(&buf, file, binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("encode fit: %w", err)
	}
	return buf.Bytes(), nil
}

// streamDuration is the time of the last analyzed frame.
func streamDuration(s *repcheck.Session) float64 {
	if len(s.Trace) == 0 {
		return 0
	}
	return math.Max(0, s.Trace[len(s.Trace)-1].Signal.TimeS)
}

func secondsToDuration(seconds float64) time.Duration {
	if !(seconds > 0) {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

func scaledMillis(seconds float64) uint32 {
	if !(seconds > 0) {
		return 0
	}
	return uint32(math.Round(seconds * 1000))
}
