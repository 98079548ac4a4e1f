package pipeline

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"strconv"
)

var (
	repDetailsHeader = []string{
		"rep", "status", "metric_value", "feedback", "start_frame", "end_frame",
		"start_time_s", "end_time_s", "duration_s", "frames",
	}
	frameSignalsHeader = []string{
		"frame", "t", "primary", "phase", "enter_threshold", "exit_threshold", "secondary_1", "secondary_2",
	}
)

func encodeRepDetailsCSV(w io.Writer, rows []RepDetailRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(repDetailsHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			strconv.Itoa(r.Rep),
			r.Status,
			formatFloat(r.MetricValue),
			r.Feedback,
			strconv.Itoa(r.StartFrame),
			strconv.Itoa(r.EndFrame),
			formatFloat(r.StartTimeS),
			formatFloat(r.EndTimeS),
			formatFloat(r.DurationS),
			strconv.Itoa(r.Frames),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func encodeFrameSignalsCSV(w io.Writer, rows []FrameSignalRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(frameSignalsHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			strconv.Itoa(r.Frame),
			formatFloat(r.TimeS),
			formatFloat(r.Primary),
			r.Phase,
			formatFloat(r.EnterThreshold),
			formatFloat(r.ExitThreshold),
			formatFloatPtr(r.Secondary1),
			formatFloatPtr(r.Secondary2),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeCSVFile(path string, encode func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encode(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func marshalCSV(encode func(io.Writer) error) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
