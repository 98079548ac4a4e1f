//go:build !js

package pipeline

import (
	"math"

	parquetbuffer "github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"
)

type repDetailParquetRow struct {
	Rep         int64   `parquet:"name=rep, type=INT64"`
	Status      string  `parquet:"name=status, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	MetricValue float64 `parquet:"name=metric_value, type=DOUBLE"`
	Feedback    string  `parquet:"name=feedback, type=BYTE_ARRAY, convertedtype=UTF8"`
	StartFrame  int64   `parquet:"name=start_frame, type=INT64"`
	EndFrame    int64   `parquet:"name=end_frame, type=INT64"`
	StartTimeS  float64 `parquet:"name=start_time_s, type=DOUBLE"`
	EndTimeS    float64 `parquet:"name=end_time_s, type=DOUBLE"`
	DurationS   float64 `parquet:"name=duration_s, type=DOUBLE"`
	Frames      int64   `parquet:"name=frames, type=INT64"`
}

type frameSignalParquetRow struct {
	Frame          int64   `parquet:"name=frame, type=INT64"`
	TimeS          float64 `parquet:"name=t, type=DOUBLE"`
	Primary        float64 `parquet:"name=primary, type=DOUBLE"`
	Phase          string  `parquet:"name=phase, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	EnterThreshold float64 `parquet:"name=enter_threshold, type=DOUBLE"`
	ExitThreshold  float64 `parquet:"name=exit_threshold, type=DOUBLE"`
	Secondary1     float64 `parquet:"name=secondary_1, type=DOUBLE"`
	Secondary2     float64 `parquet:"name=secondary_2, type=DOUBLE"`
	Valid1         bool    `parquet:"name=valid_1, type=BOOLEAN"`
	Valid2         bool    `parquet:"name=valid_2, type=BOOLEAN"`
}

func toRepDetailParquet(rows []RepDetailRow) []repDetailParquetRow {
	out := make([]repDetailParquetRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, repDetailParquetRow{
			Rep:         int64(r.Rep),
			Status:      r.Status,
			MetricValue: r.MetricValue,
			Feedback:    r.Feedback,
			StartFrame:  int64(r.StartFrame),
			EndFrame:    int64(r.EndFrame),
			StartTimeS:  r.StartTimeS,
			EndTimeS:    r.EndTimeS,
			DurationS:   r.DurationS,
			Frames:      int64(r.Frames),
		})
	}
	return out
}

func toFrameSignalParquet(rows []FrameSignalRow) []frameSignalParquetRow {
	out := make([]frameSignalParquetRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, frameSignalParquetRow{
			Frame:          int64(r.Frame),
			TimeS:          r.TimeS,
			Primary:        r.Primary,
			Phase:          r.Phase,
			EnterThreshold: r.EnterThreshold,
			ExitThreshold:  r.ExitThreshold,
			Secondary1:     valueOrNaN(r.Secondary1),
			Secondary2:     valueOrNaN(r.Secondary2),
			Valid1:         r.Secondary1 != nil,
			Valid2:         r.Secondary2 != nil,
		})
	}
	return out
}

func writeParquetRows[T any](fw source.ParquetFile, rows []T) error {
	pw, err := writer.NewParquetWriter(fw, new(T), 4)
	if err != nil {
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			return err
		}
	}
	return pw.WriteStop()
}

func writeParquetFile[T any](path string, rows []T) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return err
	}
	if err := writeParquetRows(fw, rows); err != nil {
		_ = fw.Close()
		return err
	}
	return fw.Close()
}

func marshalParquet[T any](rows []T) ([]byte, error) {
	fw := parquetbuffer.NewBufferFile()
	if err := writeParquetRows(fw, rows); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return append([]byte(nil), fw.Bytes()...), nil
}

func writeRepDetailsParquet(path string, rows []RepDetailRow) error {
	return writeParquetFile(path, toRepDetailParquet(rows))
}

func writeFrameSignalsParquet(path string, rows []FrameSignalRow) error {
	return writeParquetFile(path, toFrameSignalParquet(rows))
}

func marshalRepDetailsParquet(rows []RepDetailRow) ([]byte, error) {
	return marshalParquet(toRepDetailParquet(rows))
}

func marshalFrameSignalsParquet(rows []FrameSignalRow) ([]byte, error) {
	return marshalParquet(toFrameSignalParquet(rows))
}

func valueOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
