//go:build js

package pipeline

import "errors"

var errParquetUnsupported = errors.New("parquet output is not available in the browser build; use format=csv")

func writeRepDetailsParquet(string, []RepDetailRow) error {
	return errParquetUnsupported
}

func writeFrameSignalsParquet(string, []FrameSignalRow) error {
	return errParquetUnsupported
}

func marshalRepDetailsParquet([]RepDetailRow) ([]byte, error) {
	return nil, errParquetUnsupported
}

func marshalFrameSignalsParquet([]FrameSignalRow) ([]byte, error) {
	return nil, errParquetUnsupported
}
