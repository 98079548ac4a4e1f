//go:build js && wasm

package main

import (
	"archive/zip"
	"bytes"
	"fmt"
	"sort"
	"syscall/js"
	"time"

	"github.com/lucasjlepore/rep-analyzer/pipeline"
)

func main() {
	js.Global().Set("analyzeReps", js.FuncOf(analyzeReps))
	select {}
}

func analyzeReps(_ js.Value, args []js.Value) any {
	if len(args) < 2 {
		return failure("expected arguments: framesBytes(Uint8Array), options(object)")
	}
	fileArg := args[0]
	optsArg := args[1]
	if fileArg.IsUndefined() || fileArg.IsNull() || fileArg.Get("length").Int() == 0 {
		return failure("frames bytes are required")
	}

	data := make([]byte, fileArg.Get("length").Int())
	if n := js.CopyBytesToGo(data, fileArg); n == 0 {
		return failure("failed to read frames bytes from JS input")
	}

	exercise := getString(optsArg, "exercise", "")
	if exercise == "" {
		return failure("options.exercise is required")
	}

	result, err := pipeline.RunBytes(pipeline.BytesOptions{
		SourceFileName: getString(optsArg, "source_file_name", "frames.jsonl"),
		FramesData:     data,
		Exercise:       exercise,
		// parquet is not built for js
		Format: getString(optsArg, "format", "csv"),
		Stride: int(getFloat(optsArg, "stride")),
		FPS:    getFloat(optsArg, "fps"),
	})
	if err != nil {
		return failure(err.Error())
	}

	zipBytes, err := zipArtifacts(result.Files)
	if err != nil {
		return failure(fmt.Sprintf("create zip: %v", err))
	}
	payload := js.Global().Get("Uint8Array").New(len(zipBytes))
	js.CopyBytesToJS(payload, zipBytes)

	fileNames := make([]string, 0, len(result.Files))
	for name := range result.Files {
		fileNames = append(fileNames, name)
	}
	sort.Strings(fileNames)

	return map[string]any{
		"ok":         true,
		"run_id":     result.RunID,
		"total_reps": result.Analysis.TotalReps,
		"good_reps":  result.Analysis.GoodReps,
		"bad_reps":   result.Analysis.BadReps,
		"suggestion": result.Analysis.LoadSuggestion,
		"zip":        payload,
		"warnings":   stringsToAny(result.Warnings),
		"files":      stringsToAny(fileNames),
	}
}

func failure(msg string) map[string]any {
	return map[string]any{
		"ok":    false,
		"error": msg,
	}
}

func zipArtifacts(files map[string][]byte) ([]byte, error) {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	epoch := time.Unix(0, 0).UTC()

	for _, name := range names {
		h := &zip.FileHeader{Name: name, Method: zip.Deflate}
		h.SetModTime(epoch)
		w, err := zw.CreateHeader(h)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(files[name]); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func getString(v js.Value, key, fallback string) string {
	if v.IsUndefined() || v.IsNull() {
		return fallback
	}
	out := v.Get(key)
	if out.IsUndefined() || out.IsNull() || out.Type() != js.TypeString {
		return fallback
	}
	if s := out.String(); s != "" {
		return s
	}
	return fallback
}

func getFloat(v js.Value, key string) float64 {
	if v.IsUndefined() || v.IsNull() {
		return 0
	}
	out := v.Get(key)
	if out.IsUndefined() || out.IsNull() || out.Type() != js.TypeNumber {
		return 0
	}
	return out.Float()
}

func stringsToAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
