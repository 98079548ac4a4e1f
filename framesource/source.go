package framesource

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	repcheck "github.com/lucasjlepore/rep-analyzer"
	"go.uber.org/multierr"
)

// FormatVersion identifies the JSON Lines layout of a frames file: one
// repcheck.Frame object per line.
const FormatVersion = "rep_frames_jsonl_v1"

const maxLineBytes = 16 * 1024 * 1024

// Options controls how a frames file is replayed.
type Options struct {
	// Stride keeps frames whose 1-based index is a multiple of Stride.
	// Zero or one keeps every frame.
	Stride int

	// FPS fills in the timestamp of frames that carry none.
	FPS float64
}

// Source replays detector output from a JSON Lines stream.
type Source struct {
	scanner *bufio.Scanner
	closer  io.Closer
	opts    Options

	line    int
	read    int
	sampled int
	closed  bool
}

// Open opens a frames file. The caller owns the returned Source and must
// Close it.
func Open(path string, opts Options) (*Source, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("frames path is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frames file: %w", err)
	}
	return newSource(f, f, opts), nil
}

// NewReader replays frames from r. Closing the Source does not close r.
func NewReader(r io.Reader, opts Options) *Source {
	return newSource(r, nil, opts)
}

// FromBytes replays an in-memory frames file.
func FromBytes(data []byte, opts Options) *Source {
	return newSource(bytes.NewReader(data), nil, opts)
}

func newSource(r io.Reader, closer io.Closer, opts Options) *Source {
	sc := bufio.NewScanner(r)
	buf := make([]byte, 0, 1024*1024)
	sc.Buffer(buf, maxLineBytes)
	if opts.Stride < 1 {
		opts.Stride = 1
	}
	return &Source{scanner: sc, closer: closer, opts: opts}
}

// Next returns the next sampled frame, or io.EOF after the last one. A
// malformed line ends the stream with an error.
func (s *Source) Next() (repcheck.Frame, error) {
	if s.closed {
		return repcheck.Frame{}, io.EOF
	}
	for s.scanner.Scan() {
		s.line++
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var frame repcheck.Frame
		if err := json.Unmarshal(line, &frame); err != nil {
			return repcheck.Frame{}, fmt.Errorf("line %d: unmarshal frame: %w", s.line, err)
		}
		s.read++
		if frame.Index <= 0 {
			frame.Index = s.read
		}
		if frame.TimeS == 0 && s.opts.FPS > 0 {
			frame.TimeS = float64(frame.Index) / s.opts.FPS
		}
		if frame.Index%s.opts.Stride != 0 {
			continue
		}
		s.sampled++
		return frame, nil
	}
	if err := s.scanner.Err(); err != nil {
		return repcheck.Frame{}, fmt.Errorf("scan frames: %w", err)
	}
	return repcheck.Frame{}, io.EOF
}

// Close releases the underlying file. It is safe to call more than once.
func (s *Source) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// FramesRead counts frame lines decoded so far, sampled or not.
func (s *Source) FramesRead() int {
	return s.read
}

// FramesSampled counts frames returned by Next.
func (s *Source) FramesSampled() int {
	return s.sampled
}

// ReadAll drains a FrameSource and closes it.
func ReadAll(src repcheck.FrameSource) (frames []repcheck.Frame, err error) {
	defer func() {
		err = multierr.Append(err, src.Close())
	}()
	for {
		frame, nextErr := src.Next()
		if errors.Is(nextErr, io.EOF) {
			return frames, nil
		}
		if nextErr != nil {
			return nil, nextErr
		}
		frames = append(frames, frame)
	}
}
