package repcheck

import (
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// DefaultStride processes every third decoded frame.
const DefaultStride = 3

//go:generate mockgen -source=$GOFILE -destination=detector_mocks_test.go -package=repcheck_test

// VideoFrame is one decoded video frame.
type VideoFrame struct {
	TimeS float64
	Image image.Image
}

// VideoFrames is a decoded video stream. Next returns io.EOF after the last
// frame.
type VideoFrames interface {
	Next() (VideoFrame, error)
	Close() error
}

// Detector is the external pose model: zero or more candidate persons for
// one frame.
type Detector interface {
	Detect(img image.Image) ([]Detection, error)
}

// DetectedFrames adapts a video and a pose detector into a FrameSource that
// runs the detector on every stride-th frame (1-based). A stride below 1 uses
// DefaultStride. Closing the source closes the video.
func DetectedFrames(video VideoFrames, det Detector, stride int, logger logrus.FieldLogger) *DetectorSource {
	if stride < 1 {
		stride = DefaultStride
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &DetectorSource{
		video:    video,
		detector: det,
		stride:   stride,
		logger:   logger,
	}
}

// RunVideo analyzes a decoded video through det. The video is closed on
// every return path and a close failure is reported with the run error.
func (a *Analyzer) RunVideo(exercise string, video VideoFrames, det Detector, stride int) (session *Session, err error) {
	src := DetectedFrames(video, det, stride, a.logger)
	defer func() {
		if cerr := src.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close video: %w", cerr))
			session = nil
		}
	}()

	session, err = a.Run(exercise, src)
	if err != nil {
		return nil, err
	}
	if failures := src.DetectorFailures(); failures > 0 {
		a.logger.WithFields(logrus.Fields{
			"exercise": exercise,
			"decoded":  src.DecodedFrames(),
			"failures": failures,
		}).Warn("pose detection failed on some frames")
	}
	return session, nil
}

// DetectorSource is the FrameSource returned by DetectedFrames.
type DetectorSource struct {
	video    VideoFrames
	detector Detector
	stride   int
	logger   logrus.FieldLogger

	decoded  int
	failures int
	closed   bool
}

func (s *DetectorSource) Next() (Frame, error) {
	if s.closed {
		return Frame{}, io.EOF
	}
	for {
		vf, err := s.video.Next()
		if errors.Is(err, io.EOF) {
			return Frame{}, io.EOF
		}
		if err != nil {
			return Frame{}, fmt.Errorf("decode frame %d: %w", s.decoded+1, err)
		}
		s.decoded++
		if s.decoded%s.stride != 0 {
			continue
		}

		frame := Frame{Index: s.decoded, TimeS: vf.TimeS}
		detections, err := s.detector.Detect(vf.Image)
		if err != nil {
			s.failures++
			s.logger.WithError(err).WithField("frame", s.decoded).Warn("pose detection failed, frame skipped")
			return frame, nil
		}
		frame.Detections = detections
		return frame, nil
	}
}

// Close releases the underlying video. It is safe to call more than once.
func (s *DetectorSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.video.Close()
}

// DecodedFrames is the number of frames read from the video so far.
func (s *DetectorSource) DecodedFrames() int {
	return s.decoded
}

// DetectorFailures counts frames whose detection call returned an error.
func (s *DetectorSource) DetectorFailures() int {
	return s.failures
}
