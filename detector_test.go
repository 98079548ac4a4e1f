package repcheck_test

import (
	"errors"
	"image"
	"io"
	"testing"

	repcheck "github.com/lucasjlepore/rep-analyzer"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestDetectedFrames_Stride(t *testing.T) {
	ctrl := gomock.NewController(t)
	video := NewMockVideoFrames(ctrl)
	detector := NewMockDetector(ctrl)

	img := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := 1; i <= 7; i++ {
		video.EXPECT().Next().Return(repcheck.VideoFrame{TimeS: float64(i) / 30, Image: img}, nil)
	}
	video.EXPECT().Next().Return(repcheck.VideoFrame{}, io.EOF)
	video.EXPECT().Close().Return(nil).Times(1)

	person := []repcheck.Detection{{Confidence: 0.9, Keypoints: make([][2]float64, 17)}}
	detector.EXPECT().Detect(img).Return(person, nil).Times(2)

	logger, _ := test.NewNullLogger()
	src := repcheck.DetectedFrames(video, detector, 0, logger)

	f, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, 3, f.Index)
	assert.InDelta(t, 0.1, f.TimeS, 1e-9)
	assert.Len(t, f.Detections, 1)

	f, err = src.Next()
	require.NoError(t, err)
	assert.Equal(t, 6, f.Index)

	_, err = src.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 7, src.DecodedFrames())

	require.NoError(t, src.Close())
	require.NoError(t, src.Close())
	_, err = src.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDetectedFrames_DetectorFailureSkipsFrame(t *testing.T) {
	ctrl := gomock.NewController(t)
	video := NewMockVideoFrames(ctrl)
	detector := NewMockDetector(ctrl)

	gomock.InOrder(
		video.EXPECT().Next().Return(repcheck.VideoFrame{TimeS: 0.1}, nil),
		video.EXPECT().Next().Return(repcheck.VideoFrame{}, io.EOF),
	)
	detector.EXPECT().Detect(gomock.Any()).Return(nil, errors.New("model crashed"))

	logger, hook := test.NewNullLogger()
	src := repcheck.DetectedFrames(video, detector, 1, logger)

	f, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, 1, f.Index)
	assert.Empty(t, f.Detections)
	assert.Equal(t, 1, src.DetectorFailures())
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "pose detection failed, frame skipped", hook.LastEntry().Message)

	// the run treats the frame as having no person
	session, err := repcheck.NewAnalyzer(repcheck.DefaultRegistry(), repcheck.WithLogger(logger)).Run("curls", repcheck.NewSliceSource([]repcheck.Frame{f}))
	require.NoError(t, err)
	assert.Equal(t, 1, session.FramesSkipped)

	_, err = src.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDetectedFrames_DecodeError(t *testing.T) {
	ctrl := gomock.NewController(t)
	video := NewMockVideoFrames(ctrl)
	detector := NewMockDetector(ctrl)

	decodeErr := errors.New("corrupt packet")
	video.EXPECT().Next().Return(repcheck.VideoFrame{}, decodeErr)
	video.EXPECT().Close().Return(nil)

	src := repcheck.DetectedFrames(video, detector, 2, nil)
	defer src.Close()

	session, err := repcheck.NewAnalyzer(repcheck.DefaultRegistry()).Run("push-ups", src)
	assert.Nil(t, session)
	assert.ErrorIs(t, err, decodeErr)
	assert.Contains(t, err.Error(), "decode frame 1")
}

func TestRunVideo_ClosesVideo(t *testing.T) {
	ctrl := gomock.NewController(t)
	video := NewMockVideoFrames(ctrl)
	detector := NewMockDetector(ctrl)

	video.EXPECT().Next().Return(repcheck.VideoFrame{TimeS: 0.1}, nil)
	video.EXPECT().Next().Return(repcheck.VideoFrame{}, io.EOF)
	video.EXPECT().Close().Return(nil).Times(1)
	detector.EXPECT().Detect(gomock.Any()).Return(nil, nil)

	logger, _ := test.NewNullLogger()
	session, err := repcheck.NewAnalyzer(repcheck.DefaultRegistry(), repcheck.WithLogger(logger)).
		RunVideo("curls", video, detector, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, session.FramesSeen)
	assert.Equal(t, 1, session.FramesSkipped)
	assert.Zero(t, session.Result.TotalReps)
}

func TestRunVideo_ClosesVideoOnError(t *testing.T) {
	testCases := []struct {
		name     string
		exercise string
		setup    func(video *MockVideoFrames)
		wantErr  error
	}{
		{
			name:     "UnknownExercise",
			exercise: "squats",
			setup:    func(*MockVideoFrames) {},
			wantErr:  repcheck.ErrUnknownExercise,
		},
		{
			name:     "DecodeError",
			exercise: "push-ups",
			setup: func(video *MockVideoFrames) {
				video.EXPECT().Next().Return(repcheck.VideoFrame{}, io.ErrUnexpectedEOF)
			},
			wantErr: io.ErrUnexpectedEOF,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			video := NewMockVideoFrames(ctrl)
			detector := NewMockDetector(ctrl)
			tc.setup(video)
			video.EXPECT().Close().Return(nil).Times(1)

			logger, _ := test.NewNullLogger()
			session, err := repcheck.NewAnalyzer(repcheck.DefaultRegistry(), repcheck.WithLogger(logger)).
				RunVideo(tc.exercise, video, detector, 1)
			assert.Nil(t, session)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestRunVideo_CloseError(t *testing.T) {
	ctrl := gomock.NewController(t)
	video := NewMockVideoFrames(ctrl)
	detector := NewMockDetector(ctrl)

	closeErr := errors.New("release failed")
	video.EXPECT().Next().Return(repcheck.VideoFrame{}, io.EOF)
	video.EXPECT().Close().Return(closeErr)

	logger, _ := test.NewNullLogger()
	session, err := repcheck.NewAnalyzer(repcheck.DefaultRegistry(), repcheck.WithLogger(logger)).
		RunVideo("bench press", video, detector, 3)
	assert.Nil(t, session)
	assert.ErrorIs(t, err, closeErr)
	assert.Contains(t, err.Error(), "close video")
}
