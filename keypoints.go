package repcheck

import "io"

// Joint names a body joint in the detector's COCO-17 keypoint ordering.
type Joint int

const (
	Nose          Joint = 0
	LeftShoulder  Joint = 5
	RightShoulder Joint = 6
	LeftElbow     Joint = 7
	RightElbow    Joint = 8
	LeftWrist     Joint = 9
	RightWrist    Joint = 10
	LeftHip       Joint = 11
	RightHip      Joint = 12
	LeftKnee      Joint = 13
	RightKnee     Joint = 14
)

// Joints lists every joint a JointMap tracks.
var Joints = []Joint{
	Nose,
	LeftShoulder, RightShoulder,
	LeftElbow, RightElbow,
	LeftWrist, RightWrist,
	LeftHip, RightHip,
	LeftKnee, RightKnee,
}

const jointSlots = int(RightKnee) + 1

var jointNames = map[Joint]string{
	Nose:          "nose",
	LeftShoulder:  "left_shoulder",
	RightShoulder: "right_shoulder",
	LeftElbow:     "left_elbow",
	RightElbow:    "right_elbow",
	LeftWrist:     "left_wrist",
	RightWrist:    "right_wrist",
	LeftHip:       "left_hip",
	RightHip:      "right_hip",
	LeftKnee:      "left_knee",
	RightKnee:     "right_knee",
}

func (j Joint) String() string {
	if name, ok := jointNames[j]; ok {
		return name
	}
	return "unknown"
}

// Point is a 2D image-plane coordinate in pixels. Y grows downwards.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Detection is one candidate person returned by the pose detector.
// Keypoints are indexed by Joint.
type Detection struct {
	Confidence float64      `json:"confidence"`
	Keypoints  [][2]float64 `json:"keypoints"`
}

// Frame is the detector output for one decoded video frame.
type Frame struct {
	Index      int         `json:"frame"`
	TimeS      float64     `json:"t"`
	Detections []Detection `json:"detections"`
}

// FrameSource yields frames in stream order. Next returns io.EOF once the
// source is exhausted; any other error is an unrecoverable stream failure.
// The caller that opened a FrameSource owns it and must Close it.
type FrameSource interface {
	Next() (Frame, error)
	Close() error
}

// JointMap holds the joints of a single person. A joint is either present
// with a coordinate or absent; absent joints never read as zero.
type JointMap struct {
	points  [jointSlots]Point
	present [jointSlots]bool
}

// Get returns the joint coordinate and whether the joint was detected.
func (m JointMap) Get(j Joint) (Point, bool) {
	if j < 0 || int(j) >= jointSlots {
		return Point{}, false
	}
	return m.points[j], m.present[j]
}

// Set marks the joint present at p.
func (m *JointMap) Set(j Joint, p Point) {
	if j < 0 || int(j) >= jointSlots {
		return
	}
	m.points[j] = p
	m.present[j] = true
}

// Has reports whether every given joint is present.
func (m JointMap) Has(joints ...Joint) bool {
	for _, j := range joints {
		if _, ok := m.Get(j); !ok {
			return false
		}
	}
	return true
}

// Count returns the number of present joints.
func (m JointMap) Count() int {
	n := 0
	for _, j := range Joints {
		if m.present[j] {
			n++
		}
	}
	return n
}

// SelectPerson picks the most confident detection and maps its keypoints to
// joints. It returns false when there are no detections.
func SelectPerson(detections []Detection) (JointMap, bool) {
	if len(detections) == 0 {
		return JointMap{}, false
	}
	best := 0
	for i := 1; i < len(detections); i++ {
		if detections[i].Confidence > detections[best].Confidence {
			best = i
		}
	}

	var m JointMap
	kpts := detections[best].Keypoints
	for _, j := range Joints {
		idx := int(j)
		if idx >= len(kpts) {
			continue
		}
		x, y := kpts[idx][0], kpts[idx][1]
		if x == 0 || y == 0 || !isFinite(x) || !isFinite(y) {
			continue
		}
		m.Set(j, Point{X: x, Y: y})
	}
	return m, true
}

// SliceSource is an in-memory FrameSource.
type SliceSource struct {
	frames []Frame
	pos    int
	closed bool
}

func NewSliceSource(frames []Frame) *SliceSource {
	return &SliceSource{frames: frames}
}

func (s *SliceSource) Next() (Frame, error) {
	if s.closed || s.pos >= len(s.frames) {
		return Frame{}, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

func (s *SliceSource) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *SliceSource) Closed() bool {
	return s.closed
}
