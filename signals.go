package repcheck

import "math"

// Reading is an optional scalar measurement.
type Reading struct {
	Value float64 `json:"value"`
	Valid bool    `json:"valid"`
}

func valid(v float64) Reading {
	return Reading{Value: v, Valid: true}
}

// FrameSignal is what one frame contributes to a run: the primary signal that
// drives phase detection and the exercise-defined secondary readings used for
// grading.
type FrameSignal struct {
	Frame     int       `json:"frame"`
	TimeS     float64   `json:"t"`
	Primary   float64   `json:"primary"`
	Secondary []Reading `json:"secondary"`
}

// SignalExtractor derives a FrameSignal from one frame's joints. It returns
// false when the joints needed for the primary signal are missing.
type SignalExtractor func(JointMap) (FrameSignal, bool)

type armSide struct {
	shoulder, elbow, wrist, hip Joint
}

var (
	leftArm  = armSide{shoulder: LeftShoulder, elbow: LeftElbow, wrist: LeftWrist, hip: LeftHip}
	rightArm = armSide{shoulder: RightShoulder, elbow: RightElbow, wrist: RightWrist, hip: RightHip}
	bothArms = []armSide{leftArm, rightArm}
)

func (s armSide) armVisible(m JointMap) bool {
	return m.Has(s.shoulder, s.elbow, s.wrist)
}

func (s armSide) elbowAngle(m JointMap) float64 {
	sh, _ := m.Get(s.shoulder)
	el, _ := m.Get(s.elbow)
	wr, _ := m.Get(s.wrist)
	return AngleAtVertex(sh, el, wr)
}

// upperArmAngle is the hip-shoulder-elbow angle.
func (s armSide) upperArmAngle(m JointMap) (float64, bool) {
	if !m.Has(s.hip, s.shoulder, s.elbow) {
		return 0, false
	}
	hip, _ := m.Get(s.hip)
	sh, _ := m.Get(s.shoulder)
	el, _ := m.Get(s.elbow)
	return AngleAtVertex(hip, sh, el), true
}

func meanCoord(m JointMap, joints []Joint, coord func(Point) float64) (float64, bool) {
	values := make([]float64, 0, len(joints))
	for _, j := range joints {
		if p, ok := m.Get(j); ok {
			values = append(values, coord(p))
		}
	}
	if len(values) == 0 {
		return 0, false
	}
	return average(values), true
}

func pointX(p Point) float64 { return p.X }
func pointY(p Point) float64 { return p.Y }

var (
	shoulders     = []Joint{LeftShoulder, RightShoulder}
	hips          = []Joint{LeftHip, RightHip}
	pushupTorsoJs = []Joint{LeftShoulder, RightShoulder, LeftElbow, RightElbow, LeftHip, RightHip}
)

// pushupSignal: primary is the mean Y of visible shoulders, elbows and hips;
// the single secondary is the elbow flare angle averaged over the sides whose
// angle exceeds minFlare.
func pushupSignal(minFlare float64) SignalExtractor {
	return func(m JointMap) (FrameSignal, bool) {
		torsoY, ok := meanCoord(m, pushupTorsoJs, pointY)
		if !ok {
			return FrameSignal{}, false
		}

		flares := make([]float64, 0, 2)
		for _, side := range bothArms {
			if a, ok := side.upperArmAngle(m); ok && a > minFlare {
				flares = append(flares, a)
			}
		}
		flare := Reading{}
		if len(flares) > 0 {
			flare = valid(average(flares))
		}
		return FrameSignal{Primary: torsoY, Secondary: []Reading{flare}}, true
	}
}

// pullupSignal: primary is nose Y; the secondary is 1 when the nose is above
// the mean shoulder line and 0 otherwise, absent without shoulders.
func pullupSignal() SignalExtractor {
	return func(m JointMap) (FrameSignal, bool) {
		nose, ok := m.Get(Nose)
		if !ok {
			return FrameSignal{}, false
		}
		chin := Reading{}
		if shoulderY, ok := meanCoord(m, shoulders, pointY); ok {
			chin = valid(0)
			if nose.Y < shoulderY {
				chin = valid(1)
			}
		}
		return FrameSignal{Primary: nose.Y, Secondary: []Reading{chin}}, true
	}
}

// benchSignal: primary is the mean wrist Y of fully visible arms; the
// secondary is their mean elbow angle.
func benchSignal() SignalExtractor {
	return func(m JointMap) (FrameSignal, bool) {
		var wristYs, angles []float64
		for _, side := range bothArms {
			if !side.armVisible(m) {
				continue
			}
			wr, _ := m.Get(side.wrist)
			wristYs = append(wristYs, wr.Y)
			angles = append(angles, side.elbowAngle(m))
		}
		if len(wristYs) == 0 {
			return FrameSignal{}, false
		}
		return FrameSignal{
			Primary:   average(wristYs),
			Secondary: []Reading{valid(average(angles))},
		}, true
	}
}

// curlSignal: primary is the mean elbow angle of fully visible arms. The
// secondaries are that same angle and the upper-arm swing angle.
func curlSignal() SignalExtractor {
	return func(m JointMap) (FrameSignal, bool) {
		var angles, swings []float64
		for _, side := range bothArms {
			if !side.armVisible(m) {
				continue
			}
			angles = append(angles, side.elbowAngle(m))
			if a, ok := side.upperArmAngle(m); ok {
				swings = append(swings, a)
			}
		}
		if len(angles) == 0 {
			return FrameSignal{}, false
		}
		elbow := average(angles)
		swing := Reading{}
		if len(swings) > 0 {
			swing = valid(average(swings))
		}
		return FrameSignal{
			Primary:   elbow,
			Secondary: []Reading{valid(elbow), swing},
		}, true
	}
}

// crunchSignal: primary is the mean shoulder Y. Secondaries are the trunk
// angle from horizontal and the nose-to-shoulder vertical distance.
func crunchSignal() SignalExtractor {
	return func(m JointMap) (FrameSignal, bool) {
		shoulderY, okS := meanCoord(m, shoulders, pointY)
		hipY, okH := meanCoord(m, hips, pointY)
		if !okS || !okH {
			return FrameSignal{}, false
		}
		shoulderX, _ := meanCoord(m, shoulders, pointX)
		hipX, _ := meanCoord(m, hips, pointX)

		trunk := TrunkAngle(Point{X: shoulderX, Y: shoulderY}, Point{X: hipX, Y: hipY})
		neck := Reading{}
		if nose, ok := m.Get(Nose); ok {
			neck = valid(math.Abs(nose.Y - shoulderY))
		}
		return FrameSignal{
			Primary:   shoulderY,
			Secondary: []Reading{valid(trunk), neck},
		}, true
	}
}
