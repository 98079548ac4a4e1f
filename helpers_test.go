package repcheck

// keypoints17 returns an all-absent COCO-17 keypoint list.
func keypoints17() [][2]float64 {
	return make([][2]float64, 17)
}

func setKP(kpts [][2]float64, j Joint, x, y float64) {
	kpts[j] = [2]float64{x, y}
}

// pushupFrame places both shoulders and hips on a horizontal line at torsoY
// with the elbows 50px below the shoulders and elbowDX px towards the feet.
// elbowDX 0 gives a 90° flare; 35 gives about 55°.
func pushupFrame(idx int, torsoY, elbowDX float64) Frame {
	kpts := keypoints17()
	for _, side := range bothArms {
		setKP(kpts, side.shoulder, 100, torsoY)
		setKP(kpts, side.elbow, 100+elbowDX, torsoY+50)
		setKP(kpts, side.hip, 300, torsoY)
	}
	return Frame{
		Index:      idx,
		TimeS:      float64(idx) / 10,
		Detections: []Detection{{Confidence: 0.9, Keypoints: kpts}},
	}
}

func flareSignal(frame int, primary, flare float64) FrameSignal {
	return FrameSignal{
		Frame:     frame,
		TimeS:     float64(frame) / 10,
		Primary:   primary,
		Secondary: []Reading{valid(flare)},
	}
}

// sawtooth is three full cycles starting and ending at lo.
func sawtooth(lo, hi float64) []float64 {
	mid := (lo + hi) / 2
	return []float64{lo, mid, hi, mid, lo, mid, hi, mid, lo, mid, hi, mid, lo}
}
