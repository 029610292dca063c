package hand

// Preset poses used by tests and the mock provider. All presets share one
// skeleton: wrist at (0.5, 0.8), knuckles on y=0.55, image y growing
// downward.

var knuckleX = [NumFingers]float64{0, 0.56, 0.52, 0.48, 0.44}

type pose struct {
	thumb    [4]Point3D // CMC, MCP, IP, tip
	extended [NumFingers]bool
}

var (
	thumbTucked = [4]Point3D{{X: 0.56, Y: 0.74}, {X: 0.60, Y: 0.66}, {X: 0.58, Y: 0.68}, {X: 0.53, Y: 0.71}}
	thumbUp     = [4]Point3D{{X: 0.56, Y: 0.74}, {X: 0.60, Y: 0.62}, {X: 0.60, Y: 0.45}, {X: 0.60, Y: 0.30}}
	thumbOut    = [4]Point3D{{X: 0.56, Y: 0.74}, {X: 0.63, Y: 0.68}, {X: 0.70, Y: 0.63}, {X: 0.76, Y: 0.60}}
)

func (p pose) build(handedness string) Observation {
	pts := make([]Point3D, NumLandmarks)
	pts[Wrist] = Point3D{X: 0.5, Y: 0.8}
	copy(pts[ThumbCMC:ThumbTip+1], p.thumb[:])

	for f := Index; f < NumFingers; f++ {
		base := 4*f + 1
		x := knuckleX[f]
		pts[base] = Point3D{X: x, Y: 0.55}
		if p.extended[f] {
			pts[base+1] = Point3D{X: x, Y: 0.42}
			pts[base+2] = Point3D{X: x, Y: 0.34}
			pts[base+3] = Point3D{X: x, Y: 0.27}
		} else {
			pts[base+1] = Point3D{X: x, Y: 0.45}
			pts[base+2] = Point3D{X: x, Y: 0.50}
			pts[base+3] = Point3D{X: x, Y: 0.62}
		}
	}

	return Observation{
		Landmarks:  pts,
		Handedness: handedness,
		Score:      0.95,
	}
}

// OpenPalm returns an open hand: every finger extended, thumb out sideways.
func OpenPalm() Observation {
	return pose{thumb: thumbOut, extended: [NumFingers]bool{true, true, true, true, true}}.build("Right")
}

// Fist returns a closed fist with the thumb tucked across the fingers.
func Fist() Observation {
	return pose{thumb: thumbTucked}.build("Right")
}

// ThumbsUp returns a fist with the thumb raised well above the knuckles.
func ThumbsUp() Observation {
	return pose{thumb: thumbUp, extended: [NumFingers]bool{Thumb: true}}.build("Right")
}

// Yo returns the "horns" pose: index and pinky extended, middle and ring
// curled.
func Yo() Observation {
	return pose{thumb: thumbTucked, extended: [NumFingers]bool{Index: true, Pinky: true}}.build("Right")
}

// OKPinch returns an "OK" sign: thumb and index tips touching, the other
// three fingers extended.
func OKPinch() Observation {
	obs := pose{thumb: thumbOut, extended: [NumFingers]bool{Middle: true, Ring: true, Pinky: true}}.build("Right")
	pts := obs.Landmarks
	pts[IndexPIP] = Point3D{X: 0.60, Y: 0.45}
	pts[IndexDIP] = Point3D{X: 0.63, Y: 0.47}
	pts[IndexTip] = Point3D{X: 0.64, Y: 0.52}
	pts[ThumbMCP] = Point3D{X: 0.62, Y: 0.68}
	pts[ThumbIP] = Point3D{X: 0.65, Y: 0.60}
	pts[ThumbTip] = Point3D{X: 0.645, Y: 0.53}
	return obs
}

// YoPinch returns the horns pose with the thumb tip brought against the
// index tip, so both the horns and the pinch conditions hold.
func YoPinch() Observation {
	obs := Yo()
	pts := obs.Landmarks
	pts[ThumbMCP] = Point3D{X: 0.62, Y: 0.62}
	pts[ThumbIP] = Point3D{X: 0.60, Y: 0.40}
	pts[ThumbTip] = Point3D{X: 0.57, Y: 0.29}
	return obs
}

// Translate returns a copy of obs shifted by (dx, dy).
func Translate(obs Observation, dx, dy float64) Observation {
	out := obs
	out.Landmarks = make([]Point3D, len(obs.Landmarks))
	for i, p := range obs.Landmarks {
		out.Landmarks[i] = Point3D{X: p.X + dx, Y: p.Y + dy, Z: p.Z}
	}
	return out
}

// WithHandedness returns a copy of obs carrying the given provider label.
func WithHandedness(obs Observation, label string) Observation {
	out := Translate(obs, 0, 0)
	out.Handedness = label
	return out
}
