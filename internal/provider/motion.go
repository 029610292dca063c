package provider

import (
	"image"
	"time"

	"gocv.io/x/gocv"
)

const (
	motionBlur       = 21
	motionPixelDelta = 25
)

// motionGate decides whether a camera frame differs enough from the last
// one to be worth sending to the landmark helper. After motion stops the
// gate stays open for hold, so a hand coming to rest still gets tracked
// until its pose settles.
type motionGate struct {
	// threshold is the percentage of pixels that must change.
	threshold float64
	hold      time.Duration

	prev       gocv.Mat
	primed     bool
	lastMotion time.Time
}

func newMotionGate(threshold float64, hold time.Duration) *motionGate {
	return &motionGate{threshold: threshold, hold: hold, prev: gocv.NewMat()}
}

// open reports whether frame, captured at now, should be processed.
func (g *motionGate) open(frame gocv.Mat, now time.Time) bool {
	moved, _ := g.changed(frame)
	return g.observe(moved, now)
}

// observe records a motion result and applies the hold period.
func (g *motionGate) observe(moved bool, now time.Time) bool {
	if moved || g.lastMotion.IsZero() {
		g.lastMotion = now
		return true
	}
	return now.Sub(g.lastMotion) <= g.hold
}

// changed compares frame with the previous one by blurred grayscale
// differencing and returns the changed-pixel percentage.
func (g *motionGate) changed(frame gocv.Mat) (bool, float64) {
	if frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: motionBlur, Y: motionBlur}, 0, 0, gocv.BorderDefault)

	if !g.primed {
		blurred.CopyTo(&g.prev)
		g.primed = true
		return true, 100
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, g.prev, &diff)
	gocv.Threshold(diff, &diff, motionPixelDelta, 255, gocv.ThresholdBinary)

	pct := float64(gocv.CountNonZero(diff)) / float64(diff.Rows()*diff.Cols()) * 100
	blurred.CopyTo(&g.prev)
	return pct > g.threshold, pct
}

func (g *motionGate) close() {
	g.prev.Close()
	g.primed = false
}
