package orient

import (
	"image"
	"math"
)

// Rotations are the candidate page rotations, in preference order: ties on
// score resolve to the earliest entry (0 first, then the smallest
// magnitude).
var Rotations = []int{0, 90, 180, 270}

const (
	// edgeThreshold is the minimum Sobel gradient magnitude for a pixel to
	// count as an edge.
	edgeThreshold = 200
	// houghVotes is the minimum accumulator count for a near-horizontal line
	// to be counted.
	houghVotes = 100
	// houghMaxAngleDeg bounds the accumulator to lines within 15 degrees of
	// horizontal.
	houghMaxAngleDeg  = 15
	houghAngleStepDeg = 3

	varianceWeight = 0.6
	lineWeight     = 0.4
)

// Detector scores candidate page rotations by how strongly horizontal text
// lines dominate the edge map.
type Detector struct{}

// NewDetector creates a Detector.
func NewDetector() *Detector {
	return &Detector{}
}

// Detect returns the rotation in {0, 90, 180, 270} that, when applied
// clockwise to the image, best aligns text lines horizontally.
func (d *Detector) Detect(img image.Image) int {
	g := newGray(img)

	best := Rotations[0]
	bestScore := math.Inf(-1)
	for _, rotation := range Rotations {
		score := orientationScore(g.rotate(rotation))
		// Strict comparison keeps the earliest candidate on ties.
		if score > bestScore {
			best = rotation
			bestScore = score
		}
	}
	return best
}

// DetectAndCorrect detects the best rotation and returns the rotated image
// together with the applied angle.
func (d *Detector) DetectAndCorrect(img image.Image) (image.Image, int) {
	rotation := d.Detect(img)
	return Rotate(img, rotation), rotation
}

// orientationScore rates how well the grayscale frame is oriented: a
// weighted sum of the horizontal-to-vertical edge projection variance ratio
// and the number of detected near-horizontal lines. Correctly oriented text
// produces strong banding in the horizontal projection.
func orientationScore(g *gray) float64 {
	edges := sobelEdges(g)

	hProj := make([]float64, g.h)
	vProj := make([]float64, g.w)
	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			if edges.pix[y*g.w+x] != 0 {
				hProj[y]++
				vProj[x]++
			}
		}
	}

	hVar := variance(hProj)
	vVar := variance(vProj)
	varianceRatio := hVar
	if vVar > 0 {
		varianceRatio = hVar / vVar
	}

	return varianceWeight*varianceRatio + lineWeight*float64(horizontalLines(edges))
}

// horizontalLines runs a Hough-style accumulator restricted to angles within
// houghMaxAngleDeg of horizontal. Lines are parameterized by their
// y-intercept at the given angle; an accumulator cell reaching houghVotes
// counts as one line.
func horizontalLines(edges *gray) int {
	lines := 0
	for deg := -houghMaxAngleDeg; deg <= houghMaxAngleDeg; deg += houghAngleStepDeg {
		tan := math.Tan(float64(deg) * math.Pi / 180)
		// Intercept range covers the full frame plus slope overhang.
		overhang := int(math.Abs(tan)*float64(edges.w)) + 1
		acc := make([]int, edges.h+2*overhang)
		for y := 0; y < edges.h; y++ {
			for x := 0; x < edges.w; x++ {
				if edges.pix[y*edges.w+x] == 0 {
					continue
				}
				b := int(math.Round(float64(y)-tan*float64(x))) + overhang
				if b >= 0 && b < len(acc) {
					acc[b]++
				}
			}
		}
		for _, votes := range acc {
			if votes >= houghVotes {
				lines++
			}
		}
	}
	return lines
}

// sobelEdges computes a binary edge map from gradient magnitude.
func sobelEdges(g *gray) *gray {
	out := &gray{w: g.w, h: g.h, pix: make([]uint8, g.w*g.h)}
	for y := 1; y < g.h-1; y++ {
		for x := 1; x < g.w-1; x++ {
			p := func(dx, dy int) int { return int(g.pix[(y+dy)*g.w+(x+dx)]) }
			gx := -p(-1, -1) - 2*p(-1, 0) - p(-1, 1) + p(1, -1) + 2*p(1, 0) + p(1, 1)
			gy := -p(-1, -1) - 2*p(0, -1) - p(1, -1) + p(-1, 1) + 2*p(0, 1) + p(1, 1)
			if abs(gx)+abs(gy) >= edgeThreshold {
				out.pix[y*g.w+x] = 1
			}
		}
	}
	return out
}

func variance(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	mean := sum / float64(len(v))
	var acc float64
	for _, x := range v {
		d := x - mean
		acc += d * d
	}
	return acc / float64(len(v))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
