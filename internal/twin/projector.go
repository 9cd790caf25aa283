package twin

import (
	"math"
	"sync"
)

// Point2 is a position in top-down view space, measured in pixels.
type Point2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Projector maps between 3D world space and the 2D top-down plan.
// The projection drops the vertical axis: world X maps to screen X and
// world Z maps to negated screen Y, so north in the facility is up on
// the plan. Pan and zoom live in the Viewport, never here; stored
// positions are always unprojected world coordinates.
type Projector struct {
	metersToPixels float64
}

// NewProjector creates a projector with the given scale factor.
func NewProjector(metersToPixels float64) Projector {
	if metersToPixels <= 0 {
		metersToPixels = 1
	}
	return Projector{metersToPixels: metersToPixels}
}

// ToTopDown projects a world position onto the top-down plane.
func (p Projector) ToTopDown(world Vec3) Point2 {
	return Point2{
		X: world.X * p.metersToPixels,
		Y: -world.Z * p.metersToPixels,
	}
}

// ToWorld is the exact inverse of ToTopDown. The vertical coordinate is
// supplied by the caller, typically the active floor's base height.
func (p Projector) ToWorld(pt Point2, y float64) Vec3 {
	return Vec3{
		X: pt.X / p.metersToPixels,
		Y: y,
		Z: -pt.Y / p.metersToPixels,
	}
}

// HitTest finds the candidate nearest to the cursor within the pick
// radius, in projected viewport space. Candidates are tested in the
// order given; registry insertion order means ties go to the earliest
// device. Returns its key, or false when nothing is in range.
func (p Projector) HitTest(candidates []*DeviceViewModel, vp *Viewport, cursor Point2, radiusPx float64) (string, bool) {
	bestKey := ""
	bestDist := math.Inf(1)

	for _, vm := range candidates {
		pt := vp.Apply(p.ToTopDown(vm.WorldPosition))
		dx := pt.X - cursor.X
		dy := pt.Y - cursor.Y
		dist := math.Hypot(dx, dy)
		if dist <= radiusPx && dist < bestDist {
			bestKey = vm.Key
			bestDist = dist
		}
	}
	return bestKey, bestKey != ""
}

// Viewport is the 2D pan/zoom state, applied to projected points as a
// separate affine step. It is independent of the 3D camera, survives
// view toggles within a session, and is never persisted remotely.
//
// All methods are thread-safe.
type Viewport struct {
	mu       sync.Mutex
	panX     float64
	panY     float64
	scale    float64
	minScale float64
	maxScale float64
}

// NewViewport creates a viewport at home framing with the given zoom
// bounds.
func NewViewport(minScale, maxScale float64) *Viewport {
	if minScale <= 0 {
		minScale = 0.1
	}
	if maxScale < minScale {
		maxScale = minScale
	}
	v := &Viewport{minScale: minScale, maxScale: maxScale}
	v.reset()
	return v
}

// Set replaces pan and zoom in one step, clamping the scale.
func (v *Viewport) Set(panX, panY, scale float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.panX = panX
	v.panY = panY
	v.scale = v.clamp(scale)
}

// Pan shifts the view by the given pixel deltas.
func (v *Viewport) Pan(dx, dy float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.panX += dx
	v.panY += dy
}

// Zoom sets the zoom scale, clamped to the configured bounds.
func (v *Viewport) Zoom(scale float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.scale = v.clamp(scale)
}

// Reset returns the viewport to home framing: no pan, unit zoom
// (clamped into bounds).
func (v *Viewport) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.reset()
}

func (v *Viewport) reset() {
	v.panX = 0
	v.panY = 0
	v.scale = v.clamp(1)
}

// Apply maps a projected point into view space: scale then pan.
func (v *Viewport) Apply(pt Point2) Point2 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return Point2{
		X: pt.X*v.scale + v.panX,
		Y: pt.Y*v.scale + v.panY,
	}
}

// Unapply is the inverse of Apply, mapping a view-space point (such as
// a cursor position) back onto the projected plane.
func (v *Viewport) Unapply(pt Point2) Point2 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return Point2{
		X: (pt.X - v.panX) / v.scale,
		Y: (pt.Y - v.panY) / v.scale,
	}
}

// State returns the current pan and zoom.
func (v *Viewport) State() (panX, panY, scale float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.panX, v.panY, v.scale
}

func (v *Viewport) clamp(scale float64) float64 {
	if scale < v.minScale {
		return v.minScale
	}
	if scale > v.maxScale {
		return v.maxScale
	}
	return scale
}
