package twin

import (
	"math"
	"testing"
)

func TestProjector_ToTopDown(t *testing.T) {
	p := NewProjector(10)

	got := p.ToTopDown(Vec3{X: 1.5, Y: 3, Z: 2})
	if got.X != 15 || got.Y != -20 {
		t.Errorf("ToTopDown() = %+v, want (15, -20)", got)
	}

	// Height never influences the plan position.
	elevated := p.ToTopDown(Vec3{X: 1.5, Y: 42, Z: 2})
	if elevated != got {
		t.Errorf("projection changed with height: %+v vs %+v", elevated, got)
	}
}

func TestProjector_RoundTrip(t *testing.T) {
	p := NewProjector(10)

	world := Vec3{X: -3.25, Y: 12, Z: 7.5}
	back := p.ToWorld(p.ToTopDown(world), world.Y)

	const eps = 1e-9
	if math.Abs(back.X-world.X) > eps || math.Abs(back.Y-world.Y) > eps || math.Abs(back.Z-world.Z) > eps {
		t.Errorf("round trip drifted: %+v -> %+v", world, back)
	}
}

func TestNewProjector_InvalidScale(t *testing.T) {
	p := NewProjector(0)
	if got := p.ToTopDown(Vec3{X: 2, Z: -3}); got.X != 2 || got.Y != 3 {
		t.Errorf("ToTopDown() with fallback scale = %+v, want (2, 3)", got)
	}
}

// ─── Viewport ───────────────────────────────────────────────────────────────

func TestViewport_ZoomClamped(t *testing.T) {
	v := NewViewport(0.5, 4)

	tests := []struct {
		in   float64
		want float64
	}{
		{2, 2},
		{0.1, 0.5},
		{10, 4},
		{0.5, 0.5},
		{4, 4},
	}
	for _, tt := range tests {
		v.Zoom(tt.in)
		if _, _, scale := v.State(); scale != tt.want {
			t.Errorf("Zoom(%v): scale = %v, want %v", tt.in, scale, tt.want)
		}
	}
}

func TestViewport_ApplyUnapply(t *testing.T) {
	v := NewViewport(0.5, 4)
	v.Set(100, 50, 2)

	pt := Point2{X: 15, Y: -20}
	applied := v.Apply(pt)
	if applied.X != 130 || applied.Y != 10 {
		t.Errorf("Apply() = %+v, want (130, 10)", applied)
	}

	back := v.Unapply(applied)
	const eps = 1e-9
	if math.Abs(back.X-pt.X) > eps || math.Abs(back.Y-pt.Y) > eps {
		t.Errorf("Unapply(Apply(pt)) = %+v, want %+v", back, pt)
	}
}

func TestViewport_PanAccumulates(t *testing.T) {
	v := NewViewport(0.5, 4)
	v.Pan(10, -5)
	v.Pan(15, 20)

	panX, panY, _ := v.State()
	if panX != 25 || panY != 15 {
		t.Errorf("pan = (%v, %v), want (25, 15)", panX, panY)
	}
}

func TestViewport_Reset(t *testing.T) {
	v := NewViewport(0.5, 4)
	v.Set(120, -60, 3)
	v.Reset()

	panX, panY, scale := v.State()
	if panX != 0 || panY != 0 || scale != 1 {
		t.Errorf("State() after reset = (%v, %v, %v), want (0, 0, 1)", panX, panY, scale)
	}

	// Home zoom clamps into bounds when unit scale is out of range.
	tight := NewViewport(2, 4)
	if _, _, scale := tight.State(); scale != 2 {
		t.Errorf("home scale = %v with min 2, want 2", scale)
	}
}

// ─── Hit testing ────────────────────────────────────────────────────────────

func hitCandidates() []*DeviceViewModel {
	return []*DeviceViewModel{
		{Key: "near", WorldPosition: Vec3{X: 1, Y: 0, Z: 0}},
		{Key: "far", WorldPosition: Vec3{X: 5, Y: 0, Z: 0}},
		{Key: "twin-a", WorldPosition: Vec3{X: 10, Y: 0, Z: 2}},
		{Key: "twin-b", WorldPosition: Vec3{X: 10, Y: 6, Z: 2}},
	}
}

func TestProjector_HitTest(t *testing.T) {
	p := NewProjector(10)
	vp := NewViewport(0.5, 4)

	// "near" projects to (10, 0), "far" to (50, 0).
	key, ok := p.HitTest(hitCandidates(), vp, Point2{X: 12, Y: 1}, 8)
	if !ok || key != "near" {
		t.Errorf("HitTest() = %q, %v, want \"near\", true", key, ok)
	}

	if key, ok := p.HitTest(hitCandidates(), vp, Point2{X: 30, Y: 0}, 8); ok {
		t.Errorf("HitTest() in empty space = %q, want miss", key)
	}

	key, ok = p.HitTest(hitCandidates(), vp, Point2{X: 48, Y: 0}, 8)
	if !ok || key != "far" {
		t.Errorf("HitTest() = %q, %v, want \"far\", true", key, ok)
	}
}

// Two devices stacked on different floors project to the same plan
// point; the earliest in candidate order wins the tie.
func TestProjector_HitTestTie(t *testing.T) {
	p := NewProjector(10)
	vp := NewViewport(0.5, 4)

	key, ok := p.HitTest(hitCandidates(), vp, Point2{X: 100, Y: -20}, 8)
	if !ok || key != "twin-a" {
		t.Errorf("HitTest() tie = %q, %v, want \"twin-a\", true", key, ok)
	}
}

func TestProjector_HitTestThroughViewport(t *testing.T) {
	p := NewProjector(10)
	vp := NewViewport(0.5, 4)
	vp.Set(100, 50, 2)

	// "near" is at (10, 0) projected, (120, 50) in view space.
	key, ok := p.HitTest(hitCandidates(), vp, Point2{X: 123, Y: 52}, 8)
	if !ok || key != "near" {
		t.Errorf("HitTest() with pan/zoom = %q, %v, want \"near\", true", key, ok)
	}

	// The same cursor without the transform hits nothing.
	vp.Reset()
	if key, ok := p.HitTest(hitCandidates(), vp, Point2{X: 123, Y: 52}, 8); ok {
		t.Errorf("HitTest() = %q after reset, want miss", key)
	}
}
