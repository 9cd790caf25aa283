package facility

import "math"

// FloorOf maps a world-space height to a 1-based floor number:
// floor(y / floorHeight) + 1. World Y is the authoritative source of a
// device's floor; stored floor numbers are derived from it, never the
// reverse. A non-positive floorHeight collapses everything onto floor 1.
func FloorOf(y, floorHeight float64) int {
	if floorHeight <= 0 {
		return 1
	}
	return int(math.Floor(y/floorHeight)) + 1
}

// FloorBaseY returns the world-space height of a floor's base plane, the Y
// used when placing devices that only specified a floor number.
func FloorBaseY(floor int, floorHeight float64) float64 {
	if floorHeight <= 0 {
		floorHeight = DefaultFloorHeight
	}
	if floor < 1 {
		floor = 1
	}
	return float64(floor-1) * floorHeight
}

// FloorCeilingY returns the world-space height of a floor's upper boundary,
// the clip plane level when that floor is active in the 3D view.
func FloorCeilingY(floor int, floorHeight float64) float64 {
	if floorHeight <= 0 {
		floorHeight = DefaultFloorHeight
	}
	if floor < 1 {
		floor = 1
	}
	return float64(floor) * floorHeight
}
