package viewpoint

import "github.com/go-gl/mathgl/mgl32"

// OrbitBuilderOption is a functional option for configuring an Orbit.
type OrbitBuilderOption func(*orbit)

// WithTarget sets the initial pivot.
func WithTarget(target mgl32.Vec3) OrbitBuilderOption {
	return func(o *orbit) {
		o.target = target
	}
}

// WithRadius sets the initial distance from the pivot.
func WithRadius(radius float32) OrbitBuilderOption {
	return func(o *orbit) {
		o.radius = radius
	}
}

// WithAzimuth sets the initial horizontal angle in radians, 0 being the +z axis.
func WithAzimuth(azimuth float32) OrbitBuilderOption {
	return func(o *orbit) {
		o.azimuth = azimuth
	}
}

// WithElevation sets the initial angle above the water plane in radians.
func WithElevation(elevation float32) OrbitBuilderOption {
	return func(o *orbit) {
		o.elevation = elevation
	}
}

// WithRadiusLimits bounds the distance Zoom can reach.
//
// Parameters:
//   - minRadius: the closest distance to the pivot
//   - maxRadius: the farthest distance from the pivot
//
// Returns:
//   - OrbitBuilderOption: functional option to set the limits
func WithRadiusLimits(minRadius, maxRadius float32) OrbitBuilderOption {
	return func(o *orbit) {
		o.minRadius = minRadius
		o.maxRadius = maxRadius
	}
}

// WithZoomSpeed sets the multiplier applied to Zoom deltas.
func WithZoomSpeed(speed float32) OrbitBuilderOption {
	return func(o *orbit) {
		o.zoomSpeed = speed
	}
}

// WithPanSpeed sets the multiplier applied to Pan distances.
func WithPanSpeed(speed float32) OrbitBuilderOption {
	return func(o *orbit) {
		o.panSpeed = speed
	}
}
