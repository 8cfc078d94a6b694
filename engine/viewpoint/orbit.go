// Package viewpoint provides viewer trackers the engine recenters the simulation cascades on.
package viewpoint

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

type orbit struct {
	mu *sync.Mutex

	target   mgl32.Vec3
	position mgl32.Vec3

	// spherical offset of position from target
	radius    float32
	azimuth   float32
	elevation float32

	minRadius    float32
	maxRadius    float32
	minElevation float32
	maxElevation float32

	zoomSpeed float32
	panSpeed  float32
}

// Orbit is a viewer orbiting a pivot on the water plane. Its world-space position is derived from the
// pivot and spherical coordinates (radius, azimuth, elevation); panning slides the pivot horizontally
// so the viewer can travel across the ocean without changing its view angle.
type Orbit interface {
	// Position returns the world-space viewer position.
	Position() mgl32.Vec3

	// Target returns the pivot the viewer orbits.
	Target() mgl32.Vec3

	// SetTarget moves the pivot and recomputes the position.
	//
	// Parameters:
	//   - target: the new world-space pivot
	SetTarget(target mgl32.Vec3)

	// Rotate adds to the azimuth and elevation. Elevation is clamped to its limits.
	//
	// Parameters:
	//   - dAzimuth: change of the horizontal angle in radians
	//   - dElevation: change of the vertical angle in radians
	Rotate(dAzimuth, dElevation float32)

	// Zoom moves the viewer towards the pivot by delta scaled by the zoom speed. Negative delta moves away.
	Zoom(delta float32)

	// Pan slides the pivot and the viewer along the water plane. Forward is the horizontal direction the
	// viewer is looking in.
	//
	// Parameters:
	//   - right: distance along the viewer's right axis, scaled by the pan speed
	//   - forward: distance along the viewer's forward axis, scaled by the pan speed
	Pan(right, forward float32)

	Radius() float32
	Azimuth() float32
	Elevation() float32
}

var _ Orbit = &orbit{}

// NewOrbit creates an orbit viewer. By default it looks at the origin from 250 units away, 30 degrees
// above the horizon.
//
// Parameters:
//   - options: functional options such as WithTarget or WithRadius
//
// Returns:
//   - Orbit: the new viewer
func NewOrbit(options ...OrbitBuilderOption) Orbit {
	o := &orbit{
		mu: &sync.Mutex{},

		radius:    250,
		elevation: math.Pi / 6,

		minRadius:    1,
		maxRadius:    5000,
		minElevation: 0.05,
		maxElevation: math.Pi/2 - 0.1,

		zoomSpeed: 15,
		panSpeed:  1,
	}
	for _, opt := range options {
		opt(o)
	}
	o.radius = mgl32.Clamp(o.radius, o.minRadius, o.maxRadius)
	o.elevation = mgl32.Clamp(o.elevation, o.minElevation, o.maxElevation)
	o.update()
	return o
}

// update recomputes position. Caller must hold the mutex.
func (o *orbit) update() {
	sinE, cosE := math.Sincos(float64(o.elevation))
	sinA, cosA := math.Sincos(float64(o.azimuth))
	o.position = o.target.Add(mgl32.Vec3{
		o.radius * float32(cosE*sinA),
		o.radius * float32(sinE),
		o.radius * float32(cosE*cosA),
	})
}

// horizontalAxes returns the right and forward unit vectors projected on the water plane.
// Caller must hold the mutex.
func (o *orbit) horizontalAxes() (right, forward mgl32.Vec3) {
	sinA, cosA := math.Sincos(float64(o.azimuth))
	forward = mgl32.Vec3{-float32(sinA), 0, -float32(cosA)}
	right = mgl32.Vec3{float32(cosA), 0, -float32(sinA)}
	return right, forward
}

func (o *orbit) Position() mgl32.Vec3 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.position
}

func (o *orbit) Target() mgl32.Vec3 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.target
}

func (o *orbit) SetTarget(target mgl32.Vec3) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.target = target
	o.update()
}

func (o *orbit) Rotate(dAzimuth, dElevation float32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.azimuth = float32(math.Remainder(float64(o.azimuth+dAzimuth), 2*math.Pi))
	o.elevation = mgl32.Clamp(o.elevation+dElevation, o.minElevation, o.maxElevation)
	o.update()
}

func (o *orbit) Zoom(delta float32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.radius = mgl32.Clamp(o.radius-delta*o.zoomSpeed, o.minRadius, o.maxRadius)
	o.update()
}

func (o *orbit) Pan(right, forward float32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	r, f := o.horizontalAxes()
	offset := r.Mul(right * o.panSpeed).Add(f.Mul(forward * o.panSpeed))
	o.target = o.target.Add(offset)
	o.position = o.position.Add(offset)
}

func (o *orbit) Radius() float32 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.radius
}

func (o *orbit) Azimuth() float32 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.azimuth
}

func (o *orbit) Elevation() float32 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.elevation
}
