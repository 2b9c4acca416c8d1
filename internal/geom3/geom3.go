// Package geom3 holds the small value types shared by detections and
// tracks: pixel-space rectangles and 3D world-frame points, sizes, and
// orientation. It mirrors the role of the teacher's mot/geom_f64.go, lifted
// from 2D pixel geometry to the 3D world frame the tracker operates in.
package geom3

import "math"

// Rectangle is a pixel-space bounding box, kept in the same (x, y, width,
// height) layout the teacher uses for its blob bounding boxes.
type Rectangle struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Vec3 is a 3D point, velocity, or size triple.
type Vec3 struct {
	X float64
	Y float64
	Z float64
}

// Quaternion is an orientation in (x, y, z, w) order, matching the egress
// wire format's "rotation" field.
type Quaternion struct {
	X float64
	Y float64
	Z float64
	W float64
}

// IdentityQuaternion is the default orientation for newly created tracks
// that have not yet observed an orientation-bearing detection.
var IdentityQuaternion = Quaternion{X: 0, Y: 0, Z: 0, W: 1}

// EuclideanDistance3 returns the straight-line distance between two 3D
// points.
func EuclideanDistance3(a, b Vec3) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
