// Package scene holds the scene/camera calibration model shared by scene
// loading and the scene registry.
package scene

// Distortion lists radial/tangential lens distortion coefficients.
type Distortion struct {
	K1 float64 `json:"k1"`
	K2 float64 `json:"k2"`
	P1 float64 `json:"p1"`
	P2 float64 `json:"p2"`
}

// Intrinsics is a camera's internal model.
type Intrinsics struct {
	FX         float64    `json:"fx"`
	FY         float64    `json:"fy"`
	CX         float64    `json:"cx"`
	CY         float64    `json:"cy"`
	Distortion Distortion `json:"distortion"`
}

// Extrinsics is a camera's pose in scene world coordinates. Rotation is
// Euler angles in XYZ order, degrees, matching scipy's
// Rotation.from_euler('XYZ', rotation, degrees=True) convention.
type Extrinsics struct {
	Translation [3]float64 `json:"translation"`
	Rotation    [3]float64 `json:"rotation"`
	Scale       [3]float64 `json:"scale"`
}

// Camera is one calibrated camera feeding a Scene.
type Camera struct {
	UID        string     `json:"uid"`
	Name       string     `json:"name"`
	Intrinsics Intrinsics `json:"intrinsics"`
	Extrinsics Extrinsics `json:"extrinsics"`
}

// Scene groups the cameras that share one world coordinate frame.
type Scene struct {
	UID     string   `json:"uid"`
	Name    string   `json:"name"`
	Cameras []Camera `json:"cameras"`
}

// DefaultExtrinsics returns the identity pose (origin, no rotation, unit
// scale), matching the zero-value defaults of the source calibration model.
func DefaultExtrinsics() Extrinsics {
	return Extrinsics{Scale: [3]float64{1, 1, 1}}
}
