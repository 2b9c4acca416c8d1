// Package codec parses inbound camera-detection payloads and builds
// outbound scene-track payloads, with optional JSON Schema validation of
// both directions, per SPEC_FULL.md §4.5/§6.
package codec

import (
	"encoding/json"
	"time"

	"github.com/scenescape/tracker/internal/errs"
	"github.com/scenescape/tracker/internal/geom3"
)

// BoundingBoxPx is the detector's 2D pixel-space box. It is carried through
// for logging/telemetry only — the tracker core never reads it.
type BoundingBoxPx struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// WorldState is a detection's scene-frame projection: position, size,
// orientation and velocity, already calibrated by an upstream collaborator.
type WorldState struct {
	Position    [3]float64 `json:"position"`
	Size        [3]float64 `json:"size"`
	Orientation [4]float64 `json:"orientation"` // [qx, qy, qz, qw]
	Velocity    [3]float64 `json:"velocity"`
}

// Quaternion returns the orientation as a geom3.Quaternion.
func (w WorldState) Quaternion() geom3.Quaternion {
	return geom3.Quaternion{X: w.Orientation[0], Y: w.Orientation[1], Z: w.Orientation[2], W: w.Orientation[3]}
}

// CameraDetectionWire is one element of a camera message's per-category
// detections array.
type CameraDetectionWire struct {
	ID             *int               `json:"id,omitempty"`
	BoundingBoxPx  BoundingBoxPx      `json:"bounding_box_px"`
	WorldState     WorldState         `json:"world_state"`
	Classification map[string]float64 `json:"classification"`
}

// CameraMessage is one decoded ingress payload from
// scenescape/data/camera/{camera_id}.
type CameraMessage struct {
	ID string
	// Timestamp is the parsed value, for tracker dt/ordering math only.
	Timestamp time.Time
	// RawTimestamp is the exact wire string the message carried. Egress
	// building must reuse this verbatim rather than reformatting
	// Timestamp — re-emitting via time.Format loses fractional-second
	// precision and normalizes offset notation (e.g. "+00:00" -> "Z"),
	// breaking byte-for-byte round-tripping of the field.
	RawTimestamp string
	Objects      map[string][]CameraDetectionWire
}

type cameraMessageWire struct {
	ID        string                           `json:"id"`
	Timestamp string                           `json:"timestamp"`
	Objects   map[string][]CameraDetectionWire `json:"objects"`
}

// ParseCameraMessage decodes and minimally validates an ingress payload:
// required id/timestamp/objects fields must be present and well-typed.
// Schema validation (when enabled) is the caller's job, done against the
// raw bytes before calling this — see Validator.
func ParseCameraMessage(payload []byte) (CameraMessage, error) {
	var wire cameraMessageWire
	if err := json.Unmarshal(payload, &wire); err != nil {
		return CameraMessage{}, &errs.ParseError{Msg: "invalid JSON", Err: err}
	}
	if wire.ID == "" {
		return CameraMessage{}, &errs.ParseError{Msg: "missing or empty 'id' field"}
	}
	if wire.Timestamp == "" {
		return CameraMessage{}, &errs.ParseError{Msg: "missing or empty 'timestamp' field"}
	}
	ts, err := time.Parse(time.RFC3339, wire.Timestamp)
	if err != nil {
		return CameraMessage{}, &errs.ParseError{Msg: "timestamp is not RFC3339", Err: err}
	}
	if wire.Objects == nil {
		return CameraMessage{}, &errs.ParseError{Msg: "missing 'objects' field"}
	}
	return CameraMessage{ID: wire.ID, Timestamp: ts, RawTimestamp: wire.Timestamp, Objects: wire.Objects}, nil
}

// SceneObject is one published track in a scene's egress payload.
type SceneObject struct {
	ID          string     `json:"id"`
	Category    string     `json:"category"`
	Translation [3]float64 `json:"translation"`
	Velocity    [3]float64 `json:"velocity"`
	Size        [3]float64 `json:"size"`
	Rotation    [4]float64 `json:"rotation"`
}

// SceneMessage is the full egress payload for
// scenescape/data/scene/{scene_uid}/{category}.
type SceneMessage struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Timestamp string        `json:"timestamp"`
	Objects   []SceneObject `json:"objects"`
}

// BuildSceneMessage encodes one scene/category egress payload to JSON.
func BuildSceneMessage(msg SceneMessage) ([]byte, error) {
	return json.Marshal(msg)
}
