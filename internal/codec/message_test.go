package codec

import (
	"strings"
	"testing"
)

const validCameraPayload = `{
  "id": "cam-1",
  "timestamp": "2026-01-01T00:00:00Z",
  "objects": {
    "car": [
      {
        "bounding_box_px": {"x": 1, "y": 2, "width": 3, "height": 4},
        "world_state": {
          "position": [1, 2, 0],
          "size": [2, 1, 1.5],
          "orientation": [0, 0, 0, 1],
          "velocity": [0, 0, 0]
        },
        "classification": {"car": 0.9}
      }
    ]
  }
}`

func TestParseCameraMessageValid(t *testing.T) {
	msg, err := ParseCameraMessage([]byte(validCameraPayload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.ID != "cam-1" {
		t.Errorf("ID = %q, want cam-1", msg.ID)
	}
	dets, ok := msg.Objects["car"]
	if !ok || len(dets) != 1 {
		t.Fatalf("expected one car detection, got %+v", msg.Objects)
	}
	if dets[0].WorldState.Position != [3]float64{1, 2, 0} {
		t.Errorf("position = %v", dets[0].WorldState.Position)
	}
}

func TestParseCameraMessageMissingID(t *testing.T) {
	payload := strings.Replace(validCameraPayload, `"id": "cam-1",`, "", 1)
	if _, err := ParseCameraMessage([]byte(payload)); err == nil {
		t.Error("expected error for missing id")
	}
}

func TestParseCameraMessagePreservesRawTimestampByteForByte(t *testing.T) {
	payload := strings.Replace(validCameraPayload, "2026-01-01T00:00:00Z", "2026-01-01T00:00:00.123456+02:00", 1)
	msg, err := ParseCameraMessage([]byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.RawTimestamp != "2026-01-01T00:00:00.123456+02:00" {
		t.Errorf("RawTimestamp = %q, want the wire string preserved verbatim", msg.RawTimestamp)
	}
}

func TestParseCameraMessageBadTimestamp(t *testing.T) {
	payload := strings.Replace(validCameraPayload, "2026-01-01T00:00:00Z", "not-a-time", 1)
	if _, err := ParseCameraMessage([]byte(payload)); err == nil {
		t.Error("expected error for non-RFC3339 timestamp")
	}
}

func TestParseCameraMessageInvalidJSON(t *testing.T) {
	if _, err := ParseCameraMessage([]byte("{not json")); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestWorldStateQuaternion(t *testing.T) {
	w := WorldState{Orientation: [4]float64{0.1, 0.2, 0.3, 0.4}}
	q := w.Quaternion()
	if q.X != 0.1 || q.Y != 0.2 || q.Z != 0.3 || q.W != 0.4 {
		t.Errorf("Quaternion() = %+v", q)
	}
}

func TestBuildSceneMessageRoundTrips(t *testing.T) {
	msg := SceneMessage{
		ID:        "scene-a",
		Name:      "Scene A",
		Timestamp: "2026-01-01T00:00:00Z",
		Objects: []SceneObject{
			{ID: "1", Category: "car", Translation: [3]float64{1, 2, 3}, Size: [3]float64{1, 1, 1}, Rotation: [4]float64{0, 0, 0, 1}},
		},
	}
	payload, err := BuildSceneMessage(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(payload), `"scene-a"`) {
		t.Errorf("expected encoded payload to contain scene id, got %s", payload)
	}
}
