package codec

import "testing"

const (
	cameraSchemaPath = "../../schemas/camera_data.schema.json"
	sceneSchemaPath  = "../../schemas/scene_data.schema.json"
)

func TestValidatorAcceptsValidCameraPayload(t *testing.T) {
	v, err := NewValidator(cameraSchemaPath, sceneSchemaPath)
	if err != nil {
		t.Fatalf("NewValidator failed: %v", err)
	}
	if err := v.ValidateCamera([]byte(validCameraPayload)); err != nil {
		t.Errorf("expected valid payload to pass, got %v", err)
	}
}

func TestValidatorRejectsMissingRequiredField(t *testing.T) {
	v, err := NewValidator(cameraSchemaPath, sceneSchemaPath)
	if err != nil {
		t.Fatalf("NewValidator failed: %v", err)
	}
	if err := v.ValidateCamera([]byte(`{"id":"cam-1"}`)); err == nil {
		t.Error("expected schema rejection for missing timestamp/objects")
	}
}

func TestValidatorAcceptsValidScenePayload(t *testing.T) {
	v, err := NewValidator(cameraSchemaPath, sceneSchemaPath)
	if err != nil {
		t.Fatalf("NewValidator failed: %v", err)
	}
	payload, err := BuildSceneMessage(SceneMessage{
		ID:        "scene-a",
		Name:      "Scene A",
		Timestamp: "2026-01-01T00:00:00Z",
		Objects: []SceneObject{
			{ID: "1", Category: "car", Translation: [3]float64{1, 2, 3}, Size: [3]float64{1, 1, 1}, Rotation: [4]float64{0, 0, 0, 1}},
		},
	})
	if err != nil {
		t.Fatalf("BuildSceneMessage failed: %v", err)
	}
	if err := v.ValidateScene(payload); err != nil {
		t.Errorf("expected built scene message to pass its own schema, got %v", err)
	}
}

func TestNilValidatorDisablesValidation(t *testing.T) {
	var v *Validator
	if err := v.ValidateCamera([]byte("not even json")); err != nil {
		t.Errorf("nil validator should skip validation, got %v", err)
	}
}
