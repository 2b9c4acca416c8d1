package codec

import (
	"bytes"
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/scenescape/tracker/internal/errs"
)

// Validator holds the compiled ingress (camera) and egress (scene) JSON
// Schemas, mirroring message_handler.cpp's parse-then-schema-validate
// two-step: raw bytes are checked against the schema before being decoded
// into a typed CameraMessage/SceneMessage.
type Validator struct {
	camera *jsonschema.Schema
	scene  *jsonschema.Schema
}

// NewValidator compiles the camera-data and scene-data schema files.
// Either path may be empty, disabling validation for that direction. A
// schema that fails to compile is returned as an error.
func NewValidator(cameraSchemaPath, sceneSchemaPath string) (*Validator, error) {
	v := &Validator{}
	compiler := jsonschema.NewCompiler()

	if cameraSchemaPath != "" {
		schema, err := compiler.Compile(cameraSchemaPath)
		if err != nil {
			return nil, &errs.SchemaValidationError{Msg: "compiling camera-data schema", Err: err}
		}
		v.camera = schema
	}
	if sceneSchemaPath != "" {
		schema, err := compiler.Compile(sceneSchemaPath)
		if err != nil {
			return nil, &errs.SchemaValidationError{Msg: "compiling scene-data schema", Err: err}
		}
		v.scene = schema
	}
	return v, nil
}

// ValidateCamera validates raw ingress bytes against the camera-data
// schema. A nil *Validator, or a Validator with no compiled camera schema,
// treats every payload as valid (validation disabled).
func (v *Validator) ValidateCamera(payload []byte) error {
	if v == nil || v.camera == nil {
		return nil
	}
	return validate(v.camera, payload)
}

// ValidateScene validates a built egress payload against the scene-data
// schema before publish.
func (v *Validator) ValidateScene(payload []byte) error {
	if v == nil || v.scene == nil {
		return nil
	}
	return validate(v.scene, payload)
}

func validate(schema *jsonschema.Schema, payload []byte) error {
	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return &errs.ParseError{Msg: "invalid JSON", Err: err}
	}
	if err := schema.Validate(doc); err != nil {
		return &errs.SchemaValidationError{Msg: "payload rejected by schema", Err: err}
	}
	return nil
}
