// Package errs defines the error kinds shared across the tracker service.
//
// Per-message errors (ParseError, SchemaValidation, RoutingError) are local
// to the message handler: they are logged and counted, never propagated.
// ConfigError and DuplicateCameraError are fatal at startup. BusTransient
// and BusPermanent drive the process exit code (§7 of the design spec).
package errs

import "fmt"

// Kind tags an error with the taxonomy from the design spec's error-handling
// section, independent of the concrete Go error type.
type Kind string

const (
	KindConfig           Kind = "config_error"
	KindSchemaValidation Kind = "schema_validation"
	KindParse            Kind = "parse_error"
	KindRouting          Kind = "routing_error"
	KindDuplicateCamera  Kind = "duplicate_camera"
	KindBusTransient     Kind = "bus_transient"
	KindBusPermanent     Kind = "bus_permanent"
	KindShutdown         Kind = "shutdown_requested"
)

// ConfigError wraps a fatal configuration problem: missing file, invalid
// schema, invalid env override, or missing TLS material.
type ConfigError struct {
	Msg string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config error: %s: %v", e.Msg, e.Err)
	}
	return "config error: " + e.Msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

func (e *ConfigError) Kind() Kind { return KindConfig }

// NewConfigError builds a ConfigError wrapping an optional cause.
func NewConfigError(msg string, cause error) *ConfigError {
	return &ConfigError{Msg: msg, Err: cause}
}

// SchemaValidationError marks an inbound/outbound payload rejected by JSON
// Schema validation.
type SchemaValidationError struct {
	Msg string
	Err error
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("schema validation failed: %s: %v", e.Msg, e.Err)
}

func (e *SchemaValidationError) Unwrap() error { return e.Err }

func (e *SchemaValidationError) Kind() Kind { return KindSchemaValidation }

// ParseError marks malformed JSON or a missing required field.
type ParseError struct {
	Msg string
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Msg, e.Err)
	}
	return "parse error: " + e.Msg
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Kind() Kind { return KindParse }

// RoutingError marks an unknown camera, or an invalid topic segment
// (category, scene uid, camera uid).
type RoutingError struct {
	Msg string
}

func (e *RoutingError) Error() string { return "routing error: " + e.Msg }

func (e *RoutingError) Kind() Kind { return KindRouting }

// DuplicateCameraError is raised by the scene registry when a camera id is
// assigned to two different scenes.
type DuplicateCameraError struct {
	CameraID string
	SceneA   string
	SceneB   string
}

func (e *DuplicateCameraError) Error() string {
	return fmt.Sprintf("camera %q is assigned to multiple scenes: %q and %q",
		e.CameraID, e.SceneA, e.SceneB)
}

func (e *DuplicateCameraError) Kind() Kind { return KindDuplicateCamera }

// BusTransient marks a bus failure the supervisor should retry (process
// exits 1).
type BusTransient struct {
	Err error
}

func (e *BusTransient) Error() string { return "transient bus error: " + e.Err.Error() }

func (e *BusTransient) Unwrap() error { return e.Err }

func (e *BusTransient) Kind() Kind { return KindBusTransient }

// BusPermanent marks an auth/protocol bus failure the supervisor should not
// retry (process exits 0).
type BusPermanent struct {
	Err error
}

func (e *BusPermanent) Error() string { return "permanent bus error: " + e.Err.Error() }

func (e *BusPermanent) Unwrap() error { return e.Err }

func (e *BusPermanent) Kind() Kind { return KindBusPermanent }

// ErrShutdownRequested is the sentinel error of the shutdown-requested
// kind. No operation in this module returns it; an interrupted
// Disconnect drain reports *BusTransient instead.
var ErrShutdownRequested = &shutdownError{}

type shutdownError struct{}

func (*shutdownError) Error() string { return "shutdown requested" }

func (*shutdownError) Kind() Kind { return KindShutdown }

// NotImplemented marks a declared-but-unimplemented variant (e.g. the Api
// scenes loader).
type NotImplemented struct {
	What string
}

func (e *NotImplemented) Error() string { return e.What + " is not implemented" }
