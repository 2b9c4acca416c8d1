// Package obslog wraps zerolog to emit the structured JSON log shape from
// SPEC_FULL.md §4.10/§7: timestamp, level, msg, component, and optional
// mqtt/domain/error contexts.
package obslog

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Init configures the global zerolog logger: RFC3339 timestamps under the
// "timestamp" key, the message under the "msg" key, JSON output to w
// (os.Stderr in production, a buffer in tests), and the service's
// trace/debug/info/warning/error level vocabulary mapped onto zerolog's
// levels (zerolog has no "warning" — "warning" and "warn" both map to
// WarnLevel).
func Init(level string, w io.Writer) {
	zerolog.TimeFieldFormat = "2006-01-02T15:04:05.000Z07:00"
	zerolog.TimestampFieldName = "timestamp"
	zerolog.MessageFieldName = "msg"
	if w == nil {
		w = os.Stderr
	}
	zerolog.SetGlobalLevel(parseLevel(level))
	log := zerolog.New(w).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &log
	globalLogger = log
}

var globalLogger = zerolog.New(os.Stderr).With().Timestamp().Logger()

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Component returns a logger bound to one component name, the field every
// log line in the design spec's §7 structured-log contract carries.
func Component(name string) zerolog.Logger {
	return globalLogger.With().Str("component", name).Logger()
}

// Domain fields describe which scene/camera/category a log line concerns.
type Domain struct {
	SceneID        string
	CameraID       string
	ObjectCategory string
}

// WithDomain attaches the optional scene/camera/category context fields
// spec.md §7 lists, omitting any that are empty.
func WithDomain(e *zerolog.Event, d Domain) *zerolog.Event {
	if d.SceneID != "" {
		e = e.Str("scene_id", d.SceneID)
	}
	if d.CameraID != "" {
		e = e.Str("camera_id", d.CameraID)
	}
	if d.ObjectCategory != "" {
		e = e.Str("object_category", d.ObjectCategory)
	}
	return e
}

// MQTT fields describe one bus interaction.
type MQTT struct {
	Topic     string
	Direction string // "publish" | "subscribe" | "receive"
}

// WithMQTT attaches the optional mqtt context fields.
func WithMQTT(e *zerolog.Event, m MQTT) *zerolog.Event {
	if m.Topic != "" {
		e = e.Str("topic", m.Topic)
	}
	if m.Direction != "" {
		e = e.Str("direction", m.Direction)
	}
	return e
}
