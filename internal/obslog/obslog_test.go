package obslog

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestInitAndComponentEmitsJSONWithComponentField(t *testing.T) {
	var buf bytes.Buffer
	Init("debug", &buf)

	mqttLogger := Component("mqtt")
	mqttLogger.Info().Msg("connected")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected valid JSON log line, got %q: %v", buf.String(), err)
	}
	if line["component"] != "mqtt" {
		t.Errorf("component = %v, want mqtt", line["component"])
	}
	if line["msg"] != "connected" {
		t.Errorf("msg = %v, want connected", line["msg"])
	}
}

func TestInitRespectsLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init("warn", &buf)

	testLogger := Component("test")
	testLogger.Debug().Msg("should be filtered")
	if buf.Len() != 0 {
		t.Errorf("expected debug line to be filtered at warn level, got %q", buf.String())
	}

	testLogger.Error().Msg("should pass")
	if buf.Len() == 0 {
		t.Error("expected error line to pass at warn level")
	}
}

func TestParseLevelUnknownDefaultsToInfo(t *testing.T) {
	if parseLevel("nonsense") != zerolog.InfoLevel {
		t.Error("expected unknown level string to default to InfoLevel")
	}
}

func TestParseLevelWarningAlias(t *testing.T) {
	if parseLevel("warning") != zerolog.WarnLevel {
		t.Error("expected 'warning' to map to zerolog.WarnLevel")
	}
}

func TestWithDomainOmitsEmptyFields(t *testing.T) {
	var buf bytes.Buffer
	Init("info", &buf)

	xLogger := Component("x")
	WithDomain(xLogger.Info(), Domain{CameraID: "cam-1"}).Msg("m")

	out := buf.String()
	if !strings.Contains(out, "cam-1") {
		t.Errorf("expected camera_id in output, got %q", out)
	}
	if strings.Contains(out, "scene_id") {
		t.Errorf("expected scene_id to be omitted when empty, got %q", out)
	}
}
