package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/scenescape/tracker/internal/errs"
	"github.com/scenescape/tracker/internal/scene"
)

// SceneLoader loads the scene/camera calibration set.
type SceneLoader interface {
	Load() ([]scene.Scene, error)
}

// NewSceneLoader builds the loader implementation matching cfg.Source,
// resolving a relative FilePath against configDir.
func NewSceneLoader(cfg ScenesConfig, configDir string) (SceneLoader, error) {
	switch cfg.Source {
	case ScenesSourceFile, "":
		path := cfg.FilePath
		if path != "" && !filepath.IsAbs(path) {
			path = filepath.Join(configDir, path)
		}
		return &fileSceneLoader{path: path}, nil
	case ScenesSourceAPI:
		return &apiSceneLoader{}, nil
	default:
		return nil, errs.NewConfigError("unknown scenes source "+string(cfg.Source), nil)
	}
}

// fileSceneLoader parses the JSON array format from spec.md §6.
type fileSceneLoader struct {
	path string
}

func (l *fileSceneLoader) Load() ([]scene.Scene, error) {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		return nil, errs.NewConfigError("reading scenes file", err)
	}
	var scenes []scene.Scene
	if err := json.Unmarshal(raw, &scenes); err != nil {
		return nil, errs.NewConfigError("parsing scenes file", err)
	}
	return scenes, nil
}

// apiSceneLoader is the Manager REST API scene source. Unimplemented, per
// SPEC_FULL.md §4.8 and the source's own `SceneSource::Api` comment — not
// guessed at.
type apiSceneLoader struct{}

func (l *apiSceneLoader) Load() ([]scene.Scene, error) {
	return nil, &errs.NotImplemented{What: "API scene loading"}
}
