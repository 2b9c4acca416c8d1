// Package sceneregistry provides fast camera-id -> scene lookup for
// incoming bus messages, enforcing that each camera belongs to exactly one
// scene, per SPEC_FULL.md §4.1.
package sceneregistry

import (
	"github.com/scenescape/tracker/internal/errs"
	"github.com/scenescape/tracker/internal/scene"
)

// Registry maps camera ids to the Scene/Camera pair they belong to. Zero
// value is usable; Register populates it. Read methods are safe to call
// concurrently once Register has completed — Register itself is not safe
// for concurrent use and is expected to run once at startup.
type Registry struct {
	scenes        []scene.Scene
	cameraToScene map[string]int // camera_id -> index into scenes
	cameraToCam   map[string]int // camera_id -> index into scenes[i].Cameras
}

// New builds an empty registry.
func New() *Registry {
	return &Registry{
		cameraToScene: make(map[string]int),
		cameraToCam:   make(map[string]int),
	}
}

// Register replaces the registry's contents with scenes, building the
// camera-to-scene index. It returns *errs.DuplicateCameraError (wrapped by
// error interface) and leaves the registry exactly as it was before the
// call if any camera id is assigned to two scenes — callers treat this as
// a fatal startup condition.
func (r *Registry) Register(scenes []scene.Scene) error {
	cameraToScene := make(map[string]int, len(scenes))
	cameraToCam := make(map[string]int, len(scenes))

	for sceneIdx, sc := range scenes {
		for camIdx, cam := range sc.Cameras {
			if existingIdx, ok := cameraToScene[cam.UID]; ok {
				return &errs.DuplicateCameraError{
					CameraID: cam.UID,
					SceneA:   scenes[existingIdx].Name,
					SceneB:   sc.Name,
				}
			}
			cameraToScene[cam.UID] = sceneIdx
			cameraToCam[cam.UID] = camIdx
		}
	}

	r.scenes = scenes
	r.cameraToScene = cameraToScene
	r.cameraToCam = cameraToCam
	return nil
}

// FindSceneForCamera returns the scene a camera belongs to, or false if the
// camera is not registered.
func (r *Registry) FindSceneForCamera(cameraID string) (scene.Scene, bool) {
	idx, ok := r.cameraToScene[cameraID]
	if !ok {
		return scene.Scene{}, false
	}
	return r.scenes[idx], true
}

// FindCamera returns one registered camera's calibration data.
func (r *Registry) FindCamera(cameraID string) (scene.Camera, bool) {
	sceneIdx, ok := r.cameraToScene[cameraID]
	if !ok {
		return scene.Camera{}, false
	}
	camIdx, ok := r.cameraToCam[cameraID]
	if !ok {
		return scene.Camera{}, false
	}
	return r.scenes[sceneIdx].Cameras[camIdx], true
}

// GetCameraIDsForScene returns the camera ids belonging to sceneID, in
// declaration order, or nil if the scene is unknown.
func (r *Registry) GetCameraIDsForScene(sceneID string) []string {
	for _, sc := range r.scenes {
		if sc.UID == sceneID {
			ids := make([]string, len(sc.Cameras))
			for i, cam := range sc.Cameras {
				ids[i] = cam.UID
			}
			return ids
		}
	}
	return nil
}

// GetAllCameraIDs returns every registered camera id, in no particular
// order.
func (r *Registry) GetAllCameraIDs() []string {
	ids := make([]string, 0, len(r.cameraToScene))
	for id := range r.cameraToScene {
		ids = append(ids, id)
	}
	return ids
}

// GetAllScenes returns every registered scene.
func (r *Registry) GetAllScenes() []scene.Scene { return r.scenes }

// Empty reports whether no scenes are registered.
func (r *Registry) Empty() bool { return len(r.scenes) == 0 }

// CameraCount returns the total number of registered cameras.
func (r *Registry) CameraCount() int { return len(r.cameraToScene) }

// SceneCount returns the total number of registered scenes.
func (r *Registry) SceneCount() int { return len(r.scenes) }
