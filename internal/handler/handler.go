// Package handler binds the bus, scene registry, codec, and tracker
// together: the Message Handler of SPEC_FULL.md §4.5.
package handler

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/scenescape/tracker/internal/bus"
	"github.com/scenescape/tracker/internal/codec"
	"github.com/scenescape/tracker/internal/errs"
	"github.com/scenescape/tracker/internal/sceneregistry"
	"github.com/scenescape/tracker/internal/topic"
	"github.com/scenescape/tracker/internal/trackmot"
)

// Tick is the serialized interface the handler drives a scene's tracker
// through. Implemented by *trackmot.Tracker; narrowed here so the handler
// depends only on the operation it actually calls. Every scene, including a
// single-camera one, is ticked through the multi-camera entry point so that
// simultaneous per-camera detections batched within one collection window
// genuinely compete in one cascaded association pass, per SPEC_FULL.md
// §4.4's multi-camera variant and its cross-camera dedup scenario.
type Tick interface {
	TrackMultiCamera(detectionsPerCamera [][]trackmot.Detection, timestamp time.Time)
}

// SceneTracks exposes the subset of TrackManager reads the handler needs to
// build an egress payload after a tick.
type SceneTracks interface {
	GetReliableTracks() []trackmot.Snapshot
}

// TrackerPair bundles the tick-driving and read-only-snapshot views of one
// scene's tracker. The handler owns one TrackerPair per scene UID — tracks
// live in a shared world frame per scene (SPEC_FULL.md §1/§3), so detections
// from two different scenes must never compete for the same track.
type TrackerPair struct {
	Tick   Tick
	Tracks SceneTracks
}

// DefaultCollectionWindow bounds how long the handler waits, per scene,
// after the first detection of a tick before batching whatever cameras have
// reported so far into one TrackMultiCamera call. It is the window the
// service passes to New, and New's fallback for a window <= 0; it is
// chosen long enough for a scene's cameras
// to report their (near-simultaneous, bus-delivered) frames for the same
// instant, short enough not to add perceptible end-to-end latency.
const DefaultCollectionWindow = 200 * time.Millisecond

// Handler is the Message Handler: it owns the received/published/rejected
// counters, the category allowlist, the per-scene tracker set, and the
// single-goroutine serialization of all tracker mutation.
type Handler struct {
	busClient bus.Client
	registry  *sceneregistry.Registry
	validator *codec.Validator
	schemaOn  bool

	newTracker    func() TrackerPair
	collectWindow time.Duration

	trackers map[string]TrackerPair   // scene UID -> its tracker, created on first use
	pending  map[string]*scenePending // scene UID -> this tick's not-yet-flushed detections

	jobs chan job

	receivedCount  uint64
	publishedCount uint64
	rejectedCount  uint64

	categoriesMu sync.Mutex
	categories   map[string]bool

	wg   sync.WaitGroup
	stop chan struct{}
}

// scenePending accumulates one scene's detections across the cameras that
// have reported within the current collection window. Only ever touched
// from the worker goroutine.
type scenePending struct {
	detectionsByCamera map[string][]trackmot.Detection
	latestTimestamp    time.Time
	latestRawTimestamp string
	timer              *time.Timer
}

type jobKind int

const (
	jobCameraMessage jobKind = iota
	jobFlushScene
)

type job struct {
	kind     jobKind
	cameraID string
	payload  []byte
	sceneUID string
}

// New builds a Handler. schemaValidation enables payload schema checks via
// validator (nil validator with schemaValidation=true is a config error the
// caller should catch earlier). newTracker constructs a fresh scene-scoped
// tracker; the handler calls it once per distinct scene UID it sees. A
// collectWindow <= 0 uses DefaultCollectionWindow.
func New(busClient bus.Client, registry *sceneregistry.Registry, validator *codec.Validator, schemaValidation bool, newTracker func() TrackerPair, collectWindow time.Duration) *Handler {
	if collectWindow <= 0 {
		collectWindow = DefaultCollectionWindow
	}
	return &Handler{
		busClient:     busClient,
		registry:      registry,
		validator:     validator,
		schemaOn:      schemaValidation,
		newTracker:    newTracker,
		collectWindow: collectWindow,
		trackers:      make(map[string]TrackerPair),
		pending:       make(map[string]*scenePending),
		jobs:          make(chan job, 256),
		categories:    make(map[string]bool),
		stop:          make(chan struct{}),
	}
}

// Start subscribes to every registered camera's topic (skipping any whose
// id fails topic-segment validation) and launches the single worker
// goroutine that serializes all tracker mutation. Bus callbacks only ever
// enqueue jobs; they never call into the tracker directly.
func (h *Handler) Start() {
	h.wg.Add(1)
	go h.worker()

	cameraIDs := h.registry.GetAllCameraIDs()
	if len(cameraIDs) == 0 {
		log.Warn().Str("component", "mqtt").Msg("no cameras registered, not subscribing to any topics")
		return
	}

	for _, cameraID := range cameraIDs {
		if !topic.ValidSegment(cameraID) {
			log.Error().Str("component", "mqtt").Str("camera_id", cameraID).
				Msg("camera id contains invalid characters for MQTT topic, skipping")
			continue
		}
		id := cameraID
		t := topic.CameraDataTopic(id)
		if err := h.busClient.Subscribe(t, func(_ string, payload []byte) {
			h.onMessage(id, payload)
		}); err != nil {
			log.Error().Str("component", "mqtt").Str("topic", t).Err(err).Msg("subscribe failed")
		}
	}

	log.Info().Str("component", "mqtt").Int("camera_count", len(cameraIDs)).Msg("queued camera subscriptions")
}

// Stop unsubscribes from every camera topic and drains the worker
// goroutine.
func (h *Handler) Stop() {
	log.Info().Str("component", "message_handler").
		Uint64("received", atomic.LoadUint64(&h.receivedCount)).
		Uint64("published", atomic.LoadUint64(&h.publishedCount)).
		Uint64("rejected", atomic.LoadUint64(&h.rejectedCount)).
		Msg("stopping")

	for _, cameraID := range h.registry.GetAllCameraIDs() {
		if !topic.ValidSegment(cameraID) {
			continue
		}
		_ = h.busClient.Unsubscribe(topic.CameraDataTopic(cameraID))
	}

	close(h.stop)
	h.wg.Wait()
}

// onMessage is the bus callback entry point: enqueue-only, never blocking
// on tracker state.
func (h *Handler) onMessage(cameraID string, payload []byte) {
	atomic.AddUint64(&h.receivedCount, 1)
	select {
	case h.jobs <- job{kind: jobCameraMessage, cameraID: cameraID, payload: payload}:
	default:
		log.Warn().Str("component", "message_handler").Str("camera_id", cameraID).
			Msg("job queue full, dropping message")
		atomic.AddUint64(&h.rejectedCount, 1)
	}
}

// enqueueFlush is the collection-window timer's callback: enqueue-only,
// same discipline as onMessage, since it runs on its own goroutine.
func (h *Handler) enqueueFlush(sceneUID string) {
	select {
	case h.jobs <- job{kind: jobFlushScene, sceneUID: sceneUID}:
	default:
		log.Warn().Str("component", "message_handler").Str("scene_id", sceneUID).
			Msg("job queue full, dropping scheduled scene flush")
	}
}

func (h *Handler) worker() {
	defer h.wg.Done()
	for {
		select {
		case <-h.stop:
			h.stopPendingTimers()
			return
		case j := <-h.jobs:
			h.process(j)
		}
	}
}

// stopPendingTimers cancels every scene's in-flight collection-window timer
// on shutdown, so no enqueueFlush fires after the worker has exited.
func (h *Handler) stopPendingTimers() {
	for _, p := range h.pending {
		if p.timer != nil {
			p.timer.Stop()
		}
	}
}

func (h *Handler) process(j job) {
	if j.kind == jobFlushScene {
		h.flushScene(j.sceneUID)
		return
	}
	h.processMessage(j)
}

func (h *Handler) processMessage(j job) {
	if h.schemaOn {
		if err := h.validator.ValidateCamera(j.payload); err != nil {
			log.Warn().Str("component", "message_handler").Str("camera_id", j.cameraID).Err(err).
				Msg("camera message rejected by schema")
			atomic.AddUint64(&h.rejectedCount, 1)
			return
		}
	}

	msg, err := codec.ParseCameraMessage(j.payload)
	if err != nil {
		log.Warn().Str("component", "message_handler").Str("camera_id", j.cameraID).Err(err).
			Msg("failed to parse camera message")
		atomic.AddUint64(&h.rejectedCount, 1)
		return
	}

	sc, ok := h.registry.FindSceneForCamera(j.cameraID)
	if !ok {
		log.Warn().Str("component", "message_handler").Str("camera_id", j.cameraID).
			Err(&errs.RoutingError{Msg: "camera not in scene registry"}).
			Msg("unknown camera, dropping message")
		atomic.AddUint64(&h.rejectedCount, 1)
		return
	}

	detections := make([]trackmot.Detection, 0)
	for category, dets := range msg.Objects {
		if !h.validCategory(category, sc.UID) {
			continue
		}
		for _, d := range dets {
			detections = append(detections, trackmot.Detection{
				Position:       d.WorldState.Position,
				Size:           d.WorldState.Size,
				Orientation:    d.WorldState.Quaternion(),
				Velocity:       d.WorldState.Velocity,
				Classification: d.Classification,
			})
		}
	}

	h.accumulate(sc.UID, j.cameraID, detections, msg.Timestamp, msg.RawTimestamp)
}

// accumulate folds one camera's detections into its scene's pending tick,
// starting the scene's collection-window timer on the first detection of a
// new tick. Only ever called from the worker goroutine.
func (h *Handler) accumulate(sceneUID, cameraID string, detections []trackmot.Detection, timestamp time.Time, rawTimestamp string) {
	p, ok := h.pending[sceneUID]
	if !ok {
		p = &scenePending{detectionsByCamera: make(map[string][]trackmot.Detection)}
		h.pending[sceneUID] = p
	}
	p.detectionsByCamera[cameraID] = detections
	if p.latestRawTimestamp == "" || timestamp.After(p.latestTimestamp) {
		p.latestTimestamp = timestamp
		p.latestRawTimestamp = rawTimestamp
	}
	if p.timer == nil {
		uid := sceneUID
		p.timer = time.AfterFunc(h.collectWindow, func() { h.enqueueFlush(uid) })
	}
}

// flushScene batches a scene's collected per-camera detections into one
// TrackMultiCamera tick (cameras with no detection this window contribute
// an empty slice) and publishes the resulting reliable tracks.
func (h *Handler) flushScene(sceneUID string) {
	p, ok := h.pending[sceneUID]
	if !ok {
		return
	}
	delete(h.pending, sceneUID)

	cameraIDs := h.registry.GetCameraIDsForScene(sceneUID)
	detectionsPerCamera := make([][]trackmot.Detection, len(cameraIDs))
	for i, cameraID := range cameraIDs {
		detectionsPerCamera[i] = p.detectionsByCamera[cameraID]
	}

	tp := h.trackerFor(sceneUID)
	tp.Tick.TrackMultiCamera(detectionsPerCamera, p.latestTimestamp)

	h.publishByCategory(sceneUID, p.latestRawTimestamp, tp.Tracks)
}

// trackerFor returns the scene's tracker, constructing one on first use.
func (h *Handler) trackerFor(sceneUID string) TrackerPair {
	tp, ok := h.trackers[sceneUID]
	if !ok {
		tp = h.newTracker()
		h.trackers[sceneUID] = tp
	}
	return tp
}

// validCategory checks (and caches) whether category is a legal topic
// segment. The lock only guards the test-and-insert; publication happens
// outside it.
func (h *Handler) validCategory(category, sceneUID string) bool {
	h.categoriesMu.Lock()
	known, seen := h.categories[category]
	if !seen {
		known = topic.ValidSegment(category)
		h.categories[category] = known
	}
	h.categoriesMu.Unlock()

	if !known {
		log.Error().Str("component", "message_handler").Str("scene_id", sceneUID).Str("category", category).
			Msg("category contains invalid characters for MQTT topic, skipping")
	}
	return known
}

// publishByCategory builds and publishes one egress message per category
// present among the scene's reliable tracks. rawTimestamp is reused
// verbatim from the ingress message that drove this tick (the latest of
// the batch), preserving the timestamp field byte-for-byte rather than
// reformatting a parsed time.Time.
func (h *Handler) publishByCategory(sceneUID, rawTimestamp string, tracks SceneTracks) {
	byCategory := make(map[string][]codec.SceneObject)
	for _, snap := range tracks.GetReliableTracks() {
		cat, _ := snap.ArgmaxClass()
		if cat == "" || !h.validCategory(cat, sceneUID) {
			continue
		}
		byCategory[cat] = append(byCategory[cat], codec.SceneObject{
			ID:          formatTrackID(snap.ID),
			Category:    cat,
			Translation: snap.Position,
			Velocity:    snap.Velocity,
			Size:        snap.Size,
			Rotation:    [4]float64{snap.Orientation.X, snap.Orientation.Y, snap.Orientation.Z, snap.Orientation.W},
		})
	}

	name, uid := h.sceneNameFor(sceneUID)
	for category, objects := range byCategory {
		payload, err := codec.BuildSceneMessage(codec.SceneMessage{
			ID:        uid,
			Name:      name,
			Timestamp: rawTimestamp,
			Objects:   objects,
		})
		if err != nil {
			log.Error().Str("component", "message_handler").Str("scene_id", uid).Err(err).Msg("failed to encode scene message")
			continue
		}
		if h.schemaOn {
			if err := h.validator.ValidateScene(payload); err != nil {
				log.Error().Str("component", "message_handler").Str("scene_id", uid).Err(err).Msg("built scene message failed schema validation")
				continue
			}
		}

		outTopic := topic.SceneDataTopic(uid, category)
		if err := h.busClient.Publish(outTopic, payload); err != nil {
			log.Error().Str("component", "mqtt").Str("topic", outTopic).Err(err).Msg("publish failed")
			continue
		}
		atomic.AddUint64(&h.publishedCount, 1)
	}
}

func (h *Handler) sceneNameFor(sceneUID string) (name, uid string) {
	for _, sc := range h.registry.GetAllScenes() {
		if sc.UID == sceneUID {
			return sc.Name, sc.UID
		}
	}
	return "", sceneUID
}

func formatTrackID(id uint64) string {
	const base = 36
	if id == 0 {
		return "0"
	}
	digits := "0123456789abcdefghijklmnopqrstuvwxyz"
	var buf [32]byte
	i := len(buf)
	for id > 0 {
		i--
		buf[i] = digits[id%base]
		id /= base
	}
	return string(buf[i:])
}

// Stats returns the monotonic counters, for telemetry/tests.
func (h *Handler) Stats() (received, published, rejected uint64) {
	return atomic.LoadUint64(&h.receivedCount), atomic.LoadUint64(&h.publishedCount), atomic.LoadUint64(&h.rejectedCount)
}
