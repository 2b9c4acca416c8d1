package trackmot

import (
	"sync/atomic"
	"time"

	"github.com/scenescape/tracker/internal/geom3"
)

// Lifecycle lists the consecutive-hit/consecutive-miss thresholds that
// drive Track state transitions, recovered as documented defaults in
// SPEC_FULL.md §4.3 (no visible teacher or pack source pins concrete
// values — an Open Question resolved there and in DESIGN.md).
type Lifecycle struct {
	NReliable    int
	NMissDemote  int
	NMissSuspend int
	NMissDelete  int
}

// defaultFrameRate is used until UpdateTrackerConfig is called.
const defaultFrameRate = 10.0

func lifecycleForFrameRate(frameRate float64) Lifecycle {
	if frameRate <= 0 {
		frameRate = defaultFrameRate
	}
	return Lifecycle{
		NReliable:    3,
		NMissDemote:  roundAtLeastOne(0.5 * frameRate),
		NMissSuspend: roundAtLeastOne(1.5 * frameRate),
		NMissDelete:  roundAtLeastOne(3.0 * frameRate),
	}
}

func roundAtLeastOne(v float64) int {
	n := int(v + 0.5)
	if n < 1 {
		return 1
	}
	return n
}

// TrackManager owns the complete set of Tracks and is the sole component
// allowed to mutate them (SPEC_FULL.md §3 "Ownership"). It is not safe for
// concurrent mutation: all calls must be serialized by the caller (the
// tracker worker goroutine), per SPEC_FULL.md §5.
type TrackManager struct {
	tracks    map[uint64]*Track
	nextID    uint64
	lifecycle Lifecycle
}

// NewTrackManager builds an empty manager with the default lifecycle
// thresholds (frame_rate = defaultFrameRate).
func NewTrackManager() *TrackManager {
	return &TrackManager{
		tracks:    make(map[uint64]*Track),
		lifecycle: lifecycleForFrameRate(defaultFrameRate),
	}
}

// UpdateTrackerConfig recomputes the lifecycle thresholds from a camera
// frame rate, per SPEC_FULL.md §4.3.
func (m *TrackManager) UpdateTrackerConfig(frameRate float64) {
	m.lifecycle = lifecycleForFrameRate(frameRate)
}

// Predict advances every non-Deleted track's filter by dt seconds. dt <= 0
// is clamped to 0 (a no-op predict) rather than moving tracks backward in
// time.
func (m *TrackManager) Predict(dt float64) {
	if dt <= 0 {
		dt = 0
	}
	for _, t := range m.tracks {
		t.predict(dt)
	}
}

// SetMeasurement attaches a pending measurement to the named track. It is a
// no-op if the track is unknown or Deleted. It panics if a pending
// measurement is already set for this track — a tick must call Correct
// between any two SetMeasurement calls for the same track id, and a double
// set indicates a data-association bug upstream, not a condition to paper
// over (SPEC_FULL.md §7: unexpected state is asserted, not survived).
func (m *TrackManager) SetMeasurement(id uint64, pos, size [3]float64, orientation geom3.Quaternion, classification map[string]float64) {
	t, ok := m.tracks[id]
	if !ok || t.Status == Deleted {
		return
	}
	if t.pending != nil {
		panic("trackmot: SetMeasurement called twice for track without an intervening Correct")
	}
	t.pending = &measurement{
		Position:       pos,
		Size:           size,
		Orientation:    orientation,
		Classification: classification,
	}
}

// Correct applies the pending measurement (if any) to every track, then
// runs the lifecycle state machine once per tick, per SPEC_FULL.md §4.3.
// timestamp is the tick's driving timestamp, stamped onto every track that
// receives a measurement this tick — the filter is deterministic for fixed
// inputs, so lastUpdateTS must come from the caller, never from wall clock.
func (m *TrackManager) Correct(timestamp time.Time) {
	for _, t := range m.tracks {
		if t.pending != nil {
			t.filter.update(t.pending.Position, t.pending.Size)
			t.orientation = t.pending.Orientation
			t.classification = mergeClassification(t.classification, t.pending.Classification)
			t.hitCount++
			t.consecutiveMiss = 0
			t.lastUpdateTS = timestamp
			t.pending = nil
		} else if t.Status != Deleted {
			t.missCount++
			t.consecutiveMiss++
		}
		m.transition(t)
	}
	m.gc()
}

func (m *TrackManager) transition(t *Track) {
	switch t.Status {
	case Tentative:
		if t.hitCount >= m.lifecycle.NReliable {
			t.Status = Reliable
		} else if t.consecutiveMiss >= m.lifecycle.NMissDemote {
			t.Status = Deleted
		}
	case Reliable:
		if t.consecutiveMiss >= m.lifecycle.NMissDemote {
			t.Status = Unreliable
		}
	case Unreliable:
		if t.consecutiveMiss == 0 {
			t.Status = Reliable
		} else if t.consecutiveMiss >= m.lifecycle.NMissDemote+m.lifecycle.NMissSuspend {
			t.Status = Suspended
		}
	case Suspended:
		if t.consecutiveMiss == 0 {
			t.Status = Reliable
		} else if t.consecutiveMiss >= m.lifecycle.NMissDelete {
			t.Status = Deleted
		}
	}
}

func (m *TrackManager) gc() {
	for id, t := range m.tracks {
		if t.Status == Deleted {
			delete(m.tracks, id)
		}
	}
}

// CreateTrack allocates a new track id, initializes its filter from the
// given measurement, and sets status=Tentative, hit_count=1.
func (m *TrackManager) CreateTrack(pos, size [3]float64, orientation geom3.Quaternion, classification map[string]float64, createdTS time.Time) uint64 {
	id := atomic.AddUint64(&m.nextID, 1)
	t := newTrack(id, measurement{Position: pos, Size: size, Orientation: orientation, Classification: classification}, createdTS)
	m.tracks[id] = t
	return id
}

// Purge explicitly deletes a track by id (the "explicit purge" path named
// in SPEC_FULL.md §3's lifecycle description).
func (m *TrackManager) Purge(id uint64) {
	delete(m.tracks, id)
}

// GetTrack returns a snapshot of one track, or false if it does not exist.
func (m *TrackManager) GetTrack(id uint64) (Snapshot, bool) {
	t, ok := m.tracks[id]
	if !ok {
		return Snapshot{}, false
	}
	return t.snapshot(), true
}

// GetTracks returns snapshots of every non-Deleted track.
func (m *TrackManager) GetTracks() []Snapshot {
	out := make([]Snapshot, 0, len(m.tracks))
	for _, t := range m.tracks {
		out = append(out, t.snapshot())
	}
	return out
}

func (m *TrackManager) filterByStatus(s Status) []Snapshot {
	var out []Snapshot
	for _, t := range m.tracks {
		if t.Status == s {
			out = append(out, t.snapshot())
		}
	}
	return out
}

// GetReliableTracks returns snapshots of tracks with status=Reliable.
func (m *TrackManager) GetReliableTracks() []Snapshot { return m.filterByStatus(Reliable) }

// GetUnreliableTracks returns snapshots of tracks with status=Unreliable.
func (m *TrackManager) GetUnreliableTracks() []Snapshot { return m.filterByStatus(Unreliable) }

// GetSuspendedTracks returns snapshots of tracks with status=Suspended.
func (m *TrackManager) GetSuspendedTracks() []Snapshot { return m.filterByStatus(Suspended) }

// internal: each non-deleted track exposed for the tick orchestrator's
// association step, without copying filter state (the orchestrator only
// reads position/class, never mutates).
func (m *TrackManager) tracksByStatus(statuses ...Status) []*Track {
	var out []*Track
	want := make(map[Status]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}
	for _, t := range m.tracks {
		if want[t.Status] {
			out = append(out, t)
		}
	}
	return out
}
