package trackmot

import (
	"time"

	"github.com/scenescape/tracker/internal/geom3"
)

// Status is a track's lifecycle state, per SPEC_FULL.md §3.
type Status int

const (
	Tentative Status = iota
	Reliable
	Unreliable
	Suspended
	Deleted
)

func (s Status) String() string {
	switch s {
	case Tentative:
		return "tentative"
	case Reliable:
		return "reliable"
	case Unreliable:
		return "unreliable"
	case Suspended:
		return "suspended"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// measurement is the subset of a Detection the filter and classifier need,
// copied out of the caller's Detection by SetMeasurement so ownership of the
// original Detection never transfers to the Track Manager (SPEC_FULL.md §3
// "Ownership").
type measurement struct {
	Position      [3]float64
	Size          [3]float64
	Orientation   geom3.Quaternion
	Classification map[string]float64
}

// Track is a persisted belief about one physical object. All fields are
// owned by the Track Manager; callers only ever see value copies returned
// by the manager's accessors (Snapshot).
type Track struct {
	ID     uint64
	Status Status

	filter *cvFilter

	orientation    geom3.Quaternion
	classification map[string]float64

	createdTS       time.Time
	lastUpdateTS    time.Time
	hitCount        int
	missCount       int
	consecutiveMiss int

	pending *measurement
}

// Snapshot is a read-only, fully-copied view of a Track returned by the
// Track Manager's accessors so callers never alias manager-owned memory.
type Snapshot struct {
	ID              uint64
	Status          Status
	Position        [3]float64
	Velocity        [3]float64
	Size            [3]float64
	Orientation     geom3.Quaternion
	Classification  map[string]float64
	CreatedTS       time.Time
	LastUpdateTS    time.Time
	HitCount        int
	MissCount       int
	ConsecutiveMiss int
}

// ArgmaxClass returns the classification category with the highest
// probability, and that probability (the "detection score" / track score).
func (s Snapshot) ArgmaxClass() (string, float64) {
	var best string
	var bestP float64
	for cat, p := range s.Classification {
		if p > bestP || best == "" {
			best = cat
			bestP = p
		}
	}
	return best, bestP
}

func newTrack(id uint64, m measurement, createdTS time.Time) *Track {
	return &Track{
		ID:             id,
		Status:         Tentative,
		filter:         newCVFilter(m.Position, m.Size),
		orientation:    m.Orientation,
		classification: cloneClassification(m.Classification),
		createdTS:      createdTS,
		lastUpdateTS:   createdTS,
		hitCount:       1,
	}
}

func (t *Track) predict(dt float64) {
	if t.Status == Deleted {
		return
	}
	t.filter.predict(dt)
}

func (t *Track) snapshot() Snapshot {
	return Snapshot{
		ID:              t.ID,
		Status:          t.Status,
		Position:        t.filter.position(),
		Velocity:        t.filter.velocity(),
		Size:            t.filter.size(),
		Orientation:     t.orientation,
		Classification:  cloneClassification(t.classification),
		CreatedTS:       t.createdTS,
		LastUpdateTS:    t.lastUpdateTS,
		HitCount:        t.hitCount,
		MissCount:       t.missCount,
		ConsecutiveMiss: t.consecutiveMiss,
	}
}

func (t *Track) distanceMeasurable() distanceMeasurable {
	cat, _ := t.snapshot().ArgmaxClass()
	return distanceMeasurable{Position: t.filter.position(), ArgmaxCat: cat}
}

// classification smoothing rate: running estimate moves a fixed fraction of
// the way toward each new observation, matching the teacher's smoothing
// posture (Kalman-filtered center rather than a raw overwrite) applied here
// to the probability vector.
const classificationSmoothing = 0.3

func cloneClassification(src map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func mergeClassification(running, observed map[string]float64) map[string]float64 {
	out := cloneClassification(running)
	for cat, p := range observed {
		if cur, ok := out[cat]; ok {
			out[cat] = cur + classificationSmoothing*(p-cur)
		} else {
			out[cat] = p * classificationSmoothing
		}
	}
	return out
}
