// Package trackmot implements the tracker core: the Kalman-style
// predict/correct Track Manager, the pluggable-metric Data Associator, and
// the Multiple-Object Tracker tick orchestrator. It is the Go analogue of
// the teacher's mot package, generalized from 2D pixel tracking to 3D
// world-frame, multi-camera, lifecycle-managed tracking.
package trackmot

import (
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/scenescape/tracker/internal/geom3"
)

// Detection is one observation from one camera at one timestamp, already
// projected into the scene's world frame (calibration/undistortion is an
// external collaborator, per SPEC_FULL.md §1).
type Detection struct {
	Position       [3]float64
	Size           [3]float64
	Orientation    geom3.Quaternion
	Velocity       [3]float64
	Classification map[string]float64
	DetectorID     *int // optional, logging/telemetry only
}

// Score returns the detection's maximum classification component.
func (d Detection) Score() float64 {
	var best float64
	for _, p := range d.Classification {
		if p > best {
			best = p
		}
	}
	return best
}

func (d Detection) argmaxClass() string {
	var best string
	var bestP float64
	for cat, p := range d.Classification {
		if p > bestP || best == "" {
			best = cat
			bestP = p
		}
	}
	return best
}

func (d Detection) distanceMeasurable() distanceMeasurable {
	return distanceMeasurable{Position: d.Position, ArgmaxCat: d.argmaxClass()}
}

// DefaultDistanceType, DefaultDistanceThreshold and DefaultScoreThreshold
// match original_source/controller's MultipleObjectTracker() default
// constructor exactly (MultiClassEuclidean, 5.0, 0.50).
const (
	DefaultDistanceType      = MultiClassEuclidean
	DefaultDistanceThreshold = 5.0
	DefaultScoreThreshold    = 0.50
)

// Tracker orchestrates one tick of the Multiple-Object Tracker per
// SPEC_FULL.md §4.4: score-splitting, cascaded cross-tier association,
// multi-camera batched association, and new-track creation.
type Tracker struct {
	Manager *TrackManager

	DistanceType      DistanceType
	DistanceThreshold float64
	ScoreThreshold    float64

	lastTimestamp time.Time
	hasTicked     bool
}

// NewTracker builds a tracker with the design spec's documented defaults.
func NewTracker() *Tracker {
	return &Tracker{
		Manager:           NewTrackManager(),
		DistanceType:      DefaultDistanceType,
		DistanceThreshold: DefaultDistanceThreshold,
		ScoreThreshold:    DefaultScoreThreshold,
	}
}

// LastTimestamp returns the timestamp of the most recent tick.
func (t *Tracker) LastTimestamp() time.Time { return t.lastTimestamp }

func (t *Tracker) dt(timestamp time.Time) float64 {
	if !t.hasTicked {
		return 0
	}
	return timestamp.Sub(t.lastTimestamp).Seconds()
}

// Track performs one single-camera tick: predict, cascade association
// across reliability tiers, correct, then seed new tracks for unassigned
// high-score detections. Low-score detections only ever compete for
// Reliable tracks; survivors are dropped afterward rather than carried into
// the Unreliable/Suspended tiers or new-track creation (matches
// original_source/controller's MultipleObjectTracker::track — its
// lowScoreObjects/unassignedLowScoreObjects are never threaded past the
// Reliable-tier match).
func (t *Tracker) Track(detections []Detection, timestamp time.Time) {
	defer t.finishTick(timestamp)

	if len(detections) == 0 {
		t.Manager.Predict(t.dt(timestamp))
		t.Manager.Correct(timestamp)
		return
	}

	high, low := partitionByScore(detections, t.ScoreThreshold)
	t.Manager.Predict(t.dt(timestamp))

	unassignedHigh := identity(len(high))
	unassignedLow := identity(len(low))

	// a. Reliable vs high-score
	unassignedHigh = t.cascadeStage(t.Manager.tracksByStatus(Reliable), high, unassignedHigh)
	// b. Reliable survivors vs low-score; leftovers are discarded here.
	t.cascadeStage(t.Manager.tracksByStatus(Reliable), low, unassignedLow)
	// c. Unreliable and Tentative vs remaining high-score
	unassignedHigh = t.cascadeStage(t.Manager.tracksByStatus(Unreliable, Tentative), high, unassignedHigh)
	// d. Suspended vs remaining high-score
	unassignedHigh = t.cascadeStage(t.Manager.tracksByStatus(Suspended), high, unassignedHigh)

	t.Manager.Correct(timestamp)

	for _, idx := range unassignedHigh {
		t.createTrack(high[idx], timestamp)
	}
}

func (t *Tracker) finishTick(timestamp time.Time) {
	t.lastTimestamp = timestamp
	t.hasTicked = true
}

func (t *Tracker) createTrack(d Detection, timestamp time.Time) uint64 {
	return t.Manager.CreateTrack(d.Position, d.Size, d.Orientation, d.Classification, timestamp)
}

// cascadeStage associates one tier of tracks against one score bucket,
// restricted to the indices still listed in `unassigned`, applies matches
// via SetMeasurement, and returns the indices still unassigned afterward.
func (t *Tracker) cascadeStage(tracks []*Track, bucket []Detection, unassigned []int) []int {
	if len(tracks) == 0 || len(unassigned) == 0 {
		return unassigned
	}
	sub := make([]Detection, len(unassigned))
	for i, idx := range unassigned {
		sub[i] = bucket[idx]
	}
	result := Associate(trackMeasurables(tracks), detectionMeasurables(sub), t.DistanceType, t.DistanceThreshold)
	for _, a := range result.Assignments {
		track := tracks[a.TrackIndex]
		d := sub[a.DetectionIndex]
		t.Manager.SetMeasurement(track.ID, d.Position, d.Size, d.Orientation, d.Classification)
	}
	stillUnassigned := make([]int, 0, len(result.UnassignedDetections))
	for _, di := range result.UnassignedDetections {
		stillUnassigned = append(stillUnassigned, unassigned[di])
	}
	return stillUnassigned
}

func trackMeasurables(tracks []*Track) []distanceMeasurable {
	out := make([]distanceMeasurable, len(tracks))
	for i, tr := range tracks {
		out[i] = tr.distanceMeasurable()
	}
	return out
}

func detectionMeasurables(detections []Detection) []distanceMeasurable {
	out := make([]distanceMeasurable, len(detections))
	for i, d := range detections {
		out[i] = d.distanceMeasurable()
	}
	return out
}

func partitionByScore(detections []Detection, scoreThreshold float64) (high, low []Detection) {
	for _, d := range detections {
		if d.Score() >= scoreThreshold {
			high = append(high, d)
		} else {
			low = append(low, d)
		}
	}
	return high, low
}

func identity(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// --- Multi-camera variant ---

// TrackMultiCamera performs one tick over detections_per_camera, replacing
// the cascade and new-track steps of Track with their multi-camera
// counterparts per SPEC_FULL.md §4.4:
//
//   - each cascade tier runs association per camera in parallel (pure,
//     over immutable snapshots), then merges sequentially in camera order;
//     ties for the same track in the same tier go to the first camera, and
//     losing detections return to the unassigned pool.
//   - low-score detections only ever compete for Reliable tracks; survivors
//     are dropped afterward, same as the single-camera Track (matches
//     original_source/controller's multi-camera track(), which never
//     threads lowScoreObjectsPerCamera past the Reliable-tier match either).
//   - new-track creation iterates cameras in reverse input order, matching
//     each camera's leftover detections against tracks created earlier in
//     this same pass before minting new ones (cross-camera dedup).
func (t *Tracker) TrackMultiCamera(detectionsPerCamera [][]Detection, timestamp time.Time) {
	defer t.finishTick(timestamp)

	total := 0
	for _, cam := range detectionsPerCamera {
		total += len(cam)
	}
	if total == 0 {
		t.Manager.Predict(t.dt(timestamp))
		t.Manager.Correct(timestamp)
		return
	}

	highPerCam := make([][]Detection, len(detectionsPerCamera))
	lowPerCam := make([][]Detection, len(detectionsPerCamera))
	for i, cam := range detectionsPerCamera {
		highPerCam[i], lowPerCam[i] = partitionByScore(cam, t.ScoreThreshold)
	}

	t.Manager.Predict(t.dt(timestamp))

	unassignedHigh := t.multiCascadeStage(t.Manager.tracksByStatus(Reliable), highPerCam, identityPerCam(highPerCam))
	// b. Reliable survivors vs low-score; leftovers are discarded here.
	t.multiCascadeStage(t.Manager.tracksByStatus(Reliable), lowPerCam, identityPerCam(lowPerCam))
	// c. Unreliable and Tentative vs remaining high-score
	unassignedHigh = t.multiCascadeStage(t.Manager.tracksByStatus(Unreliable, Tentative), highPerCam, unassignedHigh)
	// d. Suspended vs remaining high-score
	unassignedHigh = t.multiCascadeStage(t.Manager.tracksByStatus(Suspended), highPerCam, unassignedHigh)

	t.Manager.Correct(timestamp)

	t.seedNewTracksReverse(highPerCam, unassignedHigh, timestamp)
}

func identityPerCam(bucketPerCamera [][]Detection) [][]int {
	out := make([][]int, len(bucketPerCamera))
	for i, b := range bucketPerCamera {
		out[i] = identity(len(b))
	}
	return out
}

// multiCascadeStage associates one tier of tracks against one score bucket,
// restricted per camera to the indices still listed in unassignedPerCamera,
// running each camera's association in parallel and merging sequentially in
// camera order so a track claimed by an earlier camera this stage can't
// also be claimed by a later one. Returns the bucket indices, per camera,
// still unassigned afterward.
func (t *Tracker) multiCascadeStage(tracks []*Track, bucketPerCamera [][]Detection, unassignedPerCamera [][]int) [][]int {
	n := len(bucketPerCamera)
	perCamResults := make([]AssociateResult, n)

	if len(tracks) > 0 {
		measurables := trackMeasurables(tracks)
		var eg errgroup.Group
		for i := range bucketPerCamera {
			i := i
			eg.Go(func() error {
				sub := make([]Detection, len(unassignedPerCamera[i]))
				for j, idx := range unassignedPerCamera[i] {
					sub[j] = bucketPerCamera[i][idx]
				}
				perCamResults[i] = Associate(measurables, detectionMeasurables(sub), t.DistanceType, t.DistanceThreshold)
				return nil
			})
		}
		_ = eg.Wait()
	}

	claimed := make(map[int]bool, len(tracks)) // track index -> already claimed this stage
	unassigned := make([][]int, n)
	for cam := 0; cam < n; cam++ {
		sub := unassignedPerCamera[cam]
		if len(tracks) == 0 {
			unassigned[cam] = append([]int(nil), sub...)
			continue
		}
		result := perCamResults[cam]
		assignedSub := make(map[int]bool, len(result.Assignments))
		for _, a := range result.Assignments {
			if claimed[a.TrackIndex] {
				continue // a prior camera already claimed this track this stage
			}
			claimed[a.TrackIndex] = true
			assignedSub[a.DetectionIndex] = true
			d := bucketPerCamera[cam][sub[a.DetectionIndex]]
			t.Manager.SetMeasurement(tracks[a.TrackIndex].ID, d.Position, d.Size, d.Orientation, d.Classification)
		}
		for subIdx, idx := range sub {
			if !assignedSub[subIdx] {
				unassigned[cam] = append(unassigned[cam], idx)
			}
		}
	}
	return unassigned
}

// seedNewTracksReverse implements the reverse-camera-order new-track pass:
// the latest camera's unassigned high-score detections are considered
// first; each camera's unassigned detections are matched against tracks
// created earlier in this same pass (cross-camera dedup) before minting new
// ones.
func (t *Tracker) seedNewTracksReverse(highPerCam [][]Detection, unassignedHigh [][]int, timestamp time.Time) {
	var newlyCreated []*Track
	for cam := len(highPerCam) - 1; cam >= 0; cam-- {
		idxs := unassignedHigh[cam]
		if len(idxs) == 0 {
			continue
		}
		highDets := make([]Detection, len(idxs))
		for i, idx := range idxs {
			highDets[i] = highPerCam[cam][idx]
		}

		if len(newlyCreated) > 0 {
			result := Associate(trackMeasurables(newlyCreated), detectionMeasurables(highDets), t.DistanceType, t.DistanceThreshold)
			dedupAssigned := make(map[int]bool, len(result.Assignments))
			for _, a := range result.Assignments {
				dedupAssigned[a.DetectionIndex] = true
			}
			remaining := make([]Detection, 0, len(highDets))
			for i, d := range highDets {
				if !dedupAssigned[i] {
					remaining = append(remaining, d)
				}
			}
			highDets = remaining
		}

		for _, d := range highDets {
			id := t.createTrack(d, timestamp)
			snap, ok := t.Manager.GetTrack(id)
			if !ok {
				continue
			}
			newlyCreated = append(newlyCreated, &Track{ID: snap.ID, filter: newCVFilter(snap.Position, snap.Size)})
		}
	}
}
