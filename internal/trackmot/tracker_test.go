package trackmot

import (
	"testing"
	"time"
)

func detectionAt(x, y, z float64, category string) Detection {
	return Detection{
		Position:       [3]float64{x, y, z},
		Size:           [3]float64{1, 1, 1},
		Classification: map[string]float64{category: 0.9},
	}
}

func TestTrackCreatesNewTrackFromFirstDetection(t *testing.T) {
	tr := NewTracker()
	tr.Track([]Detection{detectionAt(0, 0, 0, "car")}, baseTime)

	tracks := tr.Manager.GetTracks()
	if len(tracks) != 1 {
		t.Fatalf("expected 1 track, got %d", len(tracks))
	}
	if tracks[0].Status != Tentative {
		t.Errorf("status = %v, want Tentative on first sight", tracks[0].Status)
	}
}

func TestTrackLowScoreDetectionNeverCreatesTrack(t *testing.T) {
	tr := NewTracker()
	low := Detection{Position: [3]float64{0, 0, 0}, Size: [3]float64{1, 1, 1}, Classification: map[string]float64{"car": 0.1}}
	tr.Track([]Detection{low}, baseTime)

	if len(tr.Manager.GetTracks()) != 0 {
		t.Error("expected no track created from a below-score-threshold detection")
	}
}

func TestTrackReassociatesSameObjectAcrossTicks(t *testing.T) {
	tr := NewTracker()
	ts := baseTime
	for i := 0; i < tr.Manager.lifecycle.NReliable; i++ {
		tr.Track([]Detection{detectionAt(float64(i)*0.01, 0, 0, "car")}, ts)
		ts = ts.Add(100 * time.Millisecond)
	}

	tracks := tr.Manager.GetTracks()
	if len(tracks) != 1 {
		t.Fatalf("expected the same object to stay one track, got %d", len(tracks))
	}
	if tracks[0].Status != Reliable {
		t.Errorf("status = %v, want Reliable after repeated re-association", tracks[0].Status)
	}
}

func TestTrackMultiCameraMergesSharedObjectAcrossCameras(t *testing.T) {
	tr := NewTracker()
	// Two cameras see the same physical object at nearly the same world
	// position in the same tick: the merge must produce one track, not two.
	cam0 := []Detection{detectionAt(0, 0, 0, "car")}
	cam1 := []Detection{detectionAt(0.05, 0, 0, "car")}
	tr.TrackMultiCamera([][]Detection{cam0, cam1}, baseTime)

	if len(tr.Manager.GetTracks()) != 1 {
		t.Errorf("expected cross-camera dedup to yield 1 track, got %d", len(tr.Manager.GetTracks()))
	}
}

func TestTrackMultiCameraDistinctObjectsStayDistinct(t *testing.T) {
	tr := NewTracker()
	cam0 := []Detection{detectionAt(0, 0, 0, "car")}
	cam1 := []Detection{detectionAt(50, 50, 0, "car")}
	tr.TrackMultiCamera([][]Detection{cam0, cam1}, baseTime)

	if len(tr.Manager.GetTracks()) != 2 {
		t.Errorf("expected 2 distinct tracks for far-apart detections, got %d", len(tr.Manager.GetTracks()))
	}
}

func TestTrackEmptyDetectionsStillPredictsAndCorrects(t *testing.T) {
	tr := NewTracker()
	tr.Track([]Detection{detectionAt(0, 0, 0, "car")}, baseTime)
	tr.Track(nil, baseTime.Add(time.Second))

	tracks := tr.Manager.GetTracks()
	if len(tracks) != 1 {
		t.Fatalf("expected the track to survive one empty tick, got %d tracks", len(tracks))
	}
	if tracks[0].MissCount != 1 {
		t.Errorf("miss count = %v, want 1 after one empty tick", tracks[0].MissCount)
	}
}
