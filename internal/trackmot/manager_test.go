package trackmot

import (
	"testing"
	"time"

	"github.com/scenescape/tracker/internal/geom3"
)

var baseTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestCreateTrackStartsTentative(t *testing.T) {
	m := NewTrackManager()
	id := m.CreateTrack([3]float64{0, 0, 0}, [3]float64{1, 1, 1}, geom3.IdentityQuaternion, map[string]float64{"car": 0.9}, baseTime)

	snap, ok := m.GetTrack(id)
	if !ok {
		t.Fatal("expected track to exist")
	}
	if snap.Status != Tentative {
		t.Errorf("status = %v, want Tentative", snap.Status)
	}
	if snap.HitCount != 1 {
		t.Errorf("hit count = %v, want 1", snap.HitCount)
	}
}

func TestTrackPromotesToReliableAfterNHits(t *testing.T) {
	m := NewTrackManager()
	id := m.CreateTrack([3]float64{0, 0, 0}, [3]float64{1, 1, 1}, geom3.IdentityQuaternion, nil, baseTime)

	for i := 0; i < m.lifecycle.NReliable-1; i++ {
		m.SetMeasurement(id, [3]float64{0, 0, 0}, [3]float64{1, 1, 1}, geom3.IdentityQuaternion, nil)
		m.Correct(baseTime.Add(time.Duration(i+1) * time.Second))
	}

	snap, ok := m.GetTrack(id)
	if !ok {
		t.Fatal("expected track to survive")
	}
	if snap.Status != Reliable {
		t.Errorf("status = %v, want Reliable after %d hits", snap.Status, m.lifecycle.NReliable)
	}
}

func TestTentativeTrackDeletedOnEarlyMiss(t *testing.T) {
	m := NewTrackManager()
	id := m.CreateTrack([3]float64{0, 0, 0}, [3]float64{1, 1, 1}, geom3.IdentityQuaternion, nil, baseTime)

	for i := 0; i < m.lifecycle.NMissDemote; i++ {
		m.Correct(baseTime.Add(time.Duration(i+1) * time.Second))
	}

	if _, ok := m.GetTrack(id); ok {
		t.Error("expected tentative track to be gc'd after sustained misses")
	}
}

func TestReliableTrackDemotesThenRecovers(t *testing.T) {
	m := NewTrackManager()
	id := m.CreateTrack([3]float64{0, 0, 0}, [3]float64{1, 1, 1}, geom3.IdentityQuaternion, nil, baseTime)
	for i := 0; i < m.lifecycle.NReliable-1; i++ {
		m.SetMeasurement(id, [3]float64{0, 0, 0}, [3]float64{1, 1, 1}, geom3.IdentityQuaternion, nil)
		m.Correct(baseTime.Add(time.Duration(i+1) * time.Second))
	}
	snap, _ := m.GetTrack(id)
	if snap.Status != Reliable {
		t.Fatalf("precondition failed: status = %v", snap.Status)
	}

	for i := 0; i < m.lifecycle.NMissDemote; i++ {
		m.Correct(baseTime.Add(time.Duration(10+i) * time.Second))
	}
	snap, ok := m.GetTrack(id)
	if !ok || snap.Status != Unreliable {
		t.Fatalf("expected Unreliable after sustained misses, got ok=%v status=%v", ok, snap.Status)
	}

	m.SetMeasurement(id, [3]float64{0, 0, 0}, [3]float64{1, 1, 1}, geom3.IdentityQuaternion, nil)
	m.Correct(baseTime.Add(100 * time.Second))
	snap, ok = m.GetTrack(id)
	if !ok || snap.Status != Reliable {
		t.Fatalf("expected recovery to Reliable on a hit, got ok=%v status=%v", ok, snap.Status)
	}
}

func TestSetMeasurementTwiceWithoutCorrectPanics(t *testing.T) {
	m := NewTrackManager()
	id := m.CreateTrack([3]float64{0, 0, 0}, [3]float64{1, 1, 1}, geom3.IdentityQuaternion, nil, baseTime)
	m.SetMeasurement(id, [3]float64{0, 0, 0}, [3]float64{1, 1, 1}, geom3.IdentityQuaternion, nil)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on double SetMeasurement without intervening Correct")
		}
	}()
	m.SetMeasurement(id, [3]float64{0, 0, 0}, [3]float64{1, 1, 1}, geom3.IdentityQuaternion, nil)
}

func TestPurgeRemovesTrack(t *testing.T) {
	m := NewTrackManager()
	id := m.CreateTrack([3]float64{0, 0, 0}, [3]float64{1, 1, 1}, geom3.IdentityQuaternion, nil, baseTime)
	m.Purge(id)
	if _, ok := m.GetTrack(id); ok {
		t.Error("expected purged track to be gone")
	}
}

func TestGetReliableTracksFiltersByStatus(t *testing.T) {
	m := NewTrackManager()
	m.CreateTrack([3]float64{0, 0, 0}, [3]float64{1, 1, 1}, geom3.IdentityQuaternion, nil, baseTime)
	if len(m.GetReliableTracks()) != 0 {
		t.Error("a freshly created tentative track must not appear in GetReliableTracks")
	}
}
