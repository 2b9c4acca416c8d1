package trackmot

import (
	"math"
	"testing"
)

func TestCVFilterPredictAdvancesPositionByVelocity(t *testing.T) {
	f := newCVFilter([3]float64{0, 0, 0}, [3]float64{1, 1, 1})
	f.x.SetVec(3, 2.0) // vx = 2 m/s

	f.predict(1.0)

	pos := f.position()
	if math.Abs(pos[0]-2.0) > 1e-6 {
		t.Errorf("x = %v, want ~2 after 1s at 2m/s", pos[0])
	}
}

func TestCVFilterPredictNoOpOnNonPositiveDt(t *testing.T) {
	f := newCVFilter([3]float64{1, 2, 3}, [3]float64{1, 1, 1})
	f.x.SetVec(3, 5.0)

	f.predict(0)
	f.predict(-1)

	pos := f.position()
	if pos != ([3]float64{1, 2, 3}) {
		t.Errorf("position changed on non-positive dt: %v", pos)
	}
}

func TestCVFilterUpdateMovesStateTowardMeasurement(t *testing.T) {
	f := newCVFilter([3]float64{0, 0, 0}, [3]float64{1, 1, 1})
	f.update([3]float64{10, 10, 10}, [3]float64{2, 2, 2})

	pos := f.position()
	if pos[0] <= 0 || pos[0] > 10 {
		t.Errorf("expected position to move toward measurement but stay within bounds, got %v", pos)
	}
}

func TestCVFilterSizeTracksMeasurement(t *testing.T) {
	f := newCVFilter([3]float64{0, 0, 0}, [3]float64{1, 1, 1})
	for i := 0; i < 20; i++ {
		f.update([3]float64{0, 0, 0}, [3]float64{2, 2, 2})
	}
	size := f.size()
	if math.Abs(size[0]-2.0) > 0.1 {
		t.Errorf("size = %v, want convergence near 2 after repeated updates", size)
	}
}
