package trackmot

import "gonum.org/v1/gonum/mat"

// stateDim is the constant-velocity filter's state dimension:
// position (x,y,z), velocity (vx,vy,vz), size (length,width,height).
const stateDim = 9

// measurementDim is the observed subset of the state: position and size.
// Velocity is never observed directly — it is inferred from successive
// position updates the same way the teacher's SimpleBlob Kalman filter
// infers velocity from successive center updates.
const measurementDim = 6

// cvFilter is a constant-velocity Kalman filter over the 9-D state
// described in SPEC_FULL.md §3/§4.3. The teacher's github.com/LdDl/kalman-filter
// only exposes fixed 2D and 4D (bbox) state vectors (see DESIGN.md), so the
// filter math here is written directly against gonum/mat, the linear-algebra
// library already present in this retrieval pack (LdDl/mot-go's indirect
// dependency, and a direct dependency of the velocity.report repo).
type cvFilter struct {
	x *mat.VecDense // state, stateDim x 1
	p *mat.Dense    // covariance, stateDim x stateDim

	stdDevAccel float64 // process noise std-dev for position/velocity, m/s^2
	stdDevSize  float64 // process noise std-dev for size, m/tick
	stdDevMeasPos float64 // measurement noise std-dev for position, m
	stdDevMeasSize float64 // measurement noise std-dev for size, m
}

// newCVFilter initializes a filter at the given position and size, with
// zero initial velocity and a moderately uncertain initial covariance.
func newCVFilter(pos [3]float64, size [3]float64) *cvFilter {
	x := mat.NewVecDense(stateDim, nil)
	x.SetVec(0, pos[0])
	x.SetVec(1, pos[1])
	x.SetVec(2, pos[2])
	x.SetVec(6, size[0])
	x.SetVec(7, size[1])
	x.SetVec(8, size[2])

	p := mat.NewDense(stateDim, stateDim, nil)
	for i := 0; i < stateDim; i++ {
		p.Set(i, i, 1.0)
	}

	return &cvFilter{
		x:              x,
		p:              p,
		stdDevAccel:    1.0,
		stdDevSize:     0.05,
		stdDevMeasPos:  0.1,
		stdDevMeasSize: 0.1,
	}
}

// transition builds the constant-velocity state transition matrix F for a
// given time step.
func transition(dt float64) *mat.Dense {
	f := mat.NewDense(stateDim, stateDim, nil)
	for i := 0; i < stateDim; i++ {
		f.Set(i, i, 1.0)
	}
	// position += velocity * dt
	f.Set(0, 3, dt)
	f.Set(1, 4, dt)
	f.Set(2, 5, dt)
	return f
}

// processNoise builds Q for a given time step: a discretized white-noise
// acceleration model on the position/velocity block, and a small
// random-walk term on the size block.
func (f *cvFilter) processNoise(dt float64) *mat.Dense {
	q := mat.NewDense(stateDim, stateDim, nil)
	sa2 := f.stdDevAccel * f.stdDevAccel
	dt2 := dt * dt
	dt3 := dt2 * dt
	dt4 := dt3 * dt
	for _, axis := range [3]int{0, 1, 2} {
		pos := axis
		vel := axis + 3
		q.Set(pos, pos, dt4/4*sa2)
		q.Set(pos, vel, dt3/2*sa2)
		q.Set(vel, pos, dt3/2*sa2)
		q.Set(vel, vel, dt2*sa2)
	}
	ss2 := f.stdDevSize * f.stdDevSize
	for i := 6; i < 9; i++ {
		q.Set(i, i, ss2)
	}
	return q
}

// observation returns the 6x9 observation matrix mapping state to
// (x, y, z, length, width, height).
func observation() *mat.Dense {
	h := mat.NewDense(measurementDim, stateDim, nil)
	h.Set(0, 0, 1)
	h.Set(1, 1, 1)
	h.Set(2, 2, 1)
	h.Set(3, 6, 1)
	h.Set(4, 7, 1)
	h.Set(5, 8, 1)
	return h
}

func measurementNoise(stdDevPos, stdDevSize float64) *mat.Dense {
	r := mat.NewDense(measurementDim, measurementDim, nil)
	for i := 0; i < 3; i++ {
		r.Set(i, i, stdDevPos*stdDevPos)
	}
	for i := 3; i < 6; i++ {
		r.Set(i, i, stdDevSize*stdDevSize)
	}
	return r
}

// predict advances the filter dt seconds. dt <= 0 is a no-op (the caller,
// TrackManager.Predict, clamps dt <= 0 to 0; no log line is written).
func (f *cvFilter) predict(dt float64) {
	if dt <= 0 {
		return
	}
	fm := transition(dt)

	var xNext mat.VecDense
	xNext.MulVec(fm, f.x)
	f.x = &xNext

	var fp mat.Dense
	fp.Mul(fm, f.p)
	var fpft mat.Dense
	fpft.Mul(&fp, fm.T())

	q := f.processNoise(dt)
	var pNext mat.Dense
	pNext.Add(&fpft, q)
	f.p = &pNext
	f.symmetrize()
}

// update corrects the filter with a (position, size) measurement.
func (f *cvFilter) update(pos [3]float64, size [3]float64) {
	h := observation()
	r := measurementNoise(f.stdDevMeasPos, f.stdDevMeasSize)

	z := mat.NewVecDense(measurementDim, []float64{pos[0], pos[1], pos[2], size[0], size[1], size[2]})

	var hx mat.VecDense
	hx.MulVec(h, f.x)
	var y mat.VecDense
	y.SubVec(z, &hx)

	var hp mat.Dense
	hp.Mul(h, f.p)
	var hpht mat.Dense
	hpht.Mul(&hp, h.T())
	var s mat.Dense
	s.Add(&hpht, r)

	var sInv mat.Dense
	if err := sInv.Inverse(&s); err != nil {
		// Singular innovation covariance: skip the correction rather than
		// propagate NaNs into the track.
		return
	}

	var pht mat.Dense
	pht.Mul(f.p, h.T())
	var k mat.Dense
	k.Mul(&pht, &sInv)

	var ky mat.VecDense
	ky.MulVec(&k, &y)
	var xNext mat.VecDense
	xNext.AddVec(f.x, &ky)
	f.x = &xNext

	var kh mat.Dense
	kh.Mul(&k, h)
	ident := mat.NewDense(stateDim, stateDim, nil)
	for i := 0; i < stateDim; i++ {
		ident.Set(i, i, 1.0)
	}
	var imkh mat.Dense
	imkh.Sub(ident, &kh)
	var pNext mat.Dense
	pNext.Mul(&imkh, f.p)
	f.p = &pNext
	f.symmetrize()
}

// symmetrize clamps the covariance to (numerically) positive-definite by
// averaging it with its transpose, per SPEC_FULL.md §4.3.
func (f *cvFilter) symmetrize() {
	var sym mat.Dense
	sym.Add(f.p, f.p.T())
	sym.Scale(0.5, &sym)
	f.p = &sym
}

func (f *cvFilter) position() [3]float64 {
	return [3]float64{f.x.AtVec(0), f.x.AtVec(1), f.x.AtVec(2)}
}

func (f *cvFilter) velocity() [3]float64 {
	return [3]float64{f.x.AtVec(3), f.x.AtVec(4), f.x.AtVec(5)}
}

func (f *cvFilter) size() [3]float64 {
	return [3]float64{f.x.AtVec(6), f.x.AtVec(7), f.x.AtVec(8)}
}
