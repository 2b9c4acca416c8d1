package trackmot

import (
	hungarian "github.com/arthurkushman/go-hungarian"
)

// sentinelCost stands in for "ineligible" (over-threshold, or infinite
// class-mismatch) pairs and for the dummy rows/columns used to pad a
// rectangular cost matrix into the square shape the Hungarian solver
// expects. It must be larger than any real, in-threshold distance can be.
const sentinelCost = 1e12

// Assignment pairs a track index with a detection index. Indices are into
// the slices passed to Associate.
type Assignment struct {
	TrackIndex     int
	DetectionIndex int
}

// AssociateResult is the Data Associator's contract output: a bijection on
// the assigned subset, plus the leftover indices on each side.
type AssociateResult struct {
	Assignments           []Assignment
	UnassignedTracks      []int
	UnassignedDetections  []int
}

// Associate solves minimum-total-cost one-to-one assignment between tracks
// and detections under the given distance metric and threshold. It is a
// pure function: no shared state, safe to call concurrently from multiple
// goroutines over disjoint or even overlapping (read-only) inputs, per
// SPEC_FULL.md §4.2/§5.
func Associate(tracks, detections []distanceMeasurable, dt DistanceType, threshold float64) AssociateResult {
	m := len(tracks)
	n := len(detections)

	if m == 0 || n == 0 {
		result := AssociateResult{}
		for i := 0; i < m; i++ {
			result.UnassignedTracks = append(result.UnassignedTracks, i)
		}
		for j := 0; j < n; j++ {
			result.UnassignedDetections = append(result.UnassignedDetections, j)
		}
		return result
	}

	cost := make([][]float64, m)
	eligible := make([][]bool, m)
	for i := 0; i < m; i++ {
		cost[i] = make([]float64, n)
		eligible[i] = make([]bool, n)
		for j := 0; j < n; j++ {
			d := distance(dt, tracks[i], detections[j])
			if d > threshold {
				cost[i][j] = sentinelCost
				eligible[i][j] = false
			} else {
				cost[i][j] = d
				eligible[i][j] = true
			}
		}
	}

	size := m
	if n > size {
		size = n
	}
	padded := make([][]float64, size)
	for i := 0; i < size; i++ {
		padded[i] = make([]float64, size)
		for j := 0; j < size; j++ {
			if i < m && j < n {
				padded[i][j] = cost[i][j]
			} else {
				padded[i][j] = sentinelCost
			}
		}
	}

	// go-hungarian assigns nothing for matrices smaller than 3x3, so the one
	// or two possible pairings of a 1x1 or 2x2 matrix are compared directly;
	// on equal cost the identity pairing is kept.
	var solved map[int]map[int]float64
	switch {
	case size == 1:
		solved = map[int]map[int]float64{0: {0: padded[0][0]}}
	case size == 2 && padded[0][1]+padded[1][0] < padded[0][0]+padded[1][1]:
		solved = map[int]map[int]float64{0: {1: padded[0][1]}, 1: {0: padded[1][0]}}
	case size == 2:
		solved = map[int]map[int]float64{0: {0: padded[0][0]}, 1: {1: padded[1][1]}}
	default:
		solved = hungarian.SolveMin(padded)
	}

	assignedTrack := make(map[int]bool, m)
	assignedDetection := make(map[int]bool, n)
	var assignments []Assignment
	for trackIdx, row := range solved {
		if trackIdx >= m {
			continue
		}
		for detIdx := range row {
			if detIdx >= n {
				continue
			}
			if !eligible[trackIdx][detIdx] {
				continue
			}
			assignments = append(assignments, Assignment{TrackIndex: trackIdx, DetectionIndex: detIdx})
			assignedTrack[trackIdx] = true
			assignedDetection[detIdx] = true
		}
	}

	// Deterministic output order: lower track_index, then lower
	// detection_index. For matrices of 3x3 and larger, which of several
	// equal-cost assignments is returned is decided by the solver.
	sortAssignments(assignments)

	result := AssociateResult{Assignments: assignments}
	for i := 0; i < m; i++ {
		if !assignedTrack[i] {
			result.UnassignedTracks = append(result.UnassignedTracks, i)
		}
	}
	for j := 0; j < n; j++ {
		if !assignedDetection[j] {
			result.UnassignedDetections = append(result.UnassignedDetections, j)
		}
	}
	return result
}

func sortAssignments(a []Assignment) {
	for i := 1; i < len(a); i++ {
		j := i
		for j > 0 && less(a[j], a[j-1]) {
			a[j], a[j-1] = a[j-1], a[j]
			j--
		}
	}
}

func less(a, b Assignment) bool {
	if a.TrackIndex != b.TrackIndex {
		return a.TrackIndex < b.TrackIndex
	}
	return a.DetectionIndex < b.DetectionIndex
}
