package tracking

// blockedCost fills matrix cells for out-of-gate pairs and padding: large
// enough that the solver exhausts every in-gate pairing before touching
// one, small enough to stay clear of float precision trouble.
const blockedCost = 1_000_000.0

// assignment commits one detection to one track for the current frame.
type assignment struct {
	trackID  int
	detIndex int
}

// associationResult is the outcome of matching one frame:
// committed assignments, tracks that went unmatched ("missed this frame")
// and detections left over to seed new tracks.
type associationResult struct {
	matches   []assignment
	missed    []int
	unmatched []int
}

// associator matches a frame's detections against the active tracks'
// gate positions.
type associator struct {
	maxDistance float64
	algorithm   AssignmentAlgorithm
	predictive  bool
}

func newAssociator(cfg TrackerConfig) *associator {
	return &associator{
		maxDistance: cfg.MaxDistance,
		algorithm:   cfg.Assignment,
		predictive:  cfg.PredictiveGating,
	}
}

// associate matches detections to tracks. With no active tracks every
// detection is unmatched (seeds a new track); with no detections every
// track is missed.
func (a *associator) associate(tracks []*Track, detections []Point) associationResult {
	if len(tracks) == 0 {
		res := associationResult{unmatched: make([]int, len(detections))}
		for i := range detections {
			res.unmatched[i] = i
		}
		return res
	}
	if len(detections) == 0 {
		res := associationResult{missed: make([]int, len(tracks))}
		for i, track := range tracks {
			res.missed[i] = track.ID
		}
		return res
	}

	var matches []assignment
	switch a.algorithm {
	case AssignmentHungarian:
		matches = a.matchHungarian(tracks, detections)
	default:
		matches = a.matchGreedy(tracks, detections)
	}

	claimedTracks := make(map[int]struct{}, len(matches))
	claimedDets := make(map[int]struct{}, len(matches))
	for _, m := range matches {
		claimedTracks[m.trackID] = struct{}{}
		claimedDets[m.detIndex] = struct{}{}
	}

	res := associationResult{matches: matches}
	for _, track := range tracks {
		if _, ok := claimedTracks[track.ID]; !ok {
			res.missed = append(res.missed, track.ID)
		}
	}
	for i := range detections {
		if _, ok := claimedDets[i]; !ok {
			res.unmatched = append(res.unmatched, i)
		}
	}
	return res
}

// matchGreedy walks every (track, detection) pair in ascending distance
// order, committing a pair when neither side has been claimed this frame.
// Pairs beyond maxDistance never enter the queue, which is equivalent to
// gating them during the walk. Deliberately O(n*m*log(n*m)), not a
// minimum-cost matching.
func (a *associator) matchGreedy(tracks []*Track, detections []Point) []assignment {
	priorityQueue := make(pairHeap, 0, len(tracks)*len(detections)/2)
	for _, track := range tracks {
		gate := track.gatePosition(a.predictive)
		for j, det := range detections {
			dist := euclideanDistance(gate, det)
			if dist > a.maxDistance {
				continue
			}
			priorityQueue.Push(candidatePair{
				trackID:  track.ID,
				detIndex: j,
				distance: dist,
			})
		}
	}

	claimedTracks := make(map[int]struct{})
	claimedDets := make(map[int]struct{})
	matches := make([]assignment, 0, min(len(tracks), len(detections)))
	for priorityQueue.Len() > 0 {
		pair := priorityQueue.Pop()
		if _, ok := claimedTracks[pair.trackID]; ok {
			continue
		}
		if _, ok := claimedDets[pair.detIndex]; ok {
			continue
		}
		claimedTracks[pair.trackID] = struct{}{}
		claimedDets[pair.detIndex] = struct{}{}
		matches = append(matches, assignment{trackID: pair.trackID, detIndex: pair.detIndex})
	}
	return matches
}

// matchHungarian solves the assignment exactly on a square cost matrix:
// in-gate pairs cost their distance, out-of-gate pairs and padding cells
// cost blockedCost. The solver then maximizes the number of in-gate
// assignments and minimizes their total distance; rows assigned to a
// blocked or padded cell are rejected afterwards, so the gate is preserved
// exactly as in the greedy path.
func (a *associator) matchHungarian(tracks []*Track, detections []Point) []assignment {
	numTracks := len(tracks)
	numDetections := len(detections)
	size := max(numTracks, numDetections)

	distMatrix := make([][]float64, numTracks)
	costMatrix := make([][]float64, size)
	for i := range costMatrix {
		costMatrix[i] = make([]float64, size)
		for j := range costMatrix[i] {
			costMatrix[i][j] = blockedCost
		}
	}
	for i, track := range tracks {
		gate := track.gatePosition(a.predictive)
		distMatrix[i] = make([]float64, numDetections)
		for j, det := range detections {
			dist := euclideanDistance(gate, det)
			distMatrix[i][j] = dist
			if dist <= a.maxDistance {
				costMatrix[i][j] = dist
			}
		}
	}

	rowToCol, err := solveAssignment(costMatrix)
	if err != nil {
		// Cannot happen on a finite matrix; fall back to the greedy walk
		// rather than losing the frame.
		return a.matchGreedy(tracks, detections)
	}

	matches := make([]assignment, 0, min(numTracks, numDetections))
	for trackIdx := 0; trackIdx < numTracks; trackIdx++ {
		detIdx := rowToCol[trackIdx]
		if detIdx < 0 || detIdx >= numDetections {
			continue
		}
		if distMatrix[trackIdx][detIdx] > a.maxDistance {
			continue
		}
		matches = append(matches, assignment{
			trackID:  tracks[trackIdx].ID,
			detIndex: detIdx,
		})
	}
	return matches
}
