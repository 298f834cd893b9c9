package tracking

import (
	"math"

	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/pkg/errors"
)

// Track is a persistent identity assembled from per-frame detections of the
// same object. Positions and FrameIndices always have equal length with
// strictly increasing frame indices; Velocities holds one scalar per
// position after the first (pixel distance per frame, gap-aware).
type Track struct {
	ID           int
	Positions    []Point
	FrameIndices []int
	Velocities   []float64

	// Frames since the last successful match; reset to zero on every match.
	disappeared int

	// Constant-velocity position predictor, only allocated when the engine
	// runs with predictive gating.
	predictor         *kalman_filter.Kalman2D
	predictedPosition Point
}

func newTrack(id int, pos Point, frameIndex int, predictive bool) *Track {
	track := Track{
		ID:           id,
		Positions:    []Point{pos},
		FrameIndices: []int{frameIndex},
		Velocities:   make([]float64, 0, 8),
	}
	if predictive {
		/* Kalman filter props, dt in frame units */
		dt := 1.0
		ux := 1.0
		uy := 1.0
		stdDevA := 2.0
		stdDevMx := 0.1
		stdDevMy := 0.1
		track.predictor = kalman_filter.NewKalman2D(dt, ux, uy, stdDevA, stdDevMx, stdDevMy, kalman_filter.WithState2D(pos.X, pos.Y))
		track.predictedPosition = pos
	}
	return &track
}

// Len returns the number of recorded positions.
func (track *Track) Len() int {
	return len(track.Positions)
}

// LastPosition returns the most recently recorded position.
func (track *Track) LastPosition() Point {
	return track.Positions[len(track.Positions)-1]
}

// Disappeared returns the consecutive frames this track has gone unmatched.
func (track *Track) Disappeared() int {
	return track.disappeared
}

// gatePosition is the position the associator measures distances against.
func (track *Track) gatePosition(predictive bool) Point {
	if predictive && track.predictor != nil {
		return track.predictedPosition
	}
	return track.LastPosition()
}

// predictNextPosition advances the Kalman prior one frame without
// re-evaluating the state against a measurement.
func (track *Track) predictNextPosition() {
	if track.predictor == nil {
		return
	}
	track.predictor.Predict()
	stateX, stateY := track.predictor.GetState()
	track.predictedPosition.X = stateX
	track.predictedPosition.Y = stateY
}

// observe appends a matched detection, records the gap-aware step velocity
// and resets the disappearance counter. The caller guarantees frameIndex is
// greater than the last recorded index.
func (track *Track) observe(pos Point, frameIndex int) error {
	framesPassed := frameIndex - track.FrameIndices[len(track.FrameIndices)-1]
	distance := euclideanDistance(track.LastPosition(), pos)

	track.Positions = append(track.Positions, pos)
	track.FrameIndices = append(track.FrameIndices, frameIndex)
	track.Velocities = append(track.Velocities, distance/float64(framesPassed))
	track.disappeared = 0

	if track.predictor != nil {
		if err := track.predictor.Update(pos.X, pos.Y); err != nil {
			return errors.Wrapf(err, "can't update position predictor for track %d", track.ID)
		}
	}
	return nil
}

// miss advances the disappearance counter by one frame.
func (track *Track) miss() {
	track.disappeared++
}

// TotalDistance returns the summed Euclidean step distance in pixels.
func (track *Track) TotalDistance() float64 {
	if len(track.Positions) < 2 {
		return 0.0
	}
	dist := 0.0
	for i := 1; i < len(track.Positions); i++ {
		dist += euclideanDistance(track.Positions[i-1], track.Positions[i])
	}
	return dist
}

// StraightLineDistance returns the pixel distance from the first to the
// last recorded position.
func (track *Track) StraightLineDistance() float64 {
	if len(track.Positions) < 2 {
		return 0.0
	}
	return euclideanDistance(track.Positions[0], track.Positions[len(track.Positions)-1])
}

// Linearity is the ratio of straight-line to total path length, in [0, 1]
// by the triangle inequality. A zero-length path has linearity 0.
func (track *Track) Linearity() float64 {
	total := track.TotalDistance()
	if total == 0 {
		return 0.0
	}
	return track.StraightLineDistance() / total
}

// MeanStepVelocity returns the mean of the recorded step velocities in
// pixels per frame, or 0 for a single-point track.
func (track *Track) MeanStepVelocity() float64 {
	if len(track.Velocities) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, v := range track.Velocities {
		sum += v
	}
	return sum / float64(len(track.Velocities))
}

// DirectionChanges counts sign reversals in either displacement component
// between consecutive steps. Used as the direction-reversal approximation
// of beat-cross frequency.
func (track *Track) DirectionChanges() int {
	if len(track.Positions) < 3 {
		return 0
	}
	changes := 0
	prevDx, prevDy := 0.0, 0.0
	for i := 1; i < len(track.Positions); i++ {
		dx := track.Positions[i].X - track.Positions[i-1].X
		dy := track.Positions[i].Y - track.Positions[i-1].Y
		if i > 1 && (dx*prevDx < 0 || dy*prevDy < 0) {
			changes++
		}
		prevDx = dx
		prevDy = dy
	}
	return changes
}

// FrameSpan returns the number of frames elapsed between the first and last
// recorded positions.
func (track *Track) FrameSpan() int {
	if len(track.FrameIndices) < 2 {
		return 0
	}
	return track.FrameIndices[len(track.FrameIndices)-1] - track.FrameIndices[0]
}

// checkInvariants panics when the track's structural invariants are broken.
// Only used by tests.
func (track *Track) checkInvariants() {
	if len(track.Positions) != len(track.FrameIndices) {
		panic("positions and frame indices length mismatch")
	}
	if len(track.Velocities) != len(track.Positions)-1 {
		panic("velocities length mismatch")
	}
	for i := 1; i < len(track.FrameIndices); i++ {
		if track.FrameIndices[i] <= track.FrameIndices[i-1] {
			panic("frame indices not strictly increasing")
		}
	}
	if track.disappeared < 0 {
		panic("negative disappeared counter")
	}
	for _, v := range track.Velocities {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			panic("non-finite velocity")
		}
	}
}
