package tracking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
)

func testEngineConfig() TrackerConfig {
	cfg := DefaultTrackerConfig()
	cfg.MinArea = 1
	cfg.MaxDistance = 20.0
	cfg.MaxDisappeared = 2
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// frameWith builds a frame whose mask holds one single-pixel object per
// point. Points must not be adjacent or they merge into one component.
func frameWith(index int, points ...Point) Frame {
	mask := NewMask(64, 64)
	for _, p := range points {
		mask.Set(int(p.X), int(p.Y))
	}
	return Frame{Mask: mask, Index: index}
}

func TestEngineTwoObjects(t *testing.T) {
	engine, err := NewEngine(testEngineConfig(), discardLogger())
	if err != nil {
		t.Error(err)
		return
	}

	numFrames := 10
	frames := make([]Frame, numFrames)
	for i := 0; i < numFrames; i++ {
		// One object drifts right, the other drifts down, 2 px per frame
		frames[i] = frameWith(i,
			NewPoint(float64(5+2*i), 5),
			NewPoint(50, float64(10+2*i)),
		)
	}

	tracks, err := engine.Track(context.Background(), NewSliceSource(frames))
	if err != nil {
		t.Error(err)
		return
	}
	if len(tracks) != 2 {
		t.Errorf("Wrong number of tracks: %d, expected: 2", len(tracks))
		return
	}
	for _, track := range tracks {
		track.checkInvariants()
		if track.Len() != numFrames {
			t.Errorf("Wrong length of track %d: %d, expected: %d", track.ID, track.Len(), numFrames)
		}
		for _, v := range track.Velocities {
			if math.Abs(v-2.0) > eps {
				t.Errorf("Wrong step velocity on track %d: %v, expected: 2", track.ID, v)
			}
		}
	}
	if tracks[0].ID == tracks[1].ID {
		t.Error("Tracks must have distinct ids")
	}
}

func TestEngineDisappearanceBoundary(t *testing.T) {
	// MaxDisappeared = 2: the track survives two missed frames, rematches,
	// then terminates on the third consecutive miss
	engine, err := NewEngine(testEngineConfig(), discardLogger())
	if err != nil {
		t.Error(err)
		return
	}

	var frames []Frame
	for i := 0; i < 5; i++ {
		frames = append(frames, frameWith(i, NewPoint(10, 10)))
	}
	frames = append(frames, frameWith(5), frameWith(6))          // two misses, survives
	frames = append(frames, frameWith(7, NewPoint(16, 10)))      // rematch after the gap
	frames = append(frames, frameWith(8), frameWith(9), frameWith(10), frameWith(11)) // third miss terminates

	tracks, err := engine.Track(context.Background(), NewSliceSource(frames))
	if err != nil {
		t.Error(err)
		return
	}
	if len(tracks) != 1 {
		t.Errorf("Wrong number of tracks: %d, expected: 1", len(tracks))
		return
	}
	track := tracks[0]
	track.checkInvariants()
	if track.Len() != 6 {
		t.Errorf("Wrong track length: %d, expected: 6", track.Len())
		return
	}
	if got := track.FrameIndices[5]; got != 7 {
		t.Errorf("Wrong rematch frame index: %d, expected: 7", got)
	}
	// 6 px displacement over the 3-frame gap
	if gapVelocity := track.Velocities[4]; math.Abs(gapVelocity-2.0) > eps {
		t.Errorf("Wrong gap velocity: %v, expected: 2", gapVelocity)
	}
}

func TestEngineShortTrackFilteredMidStream(t *testing.T) {
	cfg := testEngineConfig()
	cfg.MaxDisappeared = 0
	engine, err := NewEngine(cfg, discardLogger())
	if err != nil {
		t.Error(err)
		return
	}

	// Two-frame object, then gone: terminated mid-stream below the
	// noise-length filter and never emitted
	frames := []Frame{
		frameWith(0, NewPoint(10, 10)),
		frameWith(1, NewPoint(11, 10)),
		frameWith(2),
		frameWith(3),
		frameWith(4),
	}

	tracks, err := engine.Track(context.Background(), NewSliceSource(frames))
	if err != nil {
		t.Error(err)
		return
	}
	if len(tracks) != 0 {
		t.Errorf("Short mid-stream track must be filtered, got %d tracks", len(tracks))
	}
}

func TestEngineFlushEmitsInFlightTracks(t *testing.T) {
	engine, err := NewEngine(testEngineConfig(), discardLogger())
	if err != nil {
		t.Error(err)
		return
	}

	// The object appears only on the final frame: too short for the
	// mid-stream filter, but the end-of-stream flush emits unconditionally
	frames := []Frame{
		frameWith(0),
		frameWith(1),
		frameWith(2, NewPoint(20, 20)),
	}

	tracks, err := engine.Track(context.Background(), NewSliceSource(frames))
	if err != nil {
		t.Error(err)
		return
	}
	if len(tracks) != 1 {
		t.Errorf("Wrong number of tracks: %d, expected: 1", len(tracks))
		return
	}
	if tracks[0].Len() != 1 {
		t.Errorf("Wrong track length: %d, expected: 1", tracks[0].Len())
	}
}

func TestEngineSkipsMalformedFrames(t *testing.T) {
	engine, err := NewEngine(testEngineConfig(), discardLogger())
	if err != nil {
		t.Error(err)
		return
	}

	frames := []Frame{
		frameWith(0, NewPoint(10, 10)),
		{Mask: nil, Index: 1},          // no mask
		frameWith(0, NewPoint(10, 10)), // out of order
		frameWith(3, NewPoint(13, 10)),
	}

	tracks, err := engine.Track(context.Background(), NewSliceSource(frames))
	if err != nil {
		t.Error(err)
		return
	}
	if len(tracks) != 1 {
		t.Errorf("Wrong number of tracks: %d, expected: 1", len(tracks))
		return
	}
	track := tracks[0]
	track.checkInvariants()
	if track.Len() != 2 {
		t.Errorf("Wrong track length: %d, expected: 2", track.Len())
		return
	}
	if track.FrameIndices[0] != 0 || track.FrameIndices[1] != 3 {
		t.Errorf("Wrong frame indices: %v, expected: [0 3]", track.FrameIndices)
	}
	// 3 px over the 3 frames spanned by the skipped records
	if math.Abs(track.Velocities[0]-1.0) > eps {
		t.Errorf("Wrong velocity across skipped frames: %v, expected: 1", track.Velocities[0])
	}
}

type cancellingSource struct {
	frames   []Frame
	pos      int
	cancelAt int
	cancel   context.CancelFunc
}

func (s *cancellingSource) Next() (Frame, bool) {
	if s.pos == s.cancelAt {
		s.cancel()
	}
	if s.pos >= len(s.frames) {
		return Frame{}, false
	}
	frame := s.frames[s.pos]
	s.pos++
	return frame, true
}

func TestEngineCancellation(t *testing.T) {
	engine, err := NewEngine(testEngineConfig(), discardLogger())
	if err != nil {
		t.Error(err)
		return
	}

	frames := make([]Frame, 10)
	for i := range frames {
		frames[i] = frameWith(i, NewPoint(float64(5+i), 5))
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	source := &cancellingSource{frames: frames, cancelAt: 3, cancel: cancel}

	tracks, err := engine.Track(ctx, source)
	if err == nil {
		t.Error("Cancelled run must return an error")
		return
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Error must wrap context.Canceled, got: %v", err)
	}
	// The frame being processed when cancel fired is still included, the
	// active table is flushed into the result
	if len(tracks) != 1 {
		t.Errorf("Wrong number of flushed tracks: %d, expected: 1", len(tracks))
		return
	}
	if tracks[0].Len() != 4 {
		t.Errorf("Wrong flushed track length: %d, expected: 4", tracks[0].Len())
	}
}

func TestEngineInternalFaultFailsSoft(t *testing.T) {
	cfg := testEngineConfig()
	cfg.MaxDisappeared = 0
	engine, err := NewEngine(cfg, discardLogger())
	if err != nil {
		t.Error(err)
		return
	}

	// An inconsistent mask (nonzero dimensions, no pixel store) faults the
	// detector mid-stream. The run must abort but still return the track
	// completed before the fault plus a forced flush of the active one
	frames := []Frame{
		frameWith(0, NewPoint(10, 10)),
		frameWith(1, NewPoint(11, 10)),
		frameWith(2, NewPoint(12, 10)),
		frameWith(3, NewPoint(40, 40)), // first track terminates and completes
		frameWith(4, NewPoint(41, 40)),
		{Mask: &Mask{Width: 4, Height: 4}, Index: 5},
		frameWith(6, NewPoint(42, 40)), // never reached
	}

	tracks, err := engine.Track(context.Background(), NewSliceSource(frames))
	if err == nil {
		t.Error("Faulted run must return an error")
		return
	}
	if len(tracks) != 2 {
		t.Errorf("Wrong number of tracks: %d, expected: 2", len(tracks))
		return
	}
	lengths := map[int]int{}
	for _, track := range tracks {
		track.checkInvariants()
		lengths[track.Len()]++
	}
	if lengths[3] != 1 || lengths[2] != 1 {
		t.Errorf("Wrong track lengths: %v, expected one of 3 and one of 2", lengths)
	}
}

func TestEnginePruning(t *testing.T) {
	cfg := testEngineConfig()
	cfg.MaxActiveTracks = 2
	engine, err := NewEngine(cfg, discardLogger())
	if err != nil {
		t.Error(err)
		return
	}

	frames := []Frame{
		frameWith(0, NewPoint(5, 5), NewPoint(30, 30), NewPoint(55, 55)),
	}
	tracks, err := engine.Track(context.Background(), NewSliceSource(frames))
	if err != nil {
		t.Error(err)
		return
	}
	if len(tracks) != 2 {
		t.Errorf("Wrong number of tracks after pruning: %d, expected: 2", len(tracks))
	}
}

func TestEngineIDsNeverReused(t *testing.T) {
	cfg := testEngineConfig()
	cfg.MaxDisappeared = 0
	engine, err := NewEngine(cfg, discardLogger())
	if err != nil {
		t.Error(err)
		return
	}

	// The first object dies after one frame; the later object at the same
	// spot must get a fresh id
	frames := []Frame{
		frameWith(0, NewPoint(10, 10)),
		frameWith(1),
		frameWith(2, NewPoint(10, 10)),
	}
	tracks, err := engine.Track(context.Background(), NewSliceSource(frames))
	if err != nil {
		t.Error(err)
		return
	}
	if len(tracks) != 1 {
		t.Errorf("Wrong number of tracks: %d, expected: 1", len(tracks))
		return
	}
	if tracks[0].ID != 1 {
		t.Errorf("Terminated track id must not be reused, got id: %d", tracks[0].ID)
	}
}

func TestEngineHungarianPredictive(t *testing.T) {
	cfg := testEngineConfig()
	cfg.Assignment = AssignmentHungarian
	cfg.PredictiveGating = true
	engine, err := NewEngine(cfg, discardLogger())
	if err != nil {
		t.Error(err)
		return
	}

	numFrames := 12
	frames := make([]Frame, numFrames)
	for i := 0; i < numFrames; i++ {
		frames[i] = frameWith(i,
			NewPoint(float64(5+2*i), 5),
			NewPoint(50, float64(10+2*i)),
		)
	}

	tracks, err := engine.Track(context.Background(), NewSliceSource(frames))
	if err != nil {
		t.Error(err)
		return
	}
	if len(tracks) != 2 {
		t.Errorf("Wrong number of tracks: %d, expected: 2", len(tracks))
		return
	}
	for _, track := range tracks {
		track.checkInvariants()
		if track.Len() != numFrames {
			t.Errorf("Wrong length of track %d: %d, expected: %d", track.ID, track.Len(), numFrames)
		}
		// Recorded positions stay raw detections even with the predictor on
		for _, v := range track.Velocities {
			if math.Abs(v-2.0) > eps {
				t.Errorf("Wrong step velocity on track %d: %v, expected: 2", track.ID, v)
			}
		}
	}
}
