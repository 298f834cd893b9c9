package tracking

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/lumenbio/casa-go/observability"
)

// completedMinLen filters single-frame noise: a track terminated mid-stream
// is emitted only with at least this many recorded positions. The final
// end-of-stream flush emits unconditionally.
const completedMinLen = 3

// progressLogEvery controls how often the engine reports frame progress.
const progressLogEvery = 100

// Frame is one record of the ordered input sequence: the original pixel
// buffer (opaque to the engine), the binary segmentation mask and the frame
// index within the video.
type Frame struct {
	Original []byte
	Mask     *Mask
	Index    int
}

// FrameSource yields frames in strict temporal order. The engine consumes
// it lazily, one record at a time; the sequence is finite and
// non-restartable.
type FrameSource interface {
	// Next returns the next frame, or ok == false once the stream ends.
	Next() (frame Frame, ok bool)
}

// SliceSource adapts an in-memory frame slice to FrameSource.
type SliceSource struct {
	frames []Frame
	pos    int
}

func NewSliceSource(frames []Frame) *SliceSource {
	return &SliceSource{frames: frames}
}

func (s *SliceSource) Next() (Frame, bool) {
	if s.pos >= len(s.frames) {
		return Frame{}, false
	}
	frame := s.frames[s.pos]
	s.pos++
	return frame, true
}

// Engine orchestrates detection, association and track lifecycle across an
// ordered frame sequence. An Engine holds no per-run state: each Track call
// owns an independent active table and id counter, so concurrent runs on
// one Engine need no locking.
type Engine struct {
	cfg      TrackerConfig
	detector *Detector
	assoc    *associator
	log      *slog.Logger
}

// NewEngine validates cfg eagerly and returns a ready engine.
// A nil logger falls back to slog.Default().
func NewEngine(cfg TrackerConfig, logger *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid tracker config")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:      cfg,
		detector: NewDetector(cfg),
		assoc:    newAssociator(cfg),
		log:      logger,
	}, nil
}

// run is the per-run mutable state: the active-track arena, the id counter
// and the frame cursor. Never shared across runs.
type run struct {
	id        uuid.UUID
	active    *trackArena
	nextID    int
	completed []*Track
	frames    int
	lastIndex int
}

// Track consumes the frame sequence and returns the full set of completed
// tracks. Malformed frames are skipped with a diagnostic; an internal fault
// during a frame aborts the remaining stream but still returns every track
// completed so far plus a forced flush of the active table. Cancellation
// via ctx is checked once per frame boundary and flushes the same way the
// natural end-of-stream does.
func (e *Engine) Track(ctx context.Context, frames FrameSource) ([]*Track, error) {
	r := &run{
		id:        uuid.New(),
		active:    newTrackArena(),
		lastIndex: -1,
	}
	log := e.log.With(slog.String("run_id", r.id.String()))
	log.Info("starting tracking run")

	for {
		if err := ctx.Err(); err != nil {
			e.flush(r)
			return r.completed, errors.Wrap(err, "tracking run cancelled")
		}

		frame, ok := frames.Next()
		if !ok {
			break
		}

		if frame.Mask == nil {
			log.Warn("skipping frame without mask", slog.Int("frame", frame.Index))
			observability.FramesSkipped.Inc()
			continue
		}
		if frame.Index <= r.lastIndex {
			log.Warn("skipping out-of-order frame",
				slog.Int("frame", frame.Index),
				slog.Int("last_frame", r.lastIndex))
			observability.FramesSkipped.Inc()
			continue
		}

		if err := e.processFrame(r, frame); err != nil {
			log.Error("frame processing failed, flushing partial results",
				slog.Int("frame", frame.Index),
				slog.Any("error", err))
			e.flush(r)
			return r.completed, errors.Wrapf(err, "frame %d", frame.Index)
		}
		r.lastIndex = frame.Index
		r.frames++

		if r.frames%progressLogEvery == 0 {
			log.Info("tracking progress",
				slog.Int("frames", r.frames),
				slog.Int("active_tracks", r.active.len()))
		}

		// Cooperative throttle for shared-hosting deployments.
		if e.cfg.FrameDelay > 0 {
			time.Sleep(e.cfg.FrameDelay)
		}
	}

	e.flush(r)
	log.Info("tracking run finished",
		slog.Int("frames", r.frames),
		slog.Int("completed_tracks", len(r.completed)))
	return r.completed, nil
}

// processFrame runs one detection/association/lifecycle step. A panic
// inside the step (e.g. a malformed mask faulting the detector) is caught
// here so the caller can fail soft with partial results.
func (e *Engine) processFrame(r *run, frame Frame) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Errorf("frame fault: %v", rec)
		}
	}()

	detections := e.detector.Detect(frame.Mask)
	observability.DetectionsTotal.Add(float64(len(detections)))

	tracks := r.active.tracks()
	if e.cfg.PredictiveGating {
		for _, track := range tracks {
			track.predictNextPosition()
		}
	}

	res := e.assoc.associate(tracks, detections)

	// Matched tracks: append position, gap-aware velocity, reset counter.
	for _, m := range res.matches {
		track := r.active.get(m.trackID)
		if track == nil {
			return errors.Errorf("assignment to unknown track %d", m.trackID)
		}
		if err := track.observe(detections[m.detIndex], frame.Index); err != nil {
			return err
		}
	}

	// Missed tracks: advance the disappearance counter; one miss beyond
	// MaxDisappeared terminates the track. Terminated tracks join the
	// completed set only past the noise-length filter.
	for _, id := range res.missed {
		track := r.active.get(id)
		track.miss()
		if track.Disappeared() > e.cfg.MaxDisappeared {
			r.active.remove(id)
			if track.Len() >= completedMinLen {
				r.completed = append(r.completed, track)
				observability.TracksCompleted.Inc()
			}
		}
	}

	// Unmatched detections seed new tracks.
	for _, detIndex := range res.unmatched {
		track := newTrack(r.nextID, detections[detIndex], frame.Index, e.cfg.PredictiveGating)
		r.nextID++
		r.active.insert(track)
		observability.TracksStarted.Inc()
	}

	e.prune(r)

	observability.FramesProcessed.Inc()
	observability.ActiveTracks.Set(float64(r.active.len()))
	return nil
}

// prune enforces the active-table cap by discarding the shortest tracks
// first. Pruned tracks are dropped, not completed: a robustness trade-off
// that sacrifices short-lived tracks under sustained over-detection.
func (e *Engine) prune(r *run) {
	excess := r.active.len() - e.cfg.MaxActiveTracks
	if excess <= 0 {
		return
	}
	tracks := r.active.tracks()
	sort.SliceStable(tracks, func(i, j int) bool {
		return tracks[i].Len() < tracks[j].Len()
	})
	for _, track := range tracks[:excess] {
		r.active.remove(track.ID)
		observability.TracksPruned.Inc()
	}
	e.log.Warn("active track cap exceeded, pruned shortest tracks",
		slog.String("run_id", r.id.String()),
		slog.Int("pruned", excess),
		slog.Int("cap", e.cfg.MaxActiveTracks))
}

// flush force-terminates every remaining active track and emits it
// unconditionally, mirroring the end-of-stream collection of in-flight
// tracks.
func (e *Engine) flush(r *run) {
	for _, track := range r.active.tracks() {
		r.active.remove(track.ID)
		r.completed = append(r.completed, track)
		observability.TracksCompleted.Inc()
	}
	observability.ActiveTracks.Set(0)
}
