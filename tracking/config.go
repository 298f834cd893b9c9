package tracking

import (
	"time"

	"github.com/pkg/errors"
)

// AssignmentAlgorithm selects how detections are assigned to tracks.
type AssignmentAlgorithm uint16

const (
	// AssignmentGreedy walks all (track, detection) pairs in ascending
	// distance order and commits the first unclaimed pair. Fast but not
	// globally optimal.
	AssignmentGreedy AssignmentAlgorithm = iota
	// AssignmentHungarian solves the assignment exactly with the
	// Jonker-Volgenant algorithm, still gated by MaxDistance. Minimum
	// total distance, deterministic for identical inputs.
	AssignmentHungarian
)

// TrackerConfig holds configuration parameters for the tracking engine.
type TrackerConfig struct {
	// MinArea is the minimum component area (pixels) to be detected
	MinArea int
	// MaxArea is the maximum component area (pixels) to be detected
	MaxArea int
	// MaxDistance is the maximum pixel distance for frame-to-frame matching
	MaxDistance float64
	// MaxDisappeared is the number of consecutive missed frames a track
	// survives; one more miss terminates it
	MaxDisappeared int
	// MaxActiveTracks caps the active-track table; the shortest tracks are
	// pruned (discarded, not completed) when the cap is exceeded
	MaxActiveTracks int
	// MaxDetections caps per-frame detections, keeping the largest regions
	MaxDetections int
	// Assignment selects the matching algorithm
	Assignment AssignmentAlgorithm
	// PredictiveGating measures association distances against each track's
	// Kalman-predicted next position instead of its last recorded one.
	// Recorded positions are always the raw detections.
	PredictiveGating bool
	// FrameDelay is an optional per-frame sleep for shared-hosting
	// throttling. Zero disables it.
	FrameDelay time.Duration
}

// DefaultTrackerConfig returns the tracker configuration used when no
// explicit tuning is supplied.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		MinArea:         10,
		MaxArea:         200,
		MaxDistance:     50.0,
		MaxDisappeared:  10,
		MaxActiveTracks: 500,
		MaxDetections:   400,
		Assignment:      AssignmentGreedy,
	}
}

// Validate rejects invalid configurations eagerly, before any frame is
// processed.
func (cfg TrackerConfig) Validate() error {
	if cfg.MinArea < 0 {
		return errors.Errorf("min area must be non-negative, got %d", cfg.MinArea)
	}
	if cfg.MaxArea < cfg.MinArea {
		return errors.Errorf("max area %d must be >= min area %d", cfg.MaxArea, cfg.MinArea)
	}
	if cfg.MaxDistance <= 0 {
		return errors.Errorf("max distance must be positive, got %f", cfg.MaxDistance)
	}
	if cfg.MaxDisappeared < 0 {
		return errors.Errorf("max disappeared must be non-negative, got %d", cfg.MaxDisappeared)
	}
	if cfg.MaxActiveTracks <= 0 {
		return errors.Errorf("max active tracks must be positive, got %d", cfg.MaxActiveTracks)
	}
	if cfg.MaxDetections <= 0 {
		return errors.Errorf("max detections must be positive, got %d", cfg.MaxDetections)
	}
	if cfg.Assignment != AssignmentGreedy && cfg.Assignment != AssignmentHungarian {
		return errors.Errorf("unknown assignment algorithm %d", cfg.Assignment)
	}
	if cfg.FrameDelay < 0 {
		return errors.Errorf("frame delay must be non-negative, got %s", cfg.FrameDelay)
	}
	return nil
}
