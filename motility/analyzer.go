package motility

import (
	"log/slog"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/lumenbio/casa-go/observability"
	"github.com/lumenbio/casa-go/tracking"
)

// Classification thresholds in µm/s.
const (
	rapidVCL  = 100.0
	mediumVCL = 50.0
)

// Config holds motility analysis parameters. The motile threshold is a
// pixel-unit quantity compared against the unscaled path length, even
// though velocities are micron-scaled.
type Config struct {
	// MinTrackLength is the minimum recorded positions for a track to be
	// analyzed
	MinTrackLength int
	// PixelsPerMicron converts pixel distances to microns
	PixelsPerMicron float64
	// FPS is the video frame rate
	FPS float64
	// MotileThresholdPixels is the minimum unscaled path length (pixels)
	// for a track to count as motile
	MotileThresholdPixels float64
}

// DefaultConfig returns the analysis defaults.
func DefaultConfig() Config {
	return Config{
		MinTrackLength:        10,
		PixelsPerMicron:       1.0,
		FPS:                   30.0,
		MotileThresholdPixels: 10.0,
	}
}

// Validate rejects invalid configurations eagerly.
func (cfg Config) Validate() error {
	if cfg.MinTrackLength < 1 {
		return errors.Errorf("min track length must be positive, got %d", cfg.MinTrackLength)
	}
	if cfg.PixelsPerMicron <= 0 {
		return errors.Errorf("pixels per micron must be positive, got %f", cfg.PixelsPerMicron)
	}
	if cfg.FPS <= 0 {
		return errors.Errorf("fps must be positive, got %f", cfg.FPS)
	}
	if cfg.MotileThresholdPixels < 0 {
		return errors.Errorf("motile threshold must be non-negative, got %f", cfg.MotileThresholdPixels)
	}
	return nil
}

// Analyzer derives kinematic metrics and a motility classification from
// completed tracks. It never mutates its input.
type Analyzer struct {
	cfg Config
	log *slog.Logger
}

// NewAnalyzer validates cfg eagerly. A nil logger falls back to
// slog.Default().
func NewAnalyzer(cfg Config, logger *slog.Logger) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid motility config")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{cfg: cfg, log: logger}, nil
}

// Analyze computes the aggregate motility result for the given completed
// tracks. Zero tracks, or zero tracks long enough to analyze, yield a
// fully-zeroed result.
func (a *Analyzer) Analyze(tracks []*tracking.Track) *Result {
	observability.AnalysesTotal.Inc()

	valid := make([]*tracking.Track, 0, len(tracks))
	for _, track := range tracks {
		if track.Len() >= a.cfg.MinTrackLength {
			valid = append(valid, track)
		}
	}
	if len(valid) == 0 {
		a.log.Warn("no valid tracks found for analysis",
			slog.Int("total_tracks", len(tracks)))
		return emptyResult()
	}

	rows := make([]TrackMetrics, len(valid))
	vclCol := make([]float64, len(valid))
	vslCol := make([]float64, len(valid))
	vapCol := make([]float64, len(valid))
	linCol := make([]float64, len(valid))
	motileCount := 0
	for i, track := range valid {
		rows[i] = a.trackRow(track)
		vclCol[i] = rows[i].VCL
		vslCol[i] = rows[i].VSL
		vapCol[i] = rows[i].VAP
		linCol[i] = rows[i].LIN
		if rows[i].IsMotile {
			motileCount++
		}
	}

	totalCount := len(tracks)
	immotileCount := totalCount - motileCount
	motilityPercent := 0.0
	if totalCount > 0 {
		motilityPercent = float64(motileCount) / float64(totalCount) * 100.0
	}

	vcl := stat.Mean(vclCol, nil)
	vsl := stat.Mean(vslCol, nil)
	vap := stat.Mean(vapCol, nil)
	lin := stat.Mean(linCol, nil)

	// Ratios of aggregate means, not means of per-track ratios.
	wobble := 0.0
	if vcl > 0 {
		wobble = vap / vcl
	}
	progression := 0.0
	if vap > 0 {
		progression = vsl / vap
	}

	bcf := a.beatCrossFrequency(valid)

	a.log.Info("motility analysis complete",
		slog.Int("total", totalCount),
		slog.Int("motile", motileCount),
		slog.Float64("motility_percent", motilityPercent))

	return &Result{
		TotalCount:      totalCount,
		MotileCount:     motileCount,
		ImmotileCount:   immotileCount,
		MotilityPercent: motilityPercent,
		VCL:             vcl,
		VSL:             vsl,
		VAP:             vap,
		LIN:             lin,
		Wobble:          wobble,
		Progression:     progression,
		BCF:             bcf,
		Tracks:          rows,
	}
}

// trackRow computes the per-track kinematic row.
func (a *Analyzer) trackRow(track *tracking.Track) TrackMetrics {
	totalRaw := track.TotalDistance()
	straightRaw := track.StraightLineDistance()
	totalDistance := totalRaw * a.cfg.PixelsPerMicron
	straightDistance := straightRaw * a.cfg.PixelsPerMicron

	duration := a.duration(track)
	vcl, vsl := 0.0, 0.0
	if duration > 0 {
		vcl = totalDistance / duration
		vsl = straightDistance / duration
	}

	// Approximation of average path velocity: mean step velocity scaled to
	// µm/s. True VAP needs a smoothed path, which is out of scope.
	vap := track.MeanStepVelocity() * a.cfg.PixelsPerMicron * a.cfg.FPS

	return TrackMetrics{
		TrackID:          track.ID,
		Length:           track.Len(),
		Duration:         duration,
		TotalDistance:    totalDistance,
		StraightDistance: straightDistance,
		VCL:              vcl,
		VSL:              vsl,
		VAP:              vap,
		LIN:              track.Linearity(),
		IsMotile:         a.isMotile(track),
	}
}

// duration is the track lifetime in seconds, floored at one frame interval
// when fewer than two positions exist.
func (a *Analyzer) duration(track *tracking.Track) float64 {
	if track.Len() >= 2 {
		return float64(track.FrameSpan()) / a.cfg.FPS
	}
	return 1.0 / a.cfg.FPS
}

// isMotile compares the unscaled pixel path length against the configured
// threshold.
func (a *Analyzer) isMotile(track *tracking.Track) bool {
	return track.TotalDistance() > a.cfg.MotileThresholdPixels
}

// beatCrossFrequency averages the direction-reversal rate over qualifying
// tracks. It counts sign reversals of the displacement components rather
// than crossings of the mean path.
func (a *Analyzer) beatCrossFrequency(tracks []*tracking.Track) float64 {
	frequencies := make([]float64, 0, len(tracks))
	for _, track := range tracks {
		if track.Len() < 3 {
			continue
		}
		framesElapsed := track.FrameSpan()
		if framesElapsed <= 0 {
			continue
		}
		seconds := float64(framesElapsed) / a.cfg.FPS
		frequencies = append(frequencies, float64(track.DirectionChanges())/seconds)
	}
	if len(frequencies) == 0 {
		return 0.0
	}
	return stat.Mean(frequencies, nil)
}

// Classify buckets tracks into rapid/medium/slow/immotile grades. Tracks
// shorter than MinTrackLength are immotile outright; motile tracks grade by
// VCL in µm/s.
func (a *Analyzer) Classify(tracks []*tracking.Track) ClassCounts {
	var counts ClassCounts
	for _, track := range tracks {
		if track.Len() < a.cfg.MinTrackLength {
			counts.Immotile++
			continue
		}

		vcl := 0.0
		if track.Len() >= 2 {
			if seconds := float64(track.FrameSpan()) / a.cfg.FPS; seconds > 0 {
				vcl = track.TotalDistance() * a.cfg.PixelsPerMicron / seconds
			}
		}

		switch {
		case !a.isMotile(track):
			counts.Immotile++
		case vcl > rapidVCL:
			counts.Rapid++
		case vcl > mediumVCL:
			counts.Medium++
		default:
			counts.Slow++
		}
	}
	return counts
}

func emptyResult() *Result {
	return &Result{Tracks: []TrackMetrics{}}
}
