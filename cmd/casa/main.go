package main

import (
	"context"
	"encoding/json"
	"flag"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/pkg/errors"

	"github.com/lumenbio/casa-go/config"
	"github.com/lumenbio/casa-go/motility"
	"github.com/lumenbio/casa-go/observability"
	"github.com/lumenbio/casa-go/tracking"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file")
	masksDir := flag.String("masks", "", "directory with binary mask images, one per frame, sorted by name")
	flag.Parse()

	if err := run(*configPath, *masksDir); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, masksDir string) error {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
	} else {
		cfg = config.Default()
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	if masksDir == "" {
		return errors.New("-masks directory is required")
	}

	frames, err := loadFrames(masksDir)
	if err != nil {
		return err
	}
	slog.Info("loaded mask frames", "dir", masksDir, "count", len(frames))

	engine, err := tracking.NewEngine(cfg.Tracker(), slog.Default())
	if err != nil {
		return err
	}
	analyzer, err := motility.NewAnalyzer(cfg.Analyzer(), slog.Default())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracks, trackErr := engine.Track(ctx, tracking.NewSliceSource(frames))
	if trackErr != nil {
		// Partial tracks are still analyzable.
		slog.Warn("tracking ended early", "error", trackErr, "tracks", len(tracks))
	}

	result := analyzer.Analyze(tracks)
	classes := analyzer.Classify(tracks)

	out := struct {
		*motility.Result
		Classes motility.ClassCounts `json:"classes"`
	}{Result: result, Classes: classes}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return errors.Wrap(err, "encode result")
	}
	return nil
}

// loadFrames reads every image in dir in lexical name order and converts
// it to a binary mask. Any nonzero pixel counts as foreground.
func loadFrames(dir string) ([]tracking.Frame, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "read masks directory")
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".png", ".jpg", ".jpeg":
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	if len(names) == 0 {
		return nil, errors.Errorf("no mask images found in %s", dir)
	}

	frames := make([]tracking.Frame, 0, len(names))
	for i, name := range names {
		mask, err := loadMask(filepath.Join(dir, name))
		if err != nil {
			return nil, errors.Wrapf(err, "mask %s", name)
		}
		frames = append(frames, tracking.Frame{Mask: mask, Index: i})
	}
	return frames, nil
}

func loadMask(path string) (*tracking.Mask, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrap(err, "decode image")
	}

	bounds := img.Bounds()
	mask := tracking.NewMask(bounds.Dx(), bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			if r|g|b != 0 {
				mask.Set(x-bounds.Min.X, y-bounds.Min.Y)
			}
		}
	}
	return mask, nil
}
