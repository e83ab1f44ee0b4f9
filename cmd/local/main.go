package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/photo-pipeline/internal/config"
	"github.com/aliskhannn/photo-pipeline/internal/metadata"
	"github.com/aliskhannn/photo-pipeline/internal/processor"
)

// summary is printed after a local run.
type summary struct {
	TakenAt   *string  `json:"taken_at"`
	GPSLat    *float64 `json:"gps_lat"`
	GPSLng    *float64 `json:"gps_lng"`
	WebSize   [2]int   `json:"web_size"`
	ThumbSize [2]int   `json:"thumb_size"`
}

func main() {
	path := flag.String("local", "", "path to a local image")
	outDir := flag.String("outdir", "./out", "output directory for web.webp and thumb.webp")
	flag.Parse()

	zlog.Init()

	if *path == "" {
		flag.Usage()
		os.Exit(2)
	}

	// Thresholds follow the worker: MAX_WEB and MAX_THUMB apply here too.
	procCfg, err := processorConfig("")
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to load config")
	}

	if err := run(*path, *outDir, procCfg, os.Stdout); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("local run failed")
	}
}

// run processes the image at path without touching remote storage,
// writes both derivatives into outDir and prints a JSON summary to w.
func run(path, outDir string, procCfg processor.Config, w io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	meta := metadata.New().Extract(data)

	web, thumb, err := processor.New(procCfg).Generate(data)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	if err := os.WriteFile(filepath.Join(outDir, "web.webp"), web.Bytes, 0o644); err != nil {
		return fmt.Errorf("write web derivative: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, "thumb.webp"), thumb.Bytes, 0o644); err != nil {
		return fmt.Errorf("write thumb derivative: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(summary{
		TakenAt:   meta.TakenAt,
		GPSLat:    meta.GPSLat,
		GPSLng:    meta.GPSLng,
		WebSize:   [2]int{web.Width, web.Height},
		ThumbSize: [2]int{thumb.Width, thumb.Height},
	})
}

// processorConfig reads derivative sizes and qualities from the optional
// config file at path and the environment.
func processorConfig(path string) (processor.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return processor.Config{}, err
	}

	if cfg.Processor.MaxWeb <= 0 || cfg.Processor.MaxThumb <= 0 {
		return processor.Config{}, fmt.Errorf("derivative sizes must be positive, got web=%d thumb=%d",
			cfg.Processor.MaxWeb, cfg.Processor.MaxThumb)
	}

	return processor.Config{
		Web:   processor.Options{MaxSide: cfg.Processor.MaxWeb, Quality: cfg.Processor.WebQuality},
		Thumb: processor.Options{MaxSide: cfg.Processor.MaxThumb, Quality: cfg.Processor.ThumbQuality},
	}, nil
}
