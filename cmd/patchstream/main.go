// Command patchstream flies a camera over a terrain on a headless GPU device
// and streams the visible patches through a patchstream.Streamer.
//
// Usage:
//
//	patchstream [--config run.yaml] [--frames N] [--workers N] [--seed N]
//	            [--heightmap file] [--prefetch] [--report out.json] [--verbose]
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	flag "github.com/spf13/pflag"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/patchstream"
	"github.com/gogpu/patchstream/content"
	"github.com/gogpu/patchstream/patch"
	"github.com/gogpu/patchstream/spatial"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out, errOut io.Writer) int {
	cfg, verbose, err := parseFlags(args)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 2
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	patchstream.SetLogger(slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level})))
	defer patchstream.SetLogger(nil)

	report, err := fly(cfg)
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}

	printSummary(out, cfg, report)
	if cfg.Report != "" {
		if err := writeReport(cfg.Report, report); err != nil {
			fmt.Fprintln(errOut, "error:", err)
			return 1
		}
	}
	return 0
}

func parseFlags(args []string) (Config, bool, error) {
	fs := flag.NewFlagSet("patchstream", flag.ContinueOnError)

	configPath := fs.String("config", "", "YAML run configuration")
	frames := fs.Int("frames", 0, "number of frames to simulate")
	workers := fs.Int("workers", 0, "build workers (0 = GOMAXPROCS)")
	seed := fs.Uint64("seed", 0, "seed of the generated heightmap")
	heightmap := fs.String("heightmap", "", "heightmap file (.png, .jpg, .hmap, .zst)")
	prefetch := fs.Bool("prefetch", false, "build every cell before the first frame")
	reportPath := fs.String("report", "", "write a JSON run report to this path")
	verbose := fs.BoolP("verbose", "v", false, "debug logging")

	if err := fs.Parse(args); err != nil {
		return Config{}, false, err
	}

	cfg, err := Load(*configPath)
	if err != nil {
		return cfg, false, err
	}
	if fs.Changed("frames") {
		cfg.Frames = *frames
	}
	if fs.Changed("workers") {
		cfg.Stream.Workers = *workers
	}
	if fs.Changed("seed") {
		cfg.World.Seed = *seed
	}
	if fs.Changed("heightmap") {
		cfg.World.Heightmap = *heightmap
	}
	if fs.Changed("prefetch") {
		cfg.Stream.Prefetch = *prefetch
	}
	if fs.Changed("report") {
		cfg.Report = *reportPath
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, false, err
	}
	return cfg, *verbose, nil
}

// fly runs the configured number of frames and returns the run report.
func fly(cfg Config) (Report, error) {
	bounds := spatial.Box(
		mgl32.Vec3{0, 0, 0},
		mgl32.Vec3{cfg.World.Size, cfg.World.Height, cfg.World.Size},
	)
	tree, err := spatial.NewQuadtree(bounds, cfg.World.LeafSize)
	if err != nil {
		return Report{}, err
	}

	material, err := content.TerrainMaterial()
	if err != nil {
		// Geometry streams fine without a compiled material.
		patchstream.Logger().Warn("terrain material unavailable", "err", err)
	}
	level, err := loadLevel(cfg.World, bounds, material, cfg.World.Seed)
	if err != nil {
		return Report{}, err
	}

	hd, err := patch.NewHeadlessDevice()
	if err != nil {
		return Report{}, err
	}
	defer hd.Destroy()

	builder, err := patch.NewHALBuilderFromProvider(hd, tree, patch.WithResolution(cfg.World.Resolution))
	if err != nil {
		return Report{}, err
	}
	s, err := patchstream.New(tree, builder, level,
		patchstream.WithWorkers(cfg.Stream.Workers),
		patchstream.WithMaxBuildsPerFrame(cfg.Stream.MaxBuildsPerFrame),
		patchstream.WithReserveAttempts(cfg.Stream.ReserveAttempts),
		patchstream.WithRemoveAttempts(cfg.Stream.RemoveAttempts),
	)
	if err != nil {
		return Report{}, err
	}
	defer s.Close()

	if cfg.Stream.Prefetch {
		n := s.Prefetch()
		s.Wait()
		patchstream.Logger().Info("prefetched", "cells", n)
	}

	device, queue := hd.HAL()
	report := Report{Level: level.Name, Cells: tree.Len()}
	for frame := 1; frame <= cfg.Frames; frame++ {
		rec := FrameRecord{}
		if cfg.ResetAt > 0 && frame == cfg.ResetAt {
			next, err := loadLevel(cfg.World, bounds, material, cfg.World.Seed+1)
			if err != nil {
				return report, err
			}
			s.Reset(next)
			report.Level = next.Name
			rec.Reset = true
		}

		cam := flightCamera(cfg, frame)
		fr := s.Update(patchstream.View{Volume: cam.Frustum(), Eye: cam.Eye})

		stats, err := patch.RecordFrame(device, queue, fmt.Sprintf("frame_%d", frame), func(pr *patch.PassRecorder) {
			s.Draw(pr)
		})
		if err != nil {
			return report, fmt.Errorf("frame %d: %w", frame, err)
		}

		rec.Frame = fr.Frame
		rec.Visible = fr.Visible
		rec.Scheduled = fr.Scheduled
		rec.Deferred = fr.Deferred
		rec.Unreserved = fr.Unreserved
		rec.Draws = stats.Draws
		rec.Triangles = stats.Triangles
		report.Frames = append(report.Frames, rec)
	}

	s.Wait()
	report.Totals = totalsFrom(s.Stats())
	return report, nil
}

// flightCamera flies along +Z over the middle of the world, looking ahead
// and down. The flight stops at the far edge.
func flightCamera(cfg Config, frame int) spatial.Camera {
	z := min(float32(frame)*cfg.Camera.Speed, cfg.World.Size)
	x := cfg.World.Size / 2
	return spatial.Camera{
		Eye:    mgl32.Vec3{x, cfg.Camera.Altitude, z},
		Target: mgl32.Vec3{x, 0, z + cfg.Camera.LookAhead},
		Up:     mgl32.Vec3{0, 1, 0},
		FovY:   cfg.Camera.FovY,
		Aspect: 16.0 / 9.0,
		Near:   0.5,
		Far:    cfg.Camera.Far,
	}
}

func loadLevel(w WorldConfig, bounds spatial.AABB, material *content.Material, seed uint64) (*content.Level, error) {
	if w.Heightmap != "" {
		h, err := content.Open(w.Heightmap)
		if err != nil {
			return nil, err
		}
		return content.NewLevel(filepath.Base(w.Heightmap), bounds, h, material)
	}
	h, err := content.Generate(w.Samples, w.Samples, seed)
	if err != nil {
		return nil, err
	}
	return content.NewLevel(fmt.Sprintf("generated-%d", seed), bounds, h, material)
}

func printSummary(out io.Writer, cfg Config, r Report) {
	p := message.NewPrinter(language.English)

	var triangles int
	var peak int
	for _, f := range r.Frames {
		triangles += f.Triangles
		peak = max(peak, f.Triangles)
	}
	p.Fprintf(out, "level %s: %d cells, %d frames\n", r.Level, r.Cells, cfg.Frames)
	p.Fprintf(out, "builds: %d scheduled, %d succeeded, %d failed, %d stale\n",
		r.Totals.Scheduled, r.Totals.Succeeded, r.Totals.Failed, r.Totals.Stale)
	p.Fprintf(out, "resident: %d patches, %d disposed\n", r.Totals.Resident, r.Totals.Disposed)
	p.Fprintf(out, "triangles: %d total, %d peak per frame\n", triangles, peak)
}
