// Command cluster is the CLI driver: it reads weighted points, runs
// the clustering engine (naive or quadtree-accelerated), logs the
// timing, and writes the resulting dendrogram (gob-encoded) to a file.
//
// Input is a simple whitespace-tuple convenience format, one glyph per
// line: "<weight> <x> <y>".
package main

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"

	"github.com/azybler/growing-glyphs/internal/dendrogram"
	"github.com/azybler/growing-glyphs/internal/engine"
	"github.com/azybler/growing-glyphs/internal/geom"
)

// configOverrides is the shape of the optional -config JSON file: any
// field left unset (zero value, or absent for the bool pointers) falls
// through to engine.DefaultConfig. The bools are pointers so that an
// absent field is distinguishable from an explicit "false" (Track
// defaults to true, so a plain bool would silently flip it off).
type configOverrides struct {
	MaxGlyphsPerCell  int     `json:"max_glyphs_per_cell"`
	MinCellSize       float64 `json:"min_cell_size"`
	MaxMergesToRecord int     `json:"max_merges_to_record"`
	Robust            *bool   `json:"robust"`
	Track             *bool   `json:"track"`
	BigGlyphThreshold int     `json:"big_glyph_threshold"`
	DebugInvariants   *bool   `json:"debug_invariants"`
}

func main() {
	points := flag.String("points", "", "Path to an input file of \"weight x y\" lines")
	output := flag.String("output", "dendrogram.gob", "Output path for the gob-encoded dendrogram")
	algo := flag.String("algo", "quadtree", "Clustering algorithm: quadtree or naive")
	grow := flag.String("grow", "linear-squares", "Grow function: linear-squares, log-squares, area-linear-squares, circular")
	config := flag.String("config", "", "Path to a JSON file of Config overrides (see configOverrides)")
	timeout := flag.Duration("timeout", 0, "Wall-clock timeout; exits 124 if exceeded (0 = no timeout)")
	flag.Parse()

	if *points == "" {
		fmt.Fprintln(os.Stderr, "Usage: cluster --points <file> [--output dendrogram.gob] [--algo quadtree|naive] [--grow ...] [--config config.json] [--timeout 30s]")
		os.Exit(1)
	}

	growFn, ok := geom.ByName(*grow)
	if !ok {
		log.Fatalf("Invalid --grow: unknown grow function %q", *grow)
	}

	log.Printf("Reading points from %s...", *points)
	particles, err := readParticles(*points)
	if err != nil {
		log.Fatalf("Failed to read input: %v", err)
	}
	log.Printf("Read %d glyphs", len(particles))

	cfg := engine.DefaultConfig()
	cfg.Grow = growFn
	if *config != "" {
		if err := applyConfigFile(*config, &cfg); err != nil {
			log.Fatalf("Failed to read --config: %v", err)
		}
	}

	root, elapsed, err := runWithWatchdog(*algo, particles, cfg, *timeout)
	if err != nil {
		log.Fatalf("Clustering failed: %v", err)
	}

	log.Printf("clustering took %f seconds", elapsed.Seconds())
	log.Printf("Root: weight=%d at=%.6f", root.Weight, root.At)

	log.Printf("Writing dendrogram to %s...", *output)
	if err := writeDendrogram(*output, root); err != nil {
		log.Fatalf("Failed to write output: %v", err)
	}
	log.Println("Done.")
}

// applyConfigFile overlays a JSON overrides file onto cfg. Only
// non-zero fields in the file are applied, so an override file can set
// just the one or two parameters a run cares about.
func applyConfigFile(path string, cfg *engine.Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var o configOverrides
	if err := json.NewDecoder(f).Decode(&o); err != nil {
		return err
	}
	if o.MaxGlyphsPerCell > 0 {
		cfg.MaxGlyphsPerCell = o.MaxGlyphsPerCell
	}
	if o.MinCellSize > 0 {
		cfg.MinCellSize = o.MinCellSize
	}
	if o.MaxMergesToRecord > 0 {
		cfg.MaxMergesToRecord = o.MaxMergesToRecord
	}
	if o.Robust != nil {
		cfg.Robust = *o.Robust
	}
	if o.Track != nil {
		cfg.Track = *o.Track
	}
	if o.BigGlyphThreshold > 0 {
		cfg.BigGlyphThreshold = o.BigGlyphThreshold
	}
	if o.DebugInvariants != nil {
		cfg.DebugInvariants = *o.DebugInvariants
	}
	return nil
}

// readParticles parses the "weight x y" convenience format, one glyph
// per line; blank lines and lines starting with '#' are skipped.
func readParticles(path string) ([]geom.Particle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var particles []geom.Particle
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("line %d: expected 3 fields (weight x y), got %d", lineNo, len(fields))
		}
		weight, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid weight: %w", lineNo, err)
		}
		x, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid x: %w", lineNo, err)
		}
		y, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid y: %w", lineNo, err)
		}
		particles = append(particles, geom.Particle{Pos: orb.Point{x, y}, Weight: weight})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return particles, nil
}

type runResult struct {
	root *dendrogram.Node
	err  error
}

// runWithWatchdog runs the chosen algorithm and, if timeout is set,
// exits the process with status 124 (the conventional coreutils
// timeout exit code) should it not finish in time.
func runWithWatchdog(algo string, particles []geom.Particle, cfg engine.Config, timeout time.Duration) (*dendrogram.Node, time.Duration, error) {
	start := time.Now()
	done := make(chan runResult, 1)
	go func() {
		var root *dendrogram.Node
		var err error
		switch algo {
		case "naive":
			root, err = engine.RunNaive(particles, cfg)
		case "quadtree":
			root, err = engine.Run(particles, cfg)
		default:
			err = fmt.Errorf("unknown algorithm %q", algo)
		}
		done <- runResult{root, err}
	}()

	if timeout <= 0 {
		res := <-done
		return res.root, time.Since(start), res.err
	}

	select {
	case res := <-done:
		return res.root, time.Since(start), res.err
	case <-time.After(timeout):
		log.Printf("clustering exceeded timeout of %s", timeout)
		os.Exit(124)
		return nil, 0, nil // unreachable
	}
}

func writeDendrogram(path string, root *dendrogram.Node) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(root)
}
