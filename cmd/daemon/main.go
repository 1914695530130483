// Command daemon runs the clustering engine as an HTTP service.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/azybler/growing-glyphs/internal/daemon"
)

func main() {
	port := flag.Int("port", 8080, "HTTP port")
	corsOrigin := flag.String("cors-origin", "", "CORS allowed origin (empty = same-origin)")
	maxGlyphsPerCell := flag.Int("max-glyphs-per-cell", 0, "Override Config.MaxGlyphsPerCell (0 = use default)")
	minCellSize := flag.Float64("min-cell-size", 0, "Override Config.MinCellSize (0 = use default)")
	flag.Parse()

	addr := fmt.Sprintf(":%d", *port)
	cfg := daemon.DefaultConfig(addr)
	cfg.CORSOrigin = *corsOrigin
	if *maxGlyphsPerCell > 0 {
		cfg.EngineConfig.MaxGlyphsPerCell = *maxGlyphsPerCell
	}
	if *minCellSize > 0 {
		cfg.EngineConfig.MinCellSize = *minCellSize
	}

	srv := daemon.NewServer(cfg)
	if err := daemon.ListenAndServe(srv); err != nil {
		log.Printf("daemon stopped: %v", err)
		os.Exit(1)
	}
}
