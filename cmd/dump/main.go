// Command dump walks a dendrogram produced by cmd/cluster and prints
// its merge events in global time order, one per Advance step — the
// same replay a visualisation frontend would drive via
// dendrogram.Cursor, minus the rendering.
package main

import (
	"encoding/gob"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/azybler/growing-glyphs/internal/dendrogram"
	"github.com/azybler/growing-glyphs/internal/handle"
)

func main() {
	input := flag.String("input", "dendrogram.gob", "Path to a gob-encoded dendrogram written by cmd/cluster")
	reverse := flag.Bool("reverse", false, "Walk backwards from the fully-merged state via Retreat instead of Advance")
	loop := flag.Int("loop", 1, "Replay the forward sequence this many times, rewinding the cursor between passes")
	flag.Parse()

	root, err := readDendrogram(*input)
	if err != nil {
		log.Fatalf("Failed to read dendrogram: %v", err)
	}

	cur := dendrogram.NewCursor(root)
	_, total := cur.Position()
	log.Printf("%d merge events", total)

	if *reverse {
		for !cur.Done() {
			cur.Advance()
		}
		for {
			n, ok := cur.Retreat()
			if !ok {
				break
			}
			printEvent(n)
		}
		return
	}

	for pass := 0; pass < *loop; pass++ {
		if pass > 0 {
			cur.Reset()
		}
		if at, ok := cur.At(); ok {
			log.Printf("pass %d/%d: replaying from t=%.6f", pass+1, *loop, at)
		}
		for {
			n, ok := cur.Advance()
			if !ok {
				break
			}
			printEvent(n)
		}
	}
}

func printEvent(n *dendrogram.Node) {
	sources := make([]handle.GlyphID, len(n.CreatedFrom))
	for i, c := range n.CreatedFrom {
		sources[i] = c.Glyph
	}
	fmt.Printf("at=%.6f glyph=%d weight=%d pos=(%.4f,%.4f) from=%v\n",
		n.At, n.Glyph, n.Weight, n.Pos.X(), n.Pos.Y(), sources)
}

func readDendrogram(path string) (*dendrogram.Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var root dendrogram.Node
	if err := gob.NewDecoder(f).Decode(&root); err != nil {
		return nil, err
	}
	return &root, nil
}
