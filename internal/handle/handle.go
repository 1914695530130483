// Package handle defines the arena handle types shared by internal/glyph
// and internal/quadtree. Both arenas are owned elsewhere (by
// internal/engine); these packages only ever hold non-owning indices into
// them, so the two packages can reference each other's entities without
// an import cycle.
package handle

// GlyphID indexes into the engine's glyph arena.
type GlyphID uint32

// CellID indexes into the engine's quadtree cell arena.
type CellID uint32

// NoGlyph is the sentinel for "no glyph".
const NoGlyph = ^GlyphID(0)

// NoCell is the sentinel for "no cell".
const NoCell = ^CellID(0)
