package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/paulmach/orb"

	"github.com/azybler/growing-glyphs/internal/dendrogram"
	"github.com/azybler/growing-glyphs/internal/engine"
	"github.com/azybler/growing-glyphs/internal/geom"
	"github.com/azybler/growing-glyphs/internal/quadtree"
)

// maxClusterBodyBytes bounds how large a single request body may be.
const maxClusterBodyBytes = 10 << 20 // 10 MiB

// Handlers holds the HTTP handlers and the engine configuration they
// run requests with.
type Handlers struct {
	cfg Config
}

// HandleCluster handles POST /v1/cluster. The body is a JSON array of
// {weight, x, y} tuples; the response is the resulting dendrogram.
func (h *Handlers) HandleCluster(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	var points []PointJSON
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxClusterBodyBytes)).Decode(&points); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if len(points) == 0 {
		writeError(w, http.StatusBadRequest, "no_points")
		return
	}

	particles := make([]geom.Particle, len(points))
	for i, p := range points {
		particles[i] = geom.Particle{Pos: orb.Point{p.X, p.Y}, Weight: p.Weight}
	}

	root, err := h.runWithTimeout(r.Context(), particles)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrNoGlyphs), errors.Is(err, engine.ErrInvalidWeight):
			writeError(w, http.StatusBadRequest, "invalid_request")
		case errors.Is(err, quadtree.ErrCapacityUnsatisfiable):
			writeError(w, http.StatusUnprocessableEntity, "capacity_unsatisfiable")
		case errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusServiceUnavailable, "request_timeout")
		default:
			writeError(w, http.StatusInternalServerError, "internal_error")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toJSON(root))
}

// HandleHealth handles GET /v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(HealthResponse{Status: "ok"})
}

// runWithTimeout runs engine.Run on a background goroutine and returns
// context.DeadlineExceeded if it does not finish within the request's
// deadline or the configured ClusterTimeout, whichever is sooner. The
// core loop itself takes no context; this is purely the host bounding
// how long it waits.
func (h *Handlers) runWithTimeout(ctx context.Context, particles []geom.Particle) (*dendrogram.Node, error) {
	ctx, cancel := context.WithTimeout(ctx, h.cfg.ClusterTimeout)
	defer cancel()

	type result struct {
		root *dendrogram.Node
		err  error
	}
	done := make(chan result, 1)
	go func() {
		root, err := engine.Run(particles, h.cfg.EngineConfig)
		done <- result{root, err}
	}()

	select {
	case res := <-done:
		return res.root, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func toJSON(n *dendrogram.Node) *DendrogramJSON {
	if n == nil {
		return nil
	}
	out := &DendrogramJSON{
		Glyph:  uint32(n.Glyph),
		X:      n.Pos.X(),
		Y:      n.Pos.Y(),
		Weight: n.Weight,
		At:     n.At,
	}
	for _, c := range n.CreatedFrom {
		out.Children = append(out.Children, toJSON(c))
	}
	return out
}

func writeError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: code})
}
