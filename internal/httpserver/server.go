// internal/httpserver/server.go
//
// HTTP server wiring for the number-guessing backend.
// Responsibilities:
//   - Router + middleware (request ids, real IP, request logging, panic
//     recovery, CORS, timeouts, JSON content type).
//   - Public endpoints: "/", "/health", "/metrics", "/difficulties".
//   - Player endpoints (anonymous session cookie): /round/*, /best.
//   - Live snapshot stream over WebSocket: /round/ws.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Handlers never touch a game.Session directly; every intent goes
//     through the player's runner.Round.

package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/numguess/internal/difficulty"
	"github.com/robalobadob/numguess/internal/metrics"
	"github.com/robalobadob/numguess/internal/runner"
)

// Pinger reports backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the server needs.
type Deps struct {
	Manager      *runner.Manager
	Sessions     *Sessions
	Metrics      *metrics.Metrics // optional
	Store        Pinger           // optional; checked by /health
	ClientOrigin string
}

// Server bundles the router and its dependencies.
type Server struct {
	r    *chi.Mux
	deps Deps
}

// New constructs a Server, installs middleware, and registers routes.
func New(d Deps) *Server {
	s := &Server{r: chi.NewRouter(), deps: d}

	// --- middleware ---
	s.r.Use(chimw.RequestID)      // add X-Request-ID
	s.r.Use(chimw.RealIP)         // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(requestLogger)        // zerolog access log
	s.r.Use(chimw.Recoverer)      // recover from panics
	s.r.Use(cors(d.ClientOrigin)) // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/metrics", d.Metrics.Handler().ServeHTTP)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
		r.Use(jsonContentType)                 // default JSON responses

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"service": "numguess",
				"endpoints": []string{
					"/health", "/difficulties", "GET /round", "POST /round/start", "POST /round/guess",
					"POST /round/new", "POST /round/menu", "GET|DELETE /best", "/round/ws",
				},
			})
		})
		r.Get("/health", s.handleHealth)
		r.Get("/difficulties", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, difficulty.All())
		})

		// Player endpoints: anonymous identity via session cookie.
		r.Group(func(r chi.Router) {
			r.Use(d.Sessions.Middleware)
			s.mountRound(r)
		})

		// JSON 404 for easier debugging
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
		})
	})

	// WebSocket upgrade runs outside the timeout group.
	s.r.With(d.Sessions.Middleware).Get("/round/ws", s.handleWS)

	return s
}

// Handler exposes the router as an http.Handler.
func (s *Server) Handler() http.Handler { return s.r }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	res := map[string]any{"ok": true, "rounds": s.deps.Manager.Len()}
	if s.deps.Store != nil {
		if err := s.deps.Store.Ping(r.Context()); err != nil {
			log.Warn().Err(err).Msg("health: store unreachable")
			res["ok"] = false
			res["store"] = "unreachable"
			writeJSON(w, http.StatusServiceUnavailable, res)
			return
		}
		res["store"] = "ok"
	}
	writeJSON(w, http.StatusOK, res)
}

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for a single origin.
func cors(origin string) func(http.Handler) http.Handler {
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger writes one zerolog line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			log.Info().
				Str("reqId", chimw.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("took", time.Since(start)).
				Msg("http")
		}()
		next.ServeHTTP(ww, r)
	})
}

// ------------------------------- helpers -----------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
