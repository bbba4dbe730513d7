// internal/httpserver/routes_round.go
//
// HTTP routes for a player's round.
//   - GET    /round         → current snapshot (not_started without a live round)
//   - DELETE /round         → stop and drop the player's round
//   - POST   /round/start   → start at {difficulty}
//   - POST   /round/guess   → submit {guess}
//   - POST   /round/new     → restart at the last difficulty
//   - POST   /round/menu    → back to menu
//   - GET    /best          → {attempts} (null when none recorded)
//   - DELETE /best          → reset best score
//
// Every response carrying round state is a game.Snapshot.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/numguess/internal/difficulty"
	"github.com/robalobadob/numguess/internal/game"
	"github.com/robalobadob/numguess/internal/runner"
)

// mountRound registers the player routes.
func (s *Server) mountRound(r chi.Router) {
	r.Get("/round", s.handleSnapshot)
	r.Delete("/round", s.handleLeave)
	r.Post("/round/start", s.handleStart)
	r.Post("/round/guess", s.handleGuess)
	r.Post("/round/new", s.handleNew)
	r.Post("/round/menu", s.handleMenu)
	r.Get("/best", s.handleBest)
	r.Delete("/best", s.handleResetBest)
}

// startReq/guessReq payloads.
type startReq struct {
	Difficulty string `json:"difficulty"`
}

// guessReq accepts the guess as a JSON string ("42") or number (42); the
// text is validated by the game, not here.
type guessReq struct {
	Guess json.RawMessage `json:"guess"`
}

func (g guessReq) raw() string {
	var s string
	if err := json.Unmarshal(g.Guess, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(g.Guess))
}

type bestRes struct {
	Attempts *int `json:"attempts"`
}

type conflictRes struct {
	Error    string        `json:"error"`
	Snapshot game.Snapshot `json:"snapshot"`
}

func (s *Server) round(r *http.Request) *runner.Round {
	return s.deps.Manager.Get(PlayerID(r.Context()))
}

// handleSnapshot reads without starting a round loop for unknown players.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	rd, ok := s.deps.Manager.Lookup(PlayerID(r.Context()))
	if !ok {
		writeJSON(w, http.StatusOK, game.NewSession(nil, nil).Snapshot())
		return
	}
	writeJSON(w, http.StatusOK, rd.Snapshot())
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	s.deps.Manager.Remove(PlayerID(r.Context()))
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	key, err := difficulty.ParseKey(req.Difficulty)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown_difficulty")
		return
	}
	snap, err := s.round(r).Start(r.Context(), key)
	s.respond(w, snap, err)
}

func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req guessReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	snap, err := s.round(r).Guess(r.Context(), req.raw())
	s.respond(w, snap, err)
}

func (s *Server) handleNew(w http.ResponseWriter, r *http.Request) {
	snap, err := s.round(r).NewGame(r.Context())
	s.respond(w, snap, err)
}

func (s *Server) handleMenu(w http.ResponseWriter, r *http.Request) {
	snap, err := s.round(r).Menu(r.Context())
	s.respond(w, snap, err)
}

func (s *Server) handleBest(w http.ResponseWriter, r *http.Request) {
	n, ok, err := s.round(r).Best(r.Context())
	if err != nil {
		s.respondErr(w, err)
		return
	}
	var res bestRes
	if ok {
		res.Attempts = &n
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleResetBest(w http.ResponseWriter, r *http.Request) {
	if err := s.round(r).ResetBest(r.Context()); err != nil {
		s.respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// respond maps runner results onto HTTP statuses.
func (s *Server) respond(w http.ResponseWriter, snap game.Snapshot, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, snap)
	case errors.Is(err, game.ErrIllegalState):
		writeJSON(w, http.StatusConflict, conflictRes{Error: "illegal_state", Snapshot: snap})
	case errors.Is(err, difficulty.ErrUnknownDifficulty):
		writeError(w, http.StatusBadRequest, "unknown_difficulty")
	default:
		s.respondErr(w, err)
	}
}

func (s *Server) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, runner.ErrStopped),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "unavailable")
	default:
		log.Error().Err(err).Msg("round request failed")
		writeError(w, http.StatusInternalServerError, "internal")
	}
}
