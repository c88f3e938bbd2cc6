package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/Cheese-match-server/internal/chess"
	"github.com/park285/Cheese-match-server/internal/domain"
	"github.com/park285/Cheese-match-server/internal/match"
	"github.com/park285/Cheese-match-server/internal/pvpchess"
	"github.com/park285/Cheese-match-server/internal/session"
	"github.com/park285/Cheese-match-server/pkg/chessdto"
)

type createMatchResponse struct {
	Match    domain.MatchSeed `json:"match"`
	Snapshot match.Snapshot   `json:"snapshot"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body chessdto.CreateMatchRequest
	if !s.decode(w, r, &body) {
		return
	}
	seed, snap, err := s.matches.CreateMatch(r.Context(), pvpchess.CreateMatchParams{
		WhiteID:  body.WhiteID,
		BlackID:  body.BlackID,
		StartFEN: body.StartFEN,
	})
	if err != nil {
		s.fail(w, r, err, failure{})
		return
	}
	w.Header().Set("Location", "/api/matches/"+seed.ID)
	writeJSON(w, http.StatusCreated, createMatchResponse{Match: seed, Snapshot: snap})
}

func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	id := matchID(r)
	d, err := s.matches.Details(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, failure{matchID: id})
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := matchID(r)
	moves, err := s.matches.History(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, failure{matchID: id})
		return
	}
	writeJSON(w, http.StatusOK, chessdto.HistoryResponse{MatchID: id, Moves: moves})
}

func (s *Server) handleLegal(w http.ResponseWriter, r *http.Request) {
	id := matchID(r)
	legal, err := s.matches.LegalMoves(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, failure{matchID: id})
		return
	}
	writeJSON(w, http.StatusOK, legal)
}

func (s *Server) handlePGN(w http.ResponseWriter, r *http.Request) {
	id := matchID(r)
	pgn, err := s.matches.PGN(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, failure{matchID: id})
		return
	}
	w.Header().Set("Content-Type", "application/x-chess-pgn; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+id+`.pgn"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(pgn))
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	id := matchID(r)
	var body chessdto.MoveRequest
	if !s.decode(w, r, &body) {
		return
	}
	side, ok := s.side(w, body.Side)
	if !ok {
		return
	}
	move := strings.TrimSpace(body.Move)
	if move == "" {
		s.badRequest(w, "move is required")
		return
	}
	tr, err := s.matches.SubmitMove(r.Context(), id, side, move)
	if err != nil {
		s.fail(w, r, err, failure{matchID: id, side: side, move: move})
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

func (s *Server) handleResign(w http.ResponseWriter, r *http.Request) {
	s.handleOutcome(w, r, s.matches.Resign)
}

func (s *Server) handleTimeout(w http.ResponseWriter, r *http.Request) {
	s.handleOutcome(w, r, s.matches.Timeout)
}

func (s *Server) handleAcceptDraw(w http.ResponseWriter, r *http.Request) {
	s.handleOutcome(w, r, s.matches.AcceptDraw)
}

type outcomeFunc func(ctx context.Context, matchID string, side chess.Color) (match.Outcome, error)

func (s *Server) handleOutcome(w http.ResponseWriter, r *http.Request, fn outcomeFunc) {
	id := matchID(r)
	side, ok := s.sideFromBody(w, r)
	if !ok {
		return
	}
	out, err := fn(r.Context(), id, side)
	if err != nil {
		s.fail(w, r, err, failure{matchID: id, side: side})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleOfferDraw(w http.ResponseWriter, r *http.Request) {
	id := matchID(r)
	side, ok := s.sideFromBody(w, r)
	if !ok {
		return
	}
	if err := s.matches.OfferDraw(r.Context(), id, side); err != nil {
		s.fail(w, r, err, failure{matchID: id, side: side})
		return
	}
	snap, err := s.matches.Snapshot(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, failure{matchID: id})
		return
	}
	writeJSON(w, http.StatusAccepted, snap)
}

func (s *Server) handleSpectate(w http.ResponseWriter, r *http.Request) {
	id := matchID(r)
	if _, err := s.matches.Snapshot(r.Context(), id); err != nil {
		s.fail(w, r, err, failure{matchID: id})
		return
	}
	// the stream outlives the server's per-request deadlines
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})
	s.spectators.ServeMatch(w, r, id)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := decodeBody(r, v); err != nil {
		if isBodyTooLarge(err) {
			s.writeError(w, http.StatusRequestEntityTooLarge, chessdto.DomainError{Code: "TOO_LARGE", Message: "request too large"})
			return false
		}
		s.badRequest(w, "invalid json")
		return false
	}
	return true
}

func (s *Server) sideFromBody(w http.ResponseWriter, r *http.Request) (chess.Color, bool) {
	var body chessdto.SideRequest
	if !s.decode(w, r, &body) {
		return chess.White, false
	}
	return s.side(w, body.Side)
}

func (s *Server) side(w http.ResponseWriter, raw string) (chess.Color, bool) {
	c, err := chess.ParseColor(raw)
	if err != nil {
		s.badRequest(w, "side must be white or black")
		return chess.White, false
	}
	return c, true
}

func (s *Server) badRequest(w http.ResponseWriter, reason string) {
	s.writeError(w, http.StatusBadRequest, chessdto.DomainError{
		Code:    "BAD_REQUEST",
		Message: s.catalog.RenderOr("errors.bad_request", map[string]any{"Reason": reason}, reason),
	})
}

// failure carries what the error messages interpolate.
type failure struct {
	matchID string
	side    chess.Color
	move    string
}

// fail maps domain errors onto status codes. NotYourTurn wraps IllegalMove,
// so it is checked first.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, f failure) {
	status, derr := s.classify(err, f)
	if status >= http.StatusInternalServerError {
		s.logger.Error("http_request_error",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("match_id", f.matchID),
			zap.Error(err),
		)
	}
	s.writeError(w, status, derr)
}

func (s *Server) classify(err error, f failure) (int, chessdto.DomainError) {
	render := func(key string, data map[string]any, fallback string) string {
		return s.catalog.RenderOr(key, data, fallback)
	}
	switch {
	case errors.Is(err, session.ErrMatchNotFound):
		return http.StatusNotFound, chessdto.DomainError{
			Code:    "MATCH_NOT_FOUND",
			Message: render("errors.match_not_found", map[string]any{"MatchID": f.matchID}, err.Error()),
		}
	case errors.Is(err, match.ErrNotYourTurn):
		return http.StatusConflict, chessdto.DomainError{
			Code:    "NOT_YOUR_TURN",
			Message: render("errors.not_your_turn", map[string]any{"Turn": f.side.Other().String()}, err.Error()),
		}
	case errors.Is(err, match.ErrIllegalMove):
		return http.StatusUnprocessableEntity, chessdto.DomainError{
			Code:    "ILLEGAL_MOVE",
			Message: render("errors.illegal_move", map[string]any{"Move": f.move}, err.Error()),
		}
	case errors.Is(err, match.ErrMatchAlreadyConcluded):
		return http.StatusConflict, chessdto.DomainError{
			Code:    "MATCH_CONCLUDED",
			Message: render("errors.match_concluded", map[string]any{"MatchID": f.matchID}, err.Error()),
		}
	case errors.Is(err, match.ErrNoDrawOffered):
		return http.StatusConflict, chessdto.DomainError{
			Code:    "NO_DRAW_OFFERED",
			Message: render("errors.no_draw_offered", nil, err.Error()),
		}
	case errors.Is(err, pvpchess.ErrPlyConflict):
		return http.StatusConflict, chessdto.DomainError{
			Code:      "PLY_CONFLICT",
			Message:   render("errors.ply_conflict", map[string]any{"MatchID": f.matchID}, err.Error()),
			Retryable: true,
		}
	case errors.Is(err, chess.ErrMalformedPosition):
		return http.StatusBadRequest, chessdto.DomainError{
			Code:    "MALFORMED_POSITION",
			Message: render("errors.malformed_position", nil, err.Error()),
		}
	}
	return http.StatusInternalServerError, chessdto.DomainError{
		Code:      "INTERNAL",
		Message:   render("errors.internal", nil, "internal error"),
		Retryable: true,
	}
}
