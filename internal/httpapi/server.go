package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"go.uber.org/zap/zapio"

	"github.com/park285/Cheese-match-server/internal/chess"
	"github.com/park285/Cheese-match-server/internal/domain"
	"github.com/park285/Cheese-match-server/internal/match"
	"github.com/park285/Cheese-match-server/internal/msgcat"
	"github.com/park285/Cheese-match-server/internal/pvpchess"
	"github.com/park285/Cheese-match-server/pkg/chessdto"
)

const maxJSONBodyBytes int64 = 1 << 20

// Matches is the match service the HTTP layer drives.
type Matches interface {
	CreateMatch(ctx context.Context, p pvpchess.CreateMatchParams) (domain.MatchSeed, match.Snapshot, error)
	SubmitMove(ctx context.Context, matchID string, side chess.Color, move string) (match.TransitionResult, error)
	Resign(ctx context.Context, matchID string, side chess.Color) (match.Outcome, error)
	Timeout(ctx context.Context, matchID string, side chess.Color) (match.Outcome, error)
	OfferDraw(ctx context.Context, matchID string, side chess.Color) error
	AcceptDraw(ctx context.Context, matchID string, side chess.Color) (match.Outcome, error)
	Snapshot(ctx context.Context, matchID string) (match.Snapshot, error)
	Details(ctx context.Context, matchID string) (chessdto.MatchDetails, error)
	LegalMoves(ctx context.Context, matchID string) (chessdto.LegalMovesResponse, error)
	History(ctx context.Context, matchID string) ([]chessdto.MoveHistory, error)
	PGN(ctx context.Context, matchID string) (string, error)
}

// Spectators serves the websocket stream of one match.
type Spectators interface {
	ServeMatch(w http.ResponseWriter, r *http.Request, matchID string)
}

type Server struct {
	matches     Matches
	spectators  Spectators
	catalog     *msgcat.Catalog
	logger      *zap.Logger
	corsOrigins []string

	srvMu sync.Mutex
	srv   *http.Server
}

type Option func(*Server)

func WithSpectators(s Spectators) Option { return func(srv *Server) { srv.spectators = s } }
func WithCatalog(c *msgcat.Catalog) Option { return func(srv *Server) { srv.catalog = c } }
func WithCORSOrigins(origins []string) Option {
	return func(srv *Server) { srv.corsOrigins = origins }
}

func WithLogger(l *zap.Logger) Option {
	return func(srv *Server) {
		if l != nil {
			srv.logger = l
		}
	}
}

func NewServer(matches Matches, opts ...Option) *Server {
	s := &Server{matches: matches, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Listen serves until Close is called.
func (s *Server) Listen(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}

	s.srvMu.Lock()
	s.srv = srv
	s.srvMu.Unlock()
	defer func() {
		s.srvMu.Lock()
		s.srv = nil
		s.srvMu.Unlock()
	}()

	s.logger.Info("http_listen", zap.String("addr", addr))
	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close gracefully shuts the listener down.
func (s *Server) Close(ctx context.Context) error {
	s.srvMu.Lock()
	srv := s.srv
	s.srvMu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Handler returns the routed handler with CORS, panic recovery and access
// logging applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusNotFound, chessdto.DomainError{Code: "NOT_FOUND", Message: "no such route"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, chessdto.DomainError{Code: "METHOD_NOT_ALLOWED", Message: "method not allowed"})
	})

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api/matches").Subrouter()
	api.HandleFunc("", s.withJSON(s.handleCreate)).Methods(http.MethodPost)
	api.HandleFunc("/{id}", s.withJSON(s.handleDetails)).Methods(http.MethodGet)
	api.HandleFunc("/{id}/moves", s.withJSON(s.handleHistory)).Methods(http.MethodGet)
	api.HandleFunc("/{id}/moves", s.withJSON(s.handleMove)).Methods(http.MethodPost)
	api.HandleFunc("/{id}/legal", s.withJSON(s.handleLegal)).Methods(http.MethodGet)
	api.HandleFunc("/{id}/pgn", s.handlePGN).Methods(http.MethodGet)
	api.HandleFunc("/{id}/resign", s.withJSON(s.handleResign)).Methods(http.MethodPost)
	api.HandleFunc("/{id}/timeout", s.withJSON(s.handleTimeout)).Methods(http.MethodPost)
	api.HandleFunc("/{id}/draw/offer", s.withJSON(s.handleOfferDraw)).Methods(http.MethodPost)
	api.HandleFunc("/{id}/draw/accept", s.withJSON(s.handleAcceptDraw)).Methods(http.MethodPost)

	if s.spectators != nil {
		r.HandleFunc("/ws/matches/{id}", s.handleSpectate).Methods(http.MethodGet)
	}

	stdLog := zap.NewStdLog(s.logger.Named("http"))
	var h http.Handler = r
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(stdLog), handlers.PrintRecoveryStack(false))(h)
	h = handlers.CombinedLoggingHandler(&zapio.Writer{Log: s.logger.Named("access"), Level: zap.DebugLevel}, h)
	if len(s.corsOrigins) > 0 {
		h = handlers.CORS(
			handlers.AllowedOrigins(s.corsOrigins),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
			handlers.AllowedHeaders([]string{"Content-Type"}),
		)(h)
	}
	return h
}

func (s *Server) withJSON(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if r.Body != nil && r.Body != http.NoBody {
			r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
		}
		h(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, derr chessdto.DomainError) {
	writeJSON(w, status, chessdto.ErrorResponse{Error: derr})
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func matchID(r *http.Request) string { return mux.Vars(r)["id"] }
