package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/RyanBlaney/sonido-notes/config"
	"github.com/RyanBlaney/sonido-notes/labels"
	"github.com/RyanBlaney/sonido-notes/logging"
	"github.com/RyanBlaney/sonido-notes/scoring"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 32 << 20

// EncodeRequest carries notes as [onset, duration, pitch] triples
type EncodeRequest struct {
	Notes [][]float64 `json:"notes"`
}

// EncodeResponse is the frame labelling of an EncodeRequest
type EncodeResponse struct {
	States  []labels.StateVector `json:"states"`
	Pitches []float64            `json:"pitches"`
	Counts  labels.Counts        `json:"counts"`
}

// ScoreRequest carries predicted scores and reference labels for a batch of
// sequences. Threshold falls back to the configured one when omitted.
type ScoreRequest struct {
	Predicted [][]labels.Scores      `json:"predicted"`
	Reference [][]labels.StateVector `json:"reference"`
	Threshold *float64               `json:"threshold,omitempty"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type ctxKey struct{}

// Server exposes encoding and scoring over HTTP
type Server struct {
	cfg    *config.Config
	router *mux.Router
	logger logging.Logger
}

// New creates a server using cfg for scoring defaults
func New(cfg *config.Config) *Server {
	if cfg == nil {
		cfg = config.Default()
	}

	s := &Server{
		cfg:    cfg,
		router: mux.NewRouter(),
		logger: logging.WithFields(logging.Fields{
			"component": "http_server",
		}),
	}

	s.router.Use(s.withRequestID)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/encode", s.handleEncode).Methods(http.MethodPost)
	s.router.HandleFunc("/score", s.handleScore).Methods(http.MethodPost)
	return s
}

// Handler returns the router wrapped with CORS handling
func (s *Server) Handler() http.Handler {
	return cors.AllowAll().Handler(s.router)
}

// ListenAndServe serves on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Listening", logging.Fields{"addr": addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)

		ctx := context.WithValue(r.Context(), ctxKey{}, id)
		ctx = logging.ContextWithFields(ctx, logging.Fields{"request_id": id})

		start := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))

		s.logger.WithContext(ctx).Debug("Handled request", logging.Fields{
			"method":  r.Method,
			"path":    r.URL.Path,
			"elapsed": time.Since(start).String(),
		})
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	var req EncodeRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}

	notes := make([]labels.Note, len(req.Notes))
	for i, n := range req.Notes {
		if len(n) < 3 {
			s.fail(w, r, http.StatusBadRequest, fmt.Errorf("note %d: expected [onset, duration, pitch], got %d values", i, len(n)))
			return
		}
		notes[i] = labels.Note{Onset: n[0], Duration: n[1], Pitch: n[2]}
	}

	enc := labels.Encode(notes)
	s.writeJSON(w, r, http.StatusOK, EncodeResponse{
		States:  nonNil(enc.States),
		Pitches: nonNil(enc.Pitches),
		Counts:  enc.Counts(),
	})
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}

	threshold := s.cfg.Threshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	report, err := scoring.NewScorer(threshold).Evaluate(req.Predicted, req.Reference)
	if err != nil {
		s.fail(w, r, http.StatusUnprocessableEntity, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, report)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	s.logger.WithContext(r.Context()).Warn("Rejected request", logging.Fields{
		"path":   r.URL.Path,
		"status": status,
		"error":  err.Error(),
	})
	s.writeJSON(w, r, status, errorResponse{Error: err.Error(), RequestID: requestID(r.Context())})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithContext(r.Context()).Error(err, "Failed to write response", logging.Fields{
			"path":   r.URL.Path,
			"status": status,
		})
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
