package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ecostim/domain/core"
	"ecostim/domain/stimulus"
	"ecostim/internal"
	apperrors "ecostim/internal/errors"
	"ecostim/internal/blocks"
	"ecostim/internal/experiment"
	"ecostim/ports"
)

// Config holds delivery API configuration
type Config struct {
	Addr    string
	NBlocks int
	Seed    int64
}

// Server exposes stimulus delivery over HTTP for a browser front end
type Server struct {
	router    *chi.Mux
	config    Config
	stimuli   ports.StimulusRepository
	sessions  ports.SessionRepository
	responses ports.ResponseRepository
	rng       ports.RNGPort
	logger    *internal.Logger
}

// NewServer creates the delivery API
func NewServer(config Config, stimuli ports.StimulusRepository, sessions ports.SessionRepository, responses ports.ResponseRepository, rng ports.RNGPort, logger *internal.Logger) *Server {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	s := &Server{
		router:    chi.NewRouter(),
		config:    config,
		stimuli:   stimuli,
		sessions:  sessions,
		responses: responses,
		rng:       rng,
		logger:    logger,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{Addr: s.config.Addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("delivery API listening on %s", s.config.Addr)

	select {
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// setupMiddleware configures HTTP middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/runs/{runID}/stimuli", s.handleRunStimuli)
		r.Post("/sessions", s.handleCreateSession)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Get("/sessions/{id}/blocks", s.handleSessionBlocks)
		r.Post("/sessions/{id}/responses", s.handlePostResponses)
		r.Post("/sessions/{id}/complete", s.handleComplete)
	})
}

func (s *Server) handleRunStimuli(w http.ResponseWriter, r *http.Request) {
	runID, err := core.ParseRunID(chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, apperrors.InvalidInput(err.Error()))
		return
	}
	stims, err := s.stimuli.GetStimuli(r.Context(), runID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]StimulusDTO, len(stims))
	for i, st := range stims {
		out[i] = toStimulusDTO(st)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("malformed session request"))
		return
	}
	if !req.Consent {
		writeError(w, core.ErrConsentDeclined)
		return
	}
	runID, err := core.ParseRunID(req.RunID)
	if err != nil {
		writeError(w, apperrors.InvalidInput(err.Error()))
		return
	}
	stims, err := s.stimuli.GetStimuli(r.Context(), runID)
	if err != nil {
		writeError(w, err)
		return
	}

	p := stimulus.NormalizeParticipant(stimulus.Participant{
		ID: req.Participant.ID, Age: req.Participant.Age,
		Gender: req.Participant.Gender, Diet: req.Participant.Diet, Consent: true,
	})
	rec := ports.SessionRecord{ID: core.NewSessionID(), RunID: runID, Participant: p, StartedAt: core.Now()}

	plan, err := s.plan(r.Context(), rec, stims)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.sessions.CreateSession(r.Context(), rec); err != nil {
		writeError(w, err)
		return
	}
	s.logger.Info("session %s opened for %s on run %s", rec.ID, p.ID, runID)
	writeJSON(w, http.StatusCreated, CreateSessionResponse{
		SessionID:   rec.ID.String(),
		Participant: toParticipantDTO(p),
		Blocks:      toBlockDTOs(plan),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	rec, err := s.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	rs, err := s.responses.ListResponses(r.Context(), rec.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionStatus{
		SessionID:   rec.ID.String(),
		RunID:       rec.RunID.String(),
		Participant: toParticipantDTO(rec.Participant),
		Responses:   len(rs),
		Completed:   rec.Completed,
	})
}

// handleSessionBlocks replays the session's block plan, e.g. after a page reload
func (s *Server) handleSessionBlocks(w http.ResponseWriter, r *http.Request) {
	rec, err := s.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	stims, err := s.stimuli.GetStimuli(r.Context(), rec.RunID)
	if err != nil {
		writeError(w, err)
		return
	}
	plan, err := s.plan(r.Context(), *rec, stims)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBlockDTOs(plan))
}

func (s *Server) handlePostResponses(w http.ResponseWriter, r *http.Request) {
	rec, err := s.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if rec.Completed {
		writeError(w, apperrors.InvalidInput("session already completed"))
		return
	}
	var body []ResponseDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apperrors.InvalidInput("malformed responses"))
		return
	}
	stims, err := s.stimuli.GetStimuli(r.Context(), rec.RunID)
	if err != nil {
		writeError(w, err)
		return
	}
	byID := make(map[int]stimulus.Stimulus, len(stims))
	for _, st := range stims {
		byID[st.ItemID] = st
	}

	responses := make([]stimulus.Response, 0, len(body))
	for _, b := range body {
		st, ok := byID[b.ItemID]
		if !ok {
			writeError(w, apperrors.InvalidInput(fmt.Sprintf("item %d is not part of run %s", b.ItemID, rec.RunID)))
			return
		}
		if !stimulus.ValidRating(b.Rating) {
			writeError(w, apperrors.WithCode(apperrors.CodeInvalidInput, core.ErrInvalidRating))
			return
		}
		responses = append(responses, stimulus.Response{Stimulus: st, Rating: b.Rating, ResponseTime: b.responseTime(), BlockShown: b.BlockShown})
	}
	if err := s.responses.SaveResponses(r.Context(), rec.ID, responses); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"saved": len(responses)})
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	rec, err := s.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.sessions.MarkCompleted(r.Context(), rec.ID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) session(r *http.Request) (*ports.SessionRecord, error) {
	id, err := core.ParseSessionID(chi.URLParam(r, "id"))
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}
	return s.sessions.GetSession(r.Context(), id)
}

func (s *Server) plan(ctx context.Context, rec ports.SessionRecord, stims []stimulus.Stimulus) ([]blocks.Delivery, error) {
	rng, err := experiment.SessionStream(ctx, s.rng, rec.RunID, rec.ID, s.config.Seed)
	if err != nil {
		return nil, err
	}
	return experiment.Plan(stims, s.config.NBlocks, rng)
}

func toParticipantDTO(p stimulus.Participant) ParticipantDTO {
	return ParticipantDTO{ID: p.ID, Age: p.Age, Gender: p.Gender, Diet: p.Diet}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain and application errors onto HTTP status codes
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrConsentDeclined):
		status = http.StatusForbidden
	case core.IsNotFoundError(err):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrInvalidRating), errors.Is(err, core.ErrNoItems), errors.Is(err, core.ErrInvalidParameter):
		status = http.StatusBadRequest
	default:
		switch apperrors.GetCode(err) {
		case apperrors.CodeInvalidInput, apperrors.CodeValidationError:
			status = http.StatusBadRequest
		case apperrors.CodeNotFound:
			status = http.StatusNotFound
		}
	}
	body := errorBody{Error: err.Error()}
	if apperrors.IsAppError(err) {
		body.Code = apperrors.GetCode(err)
	}
	writeJSON(w, status, body)
}
