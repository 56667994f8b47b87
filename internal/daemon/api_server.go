package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"notesmith/internal/api"
	"notesmith/internal/logging"
	"notesmith/internal/services"
)

const maxRequestBody = 1 << 20

type apiServer struct {
	bind   string
	logger *slog.Logger
	jobs   *api.JobService
	status func(context.Context) api.DaemonStatus
	auth   *Authenticator

	listener net.Listener
	server   *http.Server
}

func newAPIServer(bind string, jobs *api.JobService, status func(context.Context) api.DaemonStatus, auth *Authenticator, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(bind),
		logger: logging.NewComponentLogger(logger, "api-server"),
		jobs:   jobs,
		status: status,
		auth:   auth,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) routes() *mux.Router {
	router := mux.NewRouter()
	router.Use(s.requestContext)
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/", s.handleHealth).Methods(http.MethodGet)

	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(s.auth.Middleware)
	apiRouter.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	apiRouter.HandleFunc("/notes", s.handleSubmit).Methods(http.MethodPost)
	apiRouter.HandleFunc("/notes", s.handleList).Methods(http.MethodGet)
	apiRouter.HandleFunc("/notes/feed", s.handleFeed).Methods(http.MethodPost)
	apiRouter.HandleFunc("/notes/regenerate-all", s.handleRegenerateAll).Methods(http.MethodPost)
	apiRouter.HandleFunc("/notes/{id}", s.handleDescribe).Methods(http.MethodGet)
	apiRouter.HandleFunc("/notes/{id}", s.handleRemove).Methods(http.MethodDelete)
	apiRouter.HandleFunc("/notes/{id}/retry", s.handleRetry).Methods(http.MethodPost)
	apiRouter.HandleFunc("/notes/{id}/regenerate", s.handleRegenerate).Methods(http.MethodPost)
	apiRouter.HandleFunc("/notes/{id}/halt", s.handleHalt).Methods(http.MethodPost)
	return router
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil || s.bind == "" {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.shutdown()
	}()

	s.logger.Info("api server listening",
		logging.String("address", listener.Addr().String()),
		logging.Bool("auth_required", s.auth.Enabled()),
		logging.String(logging.FieldEventType, "api_listening"),
	)
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	s.shutdown()
}

func (s *apiServer) shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

func (s *apiServer) address() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := services.WithRequestID(r.Context(), requestID)
		started := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))
		logging.WithContext(ctx, s.logger).Debug("api request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Duration("elapsed", time.Since(started)),
		)
	})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.status(r.Context()))
}

func (s *apiServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req api.SubmitRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.jobs.Submit(r.Context(), req.URL)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	code := http.StatusAccepted
	if resp.Cached {
		code = http.StatusOK
	}
	s.writeJSON(w, code, resp)
}

func (s *apiServer) handleFeed(w http.ResponseWriter, r *http.Request) {
	var req api.FeedRequest
	if !s.decode(w, r, &req) {
		return
	}
	// The fetcher applies the configured item cap when Limit is zero.
	resp, err := s.jobs.SubmitFeed(r.Context(), req.URL, req.Limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleList(w http.ResponseWriter, r *http.Request) {
	filter := strings.Join(r.URL.Query()["status"], ",")
	jobs, err := s.jobs.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []api.Job{}
	}
	s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: jobs})
}

func (s *apiServer) handleDescribe(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Describe(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobResponse{Job: job})
}

func (s *apiServer) handleRetry(w http.ResponseWriter, r *http.Request) {
	resp, err := s.jobs.Retry(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	resp, err := s.jobs.Regenerate(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleRegenerateAll(w http.ResponseWriter, r *http.Request) {
	resp, err := s.jobs.RegenerateAll(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleHalt(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Halt(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobResponse{Job: job})
}

func (s *apiServer) handleRemove(w http.ResponseWriter, r *http.Request) {
	if err := s.jobs.Remove(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	body := io.LimitReader(r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(dest); err != nil {
		s.writeError(w, r, services.Wrap(services.ErrValidation, "api", "decode request", "invalid json body", err))
		return false
	}
	return true
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := api.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "api request failed", "api_error",
			logging.String("path", r.URL.Path),
			logging.Error(err),
		)
	}
	s.writeJSON(w, status, api.NewErrorResponse(err))
}
