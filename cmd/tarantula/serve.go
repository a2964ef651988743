package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"tarantula"
)

const shutdownTimeout = 10 * time.Second

// ServeCmd is the "serve" subcommand.
type ServeCmd struct {
	Addr string `default:":8080" help:"Address to listen on"`
}

// Run executes the serve command. It blocks until the context is
// cancelled, then shuts the server down gracefully.
func (c *ServeCmd) Run(deps *Dependencies) error {
	s := &server{
		runner: deps.Runner,
		runs:   deps.Runs,
	}

	srv := &http.Server{
		Addr:    c.Addr,
		Handler: s.routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		deps.Logger.Info("server listening", "addr", c.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-deps.Ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// server handles the crawl API endpoints.
type server struct {
	runner tarantula.Runner
	runs   tarantula.RunStore
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /crawl", s.handleStartRun)
	mux.HandleFunc("GET /runs/{id}", s.handleGetRun)
	mux.HandleFunc("DELETE /runs/{id}", s.handleCancelRun)
	return mux
}

func (s *server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var cfg tarantula.RunConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, tarantula.Errorf(tarantula.EINVALID, "invalid request body: %s", err))
		return
	}

	id, err := s.runner.StartRun(r.Context(), cfg)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": id.String()})
}

func (s *server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, tarantula.Errorf(tarantula.EINVALID, "invalid run id"))
		return
	}

	snapshot, err := s.runner.Snapshot(id)
	if err == nil {
		writeJSON(w, http.StatusOK, snapshot)
		return
	}

	// Runs from previous processes are only in the database.
	if tarantula.ErrorCode(err) == tarantula.ENOTFOUND && s.runs != nil {
		record, storeErr := s.runs.FindRunByID(r.Context(), id)
		if storeErr == nil {
			writeJSON(w, http.StatusOK, record)
			return
		}
	}

	writeError(w, err)
}

func (s *server) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, tarantula.Errorf(tarantula.EINVALID, "invalid run id"))
		return
	}

	if err := s.runner.CancelRun(id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch tarantula.ErrorCode(err) {
	case tarantula.EINVALID:
		status = http.StatusBadRequest
	case tarantula.ENOTFOUND:
		status = http.StatusNotFound
	case tarantula.ECONFLICT:
		status = http.StatusConflict
	case tarantula.EUNAVAILABLE:
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"error": tarantula.ErrorMessage(err)})
}
