package transport

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jdziat/resumable-jobs/pkg/core"
	"github.com/jdziat/resumable-jobs/pkg/dispatch"
)

// Jobs is the part of a job handler served over HTTP.
type Jobs interface {
	Identifier() string
	CreateJob(ctx context.Context, attrs map[string]any) (*core.Job, error)
	GetJob(ctx context.Context, id string) (*core.Job, error)
	GetJobs(ctx context.Context, filter core.JobFilter) ([]*core.Job, error)
	Dispatch(ctx context.Context) error
	Handle(ctx context.Context) error
}

// Handler creates an http.Handler serving jobs.
func Handler(jobs Jobs, opts ...Option) http.Handler {
	cfg := &config{
		ctx:          context.Background(),
		logger:       slog.Default(),
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt.apply(cfg)
	}

	s := &server{jobs: jobs, cfg: cfg}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/{identifier}/handle", s.handle)
	r.Post("/jobs", s.createJob)
	r.Get("/jobs/{id}", s.getJob)
	r.Get("/jobs", s.listJobs)

	if cfg.middleware != nil {
		return cfg.middleware(r)
	}
	return r
}

type server struct {
	jobs Jobs
	cfg  *config
}

// handle accepts a continuation and runs the invocation in the background.
func (s *server) handle(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "identifier") != s.jobs.Identifier() {
		writeError(w, http.StatusNotFound, "unknown identifier")
		return
	}
	if !s.authorized(r.Header.Get(dispatch.TokenHeader)) {
		writeError(w, http.StatusForbidden, "invalid dispatch token")
		return
	}

	go func() {
		err := s.jobs.Handle(s.cfg.ctx)
		switch {
		case err == nil:
		case errors.Is(err, core.ErrProcessRunning):
			s.cfg.logger.Debug("continuation skipped, process locked")
		default:
			s.cfg.logger.Error("invocation failed", "error", err)
		}
	}()
	w.WriteHeader(http.StatusAccepted)
}

func (s *server) authorized(token string) bool {
	if s.cfg.token == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.token)) == 1
}

func (s *server) createJob(w http.ResponseWriter, r *http.Request) {
	var attrs map[string]any
	body := http.MaxBytesReader(w, r.Body, s.cfg.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&attrs); err != nil {
		writeError(w, http.StatusBadRequest, "body must be a JSON object")
		return
	}

	job, err := s.jobs.CreateJob(r.Context(), attrs)
	if err != nil {
		s.cfg.logger.Error("create job", "error", err)
		writeError(w, http.StatusInternalServerError, "could not create job")
		return
	}
	if job == nil {
		writeError(w, http.StatusBadRequest, "no job attributes")
		return
	}

	if err := s.jobs.Dispatch(r.Context()); err != nil {
		// The health-check picks the job up later.
		s.cfg.logger.Warn("dispatch after create", "job_id", job.ID, "error", err)
	}
	writeJSON(w, http.StatusCreated, job)
}

func (s *server) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.cfg.logger.Error("get job", "error", err)
		writeError(w, http.StatusInternalServerError, "could not load job")
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *server) listJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := core.JobFilter{
		Order:   q.Get("order"),
		OrderBy: q.Get("orderby"),
	}
	if raw := q.Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status := core.JobStatus(strings.TrimSpace(part))
			if !status.IsActive() && !status.IsTerminal() {
				writeError(w, http.StatusBadRequest, "unknown status "+string(status))
				return
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}

	jobList, err := s.jobs.GetJobs(r.Context(), filter)
	if errors.Is(err, core.ErrInvalidOrder) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.cfg.logger.Error("list jobs", "error", err)
		writeError(w, http.StatusInternalServerError, "could not list jobs")
		return
	}
	if jobList == nil {
		jobList = []*core.Job{}
	}
	writeJSON(w, http.StatusOK, jobList)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
