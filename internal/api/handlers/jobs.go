package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	apierrors "github.com/narvanalabs/persistent-params/internal/api/errors"
	"github.com/narvanalabs/persistent-params/internal/api/middleware"
	"github.com/narvanalabs/persistent-params/internal/auth"
	"github.com/narvanalabs/persistent-params/internal/defaults"
	"github.com/narvanalabs/persistent-params/internal/jobconfig"
	"github.com/narvanalabs/persistent-params/internal/models"
	"github.com/narvanalabs/persistent-params/internal/params"
	"github.com/narvanalabs/persistent-params/internal/store"
	"github.com/narvanalabs/persistent-params/pkg/logger"
)

// maxConfigBytes bounds uploaded job configuration.
const maxConfigBytes = 1 << 20

// JobHandler serves jobs, their build forms and their builds.
type JobHandler struct {
	store    store.Store
	defaults *defaults.Service
	logger   *slog.Logger
}

// NewJobHandler creates a new job handler.
func NewJobHandler(st store.Store, svc *defaults.Service, logger *slog.Logger) *JobHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobHandler{
		store:    st,
		defaults: svc,
		logger:   logger,
	}
}

// JobSummary is one entry of the job list.
type JobSummary struct {
	Name        string         `json:"name"`
	Kind        models.JobKind `json:"kind"`
	Description string         `json:"description,omitempty"`
	Parameters  int            `json:"parameters"`
	URL         string         `json:"url"`
}

// ParameterView describes one parameter definition and its current default.
type ParameterView struct {
	Token          models.Token           `json:"token"`
	Type           models.ParameterType   `json:"type"`
	DisplayName    string                 `json:"display_name"`
	Name           string                 `json:"name"`
	Description    string                 `json:"description,omitempty"`
	SuccessfulOnly bool                   `json:"successful_only"`
	Trim           bool                   `json:"trim,omitempty"`
	Choices        []string               `json:"choices,omitempty"`
	DefaultValue   *models.ParameterValue `json:"default_value,omitempty"`
}

// JobView is the detailed representation of a job.
type JobView struct {
	Name        string          `json:"name"`
	Kind        models.JobKind  `json:"kind"`
	Description string          `json:"description,omitempty"`
	Parameters  []ParameterView `json:"parameters"`
	LastBuild   *int            `json:"last_build,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// List handles GET /jobs - lists all jobs.
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.store.Jobs().List(r.Context())
	if err != nil {
		WriteError(w, r, h.logger, fmt.Errorf("listing jobs: %w", err))
		return
	}

	summaries := make([]JobSummary, 0, len(jobs))
	for _, job := range jobs {
		summaries = append(summaries, JobSummary{
			Name:        job.Name,
			Kind:        job.Kind,
			Description: job.Description,
			Parameters:  len(job.ParameterSpecs()),
			URL:         jobURL(job.Name),
		})
	}
	WriteJSON(w, http.StatusOK, summaries)
}

// Import handles POST /jobs/import - creates or reconfigures jobs from a YAML document.
func (h *JobHandler) Import(w http.ResponseWriter, r *http.Request) {
	if err := auth.CheckPermission(middleware.GetRole(r.Context()), auth.PermissionConfigureJobs); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	file, err := jobconfig.Parse(io.LimitReader(r.Body, maxConfigBytes))
	if err != nil {
		WriteBadRequest(w, r, err.Error())
		return
	}
	h.importFile(w, r, file, http.StatusOK)
}

func (h *JobHandler) importFile(w http.ResponseWriter, r *http.Request, file *jobconfig.File, status int) {
	jobs, err := file.ToJobs()
	if err != nil {
		var fields apierrors.FieldErrors
		for _, e := range unwrapAll(err) {
			fields.Add("jobs", e.Error())
		}
		apierrors.WriteErrorWithRequestID(w, fields.ToAPIError(), requestID(r))
		return
	}

	result, err := jobconfig.Import(r.Context(), h.store.Jobs(), jobs, h.logger)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, status, result)
}

// Get handles GET /job/* - job details, build forms, configuration and builds.
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	path, job, ok := h.lookup(w, r)
	if !ok {
		return
	}

	switch {
	case path.is(), path.is("api", "json"):
		h.writeJob(w, r, job, false)
	case path.is("build"):
		// The build form: a trigger path, so defaults resolve through the request.
		h.writeJob(w, r, job, true)
	case path.is("configure"):
		// Not a trigger path: definitions resolve their owner by scanning.
		h.writeJob(w, r, job, true)
	case path.is("builds"):
		h.listBuilds(w, r, job)
	case path.is("buildWithParameters"):
		WriteMethodNotAllowed(w, r, http.MethodPost)
	default:
		number, rest, isBuild := path.buildNumber()
		if !isBuild || !(len(rest) == 0 || (len(rest) == 2 && rest[0] == "api" && rest[1] == "json")) {
			WriteNotFound(w, r, "no such page")
			return
		}
		h.getBuild(w, r, job, number)
	}
}

// Post handles POST /job/* - triggering builds, recording results and reconfiguring.
func (h *JobHandler) Post(w http.ResponseWriter, r *http.Request) {
	path, job, ok := h.lookup(w, r)
	if !ok {
		return
	}
	role := middleware.GetRole(r.Context())

	switch {
	case path.is("build"), path.is("buildWithParameters"):
		if err := auth.CheckPermission(role, auth.PermissionTriggerBuilds); err != nil {
			WriteError(w, r, h.logger, err)
			return
		}
		h.trigger(w, r, job)
	case path.is("configure"):
		if err := auth.CheckPermission(role, auth.PermissionConfigureJobs); err != nil {
			WriteError(w, r, h.logger, err)
			return
		}
		h.configure(w, r, job)
	default:
		number, rest, isBuild := path.buildNumber()
		if !isBuild || len(rest) != 1 || rest[0] != "result" {
			WriteNotFound(w, r, "no such action")
			return
		}
		if err := auth.CheckPermission(role, auth.PermissionRecordResults); err != nil {
			WriteError(w, r, h.logger, err)
			return
		}
		h.recordResult(w, r, job, number)
	}
}

// lookup resolves the job addressed by the request path.
func (h *JobHandler) lookup(w http.ResponseWriter, r *http.Request) (*jobPath, *models.Job, bool) {
	path, err := parseJobPath(r.URL.EscapedPath())
	if err != nil {
		WriteBadRequest(w, r, err.Error())
		return nil, nil, false
	}

	job, err := h.store.Jobs().GetByName(r.Context(), path.Name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteNotFound(w, r, "job "+path.Name+" not found")
			return nil, nil, false
		}
		WriteError(w, r, h.logger, fmt.Errorf("looking up job %s: %w", path.Name, err))
		return nil, nil, false
	}
	return path, job, true
}

func (h *JobHandler) writeJob(w http.ResponseWriter, r *http.Request, job *models.Job, withDefaults bool) {
	ctx := logger.ContextWithJob(r.Context(), job.Name)

	view := JobView{
		Name:        job.Name,
		Kind:        job.Kind,
		Description: job.Description,
		Parameters:  h.parameterViews(ctx, job, withDefaults),
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
	}
	if last, err := h.store.Builds().Last(ctx, job.ID); err == nil {
		view.LastBuild = &last.Number
	} else if !errors.Is(err, store.ErrNotFound) {
		h.logger.Warn("reading last build failed", "job", job.Name, "error", err)
	}
	WriteJSON(w, http.StatusOK, view)
}

func (h *JobHandler) parameterViews(ctx context.Context, job *models.Job, withDefaults bool) []ParameterView {
	views := make([]ParameterView, 0, len(job.ParameterSpecs()))
	if !withDefaults {
		for _, def := range h.defaults.Definitions(job) {
			views = append(views, parameterView(def))
		}
		return views
	}
	for _, field := range h.defaults.Form(ctx, job) {
		view := parameterView(field.Definition)
		if field.HasDefault {
			v := field.Default
			view.DefaultValue = &v
		}
		views = append(views, view)
	}
	return views
}

func parameterView(def params.Definition) ParameterView {
	spec := def.Spec()
	view := ParameterView{
		Token:          spec.Token,
		Type:           spec.Type,
		DisplayName:    def.Descriptor().DisplayName,
		Name:           spec.Name,
		Description:    spec.Description,
		SuccessfulOnly: spec.SuccessfulOnly,
	}
	switch p := def.(type) {
	case *params.StringParameter:
		view.Trim = p.IsTrim()
	case *params.Choice:
		view.Choices = p.Choices()
	}
	return view
}

// configure replaces the configuration of job with the YAML document in the body.
// The job keeps its name; tokens of unchanged parameters are kept.
func (h *JobHandler) configure(w http.ResponseWriter, r *http.Request, job *models.Job) {
	cfg, err := jobconfig.ParseJob(io.LimitReader(r.Body, maxConfigBytes))
	if err != nil {
		WriteBadRequest(w, r, err.Error())
		return
	}
	cfg.Name = job.Name
	if cfg.Kind == "" {
		cfg.Kind = string(job.Kind)
	}
	h.importFile(w, r, &jobconfig.File{Jobs: []jobconfig.JobConfig{*cfg}}, http.StatusOK)
}

func jobURL(name string) string {
	return jobBase(name) + "/"
}

func requestID(r *http.Request) string {
	return chimiddleware.GetReqID(r.Context())
}

// unwrapAll flattens errors joined with errors.Join.
func unwrapAll(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}
