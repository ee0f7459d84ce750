package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sort"
	"strconv"

	"github.com/narvanalabs/persistent-params/internal/models"
	"github.com/narvanalabs/persistent-params/internal/resolver"
	"github.com/narvanalabs/persistent-params/internal/store"
	"github.com/narvanalabs/persistent-params/pkg/logger"
)

// SubmittedParameter is one name/value pair of a build submission. Value is a
// bool or a string.
type SubmittedParameter struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// TriggerRequest is the JSON body of a build submission.
type TriggerRequest struct {
	Parameter []SubmittedParameter `json:"parameter"`
}

// ResultRequest reports the outcome of a build.
type ResultRequest struct {
	Status  models.BuildStatus `json:"status"`
	EnvVars map[string]string  `json:"env_vars,omitempty"`
}

// BuildView is the representation of a build.
type BuildView struct {
	*models.Build
	Job string `json:"job"`
	URL string `json:"url"`
}

// trigger starts a build of job. Submitted values are validated by their
// definitions; parameters that were not submitted take their effective default.
func (h *JobHandler) trigger(w http.ResponseWriter, r *http.Request, job *models.Job) {
	ctx := logger.ContextWithJob(r.Context(), job.Name)

	submitted, err := submittedParameters(r)
	if err != nil {
		WriteBadRequest(w, r, err.Error())
		return
	}

	values, err := h.defaults.BuildParameters(ctx, job, submitted)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	build := &models.Build{
		JobID:      job.ID,
		Status:     models.BuildStatusQueued,
		Parameters: values,
	}
	if err := h.store.Builds().Create(ctx, build); err != nil {
		WriteError(w, r, h.logger, fmt.Errorf("creating build: %w", err))
		return
	}

	h.logger.Info("build queued",
		"job", job.Name,
		"build", build.Number,
		"parameters", len(values),
		"request_id", requestID(r),
	)

	view := buildView(job, build)
	w.Header().Set("Location", view.URL)
	WriteJSON(w, http.StatusCreated, view)
}

// submittedParameters reads parameters from a JSON body, or from the query
// string and form fields otherwise.
func submittedParameters(r *http.Request) ([]models.ParameterValue, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req TriggerRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, maxConfigBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("invalid request body: %w", err)
		}
		values := make([]models.ParameterValue, 0, len(req.Parameter))
		for _, p := range req.Parameter {
			if p.Name == "" {
				return nil, errors.New("parameter name is required")
			}
			values = append(values, models.ParameterValue{Name: p.Name, Value: p.Value})
		}
		return values, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("invalid form: %w", err)
	}
	names := make([]string, 0, len(r.Form))
	for name := range r.Form {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make([]models.ParameterValue, 0, len(names))
	for _, name := range names {
		values = append(values, models.ParameterValue{Name: name, Value: r.Form.Get(name)})
	}
	return values, nil
}

func (h *JobHandler) getBuild(w http.ResponseWriter, r *http.Request, job *models.Job, number int) {
	build, err := h.store.Builds().GetByNumber(r.Context(), job.ID, number)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteNotFound(w, r, fmt.Sprintf("build #%d of %s not found", number, job.Name))
			return
		}
		WriteError(w, r, h.logger, fmt.Errorf("getting build: %w", err))
		return
	}
	WriteJSON(w, http.StatusOK, buildView(job, build))
}

func (h *JobHandler) listBuilds(w http.ResponseWriter, r *http.Request, job *models.Job) {
	builds, err := h.store.Builds().List(r.Context(), job.ID)
	if err != nil {
		WriteError(w, r, h.logger, fmt.Errorf("listing builds: %w", err))
		return
	}
	views := make([]BuildView, 0, len(builds))
	for _, b := range builds {
		views = append(views, buildView(job, b))
	}
	WriteJSON(w, http.StatusOK, views)
}

// recordResult stores the status a build finished (or progressed) with.
func (h *JobHandler) recordResult(w http.ResponseWriter, r *http.Request, job *models.Job, number int) {
	var req ResultRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxConfigBytes)).Decode(&req); err != nil {
		WriteBadRequest(w, r, "invalid request body")
		return
	}
	if !req.Status.IsValid() {
		WriteBadRequest(w, r, fmt.Sprintf("unknown build status %q", req.Status))
		return
	}

	build, err := h.store.Builds().GetByNumber(r.Context(), job.ID, number)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteNotFound(w, r, fmt.Sprintf("build #%d of %s not found", number, job.Name))
			return
		}
		WriteError(w, r, h.logger, fmt.Errorf("getting build: %w", err))
		return
	}

	if err := h.store.Builds().UpdateStatus(r.Context(), build.ID, req.Status, req.EnvVars); err != nil {
		WriteError(w, r, h.logger, fmt.Errorf("updating build status: %w", err))
		return
	}
	h.logger.Info("build result recorded", "job", job.Name, "build", number, "status", req.Status)

	updated, err := h.store.Builds().Get(r.Context(), build.ID)
	if err != nil {
		WriteError(w, r, h.logger, fmt.Errorf("getting build: %w", err))
		return
	}
	WriteJSON(w, http.StatusOK, buildView(job, updated))
}

func buildView(job *models.Job, build *models.Build) BuildView {
	return BuildView{
		Build: build,
		Job:   job.Name,
		URL:   jobBase(job.Name) + "/" + strconv.Itoa(build.Number) + "/",
	}
}

// jobBase returns the escaped "/job/a/job/b" path of a job's full name.
func jobBase(name string) string {
	return resolver.JobPath(name)
}
