// Package history reads the parameter values recorded on a job's builds.
package history

import (
	"context"
	"errors"
	"log/slog"

	"github.com/narvanalabs/persistent-params/internal/models"
	"github.com/narvanalabs/persistent-params/internal/store"
	"github.com/narvanalabs/persistent-params/internal/validation"
)

// Outcomes reported to the Observer.
const (
	OutcomeFound   = "found"
	OutcomeEnv     = "env"
	OutcomeNoBuild = "no_build"
	OutcomeNoValue = "no_value"
	OutcomeError   = "error"
)

// BuildHistory exposes the reference builds of a job.
type BuildHistory interface {
	Last(ctx context.Context, jobID string) (*models.Build, error)
	LastSuccessful(ctx context.Context, jobID string) (*models.Build, error)
}

// Observer receives the outcome of each lookup.
type Observer interface {
	ObserveLookup(outcome string)
}

// Lookup finds the last recorded value of a parameter. It never writes.
type Lookup struct {
	builds   BuildHistory
	observer Observer
	logger   *slog.Logger
}

// NewLookup creates a Lookup over builds. observer may be nil.
func NewLookup(builds BuildHistory, observer Observer, logger *slog.Logger) *Lookup {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lookup{builds: builds, observer: observer, logger: logger}
}

// referenceBuild returns the job's last successful build when successfulOnly is
// set, and its last build of any status otherwise.
func (l *Lookup) referenceBuild(ctx context.Context, job *models.Job, successfulOnly bool) (*models.Build, error) {
	if job == nil {
		return nil, nil
	}
	var (
		build *models.Build
		err   error
	)
	if successfulOnly {
		build, err = l.builds.LastSuccessful(ctx, job.ID)
	} else {
		build, err = l.builds.Last(ctx, job.ID)
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return build, err
}

// LastValue returns the value bound to name on the job's reference build.
// Pipeline builds that did not record the parameter fall back to the build's
// resolved environment.
func (l *Lookup) LastValue(ctx context.Context, job *models.Job, name string, successfulOnly bool) (models.ParameterValue, bool) {
	build, err := l.referenceBuild(ctx, job, successfulOnly)
	if err != nil {
		l.logger.Warn("reading build history failed", "job", job.Name, "successful_only", successfulOnly, "error", err)
		l.observe(OutcomeError)
		return models.ParameterValue{}, false
	}
	if build == nil {
		l.observe(OutcomeNoBuild)
		return models.ParameterValue{}, false
	}

	if v, ok := build.Parameter(name); ok {
		l.observe(OutcomeFound)
		return v, true
	}

	if job.Kind == models.JobKindPipeline && validation.IsEnvKey(name) {
		if env, ok := build.EnvVars[name]; ok {
			l.observe(OutcomeEnv)
			return models.ParameterValue{
				Name:  name,
				Type:  models.ParameterTypeString,
				Value: env,
			}, true
		}
	}

	l.observe(OutcomeNoValue)
	return models.ParameterValue{}, false
}

func (l *Lookup) observe(outcome string) {
	if l.observer != nil {
		l.observer.ObserveLookup(outcome)
	}
}
