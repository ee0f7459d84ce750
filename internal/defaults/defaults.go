// Package defaults computes the effective defaults of a job's persistent parameters.
package defaults

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/narvanalabs/persistent-params/internal/models"
	"github.com/narvanalabs/persistent-params/internal/params"
	"github.com/narvanalabs/persistent-params/internal/resolver"
)

// OwnerResolver finds the job owning a definition.
type OwnerResolver interface {
	Resolve(ctx context.Context, req resolver.Request, token models.Token) (*models.Job, bool)
}

// ValueLookup finds the last recorded value of a parameter on a job.
type ValueLookup interface {
	LastValue(ctx context.Context, job *models.Job, name string, successfulOnly bool) (models.ParameterValue, bool)
}

// Service joins owner resolution and history lookup into a params.HistorySource.
type Service struct {
	owners OwnerResolver
	values ValueLookup
	logger *slog.Logger
}

// NewService creates a defaults service.
func NewService(owners OwnerResolver, values ValueLookup, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{owners: owners, values: values, logger: logger}
}

// LastValue resolves the owner of def, using the request carried by ctx when
// there is one, and returns the value recorded on the owner's reference build.
func (s *Service) LastValue(ctx context.Context, def params.Definition) (models.ParameterValue, bool) {
	job, ok := s.owners.Resolve(ctx, resolver.RequestFromContext(ctx), def.Token())
	if !ok {
		return models.ParameterValue{}, false
	}
	return s.values.LastValue(ctx, job, def.Name(), def.SuccessfulOnly())
}

// Field is one entry of a rendered build form.
type Field struct {
	Definition params.Definition
	Default    models.ParameterValue
	HasDefault bool
}

// Definitions builds the job's parameter definitions, logging and skipping
// stored configurations that are no longer valid.
func (s *Service) Definitions(job *models.Job) []params.Definition {
	defs, errs := params.FromJob(job)
	for _, err := range errs {
		s.logger.Warn("skipping invalid parameter definition", "job", job.Name, "error", err)
	}
	return defs
}

// Form returns every parameter of job with its effective default.
func (s *Service) Form(ctx context.Context, job *models.Job) []Field {
	defs := s.Definitions(job)
	fields := make([]Field, 0, len(defs))
	for _, def := range defs {
		v, ok := def.EffectiveDefault(ctx, s)
		fields = append(fields, Field{Definition: def, Default: v, HasDefault: ok})
	}
	return fields
}

// Defaults returns the effective default of every parameter of job, keyed by name.
func (s *Service) Defaults(ctx context.Context, job *models.Job) map[string]models.ParameterValue {
	out := make(map[string]models.ParameterValue)
	for _, f := range s.Form(ctx, job) {
		if f.HasDefault {
			out[f.Definition.Name()] = f.Default
		}
	}
	return out
}

// BuildParameters computes the parameter snapshot of a new build of job.
// Submitted values are validated by their definition; parameters that were not
// submitted take their effective default. Submitted names the job does not
// declare are dropped. The only error is a value outside its parameter's domain.
func (s *Service) BuildParameters(ctx context.Context, job *models.Job, submitted []models.ParameterValue) ([]models.ParameterValue, error) {
	byName := make(map[string]models.ParameterValue, len(submitted))
	for _, v := range submitted {
		byName[v.Name] = v
	}

	defs := s.Definitions(job)
	declared := make(map[string]bool, len(defs))
	values := make([]models.ParameterValue, 0, len(defs))
	for _, def := range defs {
		declared[def.Name()] = true

		if raw, ok := byName[def.Name()]; ok {
			v, err := def.BindValue(raw)
			if err != nil {
				return nil, fmt.Errorf("binding parameter %s: %w", def.Name(), err)
			}
			values = append(values, v)
			continue
		}

		if v, ok := def.EffectiveDefault(ctx, s); ok {
			values = append(values, v)
		}
	}

	for name := range byName {
		if !declared[name] {
			s.logger.Debug("ignoring undeclared parameter", "job", job.Name, "parameter", name)
		}
	}
	return values, nil
}
