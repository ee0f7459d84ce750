package jobconfig

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/narvanalabs/persistent-params/internal/models"
	"github.com/narvanalabs/persistent-params/internal/store"
)

// ImportResult summarizes an Import.
type ImportResult struct {
	Created []string `json:"created"`
	Updated []string `json:"updated"`
}

// Import creates or reconfigures jobs. A reconfigured job keeps the token of every
// parameter whose configuration did not change; changed or new parameters get
// the token carried by the incoming configuration. Nothing is written when a
// token is already owned by another job.
func Import(ctx context.Context, jobs store.JobStore, incoming []*models.Job, logger *slog.Logger) (*ImportResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := checkTokens(ctx, jobs, incoming); err != nil {
		return &ImportResult{}, err
	}

	result := &ImportResult{}
	for _, job := range incoming {
		existing, err := jobs.GetByName(ctx, job.Name)
		switch {
		case errors.Is(err, store.ErrNotFound):
			if err := jobs.Create(ctx, job); err != nil {
				return result, fmt.Errorf("creating job %s: %w", job.Name, err)
			}
			logger.Info("job created", "job", job.Name, "job_id", job.ID, "parameters", len(job.ParameterSpecs()))
			result.Created = append(result.Created, job.Name)
		case err != nil:
			return result, fmt.Errorf("looking up job %s: %w", job.Name, err)
		default:
			job.ID = existing.ID
			keepTokens(existing, job)
			if err := jobs.Update(ctx, job); err != nil {
				return result, fmt.Errorf("updating job %s: %w", job.Name, err)
			}
			logger.Info("job reconfigured", "job", job.Name, "job_id", job.ID, "parameters", len(job.ParameterSpecs()))
			result.Updated = append(result.Updated, job.Name)
		}
	}
	return result, nil
}

func keepTokens(existing, job *models.Job) {
	old := make(map[string]models.ParameterSpec)
	for _, spec := range existing.ParameterSpecs() {
		old[spec.Name] = spec
	}
	for i, spec := range job.ParameterSpecs() {
		prev, ok := old[spec.Name]
		if !ok {
			continue
		}
		candidate := spec.Clone()
		candidate.Token = prev.Token
		if candidate.Equal(prev) {
			job.Parameters.Definitions[i].Token = prev.Token
		}
	}
}

// checkTokens fails with store.ErrDuplicateToken when an incoming definition
// carries a token that a differently named job already owns.
func checkTokens(ctx context.Context, jobs store.JobStore, incoming []*models.Job) error {
	existing, err := jobs.List(ctx)
	if err != nil {
		return fmt.Errorf("listing jobs: %w", err)
	}
	owners := make(map[models.Token]string)
	for _, job := range existing {
		for _, spec := range job.ParameterSpecs() {
			owners[spec.Token] = job.Name
		}
	}

	claimed := make(map[models.Token]string)
	for _, job := range incoming {
		for _, spec := range job.ParameterSpecs() {
			if spec.Token.IsZero() {
				continue
			}
			if owner, ok := owners[spec.Token]; ok && owner != job.Name {
				return fmt.Errorf("job %s: parameter %s: token %s belongs to job %s: %w", job.Name, spec.Name, spec.Token, owner, store.ErrDuplicateToken)
			}
			if owner, ok := claimed[spec.Token]; ok {
				return fmt.Errorf("job %s: parameter %s: token %s is also used by job %s: %w", job.Name, spec.Name, spec.Token, owner, store.ErrDuplicateToken)
			}
			claimed[spec.Token] = job.Name
		}
	}
	return nil
}
