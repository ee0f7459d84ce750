// Package store provides storage interfaces for jobs and their build history.
package store

import (
	"context"
	"errors"

	"github.com/narvanalabs/persistent-params/internal/models"
)

// Common store errors.
var (
	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrDuplicateName is returned when attempting to create a job with a name already in use.
	ErrDuplicateName = errors.New("duplicate name")

	// ErrDuplicateToken is returned when a parameter token is already owned by another definition.
	ErrDuplicateToken = errors.New("duplicate parameter token")
)

// JobStore defines operations for job configuration.
type JobStore interface {
	// Create creates a new job.
	Create(ctx context.Context, job *models.Job) error
	// Get retrieves a job by ID.
	Get(ctx context.Context, id string) (*models.Job, error)
	// GetByName retrieves a job by its full name.
	GetByName(ctx context.Context, name string) (*models.Job, error)
	// List retrieves a snapshot of all jobs ordered by name.
	List(ctx context.Context) ([]*models.Job, error)
	// Update replaces the configuration of an existing job.
	Update(ctx context.Context, job *models.Job) error
	// Delete removes a job and its build history.
	Delete(ctx context.Context, id string) error
}

// BuildStore defines operations for build history.
type BuildStore interface {
	// Create records a new build, assigning the next build number of its job.
	Create(ctx context.Context, build *models.Build) error
	// Get retrieves a build by ID.
	Get(ctx context.Context, id string) (*models.Build, error)
	// GetByNumber retrieves a build by job ID and build number.
	GetByNumber(ctx context.Context, jobID string, number int) (*models.Build, error)
	// List retrieves the builds of a job, most recent first.
	List(ctx context.Context, jobID string) ([]*models.Build, error)
	// Last retrieves the most recent build of a job regardless of status.
	Last(ctx context.Context, jobID string) (*models.Build, error)
	// LastSuccessful retrieves the most recent succeeded build of a job.
	LastSuccessful(ctx context.Context, jobID string) (*models.Build, error)
	// UpdateStatus records a new status, stamping FinishedAt for finished builds.
	UpdateStatus(ctx context.Context, id string, status models.BuildStatus, envVars map[string]string) error
}

// Store is the main interface for storage operations.
type Store interface {
	// Jobs returns the JobStore for job operations.
	Jobs() JobStore
	// Builds returns the BuildStore for build operations.
	Builds() BuildStore
	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases the backend's resources.
	Close() error
}
