// Package memory provides an in-process implementation of the store interfaces.
// Every read returns copies, so callers may iterate results while the store changes.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/narvanalabs/persistent-params/internal/models"
	"github.com/narvanalabs/persistent-params/internal/store"
)

// Store implements store.Store in memory.
type Store struct {
	mu     sync.RWMutex
	jobs   map[string]*models.Job
	builds map[string][]*models.Build // job ID -> builds, oldest first

	jobStore   *JobStore
	buildStore *BuildStore
}

// New creates an empty in-memory store.
func New() *Store {
	s := &Store{
		jobs:   make(map[string]*models.Job),
		builds: make(map[string][]*models.Build),
	}
	s.jobStore = &JobStore{s: s}
	s.buildStore = &BuildStore{s: s}
	return s
}

// Jobs returns the JobStore.
func (s *Store) Jobs() store.JobStore { return s.jobStore }

// Builds returns the BuildStore.
func (s *Store) Builds() store.BuildStore { return s.buildStore }

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

// JobStore implements store.JobStore.
type JobStore struct {
	s *Store
}

// Create creates a new job.
func (js *JobStore) Create(ctx context.Context, job *models.Job) error {
	js.s.mu.Lock()
	defer js.s.mu.Unlock()

	for _, existing := range js.s.jobs {
		if existing.Name == job.Name {
			return store.ErrDuplicateName
		}
	}
	if err := js.claimTokens(job); err != nil {
		return err
	}
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	js.s.jobs[job.ID] = job.Clone()
	return nil
}

// Get retrieves a job by ID.
func (js *JobStore) Get(ctx context.Context, id string) (*models.Job, error) {
	js.s.mu.RLock()
	defer js.s.mu.RUnlock()

	job, ok := js.s.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return job.Clone(), nil
}

// GetByName retrieves a job by its full name.
func (js *JobStore) GetByName(ctx context.Context, name string) (*models.Job, error) {
	js.s.mu.RLock()
	defer js.s.mu.RUnlock()

	for _, job := range js.s.jobs {
		if job.Name == name {
			return job.Clone(), nil
		}
	}
	return nil, store.ErrNotFound
}

// List retrieves a snapshot of all jobs ordered by name.
func (js *JobStore) List(ctx context.Context) ([]*models.Job, error) {
	js.s.mu.RLock()
	defer js.s.mu.RUnlock()

	jobs := make([]*models.Job, 0, len(js.s.jobs))
	for _, job := range js.s.jobs {
		jobs = append(jobs, job.Clone())
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })
	return jobs, nil
}

// Update replaces the configuration of an existing job.
func (js *JobStore) Update(ctx context.Context, job *models.Job) error {
	js.s.mu.Lock()
	defer js.s.mu.Unlock()

	existing, ok := js.s.jobs[job.ID]
	if !ok {
		return store.ErrNotFound
	}
	for id, other := range js.s.jobs {
		if id != job.ID && other.Name == job.Name {
			return store.ErrDuplicateName
		}
	}
	if err := js.claimTokens(job); err != nil {
		return err
	}
	job.CreatedAt = existing.CreatedAt
	job.UpdatedAt = time.Now().UTC()
	js.s.jobs[job.ID] = job.Clone()
	return nil
}

// claimTokens assigns tokens to definitions that have none and fails with
// store.ErrDuplicateToken when a token is used twice or owned by another job.
// The caller must hold the write lock.
func (js *JobStore) claimTokens(job *models.Job) error {
	seen := make(map[models.Token]string)
	for _, spec := range job.ParameterSpecs() {
		if spec.Token.IsZero() {
			continue
		}
		if prev, ok := seen[spec.Token]; ok {
			return fmt.Errorf("parameters %s and %s: token %s: %w", prev, spec.Name, spec.Token, store.ErrDuplicateToken)
		}
		seen[spec.Token] = spec.Name
	}
	for id, other := range js.s.jobs {
		if id == job.ID {
			continue
		}
		for _, spec := range other.ParameterSpecs() {
			if name, ok := seen[spec.Token]; ok {
				return fmt.Errorf("parameter %s: token %s belongs to job %s: %w", name, spec.Token, other.Name, store.ErrDuplicateToken)
			}
		}
	}

	for i, spec := range job.ParameterSpecs() {
		if spec.Token.IsZero() {
			job.Parameters.Definitions[i].Token = models.NewToken()
		}
	}
	return nil
}

// Delete removes a job and its build history.
func (js *JobStore) Delete(ctx context.Context, id string) error {
	js.s.mu.Lock()
	defer js.s.mu.Unlock()

	if _, ok := js.s.jobs[id]; !ok {
		return store.ErrNotFound
	}
	delete(js.s.jobs, id)
	delete(js.s.builds, id)
	return nil
}

// BuildStore implements store.BuildStore.
type BuildStore struct {
	s *Store
}

// Create records a new build, assigning the next build number of its job.
func (bs *BuildStore) Create(ctx context.Context, build *models.Build) error {
	bs.s.mu.Lock()
	defer bs.s.mu.Unlock()

	if _, ok := bs.s.jobs[build.JobID]; !ok {
		return store.ErrNotFound
	}
	if build.ID == "" {
		build.ID = uuid.New().String()
	}
	if build.CreatedAt.IsZero() {
		build.CreatedAt = time.Now().UTC()
	}
	if build.Status == "" {
		build.Status = models.BuildStatusQueued
	}
	history := bs.s.builds[build.JobID]
	build.Number = 1
	if n := len(history); n > 0 {
		build.Number = history[n-1].Number + 1
	}
	bs.s.builds[build.JobID] = append(history, build.Clone())
	return nil
}

// Get retrieves a build by ID.
func (bs *BuildStore) Get(ctx context.Context, id string) (*models.Build, error) {
	bs.s.mu.RLock()
	defer bs.s.mu.RUnlock()

	for _, history := range bs.s.builds {
		for _, b := range history {
			if b.ID == id {
				return b.Clone(), nil
			}
		}
	}
	return nil, store.ErrNotFound
}

// GetByNumber retrieves a build by job ID and build number.
func (bs *BuildStore) GetByNumber(ctx context.Context, jobID string, number int) (*models.Build, error) {
	bs.s.mu.RLock()
	defer bs.s.mu.RUnlock()

	for _, b := range bs.s.builds[jobID] {
		if b.Number == number {
			return b.Clone(), nil
		}
	}
	return nil, store.ErrNotFound
}

// List retrieves the builds of a job, most recent first.
func (bs *BuildStore) List(ctx context.Context, jobID string) ([]*models.Build, error) {
	bs.s.mu.RLock()
	defer bs.s.mu.RUnlock()

	history := bs.s.builds[jobID]
	builds := make([]*models.Build, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		builds = append(builds, history[i].Clone())
	}
	return builds, nil
}

// Last retrieves the most recent build of a job regardless of status.
func (bs *BuildStore) Last(ctx context.Context, jobID string) (*models.Build, error) {
	bs.s.mu.RLock()
	defer bs.s.mu.RUnlock()

	history := bs.s.builds[jobID]
	if len(history) == 0 {
		return nil, store.ErrNotFound
	}
	return history[len(history)-1].Clone(), nil
}

// LastSuccessful retrieves the most recent succeeded build of a job.
func (bs *BuildStore) LastSuccessful(ctx context.Context, jobID string) (*models.Build, error) {
	bs.s.mu.RLock()
	defer bs.s.mu.RUnlock()

	history := bs.s.builds[jobID]
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Status == models.BuildStatusSucceeded {
			return history[i].Clone(), nil
		}
	}
	return nil, store.ErrNotFound
}

// UpdateStatus records a new status, stamping FinishedAt for finished builds.
func (bs *BuildStore) UpdateStatus(ctx context.Context, id string, status models.BuildStatus, envVars map[string]string) error {
	bs.s.mu.Lock()
	defer bs.s.mu.Unlock()

	for _, history := range bs.s.builds {
		for _, b := range history {
			if b.ID != id {
				continue
			}
			b.Status = status
			if status.IsFinished() && b.FinishedAt == nil {
				now := time.Now().UTC()
				b.FinishedAt = &now
			}
			if envVars != nil {
				b.EnvVars = make(map[string]string, len(envVars))
				for k, v := range envVars {
					b.EnvVars[k] = v
				}
			}
			return nil
		}
	}
	return store.ErrNotFound
}
