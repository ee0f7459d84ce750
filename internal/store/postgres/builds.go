package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/narvanalabs/persistent-params/internal/models"
)

// BuildStore implements store.BuildStore using PostgreSQL.
type BuildStore struct {
	db     *sql.DB
	logger *slog.Logger
}

const buildColumns = `id, job_id, number, status, parameters, env_vars, created_at, finished_at`

// Create records a new build, assigning the next build number of its job.
func (s *BuildStore) Create(ctx context.Context, build *models.Build) error {
	if build.ID == "" {
		build.ID = uuid.New().String()
	}
	if build.CreatedAt.IsZero() {
		build.CreatedAt = time.Now().UTC()
	}
	if build.Status == "" {
		build.Status = models.BuildStatusQueued
	}

	params, err := json.Marshal(nonNilValues(build.Parameters))
	if err != nil {
		return fmt.Errorf("marshaling build parameters: %w", err)
	}
	envVars, err := marshalEnvVars(build.EnvVars)
	if err != nil {
		return err
	}

	if !validID(build.JobID) {
		return ErrNotFound
	}

	return withTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		// Lock the job row so concurrent builds get distinct numbers.
		var locked string
		err := tx.QueryRowContext(ctx, `SELECT id FROM jobs WHERE id = $1 FOR UPDATE`, build.JobID).Scan(&locked)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("locking job: %w", err)
		}

		query := `
			INSERT INTO builds (id, job_id, number, status, parameters, env_vars, created_at, finished_at)
			VALUES ($1, $2, (SELECT COALESCE(MAX(number), 0) + 1 FROM builds WHERE job_id = $2),
				$3, $4, $5, $6, $7)
			RETURNING number`

		err = tx.QueryRowContext(ctx, query,
			build.ID,
			build.JobID,
			build.Status,
			params,
			envVars,
			build.CreatedAt,
			build.FinishedAt,
		).Scan(&build.Number)
		if err != nil {
			if isForeignKeyViolation(err) {
				return ErrNotFound
			}
			return fmt.Errorf("inserting build: %w", err)
		}
		return nil
	})
}

// Get retrieves a build by ID.
func (s *BuildStore) Get(ctx context.Context, id string) (*models.Build, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	query := `SELECT ` + buildColumns + ` FROM builds WHERE id = $1`
	return scanBuild(s.db.QueryRowContext(ctx, query, id))
}

// GetByNumber retrieves a build by job ID and build number.
func (s *BuildStore) GetByNumber(ctx context.Context, jobID string, number int) (*models.Build, error) {
	if !validID(jobID) {
		return nil, ErrNotFound
	}
	query := `SELECT ` + buildColumns + ` FROM builds WHERE job_id = $1 AND number = $2`
	return scanBuild(s.db.QueryRowContext(ctx, query, jobID, number))
}

// List retrieves the builds of a job, most recent first.
func (s *BuildStore) List(ctx context.Context, jobID string) ([]*models.Build, error) {
	if !validID(jobID) {
		return nil, nil
	}
	query := `SELECT ` + buildColumns + ` FROM builds WHERE job_id = $1 ORDER BY number DESC`

	rows, err := s.db.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("querying builds: %w", err)
	}
	defer rows.Close()

	var builds []*models.Build
	for rows.Next() {
		build, err := scanBuild(rows)
		if err != nil {
			return nil, err
		}
		builds = append(builds, build)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating build rows: %w", err)
	}
	return builds, nil
}

// Last retrieves the most recent build of a job regardless of status.
func (s *BuildStore) Last(ctx context.Context, jobID string) (*models.Build, error) {
	if !validID(jobID) {
		return nil, ErrNotFound
	}
	query := `
		SELECT ` + buildColumns + `
		FROM builds
		WHERE job_id = $1
		ORDER BY number DESC
		LIMIT 1`
	return scanBuild(s.db.QueryRowContext(ctx, query, jobID))
}

// LastSuccessful retrieves the most recent succeeded build of a job.
func (s *BuildStore) LastSuccessful(ctx context.Context, jobID string) (*models.Build, error) {
	if !validID(jobID) {
		return nil, ErrNotFound
	}
	query := `
		SELECT ` + buildColumns + `
		FROM builds
		WHERE job_id = $1 AND status = $2
		ORDER BY number DESC
		LIMIT 1`
	return scanBuild(s.db.QueryRowContext(ctx, query, jobID, models.BuildStatusSucceeded))
}

// UpdateStatus records a new status, stamping FinishedAt for finished builds.
// A nil envVars leaves the recorded environment unchanged.
func (s *BuildStore) UpdateStatus(ctx context.Context, id string, status models.BuildStatus, envVars map[string]string) error {
	if !validID(id) {
		return ErrNotFound
	}

	var finishedAt *time.Time
	if status.IsFinished() {
		now := time.Now().UTC()
		finishedAt = &now
	}

	var env []byte
	if envVars != nil {
		var err error
		if env, err = marshalEnvVars(envVars); err != nil {
			return err
		}
	}

	query := `
		UPDATE builds
		SET status = $2,
			finished_at = COALESCE(finished_at, $3),
			env_vars = COALESCE($4::jsonb, env_vars)
		WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query, id, status, finishedAt, env)
	if err != nil {
		return fmt.Errorf("updating build status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBuild(row rowScanner) (*models.Build, error) {
	build := &models.Build{}
	var (
		params, envVars []byte
		finishedAt      sql.NullTime
	)

	err := row.Scan(
		&build.ID,
		&build.JobID,
		&build.Number,
		&build.Status,
		&params,
		&envVars,
		&build.CreatedAt,
		&finishedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning build: %w", err)
	}

	if len(params) > 0 {
		if err := json.Unmarshal(params, &build.Parameters); err != nil {
			return nil, fmt.Errorf("unmarshaling build parameters: %w", err)
		}
	}
	if len(envVars) > 0 {
		if err := json.Unmarshal(envVars, &build.EnvVars); err != nil {
			return nil, fmt.Errorf("unmarshaling build env vars: %w", err)
		}
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		build.FinishedAt = &t
	}
	return build, nil
}

func nonNilValues(values []models.ParameterValue) []models.ParameterValue {
	if values == nil {
		return []models.ParameterValue{}
	}
	return values
}

func marshalEnvVars(envVars map[string]string) ([]byte, error) {
	if envVars == nil {
		return nil, nil
	}
	data, err := json.Marshal(envVars)
	if err != nil {
		return nil, fmt.Errorf("marshaling build env vars: %w", err)
	}
	return data, nil
}
