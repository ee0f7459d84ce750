package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/narvanalabs/persistent-params/internal/models"
)

// JobStore implements store.JobStore using PostgreSQL.
type JobStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// Create creates a new job together with its parameter definitions.
func (s *JobStore) Create(ctx context.Context, job *models.Job) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	return withTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		query := `
			INSERT INTO jobs (id, name, kind, description, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)`

		_, err := tx.ExecContext(ctx, query,
			job.ID,
			job.Name,
			job.Kind,
			job.Description,
			job.CreatedAt,
			job.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateName
			}
			return fmt.Errorf("inserting job: %w", err)
		}
		return insertParameters(ctx, tx, job)
	})
}

// Get retrieves a job by ID.
func (s *JobStore) Get(ctx context.Context, id string) (*models.Job, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	return s.getWhere(ctx, "id = $1", id)
}

// GetByName retrieves a job by its full name.
func (s *JobStore) GetByName(ctx context.Context, name string) (*models.Job, error) {
	return s.getWhere(ctx, "name = $1", name)
}

func (s *JobStore) getWhere(ctx context.Context, cond string, arg any) (*models.Job, error) {
	query := `
		SELECT id, name, kind, description, created_at, updated_at
		FROM jobs
		WHERE ` + cond

	job := &models.Job{}
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&job.ID,
		&job.Name,
		&job.Kind,
		&job.Description,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying job: %w", err)
	}

	specs, err := s.parameters(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	if len(specs[job.ID]) > 0 {
		job.Parameters = &models.ParametersProperty{Definitions: specs[job.ID]}
	}
	return job, nil
}

// List retrieves all jobs ordered by name.
func (s *JobStore) List(ctx context.Context) ([]*models.Job, error) {
	query := `
		SELECT id, name, kind, description, created_at, updated_at
		FROM jobs
		ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job := &models.Job{}
		if err := rows.Scan(
			&job.ID,
			&job.Name,
			&job.Kind,
			&job.Description,
			&job.CreatedAt,
			&job.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning job row: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating job rows: %w", err)
	}

	specs, err := s.parameters(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, job := range jobs {
		if defs := specs[job.ID]; len(defs) > 0 {
			job.Parameters = &models.ParametersProperty{Definitions: defs}
		}
	}
	return jobs, nil
}

// parameters loads parameter definitions keyed by job ID. An empty jobID loads all of them.
func (s *JobStore) parameters(ctx context.Context, jobID string) (map[string][]models.ParameterSpec, error) {
	query := `
		SELECT job_id, token, type, name, description, default_value,
			successful_only, trim, choices
		FROM job_parameters`
	var args []any
	if jobID != "" {
		query += ` WHERE job_id = $1`
		args = append(args, jobID)
	}
	query += ` ORDER BY job_id, position ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying job parameters: %w", err)
	}
	defer rows.Close()

	specs := make(map[string][]models.ParameterSpec)
	for rows.Next() {
		var (
			owner   string
			token   uuid.UUID
			spec    models.ParameterSpec
			choices []string
		)
		if err := rows.Scan(
			&owner,
			&token,
			&spec.Type,
			&spec.Name,
			&spec.Description,
			&spec.DefaultValue,
			&spec.SuccessfulOnly,
			&spec.Trim,
			pq.Array(&choices),
		); err != nil {
			return nil, fmt.Errorf("scanning job parameter row: %w", err)
		}
		spec.Token = models.Token(token)
		if len(choices) > 0 {
			spec.Choices = choices
		}
		specs[owner] = append(specs[owner], spec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating job parameter rows: %w", err)
	}
	return specs, nil
}

// Update replaces the configuration of an existing job.
func (s *JobStore) Update(ctx context.Context, job *models.Job) error {
	if !validID(job.ID) {
		return ErrNotFound
	}
	job.UpdatedAt = time.Now().UTC()

	return withTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		query := `
			UPDATE jobs
			SET name = $2, kind = $3, description = $4, updated_at = $5
			WHERE id = $1
			RETURNING created_at`

		err := tx.QueryRowContext(ctx, query,
			job.ID,
			job.Name,
			job.Kind,
			job.Description,
			job.UpdatedAt,
		).Scan(&job.CreatedAt)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			if isUniqueViolation(err) {
				return ErrDuplicateName
			}
			return fmt.Errorf("updating job: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM job_parameters WHERE job_id = $1`, job.ID); err != nil {
			return fmt.Errorf("clearing job parameters: %w", err)
		}
		return insertParameters(ctx, tx, job)
	})
}

// Delete removes a job. Parameters and builds are removed by cascade.
func (s *JobStore) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting job: %w", err)
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

func insertParameters(ctx context.Context, q queryable, job *models.Job) error {
	query := `
		INSERT INTO job_parameters (job_id, position, token, type, name, description,
			default_value, successful_only, trim, choices)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	for i, spec := range job.ParameterSpecs() {
		if spec.Token.IsZero() {
			spec.Token = models.NewToken()
			job.Parameters.Definitions[i].Token = spec.Token
		}
		choices := spec.Choices
		if choices == nil {
			choices = []string{}
		}
		_, err := q.ExecContext(ctx, query,
			job.ID,
			i,
			uuid.UUID(spec.Token),
			spec.Type,
			spec.Name,
			spec.Description,
			spec.DefaultValue,
			spec.SuccessfulOnly,
			spec.Trim,
			pq.Array(choices),
		)
		if err != nil {
			if isTokenViolation(err) {
				return fmt.Errorf("parameter %s: token %s: %w", spec.Name, spec.Token, ErrDuplicateToken)
			}
			if isUniqueViolation(err) {
				return fmt.Errorf("parameter %s: %w", spec.Name, ErrDuplicateName)
			}
			return fmt.Errorf("inserting job parameter %s: %w", spec.Name, err)
		}
	}
	return nil
}
