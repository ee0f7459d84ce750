package models

import "time"

// JobKind distinguishes classic jobs from pipeline jobs.
type JobKind string

const (
	JobKindFreestyle JobKind = "freestyle"
	JobKindPipeline  JobKind = "pipeline"
)

// ParametersProperty is the parameter configuration attached to a job.
type ParametersProperty struct {
	Definitions []ParameterSpec `json:"definitions"`
}

// Job is a configured, repeatable build pipeline.
type Job struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"` // Full name, folders separated by "/"
	Kind        JobKind             `json:"kind"`
	Description string              `json:"description,omitempty"`
	Parameters  *ParametersProperty `json:"parameters,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// ParameterSpecs returns the job's parameter configuration, or nil when the job is not parameterized.
func (j *Job) ParameterSpecs() []ParameterSpec {
	if j == nil || j.Parameters == nil {
		return nil
	}
	return j.Parameters.Definitions
}

// Clone returns a deep copy of the job.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	if j.Parameters != nil {
		defs := make([]ParameterSpec, len(j.Parameters.Definitions))
		for i, d := range j.Parameters.Definitions {
			defs[i] = d.Clone()
		}
		c.Parameters = &ParametersProperty{Definitions: defs}
	}
	return &c
}
