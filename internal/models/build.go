package models

import "time"

// BuildStatus represents the outcome (or progress) of a build.
type BuildStatus string

const (
	BuildStatusQueued    BuildStatus = "queued"
	BuildStatusRunning   BuildStatus = "running"
	BuildStatusSucceeded BuildStatus = "succeeded"
	BuildStatusFailed    BuildStatus = "failed"
	BuildStatusAborted   BuildStatus = "aborted"
	BuildStatusUnstable  BuildStatus = "unstable"
)

// IsValid reports whether s is a known build status.
func (s BuildStatus) IsValid() bool {
	switch s {
	case BuildStatusQueued, BuildStatusRunning, BuildStatusSucceeded,
		BuildStatusFailed, BuildStatusAborted, BuildStatusUnstable:
		return true
	}
	return false
}

// IsFinished reports whether the build has completed, successfully or not.
func (s BuildStatus) IsFinished() bool {
	return s != BuildStatusQueued && s != BuildStatusRunning
}

// Build is one execution of a Job together with the parameter values it was started with.
type Build struct {
	ID         string            `json:"id"`
	JobID      string            `json:"job_id"`
	Number     int               `json:"number"`
	Status     BuildStatus       `json:"status"`
	Parameters []ParameterValue  `json:"parameters"`
	EnvVars    map[string]string `json:"env_vars,omitempty"` // Pipeline jobs only
	CreatedAt  time.Time         `json:"created_at"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
}

// Parameter returns the first snapshot value bound to name.
func (b *Build) Parameter(name string) (ParameterValue, bool) {
	for _, v := range b.Parameters {
		if v.Name == name {
			return v, true
		}
	}
	return ParameterValue{}, false
}

// Clone returns a deep copy of the build.
func (b *Build) Clone() *Build {
	if b == nil {
		return nil
	}
	c := *b
	if b.Parameters != nil {
		c.Parameters = append([]ParameterValue(nil), b.Parameters...)
	}
	if b.EnvVars != nil {
		c.EnvVars = make(map[string]string, len(b.EnvVars))
		for k, v := range b.EnvVars {
			c.EnvVars[k] = v
		}
	}
	if b.FinishedAt != nil {
		t := *b.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}
