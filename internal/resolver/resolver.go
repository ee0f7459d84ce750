// Package resolver finds the job that owns a parameter definition.
//
// Definitions carry no reference to their job. The resolver first looks at the
// request being served: when it addresses a job and asks to start a build, that
// job is the owner. Otherwise every job is scanned for a definition with the
// same token.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/narvanalabs/persistent-params/internal/models"
)

// DefaultTriggerSuffixes are the path endings of the build-trigger actions.
var DefaultTriggerSuffixes = []string{"/build", "/buildWithParameters"}

// Strategies reported to the Observer.
const (
	StrategyRequest = "request"
	StrategyScan    = "scan"
)

// Outcomes reported to the Observer.
const (
	OutcomeFound    = "found"
	OutcomeFiltered = "filtered"
	OutcomeMiss     = "miss"
	OutcomeError    = "error"
)

// JobDirectory enumerates every job known to the server.
type JobDirectory interface {
	List(ctx context.Context) ([]*models.Job, error)
}

// Observer receives the outcome of each resolution strategy.
type Observer interface {
	ObserveResolution(strategy, outcome string)
}

// Resolver finds the job owning a parameter definition.
type Resolver struct {
	jobs     JobDirectory
	suffixes []string
	observer Observer
	logger   *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTriggerSuffixes replaces the path endings treated as build-trigger requests.
func WithTriggerSuffixes(suffixes ...string) Option {
	return func(r *Resolver) {
		r.suffixes = nil
		for _, s := range suffixes {
			if s = strings.TrimSpace(s); s != "" {
				r.suffixes = append(r.suffixes, s)
			}
		}
	}
}

// WithObserver sets the observer notified of strategy outcomes.
func WithObserver(o Observer) Option {
	return func(r *Resolver) {
		r.observer = o
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// New creates a resolver scanning jobs as a last resort.
func New(jobs JobDirectory, opts ...Option) *Resolver {
	r := &Resolver{
		jobs:     jobs,
		suffixes: DefaultTriggerSuffixes,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// TriggerSuffixes returns the configured build-trigger path endings.
func (r *Resolver) TriggerSuffixes() []string {
	return append([]string(nil), r.suffixes...)
}

// IsTrigger reports whether path addresses a build-trigger action.
func (r *Resolver) IsTrigger(path string) bool {
	return IsTrigger(path, r.suffixes)
}

// IsTrigger reports whether the action part of path ends in one of suffixes.
// Job and folder names in the path never match. A single trailing slash is
// ignored.
func IsTrigger(path string, suffixes []string) bool {
	action := ActionPath(path)
	if action != "/" {
		action = strings.TrimSuffix(action, "/")
	}
	for _, s := range suffixes {
		if strings.HasSuffix(action, s) {
			return true
		}
	}
	return false
}

// Resolve returns the job owning the definition identified by token. req may be
// nil for callers that are not serving a request.
func (r *Resolver) Resolve(ctx context.Context, req Request, token models.Token) (*models.Job, bool) {
	if job, ok := r.fromRequest(ctx, req); ok {
		return job, true
	}
	return r.scan(ctx, token)
}

// fromRequest resolves through the request's ancestors. Only build-trigger
// requests resolve: on any other page the definition may be mid-edit.
func (r *Resolver) fromRequest(ctx context.Context, req Request) (job *models.Job, ok bool) {
	if req == nil {
		return nil, false
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Debug("request resolution panicked", "panic", fmt.Sprint(rec))
			r.observe(StrategyRequest, OutcomeError)
			job, ok = nil, false
		}
	}()

	found, err := req.NearestJob(ctx)
	if err != nil {
		r.logger.Debug("request resolution failed", "path", req.Path(), "error", err)
		r.observe(StrategyRequest, OutcomeError)
		return nil, false
	}
	if found == nil {
		r.observe(StrategyRequest, OutcomeMiss)
		return nil, false
	}
	if !r.IsTrigger(req.Path()) {
		r.logger.Debug("request is not a build trigger", "path", req.Path(), "job", found.Name)
		r.observe(StrategyRequest, OutcomeFiltered)
		return nil, false
	}
	r.observe(StrategyRequest, OutcomeFound)
	return found, true
}

// scan compares token against every definition of every job.
func (r *Resolver) scan(ctx context.Context, token models.Token) (job *models.Job, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Debug("job scan panicked", "panic", fmt.Sprint(rec))
			r.observe(StrategyScan, OutcomeError)
			job, ok = nil, false
		}
	}()

	if token.IsZero() {
		r.observe(StrategyScan, OutcomeMiss)
		return nil, false
	}

	jobs, err := r.jobs.List(ctx)
	if err != nil {
		r.logger.Debug("listing jobs failed", "error", err)
		r.observe(StrategyScan, OutcomeError)
		return nil, false
	}
	for _, j := range jobs {
		if j == nil {
			continue
		}
		for _, spec := range j.ParameterSpecs() {
			if spec.Token == token {
				r.observe(StrategyScan, OutcomeFound)
				return j, true
			}
		}
	}
	r.observe(StrategyScan, OutcomeMiss)
	return nil, false
}

func (r *Resolver) observe(strategy, outcome string) {
	if r.observer != nil {
		r.observer.ObserveResolution(strategy, outcome)
	}
}
