package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/narvanalabs/persistent-params/internal/models"
	"github.com/narvanalabs/persistent-params/internal/store"
)

// Request is the inbound request a default value is being computed for.
type Request interface {
	// Path returns the request's target path.
	Path() string
	// NearestJob walks the request's resource ancestors and returns the nearest
	// enclosing job, or nil when no ancestor is a job.
	NearestJob(ctx context.Context) (*models.Job, error)
}

// JobLookup finds a job by its full name.
type JobLookup interface {
	GetByName(ctx context.Context, name string) (*models.Job, error)
}

type requestKey struct{}

// WithRequest returns a copy of ctx carrying req.
func WithRequest(ctx context.Context, req Request) context.Context {
	return context.WithValue(ctx, requestKey{}, req)
}

// RequestFromContext returns the request carried by ctx, or nil.
func RequestFromContext(ctx context.Context) Request {
	req, _ := ctx.Value(requestKey{}).(Request)
	return req
}

// AncestorChain returns the full names of the jobs and folders addressed by a
// server path, outermost first. "/job/team/job/deploy/build" yields
// ["team", "team/deploy"]. Anything before the first "job" segment is ignored.
func AncestorChain(path string) ([]string, error) {
	segments := strings.Split(strings.Trim(path, "/"), "/")

	start := -1
	for i, seg := range segments {
		if seg == "job" {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, nil
	}

	var (
		chain []string
		names []string
	)
	for i := start; i+1 < len(segments) && segments[i] == "job"; i += 2 {
		name, err := url.PathUnescape(segments[i+1])
		if err != nil {
			return nil, fmt.Errorf("decoding path segment %q: %w", segments[i+1], err)
		}
		if name == "" {
			return nil, fmt.Errorf("empty job name in path %q", path)
		}
		names = append(names, name)
		chain = append(chain, strings.Join(names, "/"))
	}
	return chain, nil
}

// ActionPath returns the part of an escaped server path that follows the
// addressed job, starting with a slash. "/job/team/job/deploy/build" yields
// "/build" and "/job/build/" yields "/". Paths that address no job are
// returned unchanged.
func ActionPath(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	start := slices.Index(segments, "job")
	if start < 0 {
		return path
	}
	end := start
	for end+1 < len(segments) && segments[end] == "job" && segments[end+1] != "" {
		end += 2
	}
	if end == start {
		return path
	}
	return "/" + strings.Join(segments[end:], "/")
}

// JobPath returns the escaped server path addressing the job with the given
// full name, without a trailing slash.
func JobPath(name string) string {
	var b strings.Builder
	for _, segment := range strings.Split(name, "/") {
		b.WriteString("/job/")
		b.WriteString(url.PathEscape(segment))
	}
	return b.String()
}

// HTTPRequest adapts an *http.Request to Request.
type HTTPRequest struct {
	path string
	jobs JobLookup
}

// NewHTTPRequest wraps r, using jobs to resolve the ancestors named in its path.
func NewHTTPRequest(r *http.Request, jobs JobLookup) *HTTPRequest {
	return &HTTPRequest{path: r.URL.EscapedPath(), jobs: jobs}
}

// NewPathRequest builds a Request for a bare escaped path, for callers that
// compute defaults outside of an HTTP request.
func NewPathRequest(path string, jobs JobLookup) *HTTPRequest {
	return &HTTPRequest{path: path, jobs: jobs}
}

// Path returns the escaped request path.
func (r *HTTPRequest) Path() string { return r.path }

// NearestJob returns the innermost ancestor that is a job. Ancestors that do
// not name a job (folders) are skipped.
func (r *HTTPRequest) NearestJob(ctx context.Context) (*models.Job, error) {
	chain, err := AncestorChain(r.path)
	if err != nil {
		return nil, err
	}
	for i := len(chain) - 1; i >= 0; i-- {
		job, err := r.jobs.GetByName(ctx, chain[i])
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("looking up job %q: %w", chain[i], err)
		}
		return job, nil
	}
	return nil, nil
}
