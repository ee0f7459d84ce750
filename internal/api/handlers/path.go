package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/narvanalabs/persistent-params/internal/resolver"
)

// jobPath is a request path split into the addressed job and the action that follows it.
type jobPath struct {
	// Name is the full name of the innermost job or folder in the path.
	Name string
	// Base is the escaped path prefix addressing the job, without a trailing slash.
	Base string
	// Action holds the remaining path segments.
	Action []string
}

// parseJobPath splits an escaped "/job/<a>/job/<b>/<action...>" path.
func parseJobPath(escaped string) (*jobPath, error) {
	chain, err := resolver.AncestorChain(escaped)
	if err != nil {
		return nil, err
	}
	segments := strings.Split(strings.Trim(escaped, "/"), "/")
	if len(chain) == 0 || segments[0] != "job" {
		return nil, fmt.Errorf("path %q does not address a job", escaped)
	}

	n := 2 * len(chain)
	return &jobPath{
		Name:   chain[len(chain)-1],
		Base:   "/" + strings.Join(segments[:n], "/"),
		Action: segments[n:],
	}, nil
}

// is reports whether the action is exactly segments.
func (p *jobPath) is(segments ...string) bool {
	if len(p.Action) != len(segments) {
		return false
	}
	for i := range segments {
		if p.Action[i] != segments[i] {
			return false
		}
	}
	return true
}

// buildNumber returns the leading build number of the action and the segments after it.
func (p *jobPath) buildNumber() (int, []string, bool) {
	if len(p.Action) == 0 {
		return 0, nil, false
	}
	n, err := strconv.Atoi(p.Action[0])
	if err != nil || n <= 0 {
		return 0, nil, false
	}
	return n, p.Action[1:], true
}

// BindRequest stores the served request in the context so that parameter
// defaults computed while serving it can resolve their owning job.
func BindRequest(jobs resolver.JobLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := resolver.WithRequest(r.Context(), resolver.NewHTTPRequest(r, jobs))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
