// Package health reports whether the provisioning dependencies are reachable.
package health

import (
	"context"
	"fmt"
	"time"

	"fleet-provisioning/internal/wialon"
)

// Pinger is used for readiness (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker is used for readiness (e.g. the OPA evaluator).
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Check is the outcome of one dependency check. Skipped checks have no dependency configured.
type Check struct {
	Name    string
	Skipped bool
	Err     error
	Elapsed time.Duration
}

// Report is the result of Checker.Check.
type Report struct {
	Checks []Check
}

// Healthy reports whether every configured check passed.
func (r Report) Healthy() bool {
	for _, c := range r.Checks {
		if c.Err != nil {
			return false
		}
	}
	return true
}

// Checker checks the database, the policy and the Remote API. Any field may be nil.
type Checker struct {
	DB     Pinger
	Policy PolicyChecker
	// Remote and Token are used to open and close a session.
	Remote *wialon.Client
	Token  string
}

// Check runs every check in order. Failures are reported, not returned.
func (c *Checker) Check(ctx context.Context) Report {
	var r Report
	r.Checks = append(r.Checks, run(ctx, "database", c.DB != nil, func(ctx context.Context) error {
		return c.DB.PingContext(ctx)
	}))
	r.Checks = append(r.Checks, run(ctx, "policy", c.Policy != nil, func(ctx context.Context) error {
		return c.Policy.HealthCheck(ctx)
	}))
	r.Checks = append(r.Checks, run(ctx, "wialon", c.Remote != nil, func(ctx context.Context) error {
		return wialon.WithSession(ctx, c.Remote, c.Token, func(context.Context, *wialon.Session) error { return nil })
	}))
	return r
}

func run(ctx context.Context, name string, configured bool, fn func(context.Context) error) Check {
	if !configured {
		return Check{Name: name, Skipped: true}
	}
	start := time.Now()
	err := fn(ctx)
	if err != nil {
		err = fmt.Errorf("%s: %w", name, err)
	}
	return Check{Name: name, Err: err, Elapsed: time.Since(start)}
}
