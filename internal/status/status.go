// Package status reports whether the server's dependencies are ready.
package status

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// CheckFunc probes one component. A nil error means the component is ready.
type CheckFunc func(ctx context.Context) error

// ComponentStatus is the result of probing one component.
type ComponentStatus struct {
	Ready   bool   `json:"ready"`
	Message string `json:"message"`
}

// Report is the combined readiness of all registered components.
type Report struct {
	Ready      bool                       `json:"ready"`
	Reason     string                     `json:"reason,omitempty"`
	Components map[string]ComponentStatus `json:"components"`
}

// Messages returns component name to message, for API responses.
func (r *Report) Messages() map[string]string {
	out := make(map[string]string, len(r.Components))
	for name, c := range r.Components {
		out[name] = c.Message
	}
	return out
}

// String returns a human-readable report, one component per line.
func (r *Report) String() string {
	var sb strings.Builder
	if r.Ready {
		sb.WriteString("Status: ready\n")
	} else {
		sb.WriteString(fmt.Sprintf("Status: not ready (%s)\n", r.Reason))
	}
	for _, name := range sortedNames(r.Components) {
		c := r.Components[name]
		mark := "✓"
		if !c.Ready {
			mark = "✗"
		}
		sb.WriteString(fmt.Sprintf("  %s %s: %s\n", mark, name, c.Message))
	}
	return sb.String()
}

// Checker runs registered component checks.
type Checker struct {
	mu      sync.RWMutex
	checks  map[string]CheckFunc
	timeout time.Duration
}

// NewChecker creates a checker. Each check gets at most timeout.
func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Checker{checks: make(map[string]CheckFunc), timeout: timeout}
}

// Register adds a component check, replacing any check with the same name.
func (c *Checker) Register(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Check probes every component concurrently. The report is ready only if
// every component is; Reason names the first failing component by name.
func (c *Checker) Check(ctx context.Context) *Report {
	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, fn := range c.checks {
		checks[name] = fn
	}
	c.mu.RUnlock()

	report := &Report{Ready: true, Components: make(map[string]ComponentStatus, len(checks))}
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, fn := range checks {
		wg.Add(1)
		go func(name string, fn CheckFunc) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			status := ComponentStatus{Ready: true, Message: "ok"}
			if err := fn(cctx); err != nil {
				status = ComponentStatus{Ready: false, Message: err.Error()}
			}
			mu.Lock()
			report.Components[name] = status
			mu.Unlock()
		}(name, fn)
	}
	wg.Wait()

	for _, name := range sortedNames(report.Components) {
		if s := report.Components[name]; !s.Ready {
			report.Ready = false
			report.Reason = name + " not ready: " + s.Message
			break
		}
	}
	return report
}

func sortedNames(m map[string]ComponentStatus) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
