// Package health keeps an advisory per-provider liveness map. It is fed by
// request outcomes and by explicit probes; nothing in the fetch path reads it
// to exclude a provider.
package health

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/zeromicro/go-zero/core/logx"

	"btcmetrics/pkg/httpx"
	"btcmetrics/pkg/provider"
)

// DefaultProbeTimeout bounds each CheckAll probe.
const DefaultProbeTimeout = 5 * time.Second

// Catalog lists the providers a Tracker can probe.
type Catalog interface {
	Names() []string
	Get(name string) (provider.Descriptor, bool)
}

// Prober performs a health request against a provider.
type Prober interface {
	Get(ctx context.Context, desc provider.Descriptor, endpoint string, params provider.Params) ([]byte, error)
}

// Status is the last known health of one provider.
type Status struct {
	Healthy   bool
	LastError string
	UpdatedAt time.Time
}

// Policy decides which request failures mark a provider unhealthy.
type Policy struct {
	UnhealthyStatuses []int
	NetworkErrors     bool
	NormalizeErrors   bool
}

// DefaultPolicy marks server-side failures only: 500/502/503/504 and network errors.
func DefaultPolicy() Policy {
	return Policy{UnhealthyStatuses: []int{500, 502, 503, 504}, NetworkErrors: true}
}

// LegacyPolicy also marks 401/403/404, matching the historical behaviour where
// auth and not-found responses flagged a provider as down.
func LegacyPolicy() Policy {
	return Policy{UnhealthyStatuses: []int{401, 403, 404, 500, 502, 503, 504}, NetworkErrors: true}
}

// PolicyByName resolves "default" or "legacy"; a non-empty statuses list
// replaces the preset's status set.
func PolicyByName(name string, statuses []int) (Policy, error) {
	var p Policy
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default":
		p = DefaultPolicy()
	case "legacy":
		p = LegacyPolicy()
	default:
		return Policy{}, fmt.Errorf("health: unknown policy %q", name)
	}
	if len(statuses) > 0 {
		p.UnhealthyStatuses = append([]int(nil), statuses...)
	}
	return p, nil
}

// Marks reports whether err should flip a provider to unhealthy.
func (p Policy) Marks(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if code := httpx.StatusCode(err); code != 0 {
		for _, s := range p.UnhealthyStatuses {
			if s == code {
				return true
			}
		}
		return false
	}
	var ne *provider.NormalizeError
	if errors.As(err, &ne) {
		return p.NormalizeErrors
	}
	return p.NetworkErrors && httpx.IsNetworkError(err)
}

// Tracker is the process-wide health map for one provider family.
type Tracker struct {
	mu       sync.RWMutex
	statuses map[string]Status

	catalog Catalog
	prober  Prober
	policy  Policy
	timeout time.Duration
	now     func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithPolicy overrides DefaultPolicy.
func WithPolicy(p Policy) Option {
	return func(t *Tracker) { t.policy = p }
}

// WithProbeTimeout overrides the per-probe timeout.
func WithProbeTimeout(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTracker creates a tracker. Every catalog provider starts healthy.
func NewTracker(catalog Catalog, prober Prober, opts ...Option) *Tracker {
	t := &Tracker{
		statuses: make(map[string]Status),
		catalog:  catalog,
		prober:   prober,
		policy:   DefaultPolicy(),
		timeout:  DefaultProbeTimeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	if catalog != nil {
		for _, name := range catalog.Names() {
			t.statuses[name] = Status{Healthy: true}
		}
	}
	return t
}

// Policy returns the active marking policy.
func (t *Tracker) Policy() Policy { return t.policy }

// MarkHealthy records a successful interaction.
func (t *Tracker) MarkHealthy(id string) {
	t.set(id, Status{Healthy: true, UpdatedAt: t.now()})
}

// MarkUnhealthy records a failure.
func (t *Tracker) MarkUnhealthy(id string, err error) {
	st := Status{Healthy: false, UpdatedAt: t.now()}
	if err != nil {
		st.LastError = err.Error()
	}
	t.set(id, st)
}

// Observe applies a request outcome: success marks healthy, failures mark
// unhealthy only when the policy says so. It reports whether the state changed.
func (t *Tracker) Observe(id string, err error) bool {
	before := t.IsHealthy(id)
	switch {
	case err == nil:
		t.MarkHealthy(id)
	case t.policy.Marks(err):
		t.MarkUnhealthy(id, err)
	default:
		return false
	}
	return before != t.IsHealthy(id)
}

// IsHealthy returns the last known state. Unknown providers report healthy.
func (t *Tracker) IsHealthy(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	st, ok := t.statuses[id]
	return !ok || st.Healthy
}

// Snapshot copies the full health map.
func (t *Tracker) Snapshot() map[string]Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]Status, len(t.statuses))
	for k, v := range t.statuses {
		out[k] = v
	}
	return out
}

// Unhealthy returns the providers currently marked down, sorted.
func (t *Tracker) Unhealthy() []string {
	var out []string
	for id, st := range t.Snapshot() {
		if !st.Healthy {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// CheckAll probes every provider's health endpoint concurrently and records
// the outcome. Providers without a health endpoint report their passive state.
func (t *Tracker) CheckAll(ctx context.Context) map[string]bool {
	if t.catalog == nil {
		return map[string]bool{}
	}
	names := t.catalog.Names()
	results := make(map[string]bool, len(names))
	var mu sync.Mutex

	var wg conc.WaitGroup
	for _, name := range names {
		desc, ok := t.catalog.Get(name)
		if !ok {
			continue
		}
		wg.Go(func() {
			healthy := t.probe(ctx, desc)
			mu.Lock()
			results[desc.Name] = healthy
			mu.Unlock()
		})
	}
	wg.Wait()
	return results
}

func (t *Tracker) probe(ctx context.Context, desc provider.Descriptor) bool {
	if desc.HealthEndpoint == "" || t.prober == nil {
		return t.IsHealthy(desc.Name)
	}
	probeCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if _, err := t.prober.Get(probeCtx, desc, desc.HealthEndpoint, nil); err != nil {
		logx.WithContext(ctx).Infof("health: probe failed provider=%s err=%v", desc.Name, err)
		t.MarkUnhealthy(desc.Name, err)
		return false
	}
	t.MarkHealthy(desc.Name)
	return true
}

func (t *Tracker) set(id string, st Status) {
	t.mu.Lock()
	t.statuses[id] = st
	t.mu.Unlock()
}
