package service

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"
)

// AuthAbuseScope separates cooldown state for the two guarded flows so a
// burst of bad passwords does not lock out an in-flight MFA completion.
type AuthAbuseScope string

const (
	AuthAbuseScopeLogin AuthAbuseScope = "login"
	AuthAbuseScopeMFA   AuthAbuseScope = "mfa"
)

// AuthAbusePolicy shapes the growing cooldown applied after repeated
// failures. The first FreeAttempts failures carry no delay; each failure
// past that multiplies the delay, capped at MaxDelay. State older than
// ResetWindow is discarded.
type AuthAbusePolicy struct {
	FreeAttempts int
	BaseDelay    time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	ResetWindow  time.Duration
}

func DefaultAuthAbusePolicy() AuthAbusePolicy {
	return AuthAbusePolicy{
		FreeAttempts: 3,
		BaseDelay:    2 * time.Second,
		Multiplier:   2,
		MaxDelay:     5 * time.Minute,
		ResetWindow:  time.Hour,
	}
}

func (p AuthAbusePolicy) normalized() AuthAbusePolicy {
	d := DefaultAuthAbusePolicy()
	if p.FreeAttempts <= 0 {
		p.FreeAttempts = d.FreeAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = d.BaseDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = d.Multiplier
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = d.MaxDelay
	}
	if p.ResetWindow <= 0 {
		p.ResetWindow = d.ResetWindow
	}
	return p
}

func (p AuthAbusePolicy) cooldownAfter(failures int) time.Duration {
	if failures <= p.FreeAttempts {
		return 0
	}
	exceeded := failures - p.FreeAttempts
	delay := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(exceeded-1))
	if delay > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(delay)
}

// AuthAbuseGuard tracks authentication failures per identity and per source
// IP and reports the cooldown currently in force. All three methods take
// both dimensions; either may be empty and is then skipped.
type AuthAbuseGuard interface {
	// Check returns the remaining cooldown, zero when the attempt may
	// proceed.
	Check(ctx context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error)
	// RegisterFailure records a failed attempt and returns the cooldown now
	// in force.
	RegisterFailure(ctx context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error)
	// Reset clears state after a successful authentication.
	Reset(ctx context.Context, scope AuthAbuseScope, identity, ip string) error
}

func normalizeAuthIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

type abuseDimension struct {
	dim   string
	value string
}

func abuseDimensions(identity, ip string) []abuseDimension {
	var dims []abuseDimension
	if id := normalizeAuthIdentity(identity); id != "" {
		dims = append(dims, abuseDimension{dim: "id", value: id})
	}
	if ip != "" {
		dims = append(dims, abuseDimension{dim: "ip", value: ip})
	}
	return dims
}

type memoryAbuseState struct {
	failures      int
	lastFailure   time.Time
	cooldownUntil time.Time
}

type MemoryAuthAbuseGuard struct {
	mu     sync.Mutex
	states map[string]*memoryAbuseState
	policy AuthAbusePolicy
	now    func() time.Time
}

func NewMemoryAuthAbuseGuard(policy AuthAbusePolicy) *MemoryAuthAbuseGuard {
	return &MemoryAuthAbuseGuard{
		states: make(map[string]*memoryAbuseState),
		policy: policy.normalized(),
		now:    time.Now,
	}
}

func (g *MemoryAuthAbuseGuard) WithClock(now func() time.Time) *MemoryAuthAbuseGuard {
	g.now = now
	return g
}

func (g *MemoryAuthAbuseGuard) Check(_ context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	var worst time.Duration
	for _, d := range abuseDimensions(identity, ip) {
		st, ok := g.states[g.stateKey(scope, d.dim, d.value)]
		if !ok {
			continue
		}
		if now.Sub(st.lastFailure) > g.policy.ResetWindow {
			delete(g.states, g.stateKey(scope, d.dim, d.value))
			continue
		}
		if remaining := st.cooldownUntil.Sub(now); remaining > worst {
			worst = remaining
		}
	}
	return worst, nil
}

func (g *MemoryAuthAbuseGuard) RegisterFailure(_ context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	var worst time.Duration
	for _, d := range abuseDimensions(identity, ip) {
		key := g.stateKey(scope, d.dim, d.value)
		st, ok := g.states[key]
		if !ok || now.Sub(st.lastFailure) > g.policy.ResetWindow {
			st = &memoryAbuseState{}
			g.states[key] = st
		}
		st.failures++
		st.lastFailure = now
		cooldown := g.policy.cooldownAfter(st.failures)
		st.cooldownUntil = now.Add(cooldown)
		if cooldown > worst {
			worst = cooldown
		}
	}
	return worst, nil
}

func (g *MemoryAuthAbuseGuard) Reset(_ context.Context, scope AuthAbuseScope, identity, ip string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, d := range abuseDimensions(identity, ip) {
		delete(g.states, g.stateKey(scope, d.dim, d.value))
	}
	return nil
}

func (g *MemoryAuthAbuseGuard) stateKey(scope AuthAbuseScope, dim, value string) string {
	return string(scope) + ":" + dim + ":" + value
}
