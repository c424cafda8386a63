// Package keypool provides a thread-safe rotating pool of API credentials per
// external provider, with least-used-first selection and cooldown-based
// temporary exclusion after rate-limit responses.
package keypool

import (
	"sync"
	"time"

	"github.com/pmsignal/hub/internal/apperrors"
)

// CooldownDuration is how long a penalized credential stays ineligible.
// Chosen to exceed the typical 60s provider throttle window with margin.
const CooldownDuration = 65 * time.Second

type entry struct {
	credential    string
	cooldownUntil time.Time
	useCount      int
}

type providerPool struct {
	mu      sync.Mutex
	entries []*entry
}

// KeyStatus is an observability snapshot of one credential in a pool.
type KeyStatus struct {
	KeyPrefix string `json:"key_prefix"`
	Available bool   `json:"available"`
	UseCount  int    `json:"use_count"`
}

// Pool manages per-provider credential pools. Acquire and Penalize take the
// provider's lock only for the duration of a scan over the (small, fixed)
// pool; network calls using an acquired credential happen outside the lock.
type Pool struct {
	mu        sync.RWMutex
	providers map[string]*providerPool
	now       func() time.Time
}

// Option configures the Pool.
type Option func(*Pool)

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(p *Pool) {
		p.now = now
	}
}

// New creates an empty pool. Providers are added via Register.
func New(opts ...Option) *Pool {
	p := &Pool{
		providers: make(map[string]*providerPool),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Register initializes (or replaces) the credential pool for a provider.
// Intended to be called once per provider at process start; not safe to call
// concurrently with Acquire for the same provider.
func (p *Pool) Register(provider string, credentials []string) {
	entries := make([]*entry, 0, len(credentials))
	for _, c := range credentials {
		if c == "" {
			continue
		}

		entries = append(entries, &entry{credential: c})
	}

	p.mu.Lock()
	p.providers[provider] = &providerPool{entries: entries}
	p.mu.Unlock()
}

// Acquire selects, among credentials whose cooldown has expired, the one with
// the fewest prior uses (ties broken by registration order), increments its
// use counter, and returns it. Returns an ExhaustedPoolError when no
// credential is currently eligible.
func (p *Pool) Acquire(provider string) (string, error) {
	pp := p.provider(provider)
	if pp == nil {
		return "", apperrors.NewExhaustedPoolError(provider, "no credentials registered for "+provider)
	}

	pp.mu.Lock()
	defer pp.mu.Unlock()

	now := p.now()

	var chosen *entry
	for _, e := range pp.entries {
		if now.Before(e.cooldownUntil) {
			continue
		}

		if chosen == nil || e.useCount < chosen.useCount {
			chosen = e
		}
	}

	if chosen == nil {
		return "", apperrors.NewExhaustedPoolError(provider, "all "+provider+" credentials are cooling down, retry in 60s")
	}

	chosen.useCount++

	return chosen.credential, nil
}

// Penalize puts the credential on cooldown after a rate-limit response.
// Idempotent; no-op when the credential is not in the provider's pool.
func (p *Pool) Penalize(provider, credential string) {
	pp := p.provider(provider)
	if pp == nil {
		return
	}

	pp.mu.Lock()
	defer pp.mu.Unlock()

	for _, e := range pp.entries {
		if e.credential == credential {
			e.cooldownUntil = p.now().Add(CooldownDuration)

			return
		}
	}
}

// Status returns a snapshot of the provider's pool for observability.
// The snapshot is taken under the lock; the caller holds no lock.
func (p *Pool) Status(provider string) []KeyStatus {
	pp := p.provider(provider)
	if pp == nil {
		return nil
	}

	pp.mu.Lock()
	defer pp.mu.Unlock()

	now := p.now()
	statuses := make([]KeyStatus, 0, len(pp.entries))

	for _, e := range pp.entries {
		prefix := e.credential
		if len(prefix) > 8 {
			prefix = prefix[:8]
		}

		statuses = append(statuses, KeyStatus{
			KeyPrefix: prefix,
			Available: !now.Before(e.cooldownUntil),
			UseCount:  e.useCount,
		})
	}

	return statuses
}

func (p *Pool) provider(name string) *providerPool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.providers[name]
}
