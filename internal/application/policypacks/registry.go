package policypacks

import (
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/relaybot/compiler/internal/domain"
)

// Registry resolves a builtin policy pack by its (case-insensitive,
// possibly aliased) lookup id, memoizing constructed packs in a TTL cache
// so a CLI resolving the same pack repeatedly (e.g. `watch` mode re-running
// compile on every file save) does not rebuild the rule slices each time
// (spec.md §2/§5 — "ADDED" in-process lookup cache).
type Registry struct {
	cache *cache.Cache
}

// NewRegistry builds a Registry with the given cache TTL. A non-positive
// ttl disables expiration entirely (entries live for the process
// lifetime), which is appropriate here since builtin packs never change
// at runtime.
func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		return &Registry{cache: cache.New(cache.NoExpiration, cache.NoExpiration)}
	}
	return &Registry{cache: cache.New(ttl, ttl)}
}

// Resolve looks up id (case-insensitively, resolving any alias) and
// returns the corresponding domain.PolicyPack, with TenantID left empty
// for the caller to stamp (a builtin pack is tenant-agnostic template,
// spec.md §6).
func (r *Registry) Resolve(id string) (domain.PolicyPack, error) {
	key := strings.ToLower(strings.TrimSpace(id))
	if canonical, ok := aliases[key]; ok {
		key = canonical
	}

	if cached, ok := r.cache.Get(key); ok {
		return cached.(domain.PolicyPack), nil
	}

	ctor, ok := byID()[key]
	if !ok {
		return domain.PolicyPack{}, fmt.Errorf("policypacks: unknown pack %q", id)
	}
	pack := ctor()
	r.cache.SetDefault(key, pack)
	return pack, nil
}

// Names returns every canonical (non-aliased) builtin pack id, sorted is
// left to the caller since this is a small, fixed set.
func (r *Registry) Names() []string {
	ids := byID()
	out := make([]string, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	return out
}
