package secrets

import (
	"context"
	"log/slog"
	"sort"
)

// Builder holds the merged boot-time environment material and produces
// per-request child environments.
type Builder struct {
	base map[string]string
	log  *slog.Logger
}

// NewBuilder loads every source once, merging in order: later sources
// win on key collision. Any source failing to load aborts boot; a
// partially-populated child environment is worse than a loud failure.
func NewBuilder(ctx context.Context, log *slog.Logger, sources ...Source) (*Builder, error) {
	base := make(map[string]string)
	for _, source := range sources {
		vars, err := source.Load(ctx)
		if err != nil {
			return nil, err
		}
		for k, v := range vars {
			base[k] = v
		}
		log.Info("Loaded secrets source", "source", source.Name(), "keys", len(vars))
	}
	return &Builder{base: base, log: log}, nil
}

// Environment merges the cached material with request-scoped extras.
// Extras win on collision. The returned map is a fresh copy; callers
// may mutate it.
func (b *Builder) Environment(extra map[string]string) map[string]string {
	env := make(map[string]string, len(b.base)+len(extra))
	for k, v := range b.base {
		env[k] = v
	}
	for k, v := range extra {
		env[k] = v
	}
	return env
}

// Has reports whether a variable of the given name was loaded.
func (b *Builder) Has(key string) bool {
	_, ok := b.base[key]
	return ok
}

// Keys returns the sorted names of all cached variables, for
// diagnostics. Values are never exposed.
func (b *Builder) Keys() []string {
	keys := make([]string, 0, len(b.base))
	for k := range b.base {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
