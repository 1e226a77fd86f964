package orchestrator

import "strings"

// Cache keys follow "<entity>-<scope>[-qualifiers]", e.g. "products-outlet7"
// or "sales-outlet7-page2". The entity segment drives the prefetch
// heuristic below.

// relatedEntities maps an entity to the entities a UI screen showing it is
// likely to need next.
var relatedEntities = map[string][]string{
	"products":  {"inventory", "categories"},
	"inventory": {"products"},
	"sales":     {"products", "customers"},
	"purchases": {"products", "suppliers"},
	"customers": {"sales"},
}

// BuildKey assembles a cache key from entity, scope, and qualifiers
func BuildKey(entity, scope string, qualifiers ...string) string {
	parts := append([]string{entity, scope}, qualifiers...)
	return strings.Join(parts, "-")
}

// EntityOf returns the entity segment of a cache key, or empty when the key
// does not follow the convention
func EntityOf(key string) string {
	entity, _, found := strings.Cut(key, "-")
	if !found {
		return ""
	}
	return entity
}

// RelatedEntities reports which entities are worth prefetching after a
// fetch for key resolves. Unknown entities have no related set.
func RelatedEntities(key string) []string {
	related, ok := relatedEntities[EntityOf(key)]
	if !ok {
		return nil
	}
	out := make([]string, len(related))
	copy(out, related)
	return out
}
