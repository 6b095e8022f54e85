package store

import "github.com/hpungsan/miniwriter/internal/draft"

// Persisted keys, namespaced to avoid collisions with unrelated local state.
const (
	draftPrefix = "miniwriter:draft:"
	indexKey    = "miniwriter:index"
	queueKey    = "miniwriter:queue"
	catalogKey  = "miniwriter:catalog"
)

func draftKey(id draft.Identity) string {
	return draftPrefix + id.String()
}
