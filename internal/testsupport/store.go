package testsupport

import (
	"testing"

	"dgcat/internal/catalog"
	"dgcat/internal/config"
)

// MustOpenStore opens a catalog.Store under the given scan root and registers
// cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config, root string) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg.DatabasePath(root))
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
