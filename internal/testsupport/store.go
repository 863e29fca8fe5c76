package testsupport

import (
	"path/filepath"
	"testing"

	"synomigrate/internal/ledger"
)

// MustOpenLedger opens a throwaway ledger in a temp directory and
// closes it when the test finishes.
func MustOpenLedger(t testing.TB) *ledger.Store {
	t.Helper()

	store, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
