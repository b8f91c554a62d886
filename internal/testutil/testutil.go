// Package testutil provides small shared test helpers.
package testutil

import (
	"path/filepath"
	"strings"
	"testing"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// TempDBPath returns a database path inside the test's temp directory,
// named after the test so -wal/-shm siblings are easy to attribute.
func TempDBPath(t *testing.T) string {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	return filepath.Join(t.TempDir(), name+".db")
}
