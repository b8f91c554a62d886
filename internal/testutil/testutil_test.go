package testutil

import (
	"errors"
	"strings"
	"testing"
)

func TestAssertNoError(t *testing.T) {
	t.Parallel()

	AssertNoError(t, nil)

	ok := t.Run("unexpected error", func(t *testing.T) {
		AssertNoError(t, errors.New("boom"))
	})
	if ok {
		t.Fatal("expected subtest to fail when error is non-nil")
	}
}

func TestAssertError(t *testing.T) {
	t.Parallel()

	AssertError(t, errors.New("test error"))

	ok := t.Run("missing expected error", func(t *testing.T) {
		AssertError(t, nil)
	})
	if ok {
		t.Fatal("expected subtest to fail when error is nil")
	}
}

func TestTempDBPath(t *testing.T) {
	t.Parallel()

	path := TempDBPath(t)
	if !strings.HasSuffix(path, ".db") {
		t.Errorf("path %q missing .db suffix", path)
	}
	if !strings.Contains(path, "TestTempDBPath") {
		t.Errorf("path %q does not carry the test name", path)
	}

	t.Run("subtest slash", func(t *testing.T) {
		sub := TempDBPath(t)
		if !strings.HasSuffix(sub, "TestTempDBPath_subtest_slash.db") {
			t.Errorf("subtest name not flattened into filename: %q", sub)
		}
	})
}
