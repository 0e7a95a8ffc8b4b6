// Package testutil provides testing utilities for the gotune playback core.
package testutil

import (
	"testing"

	"go.uber.org/goleak"
)

// VerifyNoLeaks should be deferred at the start of tests that spawn goroutines.
// It verifies that no goroutines were leaked during the test.
func VerifyNoLeaks(t *testing.T, opts ...goleak.Option) {
	t.Helper()
	goleak.VerifyNone(t, opts...)
}
