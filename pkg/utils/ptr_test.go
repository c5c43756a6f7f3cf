// Copyright The GroupCal Authors.
// SPDX-License-Identifier: MIT

package utils

import (
	"testing"
	"time"
)

func TestTimePtr(t *testing.T) {
	instant := time.Date(2026, 7, 6, 10, 0, 0, 0, time.UTC)
	ptr := TimePtr(instant)
	if ptr == nil {
		t.Fatal("expected non-nil pointer")
	}
	if !ptr.Equal(instant) {
		t.Errorf("expected %v, got %v", instant, *ptr)
	}

	// The pointer must not alias the caller's variable.
	instant = instant.Add(time.Hour)
	if ptr.Equal(instant) {
		t.Error("pointer aliases the source variable")
	}
}
