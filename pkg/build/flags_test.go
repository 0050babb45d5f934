// SPDX-License-Identifier: MIT
package build

import "testing"

func TestGetDefaults(t *testing.T) {
	got := Get()

	if got.Name != "roomsweep" {
		t.Errorf("Get().Name = %q, want %q", got.Name, "roomsweep")
	}
	if got.Version != "dev" {
		t.Errorf("Get().Version = %q, want %q", got.Version, "dev")
	}
	if got.Commit != "unknown" {
		t.Errorf("Get().Commit = %q, want %q", got.Commit, "unknown")
	}
	if got.Time != "unknown" {
		t.Errorf("Get().Time = %q, want %q", got.Time, "unknown")
	}
}

func TestGetStable(t *testing.T) {
	first := Get()
	second := Get()

	if first != second {
		t.Errorf("Get() not stable across calls: %+v != %+v", first, second)
	}
}
