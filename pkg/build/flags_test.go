// SPDX-License-Identifier: MIT
package build

import "testing"

func TestGetInfoFallbacks(t *testing.T) {
	info := GetInfo()
	if info.Name == "" {
		t.Error("Name should never be empty")
	}
	if info.Version == "" {
		t.Error("Version should never be empty")
	}
	if info.Commit == "" || info.Time == "" {
		t.Errorf("placeholders missing: %+v", info)
	}
}
