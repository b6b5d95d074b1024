package deps

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckBinariesFindsAlternative(t *testing.T) {
	binDir := t.TempDir()
	stub := filepath.Join(binDir, "chromium")
	if err := os.WriteFile(stub, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	t.Setenv("PATH", binDir)

	statuses := CheckBinaries([]Requirement{
		{Name: "Browser", Alternatives: []string{"google-chrome", "chromium"}},
		{Name: "Missing", Alternatives: []string{"definitely-not-here"}},
		{Name: "Unset"},
		{Name: "Extra", Alternatives: []string{"nope"}, Optional: true},
	})
	if len(statuses) != 4 {
		t.Fatalf("expected 4 statuses, got %d", len(statuses))
	}
	if !statuses[0].Available || statuses[0].Command != stub {
		t.Fatalf("expected chromium stub to satisfy browser, got %+v", statuses[0])
	}
	if statuses[1].Available || !strings.Contains(statuses[1].Detail, "definitely-not-here") {
		t.Fatalf("unexpected missing status %+v", statuses[1])
	}
	if statuses[2].Detail != "command not configured" {
		t.Fatalf("unexpected unset detail %q", statuses[2].Detail)
	}

	missing := Missing(statuses)
	if len(missing) != 2 {
		t.Fatalf("expected optional requirement to be excluded, got %d missing", len(missing))
	}
}
