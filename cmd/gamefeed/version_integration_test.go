//go:build integration

package main

import (
	"os/exec"
	"strings"
	"testing"
)

// TestBinaryVersion_MatchesGitTag checks the release build flow:
//
//	go build -ldflags="-X main.version=$(git describe --tags --always --dirty)" ./cmd/gamefeed
//
// Run with: go test -tags=integration ./cmd/gamefeed -v
func TestBinaryVersion_MatchesGitTag(t *testing.T) {
	out, err := exec.Command("git", "describe", "--tags", "--always", "--dirty").Output()
	if err != nil {
		t.Skipf("Skipping test: git not available or not a git repo: %v", err)
	}
	gitVersion := strings.TrimSpace(string(out))

	ldflags := "-X main.version=" + gitVersion
	build := exec.Command("go", "build", "-ldflags", ldflags, "-o", binaryPath, ".")
	if msg, err := build.CombinedOutput(); err != nil {
		t.Fatalf("build with ldflags failed: %v\n%s", err, msg)
	}

	stdout, _, _ := runCLI(t, nil, "--version")
	parts := strings.Fields(stdout)
	if len(parts) < 3 {
		t.Fatalf("unexpected version output format: %s", stdout)
	}
	if parts[2] != gitVersion {
		t.Errorf("binary version %q does not match git tag %q", parts[2], gitVersion)
	}
}
