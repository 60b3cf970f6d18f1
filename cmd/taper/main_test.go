package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "taper version") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestBoostRequiresInput(t *testing.T) {
	_, err := execute(t, "boost", "--scenes", "scenes.json")
	if err == nil || !strings.Contains(err.Error(), "input") {
		t.Errorf("error = %v, want missing-input error", err)
	}
}

func TestDampenRequiresOutput(t *testing.T) {
	_, err := execute(t, "dampen", "-i", "in.mkv", "-s", "scenes.json")
	if err == nil || !strings.Contains(err.Error(), "output") {
		t.Errorf("error = %v, want missing-output error", err)
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	out, err := execute(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Errorf("output does not name the target: %q", out)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("sample not written: %v", err)
	}
	if !strings.Contains(string(data), "[quality]") {
		t.Error("sample missing quality section")
	}

	// A second init without --overwrite must refuse.
	if _, err := execute(t, "config", "init", "--path", target); err == nil {
		t.Error("init overwrote an existing config")
	}
}

func TestUnknownCommand(t *testing.T) {
	if _, err := execute(t, "definitely-not-a-command"); err == nil {
		t.Error("unknown command accepted")
	}
}
