package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/smileynet/tripdeck"
	"github.com/smileynet/tripdeck/internal/config"
)

func TestInit_WritesStarterConfig(t *testing.T) {
	// Given: no config in a fresh directory
	path := filepath.Join(t.TempDir(), ".tripdeck", "config.yaml")
	cmd := InitCmd{Path: path}

	// When: init runs with the embedded templates
	var out bytes.Buffer
	if err := cmd.run(&out, tripdeck.Templates); err != nil {
		t.Fatal(err)
	}

	// Then: the written file loads and validates
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if !strings.Contains(out.String(), "Wrote "+path) {
		t.Errorf("output = %q", out.String())
	}

	// And: a second run refuses to overwrite without --force
	if err := cmd.run(&out, tripdeck.Templates); err == nil {
		t.Error("expected error for existing config")
	}
	cmd.Force = true
	if err := cmd.run(&out, tripdeck.Templates); err != nil {
		t.Errorf("--force: %v", err)
	}
}

func TestInit_LocalTemplateOverride(t *testing.T) {
	local := t.TempDir()
	custom := "log:\n  level: debug\n"
	if err := os.WriteFile(filepath.Join(local, tripdeck.ConfigTemplate), []byte(custom), 0o644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "config.yaml")

	templates := tripdeck.OverlayFS(local, fstest.MapFS{})
	if err := (&InitCmd{Path: path}).run(&bytes.Buffer{}, templates); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != custom {
		t.Errorf("config = %q, want the local template", data)
	}
}
