package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/smileynet/tripdeck"
)

// InitCmd writes a starter project config.
type InitCmd struct {
	Path  string `help:"Where to write the config." default:".tripdeck/config.yaml"`
	Force bool   `help:"Overwrite an existing config."`
}

// Run executes the init command.
func (c *InitCmd) Run() error {
	templates := tripdeck.OverlayFS(os.ExpandEnv("$HOME/.config/tripdeck/templates"), tripdeck.Templates)
	return c.run(os.Stdout, templates)
}

// run copies the config template from templates to c.Path.
func (c *InitCmd) run(w io.Writer, templates fs.FS) error {
	if !c.Force {
		if _, err := os.Stat(c.Path); err == nil {
			return fmt.Errorf("init: %s already exists (use --force to overwrite)", c.Path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("init: %w", err)
		}
	}
	data, err := fs.ReadFile(templates, tripdeck.ConfigTemplate)
	if err != nil {
		return fmt.Errorf("init: reading template: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.Path), 0o755); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	if err := os.WriteFile(c.Path, data, 0o644); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Wrote %s\n", c.Path)
	return nil
}
