// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

// Package xdg resolves LexiClass paths under the XDG base directories.
package xdg

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const (
	appName    = "lexiclass"
	configFile = "config.yaml"
)

// ConfigDir returns $XDG_CONFIG_HOME/lexiclass, falling back to
// ~/.config/lexiclass.
func ConfigDir() (string, error) {
	if base := os.Getenv("XDG_CONFIG_HOME"); base != "" {
		return filepath.Join(base, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", oops.Code("XDG_NO_HOME").Wrapf(err, "resolve config directory")
	}
	return filepath.Join(home, ".config", appName), nil
}

// ConfigFile returns the default config file path inside ConfigDir.
func ConfigFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}
