// ABOUTME: UI preference loading for the parley client
// ABOUTME: Loads optional TOML prefs from the XDG config path

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Prefs holds cosmetic preferences that live outside the main config:
// losing this file never changes what the client does, only how it looks.
type Prefs struct {
	UI     UIPrefs     `toml:"ui"`
	Export ExportPrefs `toml:"export"`
}

type UIPrefs struct {
	Prompt string `toml:"prompt"`
	Color  bool   `toml:"color"`
}

type ExportPrefs struct {
	Dir string `toml:"dir"`
}

// getPrefsPath returns the path to the prefs file.
// Priority: XDG_CONFIG_HOME/parley/prefs.toml > ~/.config/parley/prefs.toml
func getPrefsPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "prefs.toml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "parley", "prefs.toml")
}

// loadPrefs reads prefs from the given path. A missing file yields defaults.
func loadPrefs(path string) (*Prefs, error) {
	prefs := defaultPrefs()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return prefs, nil
		}
		return nil, fmt.Errorf("reading prefs file: %w", err)
	}

	if _, err := toml.Decode(string(data), prefs); err != nil {
		return nil, fmt.Errorf("parsing prefs: %w", err)
	}
	if prefs.UI.Prompt == "" {
		prefs.UI.Prompt = "> "
	}
	return prefs, nil
}

func defaultPrefs() *Prefs {
	return &Prefs{
		UI:     UIPrefs{Prompt: "> ", Color: true},
		Export: ExportPrefs{},
	}
}
