package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/happyhackingspace/cryptohmm/hmm"
)

const yamlConfig = `
results: out
train:
  states: 3
  keep_space: true
  min_iterations: 10
  max_iterations: 20
  improvement_threshold: 0.5
  band: {min: 1, max: 2}
crack:
  restarts: [1, 5]
  lengths: [300]
  workers: 2
  seed: 99
  smoothing: 0.5
  min_iterations: 50
  max_iterations: 60
  improvement_threshold: 0.001
  band: {min: 45, max: 55}
`

const tomlConfig = `
results = "out"

[train]
states = 3
keep_space = true
min_iterations = 10
max_iterations = 20
improvement_threshold = 0.5
band = { min = 1.0, max = 2.0 }

[crack]
restarts = [1, 5]
lengths = [300]
workers = 2
seed = 99
smoothing = 0.5
min_iterations = 50
max_iterations = 60
improvement_threshold = 0.001

[crack.band]
min = 45.0
max = 55.0
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestLoadFormats(t *testing.T) {
	fromYAML, err := Load(writeConfig(t, "config.yaml", yamlConfig))
	if err != nil {
		t.Fatal(err)
	}
	fromTOML, err := Load(writeConfig(t, "config.toml", tomlConfig))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(fromYAML, fromTOML) {
		t.Errorf("YAML and TOML differ:\n%+v\n%+v", fromYAML, fromTOML)
	}

	want := hmm.TrainerConfig{MinIterations: 10, MaxIterations: 20, ImprovementThreshold: 0.5, Band: hmm.Band{Min: 1, Max: 2}}
	if got := fromYAML.Train.TrainerConfig(); !reflect.DeepEqual(got, want) {
		t.Errorf("train trainer = %+v, want %+v", got, want)
	}
	if fromYAML.Crack.Seed != 99 || !reflect.DeepEqual(fromYAML.Crack.Restarts, []int{1, 5}) {
		t.Errorf("crack = %+v", fromYAML.Crack)
	}
}

func TestLoadKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "partial.yml", "crack:\n  workers: 4\n"))
	if err != nil {
		t.Fatal(err)
	}
	want := Default()
	want.Crack.Workers = 4
	if !reflect.DeepEqual(cfg, want) {
		t.Errorf("got %+v, want %+v", cfg, want)
	}

	cfg, err = Load(writeConfig(t, "empty.yaml", ""))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("empty file: got %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name, content string
	}{
		{"unknown.yaml", "crack:\n  restart: [1]\n"},
		{"unknown.toml", "[crack]\nrestart = [1]\n"},
		{"config.json", "{}"},
		{"invalid.yaml", "train:\n  states: 0\n"},
		{"badband.toml", "[crack.band]\nmin = 5.0\nmax = 1.0\n"},
	}
	for _, tt := range tests {
		if _, err := Load(writeConfig(t, tt.name, tt.content)); err == nil {
			t.Errorf("Load(%s) succeeded", tt.name)
		}
	}

	_, err := Load(writeConfig(t, "zero.yaml", "crack:\n  restarts: [0]\n"))
	if !errors.Is(err, hmm.ErrInvalidConfiguration) {
		t.Errorf("zero restarts: error = %v", err)
	}
}

func TestPathFromEnv(t *testing.T) {
	path := writeConfig(t, "custom.toml", "results = \"elsewhere\"\n")
	t.Setenv(EnvVar, path)
	if got := Path(); got != path {
		t.Errorf("Path() = %q, want %q", got, path)
	}
	cfg, got, err := LoadDefault()
	if err != nil {
		t.Fatal(err)
	}
	if got != path || cfg.Results != "elsewhere" {
		t.Errorf("LoadDefault() = %q, %q", cfg.Results, got)
	}
}

func TestPathUserConfigDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv(EnvVar, "")
	t.Setenv("XDG_CONFIG_HOME", home)
	t.Setenv("HOME", home)
	t.Setenv("AppData", home)

	dir, err := os.UserConfigDir()
	if err != nil {
		t.Skip(err)
	}
	if got := Path(); got != "" {
		t.Errorf("Path() = %q with no config file", got)
	}
	if err := os.MkdirAll(filepath.Join(dir, "cryptohmm"), 0755); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, "cryptohmm", "config.toml")
	if err := os.WriteFile(want, []byte("results = \"r\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if got := Path(); got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
}
