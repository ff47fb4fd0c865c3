package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileName is the conventional name of the project config file. Load
// reads only the path it is given; no directory search is done.
const FileName = ".vync.yaml"

// Config is the parsed contents of .vync.yaml. The vync CLI does not
// call Load; its commands take these settings from their own flags.
type Config struct {
	// Server controls `vync serve`.
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	// ObjectCache controls the bytecode cache `vync run` consults
	// before recompiling. An empty DSN uses the in-process LRU
	// cache; a redis:// DSN shares the cache across processes.
	ObjectCache struct {
		DSN string `yaml:"dsn"`
	} `yaml:"object_cache"`

	// History controls where `vync history` persists past compilations.
	// An empty DSN opens Path as a local SQLite file.
	History struct {
		DSN  string `yaml:"dsn"`
		Path string `yaml:"path"`
	} `yaml:"history"`

	// Watch controls `vync watch`'s debounce window, in milliseconds.
	Watch struct {
		DebounceMs int `yaml:"debounce_ms"`
	} `yaml:"watch"`

	// Verbose turns on per-phase timing output for every command.
	Verbose bool `yaml:"verbose"`
}

// Default returns the configuration vync runs with when no
// .vync.yaml is present.
func Default() Config {
	c := Config{}
	c.Server.Port = DefaultPort
	c.History.Path = ".vync/history.db"
	c.Watch.DebounceMs = 200
	return c
}

// Load reads and parses path, falling back to Default() if the file
// does not exist.
func Load(path string) (Config, error) {
	c := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return c, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parsing %s: %w", path, err)
	}
	return c, nil
}
