package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and file locations.
type Paths struct {
	LogDir      string `toml:"log_dir"`
	HistoryPath string `toml:"history_path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Queue          bool   `toml:"queue"`
	Errors         bool   `toml:"errors"`
}

// History controls the SQLite run history.
type History struct {
	Enabled   bool `toml:"enabled"`
	ListLimit int  `toml:"list_limit"`
}

// Driver tunes queue driver behavior.
type Driver struct {
	// ObserveExceptions subscribes the driver to unit faults so they are
	// reported as EXCEPTION changes instead of propagating to the caller.
	ObserveExceptions bool `toml:"observe_exceptions"`
	// Preflight checks unit directories before the first unit starts.
	Preflight bool `toml:"preflight"`
}

// QueueEntry names one unit of the default queue.
type QueueEntry struct {
	Kind    string `toml:"kind"`
	Section string `toml:"section"`
}

// Config encapsulates all configuration values for batchproc.
type Config struct {
	Paths         Paths                     `toml:"paths"`
	Logging       Logging                   `toml:"logging"`
	Notifications Notifications             `toml:"notifications"`
	History       History                   `toml:"history"`
	Driver        Driver                    `toml:"driver"`
	Queue         []QueueEntry              `toml:"queue"`
	Jobs          map[string]map[string]any `toml:"jobs"`
}

// ErrSectionNotFound is returned when a named job section is missing.
var ErrSectionNotFound = errors.New("settings section not found")

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. It returns the
// resolved path and whether a file existed there; defaults are used when not.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{defaultPath, projectPath} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

// Section returns a copy of the named [jobs.<name>] table.
func (c *Config) Section(name string) (map[string]any, error) {
	name = strings.TrimSpace(name)
	section, ok := c.Jobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSectionNotFound, name)
	}
	out := make(map[string]any, len(section))
	for k, v := range section {
		out[k] = v
	}
	return out, nil
}

// SectionNames lists the configured job sections in sorted order.
func (c *Config) SectionNames() []string {
	names := make([]string, 0, len(c.Jobs))
	for name := range c.Jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EnsureDirectories creates the directories batchproc writes to.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LogDir}
	if c.History.Enabled {
		dirs = append(dirs, filepath.Dir(c.Paths.HistoryPath))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath is the single-instance lock taken by queue runs.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "batchproc.lock")
}

// Encode renders the config, or one job section when name is set, as TOML.
func (c *Config) Encode(name string) ([]byte, error) {
	if name == "" {
		return toml.Marshal(c)
	}
	section, err := c.Section(name)
	if err != nil {
		return nil, err
	}
	return toml.Marshal(map[string]any{"jobs": map[string]any{name: section}})
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
