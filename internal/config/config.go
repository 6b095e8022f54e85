package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// MinAutosaveInterval is the lower bound enforced on the autosave period.
const MinAutosaveInterval = 3 * time.Second

// Storage backends for local state.
const (
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
)

// Config holds application configuration.
type Config struct {
	// RemoteURL is the endpoint of the remote page repository (task protocol).
	RemoteURL string `json:"remote_url,omitempty"`

	// DefaultParent is the parent route given to new drafts.
	DefaultParent string `json:"default_parent,omitempty"`

	// AutosaveInterval is the autosave period in seconds. Values below 3 are raised to 3.
	AutosaveInterval int `json:"autosave_interval,omitempty"`

	// DefaultPublished is the initial published flag of new drafts.
	DefaultPublished bool `json:"default_published,omitempty"`

	// ConflictPrefix is prepended to the title of duplicated pages (reference repository).
	ConflictPrefix string `json:"conflict_prefix,omitempty"`

	// RequestTimeout bounds a single remote request, in seconds.
	RequestTimeout int `json:"request_timeout,omitempty"`

	// OnlineCheckInterval is the connectivity probe period in seconds.
	OnlineCheckInterval int `json:"online_check_interval,omitempty"`

	// StorageBackend selects the local state backend: "sqlite" (default) or "bolt".
	StorageBackend string `json:"storage_backend,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DefaultParent:       "/",
		AutosaveInterval:    8,
		ConflictPrefix:      "(copy)",
		RequestTimeout:      15,
		OnlineCheckInterval: 30,
		StorageBackend:      BackendSQLite,
		LogLevel:            "info",
	}
}

// AutosaveDuration returns the autosave period with the minimum bound applied.
func (c *Config) AutosaveDuration() time.Duration {
	d := time.Duration(c.AutosaveInterval) * time.Second
	if d < MinAutosaveInterval {
		return MinAutosaveInterval
	}
	return d
}

// RequestTimeoutDuration returns the per-request timeout.
func (c *Config) RequestTimeoutDuration() time.Duration {
	if c.RequestTimeout <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.RequestTimeout) * time.Second
}

// OnlineCheckDuration returns the connectivity probe period.
func (c *Config) OnlineCheckDuration() time.Duration {
	if c.OnlineCheckInterval <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.OnlineCheckInterval) * time.Second
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.miniwriter.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.miniwriter) and site (.miniwriter) directories.
// The site config is found by walking upward from startDir to find the nearest .miniwriter/config.json.
// Site config takes precedence for scalar values; arrays are merged (deduplicated).
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .miniwriter/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".miniwriter", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		RemoteURL:      pickString(base.RemoteURL, overlay.RemoteURL),
		DefaultParent:  pickString(base.DefaultParent, overlay.DefaultParent),
		ConflictPrefix: pickString(base.ConflictPrefix, overlay.ConflictPrefix),
		StorageBackend: pickString(base.StorageBackend, overlay.StorageBackend),
		LogLevel:       pickString(base.LogLevel, overlay.LogLevel),

		AutosaveInterval:    pickInt(base.AutosaveInterval, overlay.AutosaveInterval),
		RequestTimeout:      pickInt(base.RequestTimeout, overlay.RequestTimeout),
		OnlineCheckInterval: pickInt(base.OnlineCheckInterval, overlay.OnlineCheckInterval),
		DBMaxOpenConns:      pickInt(base.DBMaxOpenConns, overlay.DBMaxOpenConns),
		DBMaxIdleConns:      pickInt(base.DBMaxIdleConns, overlay.DBMaxIdleConns),

		// Booleans: overlay wins if true, else base
		DefaultPublished: base.DefaultPublished || overlay.DefaultPublished,
	}

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func pickString(base, overlay string) string {
	if strings.TrimSpace(overlay) != "" {
		return strings.TrimSpace(overlay)
	}
	return base
}

func pickInt(base, overlay int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
