package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xpomul/workspacefs/internal/util"
	"gopkg.in/yaml.v3"
)

// Default configuration constants. See [Config] and [NamingOptions] for field descriptions.
const (
	DefaultLogLvl = util.InfoLevel

	DefaultMaxDisplayLen     = 30
	DefaultMaxNameLen        = 255
	DefaultCaseInsensitive   = false
	DefaultFileName          = "Untitled"
	DefaultFileExt           = ".txt"
	DefaultFolderName        = "Untitled"
	DefaultConfirmDelete     = true
	DefaultConfirmListMax    = 10
	DefaultWatchRoots        = true
	DefaultDecorationTTL     = 300.0
	DefaultWorkspaceFileName = ".theia-workspace"
)

// CLI verbosity values accepted by [ConfigOverride.LogLvl]
const (
	ErrorVerbose = iota + 1
	WarnVerbose
	InfoVerbose
	DebugVerbose
	TraceVerbose
)

// Config contains runtime configuration values for the workspace commands.
type Config struct {
	NamingOptions
	LogLvl         util.LogLevel
	ConfirmDelete  bool    // Ask before deleting files and removing roots (Default true)
	ConfirmListMax int     // Maximum entries listed in a confirmation message (Default 10)
	WatchRoots     bool    // Watch workspace roots on disk for changes (Default true)
	DecorationTTL  float64 // Seconds a change decoration stays visible (Default 300)
}

// ConfigOverride uses pointer fields to distinguish between unset and zero values
// when loading partial configuration. See [Config] for field descriptions.
type ConfigOverride struct {
	// LogLvl is a verbosity between 1 (error) and 5 (trace)
	LogLvl            *int     `yaml:"log_lvl,omitempty" json:"log_lvl,omitempty"`
	MaxDisplayLen     *int     `yaml:"max_display_len,omitempty" json:"max_display_len,omitempty"`
	MaxNameLen        *int     `yaml:"max_name_len,omitempty" json:"max_name_len,omitempty"`
	CaseInsensitive   *bool    `yaml:"case_insensitive,omitempty" json:"case_insensitive,omitempty"`
	DefaultFileName   *string  `yaml:"default_file_name,omitempty" json:"default_file_name,omitempty"`
	DefaultFileExt    *string  `yaml:"default_file_ext,omitempty" json:"default_file_ext,omitempty"`
	DefaultFolderName *string  `yaml:"default_folder_name,omitempty" json:"default_folder_name,omitempty"`
	ConfirmDelete     *bool    `yaml:"confirm_delete,omitempty" json:"confirm_delete,omitempty"`
	ConfirmListMax    *int     `yaml:"confirm_list_max,omitempty" json:"confirm_list_max,omitempty"`
	WatchRoots        *bool    `yaml:"watch_roots,omitempty" json:"watch_roots,omitempty"`
	DecorationTTL     *float64 `yaml:"decoration_ttl,omitempty" json:"decoration_ttl,omitempty"`
}

// NewDefaultConfig creates a new Config with all default values.
func NewDefaultConfig() *Config {
	return &Config{
		NamingOptions: NamingOptions{
			MaxDisplayLen:     DefaultMaxDisplayLen,
			MaxNameLen:        DefaultMaxNameLen,
			CaseInsensitive:   DefaultCaseInsensitive,
			DefaultFileName:   DefaultFileName,
			DefaultFileExt:    DefaultFileExt,
			DefaultFolderName: DefaultFolderName,
		},
		LogLvl:         DefaultLogLvl,
		ConfirmDelete:  DefaultConfirmDelete,
		ConfirmListMax: DefaultConfirmListMax,
		WatchRoots:     DefaultWatchRoots,
		DecorationTTL:  DefaultDecorationTTL,
	}
}

// NewConfig creates a default Config with override applied. A nil override
// yields the defaults
func NewConfig(override *ConfigOverride) *Config {
	cfg := NewDefaultConfig()
	if override != nil {
		cfg.Merge(override)
	}
	return cfg
}

// Merge applies non-nil values from override onto this Config.
// This allows partial configuration updates while preserving existing values.
func (c *Config) Merge(override *ConfigOverride) {
	if override.LogLvl != nil {
		c.LogLvl = util.VerboseToLevel(*override.LogLvl)
	}
	if override.MaxDisplayLen != nil {
		c.MaxDisplayLen = *override.MaxDisplayLen
	}
	if override.MaxNameLen != nil {
		c.MaxNameLen = *override.MaxNameLen
	}
	if override.CaseInsensitive != nil {
		c.CaseInsensitive = *override.CaseInsensitive
	}
	if override.DefaultFileName != nil {
		c.DefaultFileName = *override.DefaultFileName
	}
	if override.DefaultFileExt != nil {
		c.DefaultFileExt = *override.DefaultFileExt
	}
	if override.DefaultFolderName != nil {
		c.DefaultFolderName = *override.DefaultFolderName
	}
	if override.ConfirmDelete != nil {
		c.ConfirmDelete = *override.ConfirmDelete
	}
	if override.ConfirmListMax != nil {
		c.ConfirmListMax = *override.ConfirmListMax
	}
	if override.WatchRoots != nil {
		c.WatchRoots = *override.WatchRoots
	}
	if override.DecorationTTL != nil {
		c.DecorationTTL = *override.DecorationTTL
	}
}

// Validate reports configuration values that cannot work
func (c *Config) Validate() error {
	if c.MaxDisplayLen < 1 {
		return fmt.Errorf("max_display_len must be positive, got %d", c.MaxDisplayLen)
	}
	if c.MaxNameLen < 1 {
		return fmt.Errorf("max_name_len must be positive, got %d", c.MaxNameLen)
	}
	if c.DefaultFileName == "" || c.DefaultFolderName == "" {
		return fmt.Errorf("default file and folder names must not be empty")
	}
	if c.DefaultFileExt != "" && !strings.HasPrefix(c.DefaultFileExt, ".") {
		return fmt.Errorf("default_file_ext must start with '.', got %q", c.DefaultFileExt)
	}
	if c.DecorationTTL < 0 {
		return fmt.Errorf("decoration_ttl must not be negative")
	}
	return nil
}

// LoadConfigOverrideFile loads configuration overrides from a file without merging.
// Supports both YAML (.yaml, .yml) and JSON (.json) formats.
func LoadConfigOverrideFile(path string) (*ConfigOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var override ConfigOverride

	// Determine format by file extension
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config file extension: %s", path)
	}

	return &override, nil
}

// NewConfigFromFile creates a new Config by merging file overrides with defaults.
// This is a convenience function that combines NewDefaultConfig, LoadConfigOverrideFile, and Merge.
func NewConfigFromFile(path string) (*Config, error) {
	override, err := LoadConfigOverrideFile(path)
	if err != nil {
		return nil, err
	}
	return NewConfig(override), nil
}
