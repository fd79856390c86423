package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Config represents the Switchyard configuration
type Config struct {
	// Terminal appearance
	AccentColor   string `json:"accent_color"`
	MarkdownTheme string `json:"markdown_theme"`

	// Output behavior
	Verbose  bool `json:"verbose"`
	Progress bool `json:"progress"`

	// Scheduling
	TopLevel int `json:"top_level"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		AccentColor:   "205",
		MarkdownTheme: "dracula",
		Verbose:       false,
		Progress:      true,
		TopLevel:      1000, // root sessions outrank every spawned child
	}
}

// Manager handles configuration loading and saving
type Manager struct {
	projectPath string
	configPath  string
	config      *Config
}

// NewManager creates a new configuration manager
func NewManager(projectPath string) *Manager {
	dataDir := filepath.Join(projectPath, ".switchyard")
	return &Manager{
		projectPath: projectPath,
		configPath:  filepath.Join(dataDir, "config.json"),
		config:      DefaultConfig(),
	}
}

// Load reads the configuration from disk, creating defaults if needed
func (m *Manager) Load() error {
	// Ensure .switchyard directory exists
	dataDir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create .switchyard directory: %w", err)
	}

	// Create .gitignore if it doesn't exist
	if err := m.ensureGitignore(); err != nil {
		return fmt.Errorf("failed to create .gitignore: %w", err)
	}

	// Check if config file exists
	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		// Create default config
		return m.Save()
	}

	// Read existing config
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse config JSON: %w", err)
	}

	// Expand environment variables
	if err := m.expandEnvVars(&config); err != nil {
		return fmt.Errorf("failed to expand environment variables: %w", err)
	}

	m.config = &config
	return nil
}

// Save writes the current configuration to disk
func (m *Manager) Save() error {
	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Get returns the current configuration
func (m *Manager) Get() *Config {
	return m.config
}

// Set updates a configuration value and saves
func (m *Manager) Set(key, value string) error {
	switch key {
	case "accent_color":
		m.config.AccentColor = value
	case "markdown_theme":
		m.config.MarkdownTheme = value
	case "verbose":
		m.config.Verbose = value == "true"
	case "progress":
		m.config.Progress = value == "true"
	case "top_level":
		level, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("top_level must be an integer: %w", err)
		}
		m.config.TopLevel = level
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}

	return m.Save()
}

// ensureGitignore creates a .gitignore in .switchyard/ with smart defaults
func (m *Manager) ensureGitignore() error {
	gitignorePath := filepath.Join(filepath.Dir(m.configPath), ".gitignore")

	// Check if .gitignore already exists
	if _, err := os.Stat(gitignorePath); !os.IsNotExist(err) {
		return nil // Already exists
	}

	gitignoreContent := `# Switchyard data directory .gitignore
#
# This file controls what gets committed to git from your .switchyard/ directory
# By default, we commit config but ignore logs, cache, and temporary files

# Ignore logs and temporary files
*.log
*.tmp
.DS_Store
Thumbs.db

# Ignore cache directories
cache/
temp/
tmp/

# Allow these important files
!config.json
!.gitignore

# Scenario recordings are up to you - uncomment to ignore:
# scenarios/
`

	return os.WriteFile(gitignorePath, []byte(gitignoreContent), 0o644)
}

// expandEnvVars expands environment variables in config values
func (m *Manager) expandEnvVars(config *Config) error {
	config.AccentColor = m.expandString(config.AccentColor)
	config.MarkdownTheme = m.expandString(config.MarkdownTheme)
	return nil
}

// expandString expands environment variables in a string
// Supports $VAR and ${VAR} syntax
func (m *Manager) expandString(s string) string {
	// Regular expression to match $VAR or ${VAR}
	re := regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			// ${VAR} format
			varName = match[2 : len(match)-1]
		} else {
			// $VAR format
			varName = match[1:]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}

		// Return original if env var not found
		return match
	})
}
