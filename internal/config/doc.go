// Package config provides simple, local-first configuration management for Switchyard.
//
// This package implements a minimal configuration system that focuses on
// simplicity. All configuration is stored locally in the project's
// .switchyard/ directory.
//
// Configuration File Structure:
//
//	.switchyard/
//	├── config.json        # Main configuration (committed to git)
//	└── .gitignore         # Smart defaults for what to ignore
//
// The config.json file contains simple key-value settings:
//
//	{
//	  "accent_color": "205",
//	  "markdown_theme": "dracula",
//	  "verbose": false,
//	  "progress": true,
//	  "top_level": 1000
//	}
//
// Environment Variable Support:
//
// Configuration values can reference environment variables using $VAR or ${VAR} syntax:
//
//	{
//	  "markdown_theme": "${SWITCHYARD_THEME}",
//	  "accent_color": "$SWITCHYARD_ACCENT"
//	}
//
// Design Philosophy:
//
// - Local-first: Everything lives in the project directory
// - Simple: Single JSON file, no complex hierarchies
// - Smart defaults: Works out of the box
// - Git-friendly: Includes sensible .gitignore patterns
// - YAGNI: Only implements what's actually needed
//
// Example usage:
//
//	manager := config.NewManager("/path/to/project")
//	if err := manager.Load(); err != nil {
//		log.Fatal(err)
//	}
//
//	cfg := manager.Get()
//	fmt.Println("Markdown theme:", cfg.MarkdownTheme)
//
//	// Update a setting
//	manager.Set("verbose", "true")
package config
