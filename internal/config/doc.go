// Package config loads, normalizes, and validates the TOML configuration
// shared by all darkroom services.
//
// Load resolves the file from an explicit flag path, then
// ~/.config/darkroom/config.toml, then ./darkroom.toml, falling back to
// compiled defaults when no file exists. All path fields come back expanded
// and absolute. The embedded sample config is what `darkroom config init`
// writes.
package config
