// Package config loads, normalizes, and validates dgcat's TOML configuration.
//
// A config file is optional; Load falls back to repository defaults when the
// resolved path does not exist. Paths are expanded (~ and relative segments)
// during normalization so downstream packages always receive absolute paths.
package config
