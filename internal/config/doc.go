// Package config loads, validates, and normalizes mirrorsync configuration
// from TOML files with sensible defaults for unset values.
package config
