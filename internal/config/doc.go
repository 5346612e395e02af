// Package config loads, normalizes, and validates the TOML configuration.
//
// Load resolves the config file location, fills unset fields from defaults,
// expands ~ and relative paths to absolute ones, and fails fast on
// misconfiguration so stage code never re-checks settings.
package config
