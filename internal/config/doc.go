// Package config loads, normalizes, and validates riffle's TOML
// configuration.
//
// Settings resolve in order: built-in defaults, then the config file
// (~/.config/riffle/config.toml, a ./riffle.toml fallback, or an explicit
// path). Path fields are tilde-expanded and made absolute during
// normalization, so consumers never re-resolve them.
package config
