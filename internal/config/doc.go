// Package config loads, normalizes, and validates the TOML configuration
// for the subclip daemon and CLI.
//
// Configuration is read from an explicit --config path or from
// ~/.config/subclip/config.toml, falling back to repository defaults when
// no file exists. All path fields are tilde-expanded and made absolute
// before use.
package config
