// Package config loads, normalizes, and validates the transcripter TOML
// configuration.
//
// Defaults cover every field so a missing file still yields a usable config;
// paths are tilde-expanded and made absolute, and a handful of environment
// variables act as fallbacks for values operators commonly set per shell.
package config
