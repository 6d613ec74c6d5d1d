// Package config loads the darling host configuration from TOML.
package config
