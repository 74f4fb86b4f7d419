// Package config handles configuration loading, parsing, and validation
// from environment variables (TEXT2LEARN_ prefix) and an optional config.yaml.
package config
