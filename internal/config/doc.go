// Package config defines the typed application configuration and loads it
// from environment variables (VOXNOTE_ prefix) and an optional YAML file,
// validating the result at startup.
package config
