// Package config defines the application configuration: where element
// metadata and flow text live, editor tuning, logging and the optional
// health and bridge endpoints.
//
// A Config starts from Default, is overlaid by an optional YAML file and then
// by command-line flags, and is checked with Validate before use.
package config
