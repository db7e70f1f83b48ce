// Package app contains the application logic behind the CLI: formatting and
// validating flow text through a headless editor session, and serving a
// long-lived session with health, metrics and the remote UI bridge.
package app
