// Package cli is responsible for parsing command-line arguments, validating
// user input, and handling process-level concerns like exit codes. It
// translates flags and the optional config file into config.Config and runs
// the matching app operation.
package cli
