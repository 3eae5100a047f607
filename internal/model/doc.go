// Package model defines the domain types and value objects for the
// docpreview CLI.
//
// This package contains pure data structures with no external dependencies.
// A PreviewSpec describes the single container docpreview manages; it is
// built from defaults (or an optional config file) on every invocation and
// is never persisted outside of the container's own labels.
//
// The package also defines exit codes (ExitCode) and the error types
// (CLIError, ExitStatusError) that carry exit codes for proper OS process
// exit handling.
package model
