// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package errors provides structured error handling for the taintlens CLI.
//
// This package defines UserError, a type that carries structured error information
// including what went wrong, why it happened, and how to fix it. It also defines
// one exit code per error kind a scan can run into.
//
// # Usage Example
//
// Creating and displaying errors:
//
//	err := errors.NewParseFailureError(
//	    "Could not parse views.py",
//	    "Unrecognized syntax at line 42",
//	    "Re-run with --skip-errors to continue past this file",
//	    underlyingErr,
//	)
//	if err != nil {
//	    errors.FatalError(err, false)
//	}
//
// # Formatted Output
//
// The Format() method provides colored terminal output:
//
//	err := errors.NewReportIoError(
//	    "Cannot write report",
//	    "Permission denied for reports/app_20260731.json",
//	    "Check the directory's write permissions",
//	    underlyingErr,
//	)
//	fmt.Fprint(os.Stderr, err.Format(false))
//	// Output (with colors):
//	// Error: Cannot write report
//	// Cause: Permission denied for reports/app_20260731.json
//	// Fix:   Check the directory's write permissions
//
// For JSON output:
//
//	jsonData := err.ToJSON()
//	json.NewEncoder(os.Stderr).Encode(jsonData)
//	// Output:
//	// {
//	//   "error": "Cannot write report",
//	//   "cause": "Permission denied for reports/app_20260731.json",
//	//   "fix": "Check the directory's write permissions",
//	//   "exit_code": 5
//	// }
//
// # Exit Codes
//
// The package defines one exit code per error kind:
//   - ExitSuccess (0): Successful execution.
//   - ExitParseFailure (1): A file's syntax tree could not be built.
//   - ExitUnsupportedDialect (2): Legacy print-statement dialect detected without --py2-support.
//   - ExitUpgradeFailure (3): The external dialect-upgrade tool returned non-zero.
//   - ExitInput (4): Invalid CLI arguments.
//   - ExitReportIoError (5): A report file could not be written.
//   - ExitInternal (10): An internal trace error escaped recovery (a bug).
package errors

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Exit codes for each error kind a scan can run into.
const (
	// ExitSuccess indicates successful execution.
	ExitSuccess = 0

	// ExitParseFailure indicates a file's syntax tree could not be built.
	ExitParseFailure = 1

	// ExitUnsupportedDialect indicates the legacy print-statement dialect
	// was detected and --py2-support was not passed.
	ExitUnsupportedDialect = 2

	// ExitUpgradeFailure indicates the external legacy-dialect upgrade
	// tool returned a non-zero exit status.
	ExitUpgradeFailure = 3

	// ExitInput indicates invalid command-line arguments.
	ExitInput = 4

	// ExitReportIoError indicates an output report file could not be written.
	ExitReportIoError = 5

	// ExitInternal indicates an unexpected internal error (a bug). Per the
	// error-handling design, InternalTraceError is recovered locally during
	// tracing and never escapes to this exit code in normal operation.
	ExitInternal = 10
)

// UserError represents an error with structured context for end users.
//
// It provides three levels of information:
//   - Message: What went wrong (user-facing error description)
//   - Cause: Why it happened (diagnostic information)
//   - Fix: How to fix it (actionable suggestion)
//
// UserError also carries an exit code for consistent CLI exit behavior
// and optionally wraps an underlying error for error chain compatibility.
type UserError struct {
	// Message describes what went wrong in user-friendly language.
	Message string

	// Cause explains why the error occurred (diagnostic information).
	Cause string

	// Fix provides an actionable suggestion on how to resolve the error.
	Fix string

	// ExitCode is the exit code that should be used when exiting due to this error.
	ExitCode int

	// Err is the underlying error that caused this error (optional).
	// This enables error wrapping and compatibility with errors.Is/As.
	Err error
}

// Error implements the error interface.
//
// It returns a simple error message string. If an underlying error is present,
// it appends that error's message for context.
func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap implements error unwrapping for compatibility with errors.Is and errors.As.
//
// It returns the underlying error, allowing standard library error inspection
// functions to work with error chains.
func (e *UserError) Unwrap() error {
	return e.Err
}

// NewParseFailureError creates a ParseFailure error with exit code ExitParseFailure.
//
// Use this when a file's syntax tree could not be built. Fatal unless
// --skip-errors is set, in which case the file is recorded as skipped and
// the run continues.
func NewParseFailureError(msg, cause, fix string, err error) *UserError {
	return &UserError{
		Message:  msg,
		Cause:    cause,
		Fix:      fix,
		ExitCode: ExitParseFailure,
		Err:      err,
	}
}

// NewUnsupportedDialectError creates an UnsupportedDialect error with exit
// code ExitUnsupportedDialect.
//
// Use this when a file is written in the legacy print-statement dialect and
// --py2-support was not passed.
func NewUnsupportedDialectError(msg, cause, fix string, err error) *UserError {
	return &UserError{
		Message:  msg,
		Cause:    cause,
		Fix:      fix,
		ExitCode: ExitUnsupportedDialect,
		Err:      err,
	}
}

// NewUpgradeFailureError creates an UpgradeFailure error with exit code
// ExitUpgradeFailure.
//
// Use this when the external legacy-dialect upgrade tool returns non-zero.
func NewUpgradeFailureError(msg, cause, fix string, err error) *UserError {
	return &UserError{
		Message:  msg,
		Cause:    cause,
		Fix:      fix,
		ExitCode: ExitUpgradeFailure,
		Err:      err,
	}
}

// NewInputError creates an input validation error with exit code ExitInput.
//
// Use this for errors related to invalid user input, such as bad command-line
// arguments or failed validation checks. Input errors typically do not wrap
// an underlying error.
//
// Example:
//
//	return NewInputError(
//	    "Invalid target",
//	    "No such file or directory",
//	    "Pass a source file or a directory containing one",
//	)
func NewInputError(msg, cause, fix string) *UserError {
	return &UserError{
		Message:  msg,
		Cause:    cause,
		Fix:      fix,
		ExitCode: ExitInput,
		Err:      nil, // Input errors typically don't wrap underlying errors
	}
}

// NewReportIoError creates a ReportIoError with exit code ExitReportIoError.
//
// Use this when a report file could not be written. Analysis itself is not
// rerun; the findings already computed are simply not persisted to disk.
func NewReportIoError(msg, cause, fix string, err error) *UserError {
	return &UserError{
		Message:  msg,
		Cause:    cause,
		Fix:      fix,
		ExitCode: ExitReportIoError,
		Err:      err,
	}
}

// NewInternalError creates an internal error with exit code ExitInternal.
//
// Use this for unexpected errors that indicate bugs in the program, such as
// assertion failures, unexpected nil values, or unhandled error cases.
// Internal errors should be reported to the maintainers.
func NewInternalError(msg, cause, fix string, err error) *UserError {
	return &UserError{
		Message:  msg,
		Cause:    cause,
		Fix:      fix,
		ExitCode: ExitInternal,
		Err:      err,
	}
}

// Color definitions for error formatting.
var (
	colorError = color.New(color.FgRed, color.Bold)
	colorCause = color.New(color.FgYellow)
	colorFix   = color.New(color.FgGreen)
)

// Format returns a formatted error message for terminal display.
//
// The output includes colored sections for Error (red/bold), Cause (yellow),
// and Fix (green). Color output respects the NO_COLOR environment variable
// and can be explicitly disabled with the noColor parameter.
//
// Example output:
//
//	Error: Could not parse views.py
//	Cause: Unrecognized syntax at line 42
//	Fix:   Re-run with --skip-errors to continue past this file
//
// Empty Cause or Fix fields are omitted from the output.
//
// Note: This method temporarily modifies the global color.NoColor state
// and restores it after formatting; concurrent calls are not safe.
func (e *UserError) Format(noColor bool) string {
	// Save and restore global color state to avoid side effects
	originalNoColor := color.NoColor
	defer func() { color.NoColor = originalNoColor }()

	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	var out strings.Builder
	out.WriteString(colorError.Sprint("Error: "))
	out.WriteString(e.Message)
	out.WriteString("\n")

	if e.Cause != "" {
		out.WriteString(colorCause.Sprint("Cause: "))
		out.WriteString(e.Cause)
		out.WriteString("\n")
	}

	if e.Fix != "" {
		out.WriteString(colorFix.Sprint("Fix:   "))
		out.WriteString(e.Fix)
		out.WriteString("\n")
	}

	return out.String()
}

// ErrorJSON represents error information in JSON format.
//
// This structure is suitable for machine consumption and integrates with
// CLI commands that support --json output mode.
type ErrorJSON struct {
	Error    string `json:"error"`
	Cause    string `json:"cause,omitempty"`
	Fix      string `json:"fix,omitempty"`
	ExitCode int    `json:"exit_code"`
}

// ToJSON converts the UserError to a JSON-serializable structure.
//
// Fields with empty values (Cause, Fix) are omitted from JSON output
// using the omitempty tag. This keeps JSON output clean when additional
// context is not available.
func (e *UserError) ToJSON() ErrorJSON {
	return ErrorJSON{
		Error:    e.Message,
		Cause:    e.Cause,
		Fix:      e.Fix,
		ExitCode: e.ExitCode,
	}
}

// FatalError prints the error and exits with the appropriate code.
//
// If the error is a UserError, it uses Format() for colored output or
// ToJSON() for JSON mode. For non-UserError types, it prints a simple
// error message and exits with ExitInternal.
//
// This function never returns - it always calls os.Exit().
//
// Usage:
//
//	if err := doSomething(); err != nil {
//	    errors.FatalError(err, jsonMode)
//	}
func FatalError(err error, jsonOutput bool) {
	if err == nil {
		return
	}

	if ue, ok := err.(*UserError); ok {
		if jsonOutput {
			enc := json.NewEncoder(os.Stderr)
			enc.SetIndent("", "  ")
			// Encode error is intentionally ignored since we're about to exit.
			// If JSON encoding fails, the program will still exit with the correct code.
			_ = enc.Encode(ue.ToJSON())
		} else {
			fmt.Fprint(os.Stderr, ue.Format(false))
		}
		os.Exit(ue.ExitCode)
	}

	// Fallback for non-UserError
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(ExitInternal)
}
