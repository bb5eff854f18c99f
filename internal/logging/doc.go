// Package logging provides a simple leveled logging interface for gifmaker.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information, including raw engine output
//   - INFO: General operational messages
//   - WARN: Warning conditions, including swallowed cleanup failures
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable
// (DEBUG=true forces debug) and can be overridden with SetLevel.
package logging
