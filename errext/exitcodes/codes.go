// Package exitcodes contains the constants representing possible stylemap exit codes.
package exitcodes

// ExitCode is just a type representing a process exit code for stylemap
type ExitCode uint8

// list of exit codes used by stylemap
const (
	BuildFailed   ExitCode = 103
	InvalidConfig ExitCode = 104
	ExternalAbort ExitCode = 105
	GoPanic       ExitCode = 106
)
