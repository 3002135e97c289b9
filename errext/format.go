package errext

import (
	"errors"
)

// Format formats the given error as a message and a map of fields. The hint
// and the exit code of the error, if any, become fields.
func Format(err error) (string, map[string]interface{}) {
	if err == nil {
		return "", nil
	}

	fields := make(map[string]interface{})
	if hint := Hint(err); hint != "" {
		fields["hint"] = hint
	}
	var ecerr HasExitCode
	if errors.As(err, &ecerr) {
		fields["exitCode"] = int(ecerr.ExitCode())
	}

	return err.Error(), fields
}
