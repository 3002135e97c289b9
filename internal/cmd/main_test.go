package cmd

import (
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	// the pipe behind the logrus writer of the standard logger is closed
	// asynchronously when the loggers stop
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("io.(*pipe).read"))
}
