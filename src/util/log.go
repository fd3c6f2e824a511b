package util

import (
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

// verbosity maps Options.Verbose onto a commonlog verbosity level: 0 is
// quiet (errors only), 1 surfaces per-pass informational messages.
func verbosity(opt Options) int {
	if opt.Verbose {
		return 1
	}
	return 0
}

// ConfigureLog sets up process-wide structured logging. Must be called once
// before any Log call.
func ConfigureLog(opt Options) {
	commonlog.Configure(verbosity(opt), nil)
}

// Log returns the named logger for a pipeline stage, e.g. "rc", "lower",
// "cache".
func Log(name string) commonlog.Logger {
	return commonlog.GetLogger("lowerc." + name)
}
