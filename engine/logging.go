package engine

import (
	"fmt"
	"io"
	"os"
)

// logWriter is the destination for Logf output; nil falls back to
// os.Stdout. Grounded on pthm-soup/game/logging.go's SetLogWriter/Logf
// pair - a host program redirects engine diagnostics without the hot
// path ever hardcoding fmt.Println.
var logWriter io.Writer = os.Stdout

// SetLogWriter redirects Logf's output. Passing nil restores os.Stdout.
func SetLogWriter(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	logWriter = w
}

// Logf writes one formatted diagnostic line. Never called from inside a
// block worker - within this package only PerfStats.LogReport calls it -
// and it takes no lock of its own.
func Logf(format string, args ...interface{}) {
	fmt.Fprintln(logWriter, fmt.Sprintf(format, args...))
}
