package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Status line helpers shared by install, start, stop and auth. Same register
// as the verify console sink: a colored bracket tag, then the message.

func okf(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", color.GreenString("[ OK ]"), fmt.Sprintf(format, args...))
}

func warnf(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", color.YellowString("[WARN]"), fmt.Sprintf(format, args...))
}

func failf(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", color.RedString("[FAIL]"), fmt.Sprintf(format, args...))
}
