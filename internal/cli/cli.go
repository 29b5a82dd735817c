// Package cli contains terminal output helpers shared by all commands.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Stderr is the stream fatal errors are printed to. Tests replace it to
// capture output.
var Stderr io.Writer = os.Stderr

var errorPrefix = color.New(color.FgRed).Sprint("ERROR:")

// Error prints a single red-prefixed error line to the error stream.
// Callers exit with a non-zero status afterwards; this function only
// renders.
func Error(err error) {
	fmt.Fprintf(Stderr, "%s %v\n", errorPrefix, err)
}
