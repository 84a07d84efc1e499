/*
PURPOSE:
  Entry point for the onetrace launcher.
  Initializes the CLI root command and executes it.

REQUIREMENTS:
  User-specified:
  - Must serve as the single binary entry point.
  - Exit with the traced application's exit code.

  Implementation-discovered:
  - Uses cobra for CLI command management.

ARCHITECTURE INTEGRATION:
  - Calls: internal/cli.Execute()
  - Depends on: internal/cli package

ERROR HANDLING:
  - Application exit codes are passed through unchanged.
  - Other errors print "Error: ..." and exit 1.

IMPLEMENTATION RULES:
  - Critical: Keep main() minimal. All logic belongs in internal/ packages.

USAGE:
  go build -o onetrace ./cmd/onetrace
  ./onetrace [options] <application> <args>

RELATED FILES:
  - internal/cli/root.go - The actual root command definition.
*/

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/daryltucker/onetrace/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
