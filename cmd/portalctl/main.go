// Command portalctl runs the portal's upload pipeline and settings cache
// from the command line: compress or upload a file, preview the generated
// filename, read the public settings or invalidate the shared cache.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		newPrinter(os.Stderr, colorEnabled(false)).Error("%v", err)
		os.Exit(1)
	}
}
