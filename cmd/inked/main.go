// Command inked serves and manages a fountain pen and ink collection.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "inked:", err)
		os.Exit(1)
	}
}
