// Command pdfwm stamps a size-matched watermark onto every page of every PDF
// in a directory.
package main

import (
	"fmt"
	"os"

	"github.com/benedoc-inc/pdfwm/cmd/pdfwm/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
