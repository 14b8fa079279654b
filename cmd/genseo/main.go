// Command genseo runs SEO missions from the command line or as an HTTP
// service.
package main

import (
	"fmt"
	"os"

	"github.com/salekh/genseo-workshop/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
