// Command ratings acquires critic and player ratings for catalogue games and
// serves the results over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/tbourn/go-ratings-pipeline/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := cli.New(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
