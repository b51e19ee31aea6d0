// Command afiq is a grounded Q&A tool over AFI/DAFI regulatory documents.
package main

import (
	"os"

	"github.com/afiq-labs/afiq-cli/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
