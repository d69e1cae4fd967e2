// Command mcqragctl is the command-line front end for the hybrid
// question retrieval and deduplication engine.
package main

import (
	"fmt"
	"os"

	"github.com/Aman-CERP/mcqrag/cmd/mcqragctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
