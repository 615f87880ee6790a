// Command neko runs the neko-object content-addressable object store.
package main

import (
	"fmt"
	"os"

	"github.com/nekostore/neko-object/cmd/neko/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
