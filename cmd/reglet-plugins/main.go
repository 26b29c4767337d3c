// Command reglet-plugins manages the plugins installed for a reglet host.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/reglet-dev/reglet-plugin-registry/plugin/factory"
)

func main() {
	root := newRootCommand(factory.NewRegistry(), NewTerminalPrompter())
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
