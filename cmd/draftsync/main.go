// Package main is the entry point for draftsync, the command line editor
// companion of the blog API.
package main

import (
	"context"
	"os"

	"github.com/jsamuelsen/blogdraft/cmd/draftsync/cli"
)

// Build-time variables, injected via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := cli.NewRootCmd(Version, Commit).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
