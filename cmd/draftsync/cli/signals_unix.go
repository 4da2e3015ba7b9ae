//go:build unix

package cli

import (
	"os"
	"syscall"
)

var saveSignals = []os.Signal{syscall.SIGUSR1}
