//go:build !unix

package cli

import "os"

var saveSignals []os.Signal
