// Command oppctl inspects and tunes the CPU operating point table of a
// running kernel, or of a simulated one.
//
//	oppctl info --pretty
//	oppctl set clock_khz 1804800
//	oppctl apply boost.yaml
//	oppctl serve --listen 127.0.0.1:8086
package main

import (
	"github.com/tebeka/atexit"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}
