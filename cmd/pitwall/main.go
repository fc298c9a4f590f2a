package main

import (
	"fmt"
	"os"
)

// Version and BuildDate can be set at build time via ldflags
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
)

// ServiceName names the log file, the OTel resource and the status instance.
const ServiceName = "pitwall"

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "pitwall:", err)
		os.Exit(1)
	}
}
