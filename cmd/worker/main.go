// Package main is the sandbox worker binary.
//
// The worker services exactly one execution job: it reads a JSON job from
// stdin, applies an address-space rlimit, runs the analysis code on an
// embedded interpreter and writes a JSON result to stdout. The server's
// process sandbox backend launches one worker per query.
package main

import (
	"fmt"
	"os"

	"github.com/isdmx/querybox/sandbox"
)

func main() {
	if err := sandbox.RunWorker(os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "worker:", err)
		os.Exit(1)
	}
}
