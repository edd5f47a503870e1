// Command rkv runs key-value, scan, lock and pipeline operations against a
// Redis-protocol server (or an in-process store) from the shell.
package main

import (
	"fmt"
	"os"
)

func main() {
	a := newApp(os.Stdout, os.Stdin)
	if err := a.execute(newRootCmd(a)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
