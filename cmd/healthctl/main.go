// Package main provides the healthctl command line entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/lllypuk/healthd/internal/cli"
)

func main() {
	root := cli.NewRootCmd(cli.Options{})

	if err := root.ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, cli.ErrDegraded) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}
