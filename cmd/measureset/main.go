// Command measureset catalogues measurement files and extracts grouped
// numeric data from them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp(os.Stdout).Command().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "measureset: %v\n", err)
		stop()
		os.Exit(1)
	}
}
