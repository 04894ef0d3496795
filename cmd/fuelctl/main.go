package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fuelcoach-go/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		if !cli.IsReported(err) {
			fmt.Fprintln(os.Stderr, "fuelctl:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
