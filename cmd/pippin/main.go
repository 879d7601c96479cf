package main

import (
	"context"
	"os"
	"os/signal"
	"pippin/internal/bootstrap"
	"pippin/internal/cli"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	code := cli.New(cli.Params{
		Run:    bootstrap.Run,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}).Execute(ctx, os.Args[1:])

	stop()
	os.Exit(code)
}
