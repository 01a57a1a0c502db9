package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/cryptocloud/internal/client/cli"
	"github.com/dmitrijs2005/cryptocloud/internal/client/config"
)

func main() {
	cfg, args, err := config.Load(os.Args[1:], os.LookupEnv)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	app, err := cli.NewApp(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		app.Close()
		os.Exit(1)
	}
}
