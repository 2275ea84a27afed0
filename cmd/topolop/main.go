package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/cordlesssteve/topolop/internal/app"
	"github.com/cordlesssteve/topolop/internal/cli"
)

func main() {
	// .env is optional and never overrides real environment variables
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := app.BuildRoot().ExecuteContext(ctx)
	switch {
	case err == nil:
	case errors.Is(err, cli.ErrIssuesFound):
		os.Exit(1)
	default:
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}
}
