package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shandysiswandi/pkitotp/internal/tools/seedctl"
)

func main() {
	if len(os.Args) < 2 {
		exitf("usage: seedctl <keygen|request|decrypt|code|proof> [flags]")
	}

	fs := flag.NewFlagSet("seedctl "+os.Args[1], flag.ExitOnError)
	cfg, err := seedctl.ParseConfig(fs, os.Args[1:])
	if err != nil {
		exitf("parse config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := seedctl.Run(ctx, cfg, os.Stdout, nil); err != nil {
		stop()
		exitf("%s: %v", cfg.Command, err)
	}
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
