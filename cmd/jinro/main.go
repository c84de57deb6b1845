package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	jinrocmd "github.com/tsukino/jinro/internal/cmd/jinro"
)

func main() {
	cfg, err := jinrocmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[JINRO] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := jinrocmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
