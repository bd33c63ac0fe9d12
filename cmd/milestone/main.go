// Package main starts the milestone engine process lifecycle.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	milestonecmd "github.com/wergy/milestone/internal/cmd/milestone"
	"github.com/wergy/milestone/internal/platform/config"
)

func main() {
	cfg, err := milestonecmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log.SetPrefix("[MILESTONE] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := milestonecmd.Run(ctx, cfg); err != nil {
		log.Fatalf("run engine: %v", err)
	}
}
