package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/shunxiangg/YTvid-storage/internal"
)

// main is the entry point to the program: load the user configuration,
// construct the server and run it until interrupted.
func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to a YAML configuration file")
	flag.Parse()

	config := internal.YtvsConfig{}
	if err := config.Load(*configPath); err != nil {
		log.Panicf("Failed to load configuration - %v\n", err.Error())
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := internal.New(config).Run(ctx); err != nil {
		log.Panicf("Failed to run server - %v\n", err.Error())
	}
}
