// Command gateway serves the Nexus generation API over connect RPC and a
// report websocket.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"nexus/internal/config"
	"nexus/internal/gateway/app"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (default $NEXUS_CONFIG)")
	port := flag.String("port", "", "listen address, overrides PORT")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if p := strings.TrimSpace(*port); p != "" {
		if !strings.Contains(p, ":") {
			p = ":" + p
		}
		cfg.Port = p
	}

	logger := log.New(os.Stderr, "gateway ", log.LstdFlags)
	a, err := app.New(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize app: %v", err)
	}

	go func() {
		if err := a.Start(); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
