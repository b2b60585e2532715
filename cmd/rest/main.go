package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"citizen-portal-be/internal/bootstrap"
	"citizen-portal-be/internal/config"
	"citizen-portal-be/internal/server"
	"citizen-portal-be/internal/tracer"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Tracing (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer(cfg.App.ServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(ctx, cfg)

	// 4. Start Background Services
	if err := container.ConsumerService.Consume(ctx); err != nil {
		log.Printf("Background Consumer Error: %v", err)
	}

	// 5. Initialize Server
	srv := server.New(cfg, container)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Run()
	}()

	// 6. Wait for a signal or a listener failure
	select {
	case err := <-serverErr:
		if err != nil {
			log.Printf("Server stopped: %v", err)
		}
	case <-ctx.Done():
		log.Println("Shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if err := container.Close(); err != nil {
		log.Printf("Container close error: %v", err)
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Printf("Tracer shutdown error: %v", err)
	}
}
