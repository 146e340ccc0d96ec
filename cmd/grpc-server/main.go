package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"bookhub/internal/catalog"
	"bookhub/internal/events"
	"bookhub/internal/grpcserver"
	"bookhub/internal/logger"
	"bookhub/internal/server"
	"bookhub/pkg/config"
	"bookhub/pkg/database"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "grpc-server:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}
	log := logger.New(logger.Config{
		Environment: cfg.Env,
		Level:       logger.ParseLevel(cfg.LogLevel),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, database.Config{Path: cfg.DBPath})
	if err != nil {
		return err
	}
	defer db.Close()

	// read-only: nothing is published and the catalog is never called
	app := server.NewApp(cfg, db, catalog.New(catalog.Config{}), events.Nop{}, log)

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}

	srv := grpcserver.New(app.LibraryServer(), log)
	go func() {
		<-ctx.Done()
		log.Info("shutting down grpc server")
		srv.GracefulStop()
	}()

	log.Info("grpc server listening", "addr", cfg.GRPCAddr, "db", cfg.DBPath)
	if err := srv.Serve(ln); err != nil {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}
