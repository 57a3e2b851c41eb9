package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/eosio-elastic/indexer/pkg/hostbridge"
	"github.com/eosio-elastic/indexer/pkg/lifecycle"
	"github.com/eosio-elastic/indexer/pkg/logging"
	"github.com/eosio-elastic/indexer/pkg/realtime"
	"go.uber.org/zap"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := logging.New()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	publisher, err := realtime.NewPublisher(ctx, logger)
	if err != nil {
		logger.Warn("realtime publisher disabled", zap.Error(err))
		publisher = nil
	}

	cfg := lifecycle.LoadConfig()
	controller := lifecycle.New(cfg, logger, publisher)
	controller.Quit = cancel

	emitter := hostbridge.New()

	if err := controller.Start(ctx, emitter); err != nil {
		logger.Fatal("indexer startup failed", zap.Error(err))
	}

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := controller.Shutdown(shutdownCtx); err != nil {
		logger.Error("indexer shutdown error", zap.Error(err))
	}
}
