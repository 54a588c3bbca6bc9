package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AlexZinkM/exam-admin/internal/api"
	"github.com/AlexZinkM/exam-admin/internal/config"
	"github.com/AlexZinkM/exam-admin/internal/contract"
	"github.com/AlexZinkM/exam-admin/internal/handler"
	"github.com/AlexZinkM/exam-admin/internal/metrics"
	"github.com/AlexZinkM/exam-admin/internal/pinning"
	"github.com/AlexZinkM/exam-admin/internal/provider"
	"github.com/AlexZinkM/exam-admin/internal/wallet"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// @title        Exam Admin API
// @version      1.0
// @description  Exam paper administration: wallet session handshake, registry contract submissions and IPFS pinning.
// @BasePath     /
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.Init(); err != nil {
		return err
	}
	cfg := config.Get()

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if !common.IsHexAddress(cfg.ContractAddress) {
		return fmt.Errorf("invalid CONTRACT_ADDRESS %q", cfg.ContractAddress)
	}
	location, err := cfg.Location()
	if err != nil {
		return err
	}

	if cfg.WalletProvider == config.ProviderLocal {
		if err := config.PromptForPassword("Enter key file password: "); err != nil {
			return err
		}
		defer config.ClearPassword()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	walletProvider, release, err := provider.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create wallet provider: %w", err)
	}
	defer release()
	config.ClearPassword()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	pinner := pinning.NewPinataClient(cfg.PinataAPIKey, cfg.PinataSecretAPIKey,
		pinning.WithBaseURL(cfg.PinataAPIURL),
		pinning.WithGatewayURL(cfg.PinataGatewayURL),
		pinning.WithTimeout(cfg.HTTPTimeout()),
		pinning.WithLogger(logger.Named("pinata")),
	)

	examHandler := handler.NewExamHandler(
		walletProvider,
		wallet.Config{
			Chain:           wallet.Sepolia(cfg.ChainRPCURL),
			ContractAddress: common.HexToAddress(cfg.ContractAddress),
			ContractOptions: []contract.Option{contract.WithPollInterval(cfg.ReceiptPollInterval())},
		},
		pinner,
		location,
		logger,
		metrics.New(reg),
	)
	defer examHandler.Close()

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.SetupRouter(examHandler, reg),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		return err
	}
	logger.Info("Server stopped")
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = lvl
	return zcfg.Build()
}
