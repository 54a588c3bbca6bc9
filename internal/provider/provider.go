// Package provider builds the wallet provider selected by configuration.
package provider

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/AlexZinkM/exam-admin/internal/config"
	"github.com/AlexZinkM/exam-admin/internal/crypto"
	"github.com/AlexZinkM/exam-admin/internal/provider/bridge"
	"github.com/AlexZinkM/exam-admin/internal/provider/local"
	"github.com/AlexZinkM/exam-admin/internal/wallet"

	"go.uber.org/zap"
)

// New returns the provider for cfg.WalletProvider and a function releasing it. With no
// provider configured it returns nil, which sessions report as WalletUnavailable.
// A local provider needs the key-file password set with config.PromptForPassword.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (wallet.Provider, func(), error) {
	switch cfg.WalletProvider {
	case config.ProviderBridge:
		p, err := bridge.Dial(ctx, cfg.WalletBridgeURL, bridge.WithLogger(logger.Named("bridge")))
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using wallet bridge", zap.String("url", cfg.WalletBridgeURL))
		return p, p.Close, nil

	case config.ProviderLocal:
		password, err := config.GetWalletPasswordBytes()
		if err != nil {
			return nil, nil, err
		}
		defer clear(password)

		key, err := crypto.LoadSigner(cfg.WalletKeyFile, password)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open key file %s: %w", cfg.WalletKeyFile, err)
		}

		opts := []local.Option{local.WithLogger(logger.Named("signer"))}
		if cfg.WalletConfirm {
			opts = append(opts, local.WithConfirm(TerminalConfirm(os.Stdin, os.Stderr)))
		}
		p, err := local.New(ctx, key, cfg.ChainRPCURL, opts...)
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	}

	logger.Warn("No wallet provider configured; sessions will report the wallet as unavailable")
	return nil, func() {}, nil
}

// TerminalConfirm asks y/N questions on out and reads answers from in, one at a time.
func TerminalConfirm(in io.Reader, out io.Writer) local.ConfirmFunc {
	var mu sync.Mutex
	reader := bufio.NewReader(in)
	return func(ctx context.Context, prompt string) bool {
		mu.Lock()
		defer mu.Unlock()
		if ctx.Err() != nil {
			return false
		}

		fmt.Fprintf(out, "%s [y/N]: ", prompt)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	}
}
