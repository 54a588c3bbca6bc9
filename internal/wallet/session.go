package wallet

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AlexZinkM/exam-admin/internal/contract"
	"github.com/AlexZinkM/exam-admin/internal/errs"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Observer receives handshake outcomes. Metrics collectors implement it.
type Observer interface {
	HandshakeStep(step string, err error)
}

// DefaultEchoWindow is how long after a switch request returns its chainChanged echo is
// still expected. Polling providers report the change up to one poll interval late.
const DefaultEchoWindow = 5 * time.Second

// Config fixes what a session connects to.
type Config struct {
	Chain           ChainParams
	ContractAddress common.Address
	ContractOptions []contract.Option
	// EchoWindow overrides DefaultEchoWindow.
	EchoWindow time.Duration
}

// Session is one operator's wallet connection: the handshake state, the stored account and
// the contract handle. It is never shared between operators.
type Session struct {
	provider Provider
	cfg      Config
	logger   *zap.Logger
	observer Observer

	inFlight atomic.Bool

	mu          sync.Mutex
	state       State
	chainID     string
	account     string
	lastError   string
	handle      *contract.Handle
	pendingEcho string
	echoUntil   time.Time // zero while the switch request is in flight
	sub         Subscription
	closed      bool
}

// NewSession creates a session in the Uninitialized state. provider may be nil when no
// wallet is injected; the handshake then fails with WalletUnavailable.
func NewSession(provider Provider, cfg Config, logger *zap.Logger, observer Observer) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		provider: provider,
		cfg:      cfg,
		logger:   logger,
		observer: observer,
		state:    StateUninitialized,
	}
}

// Status returns a snapshot of the connection.
func (s *Session) Status() ConnectionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := statusFor(s.state)
	st.ChainID = s.chainID
	st.AccountAddress = s.account
	st.LastError = s.lastError
	return st
}

// State returns the handshake state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Account returns the stored primary account, "" when none.
func (s *Session) Account() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account
}

// Provider returns the provider the session talks to.
func (s *Session) Provider() Provider {
	return s.provider
}

// Ready returns the contract handle and sender when the session is ContractReady.
func (s *Session) Ready() (*contract.Handle, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateContractReady || s.handle == nil {
		return nil, "", false
	}
	return s.handle, s.account, true
}

// Start runs the mount-time handshake: detect the wallet, subscribe to its notifications and,
// when an account is already authorised, verify the network and bind the contract.
func (s *Session) Start(ctx context.Context) error {
	return s.guard("start", func() error {
		if err := s.DetectWallet(ctx); err != nil {
			return err
		}
		if err := s.subscribe(ctx); err != nil {
			s.logger.Warn("Provider notifications unavailable", zap.Error(err))
		}

		var accounts []string
		if err := s.provider.Request(ctx, "eth_accounts", nil, &accounts); err != nil {
			return s.fail("start", errs.New(errs.KindWalletUnavailable, "start", fmt.Errorf("failed to list accounts: %w", err)))
		}
		if len(accounts) == 0 {
			s.logger.Info("Wallet detected, no authorised account yet")
			return nil
		}
		s.setAccount(accounts[0])
		return s.establish(ctx)
	})
}

// Connect requests account access from the wallet and completes the handshake.
func (s *Session) Connect(ctx context.Context) (string, error) {
	var account string
	err := s.guard("connect", func() error {
		if err := s.DetectWallet(ctx); err != nil {
			return err
		}
		if err := s.subscribe(ctx); err != nil {
			s.logger.Warn("Provider notifications unavailable", zap.Error(err))
		}

		var err error
		account, err = s.requestAccount(ctx)
		if err != nil {
			return err
		}
		return s.establish(ctx)
	})
	return account, err
}

// DetectWallet checks that a provider is injected and reachable.
func (s *Session) DetectWallet(ctx context.Context) error {
	const op = "detectWallet"
	if s.provider == nil {
		return s.fail(op, errs.Newf(errs.KindWalletUnavailable, op, "no wallet provider injected"))
	}
	if d, ok := s.provider.(Detector); ok {
		client, err := d.Detect(ctx)
		if err != nil {
			return s.fail(op, errs.New(errs.KindWalletUnavailable, op, err))
		}
		if strings.Contains(strings.ToLower(client), "phantom") {
			return s.fail(op, errs.Newf(errs.KindWalletUnavailable, op, "unsupported wallet %q", client))
		}
	}

	s.mu.Lock()
	if s.state < StateWalletDetected {
		s.state = StateWalletDetected
	}
	s.lastError = ""
	s.mu.Unlock()
	s.step(op, nil)
	return nil
}

// VerifyNetwork makes sure the wallet is on expectedChainID, asking it to switch (and, for a
// chain it does not know, to register the chain first) when it is not.
func (s *Session) VerifyNetwork(ctx context.Context, expectedChainID string) error {
	const op = "verifyNetwork"
	if s.State() < StateWalletDetected {
		return s.fail(op, errs.Newf(errs.KindPreconditionFailed, op, "wallet not detected"))
	}

	var current string
	if err := s.provider.Request(ctx, "eth_chainId", nil, &current); err != nil {
		return s.fail(op, errs.New(errs.KindNetworkMismatch, op, fmt.Errorf("failed to read chain id: %w", err)))
	}
	s.setChain(current)

	if !SameChain(current, expectedChainID) {
		s.logger.Info("Wallet on wrong network, requesting switch",
			zap.String("current", current), zap.String("expected", expectedChainID))

		if err := s.switchChain(ctx, expectedChainID); err != nil {
			return s.fail(op, errs.New(errs.KindNetworkMismatch, op, err))
		}

		if err := s.provider.Request(ctx, "eth_chainId", nil, &current); err != nil {
			return s.fail(op, errs.New(errs.KindNetworkMismatch, op, fmt.Errorf("failed to read chain id: %w", err)))
		}
		s.setChain(current)
		if !SameChain(current, expectedChainID) {
			return s.fail(op, errs.Newf(errs.KindNetworkMismatch, op, "wallet still on chain %s", current))
		}
	}

	s.mu.Lock()
	if s.state < StateWalletDetected {
		// reset by a notification while the switch was in flight
		s.mu.Unlock()
		return s.fail(op, errs.Newf(errs.KindNetworkMismatch, op, "session reset during network verification"))
	}
	s.state = StateNetworkVerified
	s.handle = nil
	s.mu.Unlock()
	s.step(op, nil)
	return nil
}

// switchChain issues wallet_switchEthereumChain, falling back once to wallet_addEthereumChain
// followed by a single switch retry when the wallet does not know the chain.
func (s *Session) switchChain(ctx context.Context, chainID string) error {
	s.expectEcho(chainID)
	defer s.closeEchoWindow()

	switchParams := []any{map[string]string{"chainId": chainID}}
	err := s.provider.Request(ctx, "wallet_switchEthereumChain", switchParams, nil)
	if err == nil {
		return nil
	}

	code, ok := ErrorCode(err)
	if !ok || code != CodeUnknownChain {
		return fmt.Errorf("failed to switch to chain %s: %w", chainID, err)
	}

	s.logger.Info("Chain unknown to wallet, requesting registration", zap.String("chain", s.cfg.Chain.ChainName))
	if err := s.provider.Request(ctx, "wallet_addEthereumChain", []any{s.cfg.Chain}, nil); err != nil {
		return fmt.Errorf("failed to add chain %s: %w", chainID, err)
	}
	if err := s.provider.Request(ctx, "wallet_switchEthereumChain", switchParams, nil); err != nil {
		return fmt.Errorf("failed to switch to chain %s after adding it: %w", chainID, err)
	}
	return nil
}

// AcquireContractHandle binds the registry contract. It requires a detected wallet on the
// verified network.
func (s *Session) AcquireContractHandle(ctx context.Context) error {
	const op = "acquireContractHandle"

	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	if state < StateNetworkVerified {
		return s.fail(op, errs.Newf(errs.KindInitializationFailed, op, "network not verified (state %s)", state))
	}

	handle, err := contract.Bind(ctx, s.provider, s.cfg.ContractAddress, s.cfg.ContractOptions...)
	if err != nil {
		return s.fail(op, errs.New(errs.KindInitializationFailed, op, err))
	}

	s.mu.Lock()
	if s.state < StateNetworkVerified {
		s.mu.Unlock()
		return s.fail(op, errs.Newf(errs.KindInitializationFailed, op, "session reset while binding contract"))
	}
	s.handle = handle
	s.state = StateContractReady
	s.mu.Unlock()

	s.logger.Info("Contract ready", zap.String("address", handle.Address().Hex()))
	s.step(op, nil)
	return nil
}

// Close releases the provider subscription. The session is unusable afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.closed = true
	s.handle = nil
	s.state = StateUninitialized
	s.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}

func (s *Session) establish(ctx context.Context) error {
	if err := s.VerifyNetwork(ctx, s.cfg.Chain.ChainID); err != nil {
		return err
	}
	return s.AcquireContractHandle(ctx)
}

func (s *Session) requestAccount(ctx context.Context) (string, error) {
	const op = "connect"
	var accounts []string
	if err := s.provider.Request(ctx, "eth_requestAccounts", nil, &accounts); err != nil {
		if code, ok := ErrorCode(err); ok && code == CodeUserRejected {
			return "", s.fail(op, errs.New(errs.KindUserRejected, op, err))
		}
		return "", s.fail(op, errs.New(errs.KindWalletUnavailable, op, fmt.Errorf("failed to request accounts: %w", err)))
	}
	if len(accounts) == 0 {
		return "", s.fail(op, errs.Newf(errs.KindNoAccounts, op, "wallet granted access but returned no accounts"))
	}

	s.setAccount(accounts[0])
	s.logger.Info("Wallet connected", zap.String("account", accounts[0]))
	s.step(op, nil)
	return accounts[0], nil
}

func (s *Session) subscribe(ctx context.Context) error {
	s.mu.Lock()
	if s.sub != nil || s.closed {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	sub, err := s.provider.Subscribe(ctx, Events{
		AccountsChanged: s.onAccountsChanged,
		ChainChanged:    s.onChainChanged,
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != nil || s.closed {
		sub.Unsubscribe()
		return nil
	}
	s.sub = sub
	return nil
}

func (s *Session) onAccountsChanged(accounts []string) {
	account := ""
	if len(accounts) > 0 {
		account = accounts[0]
	}
	s.setAccount(account)
	s.logger.Info("Wallet account changed", zap.String("account", account))
}

func (s *Session) onChainChanged(chainID string) {
	s.mu.Lock()
	if s.pendingEcho != "" && SameChain(s.pendingEcho, chainID) &&
		(s.echoUntil.IsZero() || time.Now().Before(s.echoUntil)) {
		s.pendingEcho = ""
		s.chainID = chainID
		s.mu.Unlock()
		return
	}
	s.chainID = chainID
	s.pendingEcho = ""
	s.handle = nil
	s.state = StateUninitialized
	s.lastError = "network changed to " + chainID + "; reconnect required"
	s.mu.Unlock()

	s.logger.Warn("Wallet network changed, contract handle invalidated", zap.String("chain", chainID))
}

func (s *Session) expectEcho(chainID string) {
	s.mu.Lock()
	s.pendingEcho = chainID
	s.echoUntil = time.Time{}
	s.mu.Unlock()
}

// closeEchoWindow starts the countdown after which a notification for the requested chain
// counts as an external change again.
func (s *Session) closeEchoWindow() {
	window := s.cfg.EchoWindow
	if window <= 0 {
		window = DefaultEchoWindow
	}
	s.mu.Lock()
	if s.pendingEcho != "" {
		s.echoUntil = time.Now().Add(window)
	}
	s.mu.Unlock()
}

func (s *Session) setAccount(account string) {
	s.mu.Lock()
	s.account = account
	s.mu.Unlock()
}

func (s *Session) setChain(chainID string) {
	s.mu.Lock()
	s.chainID = chainID
	s.mu.Unlock()
}

// fail drops the session back to Uninitialized and records the reason.
func (s *Session) fail(op string, err error) error {
	s.mu.Lock()
	s.state = StateUninitialized
	s.handle = nil
	s.pendingEcho = ""
	s.lastError = errs.Message(err)
	s.mu.Unlock()

	s.logger.Warn("Handshake step failed", zap.String("op", op), zap.Error(err))
	s.step(op, err)
	return err
}

func (s *Session) guard(op string, fn func() error) error {
	if !s.inFlight.CompareAndSwap(false, true) {
		return errs.Newf(errs.KindOperationInFlight, op, "handshake already in progress")
	}
	defer s.inFlight.Store(false)

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return errs.Newf(errs.KindPreconditionFailed, op, "session closed")
	}
	return fn()
}

func (s *Session) step(op string, err error) {
	if s.observer != nil {
		s.observer.HandshakeStep(op, err)
	}
}
