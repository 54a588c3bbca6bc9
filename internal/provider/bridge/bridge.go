// Package bridge connects to an external wallet that exposes EIP-1193 over JSON-RPC
// (Frame, or a browser-extension relay).
package bridge

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/AlexZinkM/exam-admin/internal/wallet"

	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

// DefaultURL is Frame's local endpoint.
const DefaultURL = "http://127.0.0.1:1248"

const defaultPollInterval = 2 * time.Second

// Provider forwards requests to the wallet's RPC endpoint.
type Provider struct {
	client       *rpc.Client
	logger       *zap.Logger
	pollInterval time.Duration
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithPollInterval sets how often chain and account changes are polled when the endpoint
// cannot push notifications.
func WithPollInterval(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.pollInterval = d
		}
	}
}

// Dial connects to the wallet at url (http, ws or ipc).
func Dial(ctx context.Context, url string, opts ...Option) (*Provider, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial wallet bridge %s: %w", url, err)
	}
	return New(client, opts...), nil
}

// New wraps an existing RPC client.
func New(client *rpc.Client, opts ...Option) *Provider {
	p := &Provider{
		client:       client,
		logger:       zap.NewNop(),
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Request implements wallet.Provider. Wallet error codes survive: rpc errors expose ErrorCode.
func (p *Provider) Request(ctx context.Context, method string, params []any, result any) error {
	return p.client.CallContext(ctx, result, method, params...)
}

// Detect implements wallet.Detector.
func (p *Provider) Detect(ctx context.Context) (string, error) {
	var version string
	if err := p.client.CallContext(ctx, &version, "web3_clientVersion"); err != nil {
		return "", fmt.Errorf("wallet bridge unreachable: %w", err)
	}
	return version, nil
}

// Subscribe implements wallet.Provider. It uses eth_subscribe when the transport supports
// notifications and polls otherwise, or once the push subscription is lost.
func (p *Provider) Subscribe(ctx context.Context, events wallet.Events) (wallet.Subscription, error) {
	w := &watch{events: events}
	if err := p.client.CallContext(ctx, &w.chainID, "eth_chainId"); err != nil {
		return nil, fmt.Errorf("failed to read chain id: %w", err)
	}
	if err := p.client.CallContext(ctx, &w.accounts, "eth_accounts"); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	f, err := p.push(ctx)
	if err != nil && !errors.Is(err, rpc.ErrNotificationsUnsupported) {
		p.logger.Info("Wallet notifications unavailable, polling instead", zap.Error(err))
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		if f != nil {
			lost := p.forward(watchCtx, w, f)
			f.unsubscribe()
			if !lost {
				return
			}
		}
		p.poll(watchCtx, w)
	}()

	return stopper(func() {
		cancel()
		<-stopped
	}), nil
}

// Close closes the RPC connection.
func (p *Provider) Close() {
	p.client.Close()
}

// watch is the last chain and account list reported to events.
type watch struct {
	events   wallet.Events
	chainID  string
	accounts []string
}

func (w *watch) chain(id string) {
	if wallet.SameChain(id, w.chainID) {
		return
	}
	w.chainID = id
	if w.events.ChainChanged != nil {
		w.events.ChainChanged(id)
	}
}

func (w *watch) account(list []string) {
	if slices.Equal(list, w.accounts) {
		return
	}
	w.accounts = list
	if w.events.AccountsChanged != nil {
		w.events.AccountsChanged(list)
	}
}

type feed struct {
	chains     chan string
	accounts   chan []string
	chainSub   *rpc.ClientSubscription
	accountSub *rpc.ClientSubscription
}

func (f *feed) unsubscribe() {
	f.chainSub.Unsubscribe()
	f.accountSub.Unsubscribe()
}

func (p *Provider) push(ctx context.Context) (*feed, error) {
	f := &feed{chains: make(chan string), accounts: make(chan []string)}

	var err error
	f.chainSub, err = p.client.EthSubscribe(ctx, f.chains, "chainChanged")
	if err != nil {
		return nil, err
	}
	f.accountSub, err = p.client.EthSubscribe(ctx, f.accounts, "accountsChanged")
	if err != nil {
		f.chainSub.Unsubscribe()
		return nil, err
	}
	return f, nil
}

// forward relays pushed notifications until ctx is done or the subscription is lost. It
// reports whether the subscription was lost.
func (p *Provider) forward(ctx context.Context, w *watch, f *feed) bool {
	for {
		select {
		case id := <-f.chains:
			w.chain(id)
		case list := <-f.accounts:
			w.account(list)
		case err := <-f.chainSub.Err():
			p.logger.Warn("Wallet subscription lost, polling instead", zap.Error(err))
			return true
		case err := <-f.accountSub.Err():
			p.logger.Warn("Wallet subscription lost, polling instead", zap.Error(err))
			return true
		case <-ctx.Done():
			return false
		}
	}
}

func (p *Provider) poll(ctx context.Context, w *watch) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		callCtx, cancel := context.WithTimeout(ctx, 5*p.pollInterval)
		var current string
		if err := p.client.CallContext(callCtx, &current, "eth_chainId"); err == nil {
			w.chain(current)
		}
		var list []string
		if err := p.client.CallContext(callCtx, &list, "eth_accounts"); err == nil {
			w.account(list)
		}
		cancel()
	}
}

// stopper makes fn idempotent.
func stopper(fn func()) wallet.Subscription {
	var once sync.Once
	return wallet.SubscriptionFunc(func() { once.Do(fn) })
}
