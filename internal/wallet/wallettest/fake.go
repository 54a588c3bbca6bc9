// Package wallettest provides an in-memory wallet provider for tests.
package wallettest

import (
	"context"
	"encoding/json"
	"math/big"
	"sync"

	"github.com/AlexZinkM/exam-admin/internal/wallet"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Provider is a scriptable wallet. Zero values behave like an unlocked wallet on ChainID with
// a deployed contract and successful transactions.
type Provider struct {
	mu sync.Mutex

	ChainID     string
	KnownChains map[string]bool
	Accounts    []string // authorised accounts (eth_accounts)
	Grant       []string // accounts granted by eth_requestAccounts

	RejectAccounts   bool
	SwitchErr        error
	AddErr           error
	EchoChainChanged bool
	NoCode           bool
	SendErr          error
	Reverted         bool
	ReceiptLogs      []map[string]any
	CallResult       []byte
	DetectErr        error
	ClientVersion    string

	Added []wallet.ChainParams
	Sent  []map[string]any

	calls    []string
	handlers map[int]wallet.Events
	nextID   int
	txCount  int
}

// New returns a provider on chainID that knows only that chain.
func New(chainID string) *Provider {
	return &Provider{
		ChainID:     chainID,
		KnownChains: map[string]bool{chainID: true},
		handlers:    make(map[int]wallet.Events),
	}
}

// Request implements wallet.Provider.
func (p *Provider) Request(_ context.Context, method string, params []any, result any) error {
	reply, echo, err := p.handle(method, params)
	if echo != "" {
		p.EmitChainChanged(echo)
	}
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	raw, err := json.Marshal(reply)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, result)
}

func (p *Provider) handle(method string, params []any) (any, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, method)

	switch method {
	case "eth_chainId":
		return p.ChainID, "", nil
	case "eth_accounts":
		return nonNil(p.Accounts), "", nil
	case "eth_requestAccounts":
		if p.RejectAccounts {
			return nil, "", &wallet.ProviderError{Code: wallet.CodeUserRejected, Message: "User rejected the request."}
		}
		p.Accounts = p.Grant
		return nonNil(p.Grant), "", nil
	case "wallet_switchEthereumChain":
		if p.SwitchErr != nil {
			return nil, "", p.SwitchErr
		}
		target := params[0].(map[string]string)["chainId"]
		if !p.KnownChains[target] {
			return nil, "", &wallet.ProviderError{Code: wallet.CodeUnknownChain, Message: "Unrecognized chain ID " + target}
		}
		p.ChainID = target
		if p.EchoChainChanged {
			return nil, target, nil
		}
		return nil, "", nil
	case "wallet_addEthereumChain":
		if p.AddErr != nil {
			return nil, "", p.AddErr
		}
		chain := params[0].(wallet.ChainParams)
		p.Added = append(p.Added, chain)
		p.KnownChains[chain.ChainID] = true
		return nil, "", nil
	case "eth_getCode":
		if p.NoCode {
			return "0x", "", nil
		}
		return "0x6080604052", "", nil
	case "eth_sendTransaction":
		if p.SendErr != nil {
			return nil, "", p.SendErr
		}
		p.Sent = append(p.Sent, params[0].(map[string]any))
		p.txCount++
		return common.BigToHash(big.NewInt(int64(p.txCount))).Hex(), "", nil
	case "eth_getTransactionReceipt":
		status := "0x1"
		if p.Reverted {
			status = "0x0"
		}
		logs := p.ReceiptLogs
		if logs == nil {
			logs = []map[string]any{}
		}
		return map[string]any{
			"transactionHash": params[0],
			"status":          status,
			"blockNumber":     "0x10",
			"logs":            logs,
		}, "", nil
	case "eth_call":
		return hexutil.Bytes(p.CallResult), "", nil
	case "web3_clientVersion":
		if p.DetectErr != nil {
			return nil, "", p.DetectErr
		}
		return p.ClientVersion, "", nil
	}
	return nil, "", &wallet.ProviderError{Code: wallet.CodeUnsupported, Message: "unsupported method " + method}
}

// Subscribe implements wallet.Provider.
func (p *Provider) Subscribe(_ context.Context, events wallet.Events) (wallet.Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handlers == nil {
		p.handlers = make(map[int]wallet.Events)
	}
	id := p.nextID
	p.nextID++
	p.handlers[id] = events
	return wallet.SubscriptionFunc(func() {
		p.mu.Lock()
		delete(p.handlers, id)
		p.mu.Unlock()
	}), nil
}

// EmitAccountsChanged notifies subscribers of an account change.
func (p *Provider) EmitAccountsChanged(accounts []string) {
	for _, h := range p.snapshot() {
		if h.AccountsChanged != nil {
			h.AccountsChanged(accounts)
		}
	}
}

// EmitChainChanged notifies subscribers of a chain change.
func (p *Provider) EmitChainChanged(chainID string) {
	for _, h := range p.snapshot() {
		if h.ChainChanged != nil {
			h.ChainChanged(chainID)
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (p *Provider) Subscribers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.handlers)
}

// Calls returns the methods requested so far, in order.
func (p *Provider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// CallCount returns how many times method was requested.
func (p *Provider) CallCount(method string) int {
	n := 0
	for _, m := range p.Calls() {
		if m == method {
			n++
		}
	}
	return n
}

func (p *Provider) snapshot() []wallet.Events {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]wallet.Events, 0, len(p.handlers))
	for _, h := range p.handlers {
		out = append(out, h)
	}
	return out
}

// Detecting wraps a Provider so it also implements wallet.Detector.
type Detecting struct {
	*Provider
}

// Detect implements wallet.Detector.
func (d Detecting) Detect(ctx context.Context) (string, error) {
	var version string
	if err := d.Request(ctx, "web3_clientVersion", nil, &version); err != nil {
		return "", err
	}
	return version, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
