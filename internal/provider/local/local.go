// Package local is an in-process wallet: a signer key from a .cwt file plus one RPC
// connection per registered chain. It answers the same request surface as an injected wallet.
package local

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"

	"github.com/AlexZinkM/exam-admin/internal/wallet"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

// ClientVersion is what Detect reports.
const ClientVersion = "exam-admin/local-signer"

// ConfirmFunc asks the operator to approve a wallet action. Returning false rejects it with
// code 4001.
type ConfirmFunc func(ctx context.Context, prompt string) bool

// DialFunc opens an RPC connection.
type DialFunc func(ctx context.Context, url string) (*rpc.Client, error)

type chainConn struct {
	id     *big.Int
	params wallet.ChainParams
	rpc    *rpc.Client
	eth    *ethclient.Client
}

// Provider signs with a single key and talks to the chain it is currently switched to.
type Provider struct {
	key     *ecdsa.PrivateKey
	address common.Address
	confirm ConfirmFunc
	dial    DialFunc
	logger  *zap.Logger

	mu         sync.Mutex
	chains     map[string]*chainConn // keyed by canonical hex chain id
	current    string
	authorised bool
	handlers   map[int]wallet.Events
	nextID     int

	// held from nonce lookup until the signed transaction is accepted
	sendMu sync.Mutex
}

// Option configures a Provider.
type Option func(*Provider)

// WithConfirm sets the approval prompt. Without one every action is approved.
func WithConfirm(fn ConfirmFunc) Option {
	return func(p *Provider) {
		if fn != nil {
			p.confirm = fn
		}
	}
}

// WithDialer replaces rpc.DialContext.
func WithDialer(fn DialFunc) Option {
	return func(p *Provider) {
		if fn != nil {
			p.dial = fn
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a provider for key, initially connected to the chain served at rpcURL.
func New(ctx context.Context, key *ecdsa.PrivateKey, rpcURL string, opts ...Option) (*Provider, error) {
	p := &Provider{
		key:      key,
		address:  crypto.PubkeyToAddress(key.PublicKey),
		confirm:  func(context.Context, string) bool { return true },
		dial:     rpc.DialContext,
		logger:   zap.NewNop(),
		chains:   make(map[string]*chainConn),
		handlers: make(map[int]wallet.Events),
	}
	for _, opt := range opts {
		opt(p)
	}

	conn, err := p.connect(ctx, wallet.ChainParams{RPCURLs: []string{rpcURL}})
	if err != nil {
		return nil, err
	}
	p.chains[conn.params.ChainID] = conn
	p.current = conn.params.ChainID
	p.logger.Info("Local signer ready", zap.String("address", p.address.Hex()), zap.String("chain", p.current))
	return p, nil
}

// Address returns the signer address.
func (p *Provider) Address() common.Address {
	return p.address
}

// Detect implements wallet.Detector.
func (p *Provider) Detect(context.Context) (string, error) {
	return ClientVersion, nil
}

// Request implements wallet.Provider.
func (p *Provider) Request(ctx context.Context, method string, params []any, result any) error {
	switch method {
	case "eth_chainId":
		p.mu.Lock()
		id := p.current
		p.mu.Unlock()
		return reply(id, result)

	case "eth_accounts":
		p.mu.Lock()
		authorised := p.authorised
		p.mu.Unlock()
		if !authorised {
			return reply([]string{}, result)
		}
		return reply([]string{p.address.Hex()}, result)

	case "eth_requestAccounts":
		return p.requestAccounts(ctx, result)

	case "wallet_switchEthereumChain":
		return p.switchChain(params)

	case "wallet_addEthereumChain":
		return p.addChain(ctx, params)

	case "eth_sendTransaction":
		return p.sendTransaction(ctx, params, result)
	}

	conn := p.currentChain()
	return conn.rpc.CallContext(ctx, result, method, params...)
}

// Subscribe implements wallet.Provider.
func (p *Provider) Subscribe(_ context.Context, events wallet.Events) (wallet.Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.handlers[id] = events

	var once sync.Once
	return wallet.SubscriptionFunc(func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.handlers, id)
			p.mu.Unlock()
		})
	}), nil
}

// Close closes every chain connection.
func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, conn := range p.chains {
		conn.rpc.Close()
	}
}

func (p *Provider) requestAccounts(ctx context.Context, result any) error {
	p.mu.Lock()
	authorised := p.authorised
	p.mu.Unlock()

	if !authorised {
		if !p.confirm(ctx, fmt.Sprintf("Connect signer %s?", p.address.Hex())) {
			return &wallet.ProviderError{Code: wallet.CodeUserRejected, Message: "User rejected the request."}
		}
		p.mu.Lock()
		p.authorised = true
		p.mu.Unlock()
	}
	return reply([]string{p.address.Hex()}, result)
}

func (p *Provider) switchChain(params []any) error {
	var req struct {
		ChainID string `json:"chainId"`
	}
	if err := param(params, &req); err != nil {
		return err
	}
	id, err := wallet.ParseChainID(req.ChainID)
	if err != nil {
		return &wallet.ProviderError{Code: -32602, Message: err.Error()}
	}
	target := hexutil.EncodeBig(id)

	p.mu.Lock()
	if _, ok := p.chains[target]; !ok {
		p.mu.Unlock()
		return &wallet.ProviderError{Code: wallet.CodeUnknownChain, Message: "Unrecognized chain ID " + req.ChainID}
	}
	changed := p.current != target
	p.current = target
	handlers := p.snapshot()
	p.mu.Unlock()

	if changed {
		p.logger.Info("Switched chain", zap.String("chain", target))
		for _, h := range handlers {
			if h.ChainChanged != nil {
				h.ChainChanged(target)
			}
		}
	}
	return nil
}

func (p *Provider) addChain(ctx context.Context, params []any) error {
	var chain wallet.ChainParams
	if err := param(params, &chain); err != nil {
		return err
	}
	if !p.confirm(ctx, fmt.Sprintf("Add network %s (%s)?", chain.ChainName, chain.ChainID)) {
		return &wallet.ProviderError{Code: wallet.CodeUserRejected, Message: "User rejected the request."}
	}

	conn, err := p.connect(ctx, chain)
	if err != nil {
		return &wallet.ProviderError{Code: -32603, Message: err.Error()}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if old, ok := p.chains[conn.params.ChainID]; ok {
		old.rpc.Close()
	}
	p.chains[conn.params.ChainID] = conn
	p.logger.Info("Registered chain", zap.String("chain", conn.params.ChainID), zap.String("name", chain.ChainName))
	return nil
}

// connect dials the first RPC URL of chain and checks it serves the declared chain id.
func (p *Provider) connect(ctx context.Context, chain wallet.ChainParams) (*chainConn, error) {
	if len(chain.RPCURLs) == 0 || chain.RPCURLs[0] == "" {
		return nil, fmt.Errorf("chain %s has no rpc url", chain.ChainID)
	}
	client, err := p.dial(ctx, chain.RPCURLs[0])
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", chain.RPCURLs[0], err)
	}
	eth := ethclient.NewClient(client)

	id, err := eth.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to read chain id from %s: %w", chain.RPCURLs[0], err)
	}
	if chain.ChainID != "" {
		declared, err := wallet.ParseChainID(chain.ChainID)
		if err != nil {
			client.Close()
			return nil, err
		}
		if declared.Cmp(id) != 0 {
			client.Close()
			return nil, fmt.Errorf("rpc %s serves chain %s, not %s", chain.RPCURLs[0], hexutil.EncodeBig(id), chain.ChainID)
		}
	}
	chain.ChainID = hexutil.EncodeBig(id)
	return &chainConn{id: id, params: chain, rpc: client, eth: eth}, nil
}

type txArgs struct {
	From  *common.Address `json:"from"`
	To    *common.Address `json:"to"`
	Data  hexutil.Bytes   `json:"data"`
	Value *hexutil.Big    `json:"value"`
	Gas   *hexutil.Uint64 `json:"gas"`
}

func (p *Provider) sendTransaction(ctx context.Context, params []any, result any) error {
	p.mu.Lock()
	authorised := p.authorised
	p.mu.Unlock()
	if !authorised {
		return &wallet.ProviderError{Code: wallet.CodeUnauthorized, Message: "account not authorised"}
	}

	var args txArgs
	if err := param(params, &args); err != nil {
		return err
	}
	if args.From != nil && *args.From != p.address {
		return &wallet.ProviderError{Code: wallet.CodeUnauthorized, Message: "unknown sender " + args.From.Hex()}
	}
	if args.To == nil {
		return &wallet.ProviderError{Code: -32602, Message: "contract creation is not supported"}
	}
	if !p.confirm(ctx, fmt.Sprintf("Send transaction to %s?", args.To.Hex())) {
		return &wallet.ProviderError{Code: wallet.CodeUserRejected, Message: "User denied transaction signature."}
	}

	conn := p.currentChain()
	p.sendMu.Lock()
	defer p.sendMu.Unlock()
	tx, err := p.buildTx(ctx, conn, args)
	if err != nil {
		return err
	}
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(conn.id), p.key)
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	if err := conn.eth.SendTransaction(ctx, signed); err != nil {
		return fmt.Errorf("failed to send transaction: %w", err)
	}

	p.logger.Info("Transaction sent", zap.String("hash", signed.Hash().Hex()), zap.Uint64("nonce", signed.Nonce()))
	return reply(signed.Hash(), result)
}

func (p *Provider) buildTx(ctx context.Context, conn *chainConn, args txArgs) (*types.Transaction, error) {
	value := new(big.Int)
	if args.Value != nil {
		value = args.Value.ToInt()
	}

	nonce, err := conn.eth.PendingNonceAt(ctx, p.address)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	var gas uint64
	if args.Gas != nil {
		gas = uint64(*args.Gas)
	} else {
		gas, err = conn.eth.EstimateGas(ctx, ethereum.CallMsg{From: p.address, To: args.To, Value: value, Data: args.Data})
		if err != nil {
			return nil, fmt.Errorf("failed to estimate gas: %w", err)
		}
	}

	tip, err := conn.eth.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas tip: %w", err)
	}
	head, err := conn.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest header: %w", err)
	}
	feeCap := new(big.Int).Set(tip)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}

	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   conn.id,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        args.To,
		Value:     value,
		Data:      args.Data,
	}), nil
}

func (p *Provider) currentChain() *chainConn {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chains[p.current]
}

func (p *Provider) snapshot() []wallet.Events {
	out := make([]wallet.Events, 0, len(p.handlers))
	for _, h := range p.handlers {
		out = append(out, h)
	}
	return out
}

// param decodes the first request parameter into v.
func param(params []any, v any) error {
	if len(params) == 0 {
		return &wallet.ProviderError{Code: -32602, Message: "missing params"}
	}
	raw, err := json.Marshal(params[0])
	if err != nil {
		return &wallet.ProviderError{Code: -32602, Message: err.Error()}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &wallet.ProviderError{Code: -32602, Message: err.Error()}
	}
	return nil
}

// reply stores v into result the way a JSON-RPC response would be decoded.
func reply(v, result any) error {
	if result == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, result)
}
