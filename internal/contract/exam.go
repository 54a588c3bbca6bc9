package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// DefaultAddress is the deployed exam paper registry on Sepolia.
const DefaultAddress = "0xd9145CCE52D386f254917e481eB44e9943F39138"

const defaultPollInterval = 2 * time.Second

var (
	// ErrNoCode is returned by Bind when nothing is deployed at the address on the current chain.
	ErrNoCode = errors.New("no contract code at address")
	// ErrReverted is returned when a mined transaction has a failed status.
	ErrReverted = errors.New("transaction reverted")
)

// Requester issues provider calls. wallet.Provider satisfies it.
type Requester interface {
	Request(ctx context.Context, method string, params []any, result any) error
}

var parsedABI = sync.OnceValues(func() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(examPaperABI))
})

// Handle is a contract binding: fixed address, method interface and the provider that signs.
type Handle struct {
	address      common.Address
	abi          abi.ABI
	rpc          Requester
	pollInterval time.Duration
}

// Option configures a Handle.
type Option func(*Handle)

// WithPollInterval sets how often a pending receipt is polled.
func WithPollInterval(d time.Duration) Option {
	return func(h *Handle) {
		if d > 0 {
			h.pollInterval = d
		}
	}
}

// Bind returns a handle for the registry at address, checking that code is deployed there.
func Bind(ctx context.Context, rpc Requester, address common.Address, opts ...Option) (*Handle, error) {
	contractABI, err := parsedABI()
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract ABI: %w", err)
	}

	var code hexutil.Bytes
	if err := rpc.Request(ctx, "eth_getCode", []any{address, "latest"}, &code); err != nil {
		return nil, fmt.Errorf("failed to get contract code: %w", err)
	}
	if len(code) == 0 {
		return nil, fmt.Errorf("%w %s", ErrNoCode, address.Hex())
	}

	h := &Handle{
		address:      address,
		abi:          contractABI,
		rpc:          rpc,
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Address returns the bound contract address.
func (h *Handle) Address() common.Address {
	return h.address
}

// Log is an event record of a receipt.
type Log struct {
	Address common.Address `json:"address"`
	Topics  []common.Hash  `json:"topics"`
	Data    hexutil.Bytes  `json:"data"`
}

// Receipt is the subset of a transaction receipt the workflow reads.
type Receipt struct {
	TxHash      common.Hash    `json:"transactionHash"`
	Status      hexutil.Uint64 `json:"status"`
	BlockNumber *hexutil.Big   `json:"blockNumber"`
	Logs        []Log          `json:"logs"`
}

// Paper is a registry entry as returned by papers(uint256).
type Paper struct {
	IpfsHash      string   `json:"ipfsHash"`
	EncryptionKey string   `json:"encryptionKey"`
	StartTime     *big.Int `json:"startTime"`
	Approved      bool     `json:"approved"`
}

// SetExamTime schedules the start of paperID.
func (h *Handle) SetExamTime(ctx context.Context, from common.Address, paperID, startTime *big.Int) (*Receipt, error) {
	return h.transact(ctx, from, "setExamTime", paperID, startTime)
}

// ApprovePaper approves paperID, publishing encryptionKey for later access.
func (h *Handle) ApprovePaper(ctx context.Context, from common.Address, paperID *big.Int, encryptionKey string) (*Receipt, error) {
	return h.transact(ctx, from, "approvePaper", paperID, encryptionKey)
}

// UploadPaper registers a new paper stored under ipfsHash.
func (h *Handle) UploadPaper(ctx context.Context, from common.Address, ipfsHash string) (*Receipt, error) {
	return h.transact(ctx, from, "uploadPaper", ipfsHash)
}

// UploadedPaperID returns the paper id emitted by PaperUploaded in receipt, if any.
func (h *Handle) UploadedPaperID(receipt *Receipt) (*big.Int, bool) {
	event := h.abi.Events["PaperUploaded"]
	for _, l := range receipt.Logs {
		if l.Address != h.address || len(l.Topics) == 0 || l.Topics[0] != event.ID {
			continue
		}
		values, err := event.Inputs.Unpack(l.Data)
		if err != nil || len(values) == 0 {
			continue
		}
		if id, ok := values[0].(*big.Int); ok {
			return id, true
		}
	}
	return nil, false
}

// PaperCount returns the number of registered papers.
func (h *Handle) PaperCount(ctx context.Context) (*big.Int, error) {
	out, err := h.call(ctx, nil, "paperCount")
	if err != nil {
		return nil, err
	}
	count, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected paperCount output %T", out[0])
	}
	return count, nil
}

// Admin returns the registry administrator.
func (h *Handle) Admin(ctx context.Context) (common.Address, error) {
	out, err := h.call(ctx, nil, "admin")
	if err != nil {
		return common.Address{}, err
	}
	admin, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected admin output %T", out[0])
	}
	return admin, nil
}

// AccessPaper returns the encryption key of paperID as seen by from.
func (h *Handle) AccessPaper(ctx context.Context, from common.Address, paperID *big.Int) (string, error) {
	out, err := h.call(ctx, &from, "accessPaper", paperID)
	if err != nil {
		return "", err
	}
	key, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("unexpected accessPaper output %T", out[0])
	}
	return key, nil
}

// Papers returns the stored record of paperID.
func (h *Handle) Papers(ctx context.Context, paperID *big.Int) (*Paper, error) {
	out, err := h.call(ctx, nil, "papers", paperID)
	if err != nil {
		return nil, err
	}
	if len(out) != 4 {
		return nil, fmt.Errorf("unexpected papers output length %d", len(out))
	}
	p := &Paper{}
	p.IpfsHash, _ = out[0].(string)
	p.EncryptionKey, _ = out[1].(string)
	p.StartTime, _ = out[2].(*big.Int)
	p.Approved, _ = out[3].(bool)
	return p, nil
}

func (h *Handle) transact(ctx context.Context, from common.Address, method string, args ...any) (*Receipt, error) {
	data, err := h.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	tx := map[string]any{
		"from": from,
		"to":   h.address,
		"data": hexutil.Bytes(data),
	}
	var hash common.Hash
	if err := h.rpc.Request(ctx, "eth_sendTransaction", []any{tx}, &hash); err != nil {
		return nil, fmt.Errorf("failed to send %s transaction: %w", method, err)
	}

	receipt, err := h.waitReceipt(ctx, hash)
	if err != nil {
		return nil, err
	}
	if receipt.Status != 1 {
		return receipt, fmt.Errorf("%w: %s", ErrReverted, hash.Hex())
	}
	return receipt, nil
}

func (h *Handle) waitReceipt(ctx context.Context, hash common.Hash) (*Receipt, error) {
	for {
		var receipt *Receipt
		if err := h.rpc.Request(ctx, "eth_getTransactionReceipt", []any{hash}, &receipt); err != nil {
			return nil, fmt.Errorf("failed to get receipt for %s: %w", hash.Hex(), err)
		}
		if receipt != nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for receipt of %s: %w", hash.Hex(), ctx.Err())
		case <-time.After(h.pollInterval):
		}
	}
}

func (h *Handle) call(ctx context.Context, from *common.Address, method string, args ...any) ([]any, error) {
	data, err := h.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	msg := map[string]any{
		"to":   h.address,
		"data": hexutil.Bytes(data),
	}
	if from != nil {
		msg["from"] = *from
	}

	var out hexutil.Bytes
	if err := h.rpc.Request(ctx, "eth_call", []any{msg, "latest"}, &out); err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}

	values, err := h.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("empty %s output", method)
	}
	return values, nil
}
