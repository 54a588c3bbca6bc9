package contract

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scripted answers each method with a fixed JSON reply and records the calls.
type scripted struct {
	replies map[string][]any
	calls   []string
	params  map[string][]any
}

func (s *scripted) Request(_ context.Context, method string, params []any, result any) error {
	s.calls = append(s.calls, method)
	if s.params == nil {
		s.params = make(map[string][]any)
	}
	s.params[method] = params

	queue := s.replies[method]
	if len(queue) == 0 {
		return errors.New("unexpected " + method)
	}
	reply := queue[0]
	if len(queue) > 1 {
		s.replies[method] = queue[1:]
	}
	if err, ok := reply.(error); ok {
		return err
	}
	raw, err := json.Marshal(reply)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, result)
}

func bound(t *testing.T, s *scripted) *Handle {
	t.Helper()
	s.replies["eth_getCode"] = []any{"0x6080"}
	h, err := Bind(context.Background(), s, common.HexToAddress(DefaultAddress), WithPollInterval(time.Millisecond))
	require.NoError(t, err)
	return h
}

func TestBind_NoCode(t *testing.T) {
	s := &scripted{replies: map[string][]any{"eth_getCode": {"0x"}}}

	_, err := Bind(context.Background(), s, common.HexToAddress(DefaultAddress))
	assert.True(t, errors.Is(err, ErrNoCode))
}

func TestSetExamTime_PacksCallAndWaitsForReceipt(t *testing.T) {
	hash := common.HexToHash("0xabc")
	s := &scripted{replies: map[string][]any{
		"eth_sendTransaction": {hash},
		// first poll: not mined yet
		"eth_getTransactionReceipt": {nil, map[string]any{"transactionHash": hash, "status": "0x1", "blockNumber": "0x5", "logs": []any{}}},
	}}
	h := bound(t, s)
	from := common.HexToAddress("0x1111111111111111111111111111111111111111")

	receipt, err := h.SetExamTime(context.Background(), from, big.NewInt(7), big.NewInt(1735689600))
	require.NoError(t, err)
	assert.Equal(t, hash, receipt.TxHash)
	assert.Equal(t, []string{"eth_getCode", "eth_sendTransaction", "eth_getTransactionReceipt", "eth_getTransactionReceipt"}, s.calls)

	tx := s.params["eth_sendTransaction"][0].(map[string]any)
	data := tx["data"].(hexutil.Bytes)
	contractABI, err := parsedABI()
	require.NoError(t, err)
	assert.Equal(t, contractABI.Methods["setExamTime"].ID, []byte(data[:4]))
	assert.Equal(t, from, tx["from"])
}

func TestTransact_Reverted(t *testing.T) {
	hash := common.HexToHash("0xdef")
	s := &scripted{replies: map[string][]any{
		"eth_sendTransaction":       {hash},
		"eth_getTransactionReceipt": {map[string]any{"transactionHash": hash, "status": "0x0", "logs": []any{}}},
	}}
	h := bound(t, s)

	receipt, err := h.UploadPaper(context.Background(), common.Address{}, "Qm123")
	assert.True(t, errors.Is(err, ErrReverted))
	require.NotNil(t, receipt)
}

func TestWaitReceipt_ContextCancelled(t *testing.T) {
	s := &scripted{replies: map[string][]any{
		"eth_sendTransaction":       {common.HexToHash("0x1")},
		"eth_getTransactionReceipt": {nil},
	}}
	h := bound(t, s)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := h.ApprovePaper(ctx, common.Address{}, big.NewInt(1), "")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestUploadedPaperID(t *testing.T) {
	s := &scripted{replies: map[string][]any{}}
	h := bound(t, s)

	event := h.abi.Events["PaperUploaded"]
	data, err := event.Inputs.Pack(big.NewInt(42), "Qm123")
	require.NoError(t, err)

	receipt := &Receipt{Logs: []Log{
		{Address: common.HexToAddress("0x9999999999999999999999999999999999999999"), Topics: []common.Hash{event.ID}, Data: data},
		{Address: h.Address(), Topics: []common.Hash{event.ID}, Data: data},
	}}
	id, ok := h.UploadedPaperID(receipt)
	require.True(t, ok)
	assert.Equal(t, int64(42), id.Int64())

	_, ok = h.UploadedPaperID(&Receipt{})
	assert.False(t, ok)
}

func TestPapers_Unpacks(t *testing.T) {
	s := &scripted{replies: map[string][]any{}}
	h := bound(t, s)

	out, err := h.abi.Methods["papers"].Outputs.Pack("Qm123", "key", big.NewInt(1735689600), true)
	require.NoError(t, err)
	s.replies["eth_call"] = []any{hexutil.Bytes(out)}

	p, err := h.Papers(context.Background(), big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, "Qm123", p.IpfsHash)
	assert.Equal(t, "key", p.EncryptionKey)
	assert.Equal(t, int64(1735689600), p.StartTime.Int64())
	assert.True(t, p.Approved)
	assert.Equal(t, "latest", s.params["eth_call"][1])
}
