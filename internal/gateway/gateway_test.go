package gateway_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AlexZinkM/exam-admin/internal/contract"
	"github.com/AlexZinkM/exam-admin/internal/errs"
	"github.com/AlexZinkM/exam-admin/internal/gateway"
	"github.com/AlexZinkM/exam-admin/internal/pinning"
	"github.com/AlexZinkM/exam-admin/internal/wallet"
	"github.com/AlexZinkM/exam-admin/internal/wallet/wallettest"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const account = "0x1111111111111111111111111111111111111111"

type recorder struct {
	ops  []string
	errs []error
}

func (r *recorder) Operation(op string, err error) {
	r.ops = append(r.ops, op)
	r.errs = append(r.errs, err)
}

func newSession(p wallet.Provider) *wallet.Session {
	cfg := wallet.Config{
		Chain:           wallet.Sepolia("https://rpc.sepolia.example"),
		ContractAddress: common.HexToAddress(contract.DefaultAddress),
		ContractOptions: []contract.Option{contract.WithPollInterval(time.Millisecond)},
	}
	return wallet.NewSession(p, cfg, zap.NewNop(), nil)
}

func readySession(t *testing.T) (*wallet.Session, *wallettest.Provider) {
	t.Helper()
	p := wallettest.New(wallet.SepoliaChainID)
	p.Accounts = []string{account}
	p.Grant = []string{account}
	s := newSession(p)
	require.NoError(t, s.Start(context.Background()))
	return s, p
}

// pinataServer counts requests and answers with status and body.
func pinataServer(t *testing.T, status int, body string) (*pinning.PinataClient, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return pinning.NewPinataClient("key", "secret", pinning.WithBaseURL(srv.URL)), &hits
}

func TestSetExamTime_NotReadyRejectedLocally(t *testing.T) {
	p := wallettest.New(wallet.SepoliaChainID)
	s := newSession(p)
	pinner, hits := pinataServer(t, http.StatusOK, `{}`)
	rec := &recorder{}
	g := gateway.New(s, pinner, zap.NewNop(), rec)

	res := g.SetExamTime(context.Background(), "MATH101", 1735689600)

	assert.False(t, res.OK)
	assert.True(t, errors.Is(res.Err, errs.ErrPreconditionFailed))
	assert.NotEmpty(t, res.Message)
	assert.Empty(t, res.TxHash)
	assert.Empty(t, p.Calls())
	assert.Zero(t, hits.Load())
	assert.Equal(t, []string{"setExamTime"}, rec.ops)
}

func TestSetExamTime_NonNumericPaperID(t *testing.T) {
	s, p := readySession(t)
	g := gateway.New(s, nil, nil, nil)
	before := len(p.Calls())

	res := g.SetExamTime(context.Background(), "MATH101", 1735689600)

	assert.True(t, errors.Is(res.Err, errs.ErrPreconditionFailed))
	assert.Len(t, p.Calls(), before)
}

func TestSetExamTime_MissingStart(t *testing.T) {
	s, p := readySession(t)
	g := gateway.New(s, nil, nil, nil)

	res := g.SetExamTime(context.Background(), "7", 0)

	assert.True(t, errors.Is(res.Err, errs.ErrPreconditionFailed))
	assert.Zero(t, p.CallCount("eth_sendTransaction"))
}

func TestSetExamTime_Success(t *testing.T) {
	s, p := readySession(t)
	rec := &recorder{}
	g := gateway.New(s, nil, nil, rec)

	res := g.SetExamTime(context.Background(), "7", 1735689600)

	require.True(t, res.OK, res.Message)
	assert.Equal(t, "Exam time set successfully", res.Message)
	assert.Equal(t, "7", res.PaperID)
	assert.NotEmpty(t, res.TxHash)
	require.Len(t, p.Sent, 1)
	assert.Equal(t, common.HexToAddress(account), p.Sent[0]["from"])
	assert.Equal(t, common.HexToAddress(contract.DefaultAddress), p.Sent[0]["to"])
	assert.Equal(t, []error{nil}, rec.errs)
}

func TestApprovePaper_Rejected(t *testing.T) {
	s, p := readySession(t)
	p.SendErr = &wallet.ProviderError{Code: wallet.CodeUserRejected, Message: "User denied transaction signature."}
	g := gateway.New(s, nil, nil, nil)

	res := g.ApprovePaper(context.Background(), "3", "")

	assert.False(t, res.OK)
	assert.True(t, errors.Is(res.Err, errs.ErrTransactionFailed))
	assert.Empty(t, res.TxHash)
}

func TestApprovePaper_Reverted(t *testing.T) {
	s, p := readySession(t)
	p.Reverted = true
	g := gateway.New(s, nil, nil, nil)

	res := g.ApprovePaper(context.Background(), "3", "k")

	assert.True(t, errors.Is(res.Err, errs.ErrTransactionFailed))
	assert.True(t, errors.Is(res.Err, contract.ErrReverted))
}

func TestUploadPaperReference_RequiresReference(t *testing.T) {
	s, p := readySession(t)
	g := gateway.New(s, nil, nil, nil)

	res := g.UploadPaperReference(context.Background(), "")

	assert.True(t, errors.Is(res.Err, errs.ErrPreconditionFailed))
	assert.Zero(t, p.CallCount("eth_sendTransaction"))

	res = g.UploadPaperReference(context.Background(), "Qm123")
	require.True(t, res.OK, res.Message)
	assert.Equal(t, "Qm123", res.CID)
	assert.Equal(t, 1, p.CallCount("eth_sendTransaction"))
}

func TestUploadFile_ReturnsCID(t *testing.T) {
	pinner, hits := pinataServer(t, http.StatusOK, `{"IpfsHash":"Qm123"}`)
	g := gateway.New(newSession(nil), pinner, nil, nil)

	res := g.UploadFile(context.Background(), []byte("%PDF-1.7"), "paper.pdf")

	require.True(t, res.OK, res.Message)
	assert.Equal(t, "Qm123", res.CID)
	assert.Equal(t, "https://gateway.pinata.cloud/ipfs/Qm123", res.GatewayURL)
	assert.Contains(t, res.Message, "Qm123")
	assert.EqualValues(t, 1, hits.Load())
}

func TestUploadFile_ServerError(t *testing.T) {
	pinner, _ := pinataServer(t, http.StatusInternalServerError, `boom`)
	g := gateway.New(newSession(nil), pinner, nil, nil)

	res := g.UploadFile(context.Background(), []byte("x"), "paper.pdf")

	assert.False(t, res.OK)
	assert.True(t, errors.Is(res.Err, errs.ErrUploadFailed))
	assert.Empty(t, res.CID)
	assert.Empty(t, res.GatewayURL)
}

func TestUploadFile_EmptyRejectedLocally(t *testing.T) {
	pinner, hits := pinataServer(t, http.StatusOK, `{"IpfsHash":"Qm123"}`)
	g := gateway.New(newSession(nil), pinner, nil, nil)

	res := g.UploadFile(context.Background(), nil, "paper.pdf")

	assert.True(t, errors.Is(res.Err, errs.ErrPreconditionFailed))
	assert.Zero(t, hits.Load())
}

func TestProbeStorageService(t *testing.T) {
	ok, _ := pinataServer(t, http.StatusOK, `{"message":"ok"}`)
	bad, _ := pinataServer(t, http.StatusUnauthorized, ``)
	rec := &recorder{}

	assert.True(t, gateway.New(newSession(nil), ok, nil, rec).ProbeStorageService(context.Background()))
	assert.False(t, gateway.New(newSession(nil), bad, nil, rec).ProbeStorageService(context.Background()))
	require.Len(t, rec.errs, 2)
	assert.NoError(t, rec.errs[0])
	assert.True(t, errors.Is(rec.errs[1], errs.ErrServiceUnreachable))
}

type blockingPinner struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingPinner) TestAuthentication(context.Context) bool { return true }

func (b *blockingPinner) PinFile(context.Context, string, []byte) (*pinning.PinResponse, error) {
	close(b.entered)
	<-b.release
	return &pinning.PinResponse{IpfsHash: "QmSlow"}, nil
}

func (b *blockingPinner) GatewayURL(cid string) string { return "ipfs://" + cid }

func TestUploadFile_RejectsReentry(t *testing.T) {
	b := &blockingPinner{entered: make(chan struct{}), release: make(chan struct{})}
	g := gateway.New(newSession(nil), b, nil, nil)

	done := make(chan gateway.Result, 1)
	go func() { done <- g.UploadFile(context.Background(), []byte("a"), "a.pdf") }()
	<-b.entered

	res := g.UploadFile(context.Background(), []byte("b"), "b.pdf")
	assert.True(t, errors.Is(res.Err, errs.ErrOperationInFlight))

	close(b.release)
	first := <-done
	assert.True(t, first.OK)
	assert.Equal(t, "QmSlow", first.CID)
}

func TestInspect(t *testing.T) {
	s, p := readySession(t)
	// admin() returns a single address word
	p.CallResult = common.LeftPadBytes(common.HexToAddress(account).Bytes(), 32)
	g := gateway.New(s, nil, nil, nil)

	info, err := g.Inspect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(contract.DefaultAddress), info.Address)
	assert.Equal(t, common.HexToAddress(account), info.Admin)
	assert.Equal(t, 2, p.CallCount("eth_call"))

	_, err = gateway.New(newSession(nil), nil, nil, nil).Inspect(context.Background())
	assert.True(t, errors.Is(err, errs.ErrPreconditionFailed))
}
