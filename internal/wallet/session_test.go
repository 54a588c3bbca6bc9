package wallet_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AlexZinkM/exam-admin/internal/contract"
	"github.com/AlexZinkM/exam-admin/internal/errs"
	"github.com/AlexZinkM/exam-admin/internal/wallet"
	"github.com/AlexZinkM/exam-admin/internal/wallet/wallettest"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const account = "0x1111111111111111111111111111111111111111"

func testConfig() wallet.Config {
	return wallet.Config{
		Chain:           wallet.Sepolia("https://rpc.sepolia.example"),
		ContractAddress: common.HexToAddress(contract.DefaultAddress),
	}
}

func newSession(p wallet.Provider) *wallet.Session {
	return wallet.NewSession(p, testConfig(), zap.NewNop(), nil)
}

func readyProvider() *wallettest.Provider {
	p := wallettest.New(wallet.SepoliaChainID)
	p.Accounts = []string{account}
	p.Grant = []string{account}
	return p
}

func TestStart_WalletAbsent(t *testing.T) {
	s := newSession(nil)

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrWalletUnavailable))

	st := s.Status()
	assert.Equal(t, "Uninitialized", st.State)
	assert.False(t, st.WalletConnected)
	assert.NotEmpty(t, st.LastError)

	_, err = s.Connect(context.Background())
	assert.True(t, errors.Is(err, errs.ErrWalletUnavailable))
	assert.Equal(t, wallet.StateUninitialized, s.State())
}

func TestDetectWallet_Unreachable(t *testing.T) {
	p := readyProvider()
	p.DetectErr = errors.New("connection refused")
	s := newSession(wallettest.Detecting{Provider: p})

	err := s.Start(context.Background())
	assert.True(t, errors.Is(err, errs.ErrWalletUnavailable))
	assert.Equal(t, []string{"web3_clientVersion"}, p.Calls())
}

func TestDetectWallet_RejectsPhantom(t *testing.T) {
	p := readyProvider()
	p.ClientVersion = "Phantom/24.1"
	s := newSession(wallettest.Detecting{Provider: p})

	err := s.DetectWallet(context.Background())
	assert.True(t, errors.Is(err, errs.ErrWalletUnavailable))
}

func TestStart_AlreadyOnChain(t *testing.T) {
	p := readyProvider()
	s := newSession(p)

	require.NoError(t, s.Start(context.Background()))

	st := s.Status()
	assert.True(t, st.ContractReady)
	assert.True(t, st.NetworkCorrect)
	assert.True(t, st.WalletConnected)
	assert.Equal(t, account, st.AccountAddress)
	assert.Zero(t, p.CallCount("wallet_switchEthereumChain"))
}

func TestStart_NoAuthorisedAccount(t *testing.T) {
	p := wallettest.New(wallet.SepoliaChainID)
	s := newSession(p)

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, wallet.StateWalletDetected, s.State())
	assert.Equal(t, []string{"eth_accounts"}, p.Calls())
}

func TestVerifyNetwork_AddsUnknownChainThenSwitches(t *testing.T) {
	p := readyProvider()
	p.ChainID = "0x1"
	p.KnownChains = map[string]bool{"0x1": true}
	s := newSession(p)

	require.NoError(t, s.Start(context.Background()))

	assert.Equal(t, []string{
		"eth_accounts",
		"eth_chainId",
		"wallet_switchEthereumChain",
		"wallet_addEthereumChain",
		"wallet_switchEthereumChain",
		"eth_chainId",
		"eth_getCode",
	}, p.Calls())
	require.Len(t, p.Added, 1)
	assert.Equal(t, wallet.Sepolia("https://rpc.sepolia.example"), p.Added[0])
	assert.Equal(t, "Sepolia Ether", p.Added[0].NativeCurrency.Name)
	assert.Equal(t, 18, p.Added[0].NativeCurrency.Decimals)

	st := s.Status()
	assert.True(t, st.NetworkCorrect)
	assert.True(t, st.ContractReady)
	assert.Equal(t, wallet.SepoliaChainID, st.ChainID)
}

func TestVerifyNetwork_SwitchAndAddFail(t *testing.T) {
	p := readyProvider()
	p.ChainID = "0x1"
	p.KnownChains = map[string]bool{"0x1": true}
	p.AddErr = &wallet.ProviderError{Code: wallet.CodeUserRejected, Message: "User rejected the request."}
	s := newSession(p)

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrNetworkMismatch))
	assert.Equal(t, 1, p.CallCount("wallet_switchEthereumChain"))
	assert.Zero(t, p.CallCount("eth_getCode"))

	_, _, ready := s.Ready()
	assert.False(t, ready)
	assert.Equal(t, wallet.StateUninitialized, s.State())
	assert.NotEmpty(t, s.Status().LastError)
}

func TestVerifyNetwork_SwitchRejectedDoesNotAdd(t *testing.T) {
	p := readyProvider()
	p.ChainID = "0x1"
	p.SwitchErr = &wallet.ProviderError{Code: wallet.CodeUserRejected, Message: "User rejected the request."}
	s := newSession(p)

	err := s.Start(context.Background())
	assert.True(t, errors.Is(err, errs.ErrNetworkMismatch))
	assert.Zero(t, p.CallCount("wallet_addEthereumChain"))
	assert.Equal(t, wallet.StateUninitialized, s.State())
}

func TestVerifyNetwork_CaseInsensitiveChainID(t *testing.T) {
	p := readyProvider()
	p.ChainID = "0xAA36A7"
	s := newSession(p)

	require.NoError(t, s.Start(context.Background()))
	assert.Zero(t, p.CallCount("wallet_switchEthereumChain"))
}

func TestAcquireContractHandle_RequiresVerifiedNetwork(t *testing.T) {
	p := readyProvider()
	s := newSession(p)

	err := s.AcquireContractHandle(context.Background())
	assert.True(t, errors.Is(err, errs.ErrInitializationFailed))
	assert.Zero(t, p.CallCount("eth_getCode"))

	require.NoError(t, s.DetectWallet(context.Background()))
	err = s.AcquireContractHandle(context.Background())
	assert.True(t, errors.Is(err, errs.ErrInitializationFailed))
	assert.Zero(t, p.CallCount("eth_getCode"))
}

func TestAcquireContractHandle_NoCode(t *testing.T) {
	p := readyProvider()
	p.NoCode = true
	s := newSession(p)

	err := s.Start(context.Background())
	assert.True(t, errors.Is(err, errs.ErrInitializationFailed))
	assert.True(t, errors.Is(err, contract.ErrNoCode))
	assert.Equal(t, wallet.StateUninitialized, s.State())
}

func TestConnect_UserRejected(t *testing.T) {
	p := readyProvider()
	p.RejectAccounts = true
	s := newSession(p)

	_, err := s.Connect(context.Background())
	assert.True(t, errors.Is(err, errs.ErrUserRejected))
	assert.Zero(t, p.CallCount("eth_chainId"))
}

func TestConnect_NoAccounts(t *testing.T) {
	p := readyProvider()
	p.Grant = nil
	s := newSession(p)

	_, err := s.Connect(context.Background())
	assert.True(t, errors.Is(err, errs.ErrNoAccounts))
	assert.Equal(t, wallet.StateUninitialized, s.State())
}

func TestConnect_CompletesHandshake(t *testing.T) {
	p := readyProvider()
	p.Accounts = nil
	s := newSession(p)

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, wallet.StateWalletDetected, s.State())

	got, err := s.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, account, got)
	assert.Equal(t, wallet.StateContractReady, s.State())
	assert.Equal(t, 1, p.Subscribers())
}

func TestAccountChange_KeepsContractReady(t *testing.T) {
	p := readyProvider()
	s := newSession(p)
	require.NoError(t, s.Start(context.Background()))

	const other = "0x2222222222222222222222222222222222222222"
	p.EmitAccountsChanged([]string{other})

	st := s.Status()
	assert.True(t, st.ContractReady)
	assert.Equal(t, other, st.AccountAddress)

	handle, sender, ready := s.Ready()
	assert.True(t, ready)
	assert.NotNil(t, handle)
	assert.Equal(t, other, sender)
}

func TestChainChange_ResetsSession(t *testing.T) {
	p := readyProvider()
	s := newSession(p)
	require.NoError(t, s.Start(context.Background()))

	p.EmitChainChanged("0x1")

	st := s.Status()
	assert.Equal(t, "Uninitialized", st.State)
	assert.False(t, st.ContractReady)
	assert.False(t, st.NetworkCorrect)
	assert.NotEmpty(t, st.LastError)
	_, _, ready := s.Ready()
	assert.False(t, ready)

	// same chain id still forces a fresh handshake
	require.NoError(t, s.Start(context.Background()))
	p.EmitChainChanged(wallet.SepoliaChainID)
	assert.Equal(t, wallet.StateUninitialized, s.State())
}

func TestChainChange_OwnSwitchIsNotAReset(t *testing.T) {
	p := readyProvider()
	p.ChainID = "0x1"
	p.KnownChains[wallet.SepoliaChainID] = true
	p.EchoChainChanged = true
	s := newSession(p)

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, wallet.StateContractReady, s.State())
	assert.Equal(t, 1, p.CallCount("wallet_switchEthereumChain"))
}

func TestChainChange_UnechoedSwitchExpires(t *testing.T) {
	p := readyProvider()
	p.ChainID = "0x1"
	p.KnownChains[wallet.SepoliaChainID] = true
	cfg := testConfig()
	cfg.EchoWindow = time.Millisecond
	s := wallet.NewSession(p, cfg, zap.NewNop(), nil)

	require.NoError(t, s.Start(context.Background()))
	require.Equal(t, wallet.StateContractReady, s.State())

	time.Sleep(10 * time.Millisecond)
	p.EmitChainChanged(wallet.SepoliaChainID)
	assert.Equal(t, wallet.StateUninitialized, s.State())
}

func TestChainChange_LateEchoWithinWindow(t *testing.T) {
	p := readyProvider()
	p.ChainID = "0x1"
	p.KnownChains[wallet.SepoliaChainID] = true
	s := newSession(p)

	require.NoError(t, s.Start(context.Background()))
	p.EmitChainChanged(wallet.SepoliaChainID)
	assert.Equal(t, wallet.StateContractReady, s.State())

	// the echo is consumed once
	p.EmitChainChanged(wallet.SepoliaChainID)
	assert.Equal(t, wallet.StateUninitialized, s.State())
}

func TestClose_RejectsHandshake(t *testing.T) {
	p := readyProvider()
	s := newSession(p)
	require.NoError(t, s.Start(context.Background()))
	s.Close()

	_, err := s.Connect(context.Background())
	assert.True(t, errors.Is(err, errs.ErrPreconditionFailed))
	assert.True(t, errors.Is(s.Start(context.Background()), errs.ErrPreconditionFailed))
	assert.Equal(t, wallet.StateUninitialized, s.State())
	assert.Zero(t, p.CallCount("eth_requestAccounts"))
}

func TestClose_Unsubscribes(t *testing.T) {
	p := readyProvider()
	s := newSession(p)
	require.NoError(t, s.Start(context.Background()))
	require.Equal(t, 1, p.Subscribers())

	s.Close()
	assert.Zero(t, p.Subscribers())
	assert.Equal(t, wallet.StateUninitialized, s.State())
}

type blockingProvider struct {
	*wallettest.Provider
	entered chan struct{}
	release chan struct{}
}

func (b *blockingProvider) Request(ctx context.Context, method string, params []any, result any) error {
	if method == "eth_accounts" {
		close(b.entered)
		<-b.release
	}
	return b.Provider.Request(ctx, method, params, result)
}

func TestHandshake_RejectsReentry(t *testing.T) {
	b := &blockingProvider{
		Provider: readyProvider(),
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	s := newSession(b)

	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()
	<-b.entered

	_, err := s.Connect(context.Background())
	assert.True(t, errors.Is(err, errs.ErrOperationInFlight))

	close(b.release)
	require.NoError(t, <-done)
	assert.Equal(t, wallet.StateContractReady, s.State())
}
