package wallet

import (
	"context"
	"errors"
	"fmt"
)

// Provider error codes defined by EIP-1193 and EIP-3326.
const (
	CodeUserRejected = 4001
	CodeUnauthorized = 4100
	CodeUnsupported  = 4200
	CodeDisconnected = 4900
	CodeUnknownChain = 4902
)

// Provider is a request-based wallet agent: it owns key custody, signs transactions
// and answers chain/account queries.
type Provider interface {
	// Request performs a single provider call and decodes the reply into result (if non-nil).
	Request(ctx context.Context, method string, params []any, result any) error

	// Subscribe registers handlers for provider notifications until the subscription is released.
	Subscribe(ctx context.Context, events Events) (Subscription, error)
}

// Detector is implemented by providers that can report whether the wallet behind them is reachable.
type Detector interface {
	// Detect returns the wallet's client identifier, or an error when it cannot be reached.
	Detect(ctx context.Context) (string, error)
}

// Events holds the typed notification callbacks a session registers.
type Events struct {
	AccountsChanged func(accounts []string)
	ChainChanged    func(chainID string)
}

// Subscription releases registered event handlers.
type Subscription interface {
	Unsubscribe()
}

// ProviderError is an error returned by a provider with an EIP-1193 code.
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// ErrorCode satisfies go-ethereum's rpc.Error so codes survive either transport.
func (e *ProviderError) ErrorCode() int {
	return e.Code
}

// ErrorCode extracts a provider error code from err.
func ErrorCode(err error) (int, bool) {
	var coded interface{ ErrorCode() int }
	if errors.As(err, &coded) {
		return coded.ErrorCode(), true
	}
	return 0, false
}

// SubscriptionFunc adapts a function to Subscription.
type SubscriptionFunc func()

func (f SubscriptionFunc) Unsubscribe() {
	f()
}
