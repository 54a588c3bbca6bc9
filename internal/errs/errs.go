package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a workflow failure.
type Kind string

const (
	KindWalletUnavailable    Kind = "WALLET_UNAVAILABLE"
	KindUserRejected         Kind = "USER_REJECTED"
	KindNoAccounts           Kind = "NO_ACCOUNTS"
	KindNetworkMismatch      Kind = "NETWORK_MISMATCH"
	KindInitializationFailed Kind = "INITIALIZATION_FAILED"
	KindTransactionFailed    Kind = "TRANSACTION_FAILED"
	KindUploadFailed         Kind = "UPLOAD_FAILED"
	KindServiceUnreachable   Kind = "SERVICE_UNREACHABLE"
	KindPreconditionFailed   Kind = "PRECONDITION_FAILED"
	KindOperationInFlight    Kind = "OPERATION_IN_FLIGHT"
)

// Sentinels for errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrWalletUnavailable    = &Error{Kind: KindWalletUnavailable}
	ErrUserRejected         = &Error{Kind: KindUserRejected}
	ErrNoAccounts           = &Error{Kind: KindNoAccounts}
	ErrNetworkMismatch      = &Error{Kind: KindNetworkMismatch}
	ErrInitializationFailed = &Error{Kind: KindInitializationFailed}
	ErrTransactionFailed    = &Error{Kind: KindTransactionFailed}
	ErrUploadFailed         = &Error{Kind: KindUploadFailed}
	ErrServiceUnreachable   = &Error{Kind: KindServiceUnreachable}
	ErrPreconditionFailed   = &Error{Kind: KindPreconditionFailed}
	ErrOperationInFlight    = &Error{Kind: KindOperationInFlight}
)

// Error is a classified failure raised by an operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// New returns an *Error of the given kind for op wrapping err (which may be nil).
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf is New with a formatted cause.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

var messages = map[Kind]string{
	KindWalletUnavailable:    "No wallet provider available. Please install or start a supported wallet",
	KindUserRejected:         "Request was rejected in the wallet",
	KindNoAccounts:           "No accounts found in the wallet",
	KindNetworkMismatch:      "Wallet is not on the required network. Please switch manually",
	KindInitializationFailed: "Failed to initialize blockchain contract",
	KindTransactionFailed:    "Transaction failed",
	KindUploadFailed:         "Failed to upload file to IPFS",
	KindServiceUnreachable:   "Storage service is unreachable",
	KindPreconditionFailed:   "Operation not allowed",
	KindOperationInFlight:    "Operation already in progress",
}

// Message converts err into the status text shown to the operator.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return "Unexpected error: " + err.Error()
	}
	msg := messages[e.Kind]
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Kind == KindPreconditionFailed && e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}
