package wallet

// State is a position in the connection handshake.
type State int

const (
	StateUninitialized State = iota
	StateWalletDetected
	StateNetworkVerified
	StateContractReady
)

func (s State) String() string {
	switch s {
	case StateWalletDetected:
		return "WalletDetected"
	case StateNetworkVerified:
		return "NetworkVerified"
	case StateContractReady:
		return "ContractReady"
	default:
		return "Uninitialized"
	}
}

// ConnectionStatus is the snapshot of a session exposed to the operator.
type ConnectionStatus struct {
	State           string `json:"state"`
	WalletConnected bool   `json:"walletConnected"`
	NetworkCorrect  bool   `json:"networkCorrect"`
	ContractReady   bool   `json:"contractReady"`
	ChainID         string `json:"chainId,omitempty"`
	AccountAddress  string `json:"accountAddress,omitempty"`
	LastError       string `json:"lastError,omitempty"`
}

func statusFor(state State) ConnectionStatus {
	return ConnectionStatus{
		State:           state.String(),
		WalletConnected: state >= StateWalletDetected,
		NetworkCorrect:  state >= StateNetworkVerified,
		ContractReady:   state >= StateContractReady,
	}
}
