package wallet

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// NativeCurrency describes the chain's gas token for wallet_addEthereumChain.
type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// ChainParams is the EIP-3085 parameter block a wallet needs to register a chain.
type ChainParams struct {
	ChainID           string         `json:"chainId"`
	ChainName         string         `json:"chainName"`
	NativeCurrency    NativeCurrency `json:"nativeCurrency"`
	RPCURLs           []string       `json:"rpcUrls"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls,omitempty"`
}

// SepoliaChainID is the chain identifier of the Sepolia test network.
const SepoliaChainID = "0xaa36a7"

// Sepolia returns the Sepolia parameter block with the given RPC endpoint.
func Sepolia(rpcURL string) ChainParams {
	return ChainParams{
		ChainID:   SepoliaChainID,
		ChainName: "Sepolia Test Network",
		NativeCurrency: NativeCurrency{
			Name:     "Sepolia Ether",
			Symbol:   "SEP",
			Decimals: 18,
		},
		RPCURLs:           []string{rpcURL},
		BlockExplorerURLs: []string{"https://sepolia.etherscan.io"},
	}
}

// ParseChainID decodes a hex chain identifier such as "0xaa36a7".
func ParseChainID(s string) (*big.Int, error) {
	id, err := hexutil.DecodeBig(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return nil, fmt.Errorf("invalid chain id %q: %w", s, err)
	}
	return id, nil
}

// SameChain compares two hex chain identifiers numerically.
func SameChain(a, b string) bool {
	x, err := ParseChainID(a)
	if err != nil {
		return false
	}
	y, err := ParseChainID(b)
	if err != nil {
		return false
	}
	return x.Cmp(y) == 0
}
