package y4g

import (
	"fmt"
	"math/big"

	"github.com/element-fi/yieldforgood/go/mechanisms/evm"
)

// ValidateAddresses checks that every entry is a 20-byte hex address.
func ValidateAddresses(addresses ...string) error {
	for _, address := range addresses {
		if !evm.IsValidAddress(address) {
			return fmt.Errorf("invalid parameter %s is not a valid address", address)
		}
	}
	return nil
}

// GateNetwork returns the address book name for chainID, or an unsupported_network
// error. Sepolia is always supported; mainnet only when allowMainnet is set.
func GateNetwork(chainID *big.Int, allowMainnet bool) (string, error) {
	details := map[string]interface{}{"chainId": fmt.Sprint(chainID)}
	switch {
	case chainID == nil:
		return "", NewOpError(ErrCodeUnsupportedNetwork, "chain id unavailable", nil)
	case chainID.Cmp(evm.ChainIDSepolia) == 0:
		return evm.NetworkName(chainID), nil
	case chainID.Cmp(evm.ChainIDGoerli) == 0:
		return "", NewOpError(ErrCodeUnsupportedNetwork, "goerli is deprecated", details)
	case chainID.Cmp(evm.ChainIDMainnet) == 0:
		if allowMainnet {
			return evm.NetworkName(chainID), nil
		}
		return "", NewOpError(ErrCodeUnsupportedNetwork, "no code for mainnet yet", details)
	default:
		return "", NewOpError(ErrCodeUnsupportedNetwork, "unsupported network", details)
	}
}
