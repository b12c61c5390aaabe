// Package evm provides the EIP-712 permit encoding, proxy ABIs and signer
// interfaces shared by the permit builder and mint assembler.
package evm

import "math/big"

// NetworkName returns the conventional name of a known chain, or "unknown".
func NetworkName(chainID *big.Int) string {
	switch {
	case chainID == nil:
		return "unknown"
	case chainID.Cmp(ChainIDMainnet) == 0:
		return "mainnet"
	case chainID.Cmp(ChainIDGoerli) == 0:
		return "goerli"
	case chainID.Cmp(ChainIDSepolia) == 0:
		return "sepolia"
	default:
		return "unknown"
	}
}
