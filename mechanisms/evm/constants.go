package evm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// NativeCurrencySentinel is the placeholder base asset meaning "attach ETH instead of
	// transferring an ERC-20".
	NativeCurrencySentinel = "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE"

	// MainnetUSDCAddress is the canonical USDC deployment. Its permit domain uses version "2".
	MainnetUSDCAddress = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"

	// DefaultDonationAddress receives tranche donations when a deployment does not name one.
	DefaultDonationAddress = "0x34891B08F7B2F427f8ee690ac083DdE27F11C308"

	// Permit domain versions
	PermitVersionDefault = "1"
	PermitVersionUSDC    = "2"

	// Function names
	FunctionMint     = "mint"
	FunctionNonces   = "nonces"
	FunctionName     = "name"
	FunctionDecimals = "decimals"

	FunctionDeployTranche = "deployTranche"

	// PermitPrimaryType is the EIP-712 primary type signed for ERC-20 permits.
	PermitPrimaryType = "Permit"

	// Transaction status
	TxStatusSuccess = 1
	TxStatusFailed  = 0

	// SignatureLength is the byte length of an r || s || v ECDSA signature.
	SignatureLength = 65
)

var (
	// Network chain IDs
	ChainIDMainnet = big.NewInt(1)
	ChainIDGoerli  = big.NewInt(5)
	ChainIDSepolia = big.NewInt(11155111)

	// TrancheCreatedTopic is topic 0 of TrancheCreated(trancheAddress, wpAddress, expiration).
	// All three arguments are indexed.
	TrancheCreatedTopic = crypto.Keccak256Hash([]byte("TrancheCreated(address,address,uint256)"))

	// NativeCurrencyAddress is NativeCurrencySentinel parsed.
	NativeCurrencyAddress = common.HexToAddress(NativeCurrencySentinel)

	// ERC20PermitABI covers the token reads made before signing a permit.
	ERC20PermitABI = []byte(`[
		{
			"inputs": [{"name": "owner", "type": "address"}],
			"name": "nonces",
			"outputs": [{"name": "", "type": "uint256"}],
			"stateMutability": "view",
			"type": "function"
		},
		{
			"inputs": [],
			"name": "name",
			"outputs": [{"name": "", "type": "string"}],
			"stateMutability": "view",
			"type": "function"
		},
		{
			"inputs": [],
			"name": "decimals",
			"outputs": [{"name": "", "type": "uint8"}],
			"stateMutability": "view",
			"type": "function"
		}
	]`)

	// TrancheFactoryABI is the factory entry point that creates a tranche.
	TrancheFactoryABI = []byte(`[
		{
			"inputs": [
				{"name": "_expiration", "type": "uint256"},
				{"name": "_wpAddress", "type": "address"}
			],
			"name": "deployTranche",
			"outputs": [{"name": "", "type": "address"}],
			"stateMutability": "nonpayable",
			"type": "function"
		},
		{
			"anonymous": false,
			"inputs": [
				{"indexed": true, "name": "trancheAddress", "type": "address"},
				{"indexed": true, "name": "wpAddress", "type": "address"},
				{"indexed": true, "name": "expiration", "type": "uint256"}
			],
			"name": "TrancheCreated",
			"type": "event"
		}
	]`)

	// UserProxyMintV1ABI is the proxy mint entry point without a donation recipient.
	UserProxyMintV1ABI = []byte(`[
		{
			"inputs": [
				{"name": "_amount", "type": "uint256"},
				{"name": "_underlying", "type": "address"},
				{"name": "_expiration", "type": "uint256"},
				{"name": "_position", "type": "address"},
				{
					"name": "_permitCallData",
					"type": "tuple[]",
					"components": [
						{"name": "tokenContract", "type": "address"},
						{"name": "who", "type": "address"},
						{"name": "amount", "type": "uint256"},
						{"name": "expiration", "type": "uint256"},
						{"name": "r", "type": "bytes32"},
						{"name": "s", "type": "bytes32"},
						{"name": "v", "type": "uint8"}
					]
				}
			],
			"name": "mint",
			"outputs": [
				{"name": "", "type": "uint256"},
				{"name": "", "type": "uint256"}
			],
			"stateMutability": "payable",
			"type": "function"
		}
	]`)

	// UserProxyMintV2ABI is the proxy mint entry point carrying a donation recipient.
	UserProxyMintV2ABI = []byte(`[
		{
			"inputs": [
				{"name": "_amount", "type": "uint256"},
				{"name": "_underlying", "type": "address"},
				{"name": "_expiration", "type": "uint256"},
				{"name": "_position", "type": "address"},
				{"name": "_donationAddress", "type": "address"},
				{
					"name": "_permitCallData",
					"type": "tuple[]",
					"components": [
						{"name": "tokenContract", "type": "address"},
						{"name": "who", "type": "address"},
						{"name": "amount", "type": "uint256"},
						{"name": "expiration", "type": "uint256"},
						{"name": "r", "type": "bytes32"},
						{"name": "s", "type": "bytes32"},
						{"name": "v", "type": "uint8"}
					]
				}
			],
			"name": "mint",
			"outputs": [
				{"name": "", "type": "uint256"},
				{"name": "", "type": "uint256"}
			],
			"stateMutability": "payable",
			"type": "function"
		}
	]`)

	// EIP712DomainTypes defines the standard EIP-712 domain type.
	EIP712DomainTypes = []TypedDataField{
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	}

	// PermitTypes is the ERC-20 permit struct. Field order is part of the type hash.
	PermitTypes = []TypedDataField{
		{Name: "owner", Type: "address"},
		{Name: "spender", Type: "address"},
		{Name: "value", Type: "uint256"},
		{Name: "nonce", Type: "uint256"},
		{Name: "deadline", Type: "uint256"},
	}
)

// GetPermitEIP712Types returns the complete EIP-712 types map for permit signing.
// Each call returns fresh field slices.
func GetPermitEIP712Types() map[string][]TypedDataField {
	domain := make([]TypedDataField, len(EIP712DomainTypes))
	copy(domain, EIP712DomainTypes)
	permit := make([]TypedDataField, len(PermitTypes))
	copy(permit, PermitTypes)
	return map[string][]TypedDataField{
		"EIP712Domain":    domain,
		PermitPrimaryType: permit,
	}
}
