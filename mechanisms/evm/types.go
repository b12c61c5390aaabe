package evm

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// PermitCallData is a signed ERC-20 permit in the shape the user proxy decodes.
// Field names match the ABI tuple components so the struct packs directly.
type PermitCallData struct {
	TokenContract common.Address `json:"tokenContract"`
	Who           common.Address `json:"who"`
	Amount        *big.Int       `json:"amount"`
	Expiration    *big.Int       `json:"expiration"`
	R             [32]byte       `json:"r"`
	S             [32]byte       `json:"s"`
	V             uint8          `json:"v"`
}

// Signature is a decoded 65-byte ECDSA signature.
type Signature struct {
	R [32]byte
	S [32]byte
	V uint8
}

// TypedDataDomain represents the EIP-712 domain separator
type TypedDataDomain struct {
	Name              string   `json:"name"`
	Version           string   `json:"version"`
	ChainID           *big.Int `json:"chainId"`
	VerifyingContract string   `json:"verifyingContract"`
}

// TypedDataField represents a field in EIP-712 typed data
type TypedDataField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// TxOptions carries per-transaction overrides for contract writes.
// Nil fields fall back to the node's suggestion.
type TxOptions struct {
	Value     *big.Int
	GasFeeCap *big.Int
	GasTipCap *big.Int
	GasLimit  uint64
}

// TransactionReceipt represents the receipt of a mined transaction
type TransactionReceipt struct {
	Status          uint64 `json:"status"`
	BlockNumber     uint64 `json:"blockNumber"`
	TxHash          string `json:"transactionHash"`
	ContractAddress string `json:"contractAddress,omitempty"`
	Logs            []Log  `json:"logs,omitempty"`
}

// Log is an event emitted by a mined transaction.
type Log struct {
	Address common.Address `json:"address"`
	Topics  []common.Hash  `json:"topics"`
	Data    []byte         `json:"data"`
}

// ClientEvmSigner defines the interface for EIP-712 signing by a key holder.
// SignTypedData may block on a human (hardware wallet, remote approval).
type ClientEvmSigner interface {
	// Address returns the signer's Ethereum address
	Address() string

	// SignTypedData signs EIP-712 typed data and returns r || s || v
	SignTypedData(ctx context.Context, domain TypedDataDomain, types map[string][]TypedDataField, primaryType string, message map[string]interface{}) ([]byte, error)
}

// ChainIDReader reports the chain a signer or client is bound to.
type ChainIDReader interface {
	GetChainID(ctx context.Context) (*big.Int, error)
}

// BlockTimeReader reports the timestamp of the chain head.
type BlockTimeReader interface {
	LatestBlockTime(ctx context.Context) (time.Time, error)
}

// ChainClient defines the node operations the operator flows need.
type ChainClient interface {
	ChainIDReader

	// ReadContract calls a view function and returns its single output,
	// a slice for multiple outputs, or nil for none
	ReadContract(ctx context.Context, address string, abi []byte, functionName string, args ...interface{}) (interface{}, error)

	// WriteContract submits a transaction and returns its hash without waiting
	WriteContract(ctx context.Context, address string, abi []byte, functionName string, opts TxOptions, args ...interface{}) (string, error)

	// DeployContract submits a contract creation and returns its hash and the
	// address the contract will occupy
	DeployContract(ctx context.Context, abi []byte, bytecode []byte, opts TxOptions, args ...interface{}) (string, common.Address, error)

	// WaitForTransactionReceipt waits for a transaction to be mined
	WaitForTransactionReceipt(ctx context.Context, txHash string) (*TransactionReceipt, error)
}

// OperatorEvmSigner is a key holder that also talks to a node.
type OperatorEvmSigner interface {
	ClientEvmSigner
	ChainClient
}
