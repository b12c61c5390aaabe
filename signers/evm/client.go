package evm

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"

	"github.com/element-fi/yieldforgood/go/mechanisms/evm"
)

const defaultPollInterval = 2 * time.Second

// ErrNoBackend is returned by chain operations on a signer built without a node connection.
var ErrNoBackend = errors.New("signer has no node connection")

// Backend is the subset of *ethclient.Client the signer uses.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// ClientSigner implements evm.OperatorEvmSigner using an ECDSA private key.
// It signs permits locally and sends EIP-1559 transactions through a node.
type ClientSigner struct {
	privateKey   *ecdsa.PrivateKey
	address      common.Address
	backend      Backend
	pollInterval time.Duration
	logger       log.Logger
}

// NewClientSignerFromPrivateKey creates a signing-only signer from a hex-encoded private key.
//
// Args:
//
//	privateKeyHex: Hex-encoded private key (with or without "0x" prefix)
//
// Returns:
//
//	ClientSigner that can sign typed data; chain operations return ErrNoBackend
//	Error if private key is invalid
func NewClientSignerFromPrivateKey(privateKeyHex string) (*ClientSigner, error) {
	return NewClientSignerFromPrivateKeyWithClient(privateKeyHex, nil)
}

// NewClientSignerFromPrivateKeyWithClient creates a signer from a private key and
// a node backend used for chain id, reads, writes and receipts.
func NewClientSignerFromPrivateKeyWithClient(privateKeyHex string, backend Backend) (*ClientSigner, error) {
	privateKeyHex = strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")

	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return &ClientSigner{
		privateKey:   privateKey,
		address:      crypto.PubkeyToAddress(privateKey.PublicKey),
		backend:      backend,
		pollInterval: defaultPollInterval,
		logger:       log.Root(),
	}, nil
}

// Dial connects to rpcURL and returns a signer bound to that node.
//
// Example:
//
//	signer, err := evm.Dial(ctx, os.Getenv("RPC_URL"), os.Getenv("SEPOLIA_DEPLOYER_PRIVATE_KEY"))
//	if err != nil {
//	    log.Crit("dial failed", "err", err)
//	}
//	defer signer.Close()
func Dial(ctx context.Context, rpcURL, privateKeyHex string) (*ClientSigner, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", rpcURL, err)
	}
	signer, err := NewClientSignerFromPrivateKeyWithClient(privateKeyHex, client)
	if err != nil {
		client.Close()
		return nil, err
	}
	return signer, nil
}

// WithPollInterval sets how often WaitForTransactionReceipt polls the node.
func (s *ClientSigner) WithPollInterval(interval time.Duration) *ClientSigner {
	if interval > 0 {
		s.pollInterval = interval
	}
	return s
}

// WithLogger sets the signer's logger.
func (s *ClientSigner) WithLogger(logger log.Logger) *ClientSigner {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Close releases the node connection when the signer owns one.
func (s *ClientSigner) Close() {
	if c, ok := s.backend.(*ethclient.Client); ok {
		c.Close()
	}
}

// Address returns the Ethereum address of the signer.
func (s *ClientSigner) Address() string {
	return s.address.Hex()
}

// SignTypedData signs EIP-712 typed data.
//
// Args:
//
//	ctx: Context for cancellation and timeout control
//	domain: EIP-712 domain separator
//	types: Type definitions for the structured data
//	primaryType: The primary type being signed
//	message: The message data to sign
//
// Returns:
//
//	65-byte signature (r, s, v) with v in {27, 28}
//	Error if signing fails
func (s *ClientSigner) SignTypedData(
	ctx context.Context,
	domain evm.TypedDataDomain,
	types map[string][]evm.TypedDataField,
	primaryType string,
	message map[string]interface{},
) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	digest, err := evm.HashTypedData(domain, types, primaryType, message)
	if err != nil {
		return nil, err
	}

	signature, err := crypto.Sign(digest, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}

	// recovery id 0/1 → 27/28
	signature[64] += 27

	return signature, nil
}

// GetChainID returns the chain id reported by the node.
func (s *ClientSigner) GetChainID(ctx context.Context) (*big.Int, error) {
	if s.backend == nil {
		return nil, ErrNoBackend
	}
	chainID, err := s.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}
	return chainID, nil
}

// ReadContract reads data from a smart contract.
func (s *ClientSigner) ReadContract(
	ctx context.Context,
	contractAddress string,
	abiBytes []byte,
	functionName string,
	args ...interface{},
) (interface{}, error) {
	if s.backend == nil {
		return nil, ErrNoBackend
	}

	contractABI, err := abi.JSON(strings.NewReader(string(abiBytes)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI: %w", err)
	}

	data, err := contractABI.Pack(functionName, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack method call: %w", err)
	}

	addr := common.HexToAddress(contractAddress)
	result, err := s.backend.CallContract(ctx, ethereum.CallMsg{From: s.address, To: &addr, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("contract call failed: %w", err)
	}

	outputs, err := contractABI.Unpack(functionName, result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack result: %w", err)
	}

	switch len(outputs) {
	case 0:
		return nil, nil
	case 1:
		return outputs[0], nil
	default:
		return outputs, nil
	}
}

// WriteContract packs a method call and sends it as an EIP-1559 transaction.
// It returns once the node accepts the transaction.
func (s *ClientSigner) WriteContract(
	ctx context.Context,
	contractAddress string,
	abiBytes []byte,
	functionName string,
	opts evm.TxOptions,
	args ...interface{},
) (string, error) {
	if s.backend == nil {
		return "", ErrNoBackend
	}

	contractABI, err := abi.JSON(strings.NewReader(string(abiBytes)))
	if err != nil {
		return "", fmt.Errorf("failed to parse ABI: %w", err)
	}

	data, err := contractABI.Pack(functionName, args...)
	if err != nil {
		return "", fmt.Errorf("failed to pack method call: %w", err)
	}

	to := common.HexToAddress(contractAddress)
	nonce, err := s.backend.PendingNonceAt(ctx, s.address)
	if err != nil {
		return "", fmt.Errorf("failed to get nonce: %w", err)
	}

	hash, err := s.send(ctx, &to, nonce, data, opts)
	if err != nil {
		return "", err
	}
	s.logger.Info("transaction sent", "to", to, "method", functionName, "tx", hash)
	return hash, nil
}

// DeployContract sends a contract creation for bytecode with ABI-encoded
// constructor args. The returned address is derived from the sender nonce.
func (s *ClientSigner) DeployContract(
	ctx context.Context,
	abiBytes []byte,
	bytecode []byte,
	opts evm.TxOptions,
	args ...interface{},
) (string, common.Address, error) {
	if s.backend == nil {
		return "", common.Address{}, ErrNoBackend
	}
	if len(bytecode) == 0 {
		return "", common.Address{}, fmt.Errorf("empty bytecode")
	}

	contractABI, err := abi.JSON(strings.NewReader(string(abiBytes)))
	if err != nil {
		return "", common.Address{}, fmt.Errorf("failed to parse ABI: %w", err)
	}

	ctorArgs, err := contractABI.Pack("", args...)
	if err != nil {
		return "", common.Address{}, fmt.Errorf("failed to pack constructor: %w", err)
	}

	data := make([]byte, 0, len(bytecode)+len(ctorArgs))
	data = append(data, bytecode...)
	data = append(data, ctorArgs...)

	nonce, err := s.backend.PendingNonceAt(ctx, s.address)
	if err != nil {
		return "", common.Address{}, fmt.Errorf("failed to get nonce: %w", err)
	}
	contractAddr := crypto.CreateAddress(s.address, nonce)

	hash, err := s.send(ctx, nil, nonce, data, opts)
	if err != nil {
		return "", common.Address{}, err
	}
	s.logger.Info("deployment sent", "address", contractAddr, "tx", hash)
	return hash, contractAddr, nil
}

func (s *ClientSigner) send(ctx context.Context, to *common.Address, nonce uint64, data []byte, opts evm.TxOptions) (string, error) {
	chainID, err := s.GetChainID(ctx)
	if err != nil {
		return "", err
	}

	gasTipCap := opts.GasTipCap
	if gasTipCap == nil {
		if gasTipCap, err = s.backend.SuggestGasTipCap(ctx); err != nil {
			return "", fmt.Errorf("failed to suggest gas tip: %w", err)
		}
	}

	gasFeeCap := opts.GasFeeCap
	if gasFeeCap == nil {
		head, err := s.backend.HeaderByNumber(ctx, nil)
		if err != nil {
			return "", fmt.Errorf("failed to get latest header: %w", err)
		}
		baseFee := head.BaseFee
		if baseFee == nil {
			baseFee = new(big.Int)
		}
		gasFeeCap = new(big.Int).Add(gasTipCap, new(big.Int).Mul(baseFee, big.NewInt(2)))
	}
	if gasTipCap.Cmp(gasFeeCap) > 0 {
		gasTipCap = gasFeeCap
	}

	value := opts.Value
	if value == nil {
		value = new(big.Int)
	}

	gasLimit := opts.GasLimit
	if gasLimit == 0 {
		estimate, err := s.backend.EstimateGas(ctx, ethereum.CallMsg{
			From:      s.address,
			To:        to,
			GasFeeCap: gasFeeCap,
			GasTipCap: gasTipCap,
			Value:     value,
			Data:      data,
		})
		if err != nil {
			return "", fmt.Errorf("failed to estimate gas: %w", err)
		}
		gasLimit = estimate * 12 / 10
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: gasTipCap,
		GasFeeCap: gasFeeCap,
		Gas:       gasLimit,
		To:        to,
		Value:     value,
		Data:      data,
	})

	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), s.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := s.backend.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}
	return signedTx.Hash().Hex(), nil
}

// LatestBlockTime returns the timestamp of the latest block header.
func (s *ClientSigner) LatestBlockTime(ctx context.Context) (time.Time, error) {
	if s.backend == nil {
		return time.Time{}, ErrNoBackend
	}
	header, err := s.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read latest header: %w", err)
	}
	return time.Unix(int64(header.Time), 0), nil
}

// WaitForTransactionReceipt polls until the transaction is mined or ctx ends.
func (s *ClientSigner) WaitForTransactionReceipt(ctx context.Context, txHash string) (*evm.TransactionReceipt, error) {
	if s.backend == nil {
		return nil, ErrNoBackend
	}

	hash := common.HexToHash(txHash)
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := s.backend.TransactionReceipt(ctx, hash)
		switch {
		case err == nil && receipt != nil:
			out := &evm.TransactionReceipt{
				Status:      receipt.Status,
				BlockNumber: receipt.BlockNumber.Uint64(),
				TxHash:      receipt.TxHash.Hex(),
			}
			if receipt.ContractAddress != (common.Address{}) {
				out.ContractAddress = receipt.ContractAddress.Hex()
			}
			for _, l := range receipt.Logs {
				out.Logs = append(out.Logs, evm.Log{Address: l.Address, Topics: l.Topics, Data: l.Data})
			}
			return out, nil
		case err != nil && !errors.Is(err, ethereum.NotFound):
			s.logger.Debug("receipt lookup failed", "tx", txHash, "err", err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for %s: %w", txHash, ctx.Err())
		case <-ticker.C:
		}
	}
}

var (
	_ evm.OperatorEvmSigner = (*ClientSigner)(nil)
	_ evm.BlockTimeReader   = (*ClientSigner)(nil)
)
