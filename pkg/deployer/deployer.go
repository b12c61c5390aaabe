// Package deployer creates contracts from hardhat artifacts with an
// operator-chosen EIP-1559 fee cap.
package deployer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/element-fi/yieldforgood/go/mechanisms/evm"
	"github.com/element-fi/yieldforgood/go/pkg/artifacts"
)

var (
	// ErrDeploymentReverted is returned when the creation transaction is mined with a failed status.
	ErrDeploymentReverted = errors.New("deployment reverted")

	// ErrNoTrancheCreated means a mined deployTranche emitted no TrancheCreated event.
	ErrNoTrancheCreated = errors.New("no TrancheCreated event in receipt")
)

const (
	UserProxyContract = "UserProxy"
	TrancheContract   = "Tranche"
)

// ArtifactLoader resolves hardhat artifacts by contract name.
type ArtifactLoader interface {
	Load(name string) (*artifacts.Artifact, error)
}

// Prompter asks the operator a free-form question.
type Prompter interface {
	Question(ctx context.Context, question string) (string, error)
}

// Announcer prints deployment banners.
type Announcer interface {
	DeployContract(name string)
	SuccessfulDeploy(name, address string)
}

// Deployment is a mined contract creation.
type Deployment struct {
	Contract        string
	Address         common.Address
	TxHash          string
	BlockNumber     uint64
	ConstructorArgs []byte
}

// Deployer deploys named contracts through a chain client.
type Deployer struct {
	chain     evm.ChainClient
	artifacts ArtifactLoader
	prompt    Prompter
	announcer Announcer
	log       log.Logger
}

// Option configures a Deployer.
type Option func(*Deployer)

// WithLogger sets the logger. The default is log.Root().
func WithLogger(l log.Logger) Option {
	return func(d *Deployer) {
		d.log = l
	}
}

// WithAnnouncer prints banners around each deployment.
func WithAnnouncer(a Announcer) Option {
	return func(d *Deployer) {
		d.announcer = a
	}
}

// New creates a Deployer.
func New(chain evm.ChainClient, loader ArtifactLoader, prompt Prompter, opts ...Option) *Deployer {
	d := &Deployer{
		chain:     chain,
		artifacts: loader,
		prompt:    prompt,
		log:       log.Root(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Deploy creates contractName with args. label names the contract in the gas
// prompt and banners ("user proxy" asks "user proxy gasPrice: ").
func (d *Deployer) Deploy(ctx context.Context, contractName, label string, args ...interface{}) (*Deployment, error) {
	artifact, err := d.artifacts.Load(contractName)
	if err != nil {
		return nil, fmt.Errorf("failed to load artifact: %w", err)
	}
	code, err := artifact.Code()
	if err != nil {
		return nil, err
	}
	parsed, err := abi.JSON(strings.NewReader(string(artifact.ABI)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s ABI: %w", contractName, err)
	}
	ctorArgs, err := parsed.Pack("", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s constructor arguments: %w", contractName, err)
	}

	feeCap, err := d.askFeeCap(ctx, label)
	if err != nil {
		return nil, err
	}

	if d.announcer != nil {
		d.announcer.DeployContract(label)
	}
	txHash, address, err := d.chain.DeployContract(ctx, artifact.ABI, code, evm.TxOptions{GasFeeCap: feeCap}, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to deploy %s: %w", contractName, err)
	}
	d.log.Info("deployment submitted", "contract", contractName, "tx", txHash, "address", address)

	receipt, err := d.chain.WaitForTransactionReceipt(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("failed to wait for %s deployment: %w", contractName, err)
	}
	if receipt.Status != evm.TxStatusSuccess {
		return nil, fmt.Errorf("%w: %s in %s", ErrDeploymentReverted, contractName, txHash)
	}
	if receipt.ContractAddress != "" {
		address = common.HexToAddress(receipt.ContractAddress)
	}
	if d.announcer != nil {
		d.announcer.SuccessfulDeploy(label, address.Hex())
	}

	return &Deployment{
		Contract:        contractName,
		Address:         address,
		TxHash:          txHash,
		BlockNumber:     receipt.BlockNumber,
		ConstructorArgs: ctorArgs,
	}, nil
}

func (d *Deployer) askFeeCap(ctx context.Context, label string) (*big.Int, error) {
	answer, err := d.prompt.Question(ctx, strings.ToLower(label)+" gasPrice: ")
	if err != nil {
		return nil, err
	}
	feeCap, err := evm.ParseUnits(answer, 9)
	if err != nil {
		return nil, fmt.Errorf("invalid gas price %q: %w", answer, err)
	}
	if feeCap.Sign() == 0 {
		return nil, fmt.Errorf("gas price must be greater than zero")
	}
	return feeCap, nil
}

// UserProxyData is the constructor input of the user proxy.
type UserProxyData struct {
	WETH                common.Address
	TrancheFactory      common.Address
	TrancheBytecodeHash [32]byte
}

// UserProxyParams derives the user proxy constructor input from the network's
// WETH and tranche factory and the compiled Tranche bytecode.
func UserProxyParams(loader ArtifactLoader, weth, trancheFactory common.Address) (UserProxyData, error) {
	tranche, err := loader.Load(TrancheContract)
	if err != nil {
		return UserProxyData{}, fmt.Errorf("failed to load tranche artifact: %w", err)
	}
	hash, err := tranche.CodeHash()
	if err != nil {
		return UserProxyData{}, err
	}
	return UserProxyData{WETH: weth, TrancheFactory: trancheFactory, TrancheBytecodeHash: hash}, nil
}

// DeployUserProxy deploys UserProxy(weth, trancheFactory, keccak256(Tranche bytecode)).
func (d *Deployer) DeployUserProxy(ctx context.Context, weth, trancheFactory common.Address) (*Deployment, error) {
	data, err := UserProxyParams(d.artifacts, weth, trancheFactory)
	if err != nil {
		return nil, err
	}
	return d.Deploy(ctx, UserProxyContract, "User Proxy", data.WETH, data.TrancheFactory, data.TrancheBytecodeHash)
}

// DeployTranche asks the tranche factory for a tranche of wrappedPosition
// unlocking at expiration, and reads its address from the TrancheCreated event.
// The tranche takes no constructor arguments of its own.
func (d *Deployer) DeployTranche(ctx context.Context, factory, wrappedPosition common.Address, expiration *big.Int) (*Deployment, error) {
	feeCap, err := d.askFeeCap(ctx, TrancheContract)
	if err != nil {
		return nil, err
	}

	if d.announcer != nil {
		d.announcer.DeployContract(TrancheContract)
	}
	txHash, err := d.chain.WriteContract(ctx, factory.Hex(), evm.TrancheFactoryABI, evm.FunctionDeployTranche,
		evm.TxOptions{GasFeeCap: feeCap}, expiration, wrappedPosition)
	if err != nil {
		return nil, fmt.Errorf("failed to deploy %s: %w", TrancheContract, err)
	}
	d.log.Info("deployment submitted", "contract", TrancheContract, "tx", txHash, "factory", factory, "expiration", expiration)

	receipt, err := d.chain.WaitForTransactionReceipt(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("failed to wait for %s deployment: %w", TrancheContract, err)
	}
	if receipt.Status != evm.TxStatusSuccess {
		return nil, fmt.Errorf("%w: %s in %s", ErrDeploymentReverted, TrancheContract, txHash)
	}
	address, err := trancheCreated(receipt, factory)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, txHash)
	}
	if d.announcer != nil {
		d.announcer.SuccessfulDeploy(TrancheContract, address.Hex())
	}

	return &Deployment{
		Contract:    TrancheContract,
		Address:     address,
		TxHash:      txHash,
		BlockNumber: receipt.BlockNumber,
	}, nil
}

func trancheCreated(receipt *evm.TransactionReceipt, factory common.Address) (common.Address, error) {
	for _, l := range receipt.Logs {
		if l.Address != factory || len(l.Topics) < 2 || l.Topics[0] != evm.TrancheCreatedTopic {
			continue
		}
		return common.BytesToAddress(l.Topics[1].Bytes()), nil
	}
	return common.Address{}, ErrNoTrancheCreated
}
