package y4g

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/element-fi/yieldforgood/go/mechanisms/evm"
	"github.com/element-fi/yieldforgood/go/pkg/addressbook"
	"github.com/element-fi/yieldforgood/go/pkg/deployer"
)

// WaitFunc blocks before verification, e.g. with a countdown.
type WaitFunc func(ctx context.Context, delay time.Duration) error

// TrancheChain reports the chain and its head time.
type TrancheChain interface {
	evm.ChainIDReader
	evm.BlockTimeReader
}

// deployFlow holds what every deployment shares: the network gate, the
// address book and post-deployment verification.
type deployFlow struct {
	book         AddressBook
	verifier     Verifier
	delay        time.Duration
	wait         WaitFunc
	allowMainnet bool
	log          log.Logger
}

// DeploymentOption configures a deployment flow
type DeploymentOption func(*deployFlow)

// WithVerifier verifies the deployed contract after waiting delay
func WithVerifier(v Verifier, delay time.Duration, wait WaitFunc) DeploymentOption {
	return func(f *deployFlow) {
		f.verifier = v
		f.delay = delay
		if wait != nil {
			f.wait = wait
		}
	}
}

// WithDeploymentLogger sets the logger
func WithDeploymentLogger(l log.Logger) DeploymentOption {
	return func(f *deployFlow) {
		f.log = l
	}
}

// WithDeploymentMainnet lets the network gate accept chain 1
func WithDeploymentMainnet(allow bool) DeploymentOption {
	return func(f *deployFlow) {
		f.allowMainnet = allow
	}
}

func newDeployFlow(book AddressBook, opts []DeploymentOption) deployFlow {
	f := deployFlow{
		book: book,
		wait: sleep,
		log:  log.Root(),
	}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

func (f *deployFlow) open(ctx context.Context, chain evm.ChainIDReader) (string, *addressbook.Addresses, error) {
	chainID, err := chain.GetChainID(ctx)
	if err != nil {
		return "", nil, wrapOpError(ErrCodeMissingPrerequisite, "failed to read chain id", err, nil)
	}
	network, err := GateNetwork(chainID, f.allowMainnet)
	if err != nil {
		return "", nil, err
	}
	book, err := f.book.Load(network)
	if err != nil {
		return "", nil, wrapOpError(ErrCodeMissingPrerequisite, "failed to load address book", err,
			map[string]interface{}{"network": network})
	}
	return network, book, nil
}

// record saves book and then verifies the deployment. Once the book is saved
// the result is returned even when waiting or verification fails.
func (f *deployFlow) record(ctx context.Context, network string, book *addressbook.Addresses, d *deployer.Deployment) (*DeploymentResult, error) {
	details := map[string]interface{}{"network": network, "contract": d.Contract, "address": d.Address.Hex()}
	f.log.Info("writing changed address to address book", "network", network, "contract", d.Contract, "address", d.Address)
	if err := f.book.Save(network, book); err != nil {
		return nil, wrapOpError(ErrCodeRecordFailed, "failed to save address book", err, details)
	}
	result := &DeploymentResult{Deployment: d, Network: network}

	if f.verifier == nil {
		return result, nil
	}
	f.log.Info("waiting before verifying", "contract", d.Contract, "delay", f.delay)
	if err := f.wait(ctx, f.delay); err != nil {
		if errors.Is(err, context.Canceled) {
			return result, wrapOpError(ErrCodeAborted, "verification cancelled", err, details)
		}
		return result, wrapOpError(ErrCodeVerificationFailed, "failed waiting to verify", err, details)
	}
	if err := f.verifier.Verify(ctx, d.Contract, d.Address, d.ConstructorArgs); err != nil {
		return result, wrapOpError(ErrCodeVerificationFailed, fmt.Sprintf("failed to verify %s", d.Contract), err, details)
	}
	return result, nil
}

// ProxyDeployment deploys the user proxy for the connected network and records
// it in the address book.
type ProxyDeployment struct {
	deployFlow
	chain    evm.ChainIDReader
	deployer Deployer
}

// NewProxyDeployment creates a user proxy deployment flow.
func NewProxyDeployment(chain evm.ChainIDReader, book AddressBook, d Deployer, opts ...DeploymentOption) *ProxyDeployment {
	return &ProxyDeployment{
		deployFlow: newDeployFlow(book, opts),
		chain:      chain,
		deployer:   d,
	}
}

// Run deploys UserProxy(weth, trancheFactory, trancheBytecodeHash), saves its
// address and, when a verifier is configured, verifies it. The address book is
// written before verification, so a verification error is returned together
// with the deployment.
func (p *ProxyDeployment) Run(ctx context.Context) (*DeploymentResult, error) {
	network, book, err := p.open(ctx, p.chain)
	if err != nil {
		return nil, err
	}

	weth := book.Tokens["weth"]
	if err := ValidateAddresses(weth, book.TrancheFactory); err != nil {
		return nil, wrapOpError(ErrCodeMissingPrerequisite, err.Error(), err,
			map[string]interface{}{"network": network})
	}

	deployment, err := p.deployer.DeployUserProxy(ctx, common.HexToAddress(weth), common.HexToAddress(book.TrancheFactory))
	if err != nil {
		return nil, wrapOpError(ErrCodeTransactionFailed, "failed to deploy user proxy", err, nil)
	}

	book.UserProxy = deployment.Address.Hex()
	return p.record(ctx, network, book, deployment)
}

// TrancheDeployment deploys tranches through the network's tranche factory and
// appends them to the address book.
type TrancheDeployment struct {
	deployFlow
	chain    TrancheChain
	deployer Deployer
}

// NewTrancheDeployment creates a tranche deployment flow.
func NewTrancheDeployment(chain TrancheChain, book AddressBook, d Deployer, opts ...DeploymentOption) *TrancheDeployment {
	return &TrancheDeployment{
		deployFlow: newDeployFlow(book, opts),
		chain:      chain,
		deployer:   d,
	}
}

// Run deploys a tranche of req.Symbol's wrapped position expiring req.Duration
// after the latest block, records {expiration, address, trancheFactory,
// donationAddress} under tranches[symbol], and verifies it.
func (t *TrancheDeployment) Run(ctx context.Context, req TrancheRequest) (*DeploymentResult, error) {
	symbol := strings.ToLower(req.Symbol)
	if req.Duration < time.Second {
		return nil, NewOpError(ErrCodeMissingPrerequisite, "tranche duration must be at least one second",
			map[string]interface{}{"duration": req.Duration.String()})
	}

	network, book, err := t.open(ctx, t.chain)
	if err != nil {
		return nil, err
	}
	if !evm.IsValidAddress(book.TrancheFactory) || evm.IsZeroAddress(common.HexToAddress(book.TrancheFactory)) {
		return nil, NewOpError(ErrCodeMissingPrerequisite, "please init tranche factory",
			map[string]interface{}{"network": network})
	}
	factory := common.HexToAddress(book.TrancheFactory)
	position, err := book.WrappedPosition(symbol)
	if err != nil {
		return nil, leafError(err, "network", network, "symbol", symbol)
	}

	head, err := t.chain.LatestBlockTime(ctx)
	if err != nil {
		return nil, wrapOpError(ErrCodeMissingPrerequisite, "failed to read latest block time", err, nil)
	}
	expiration := head.Unix() + int64(req.Duration/time.Second)

	deployment, err := t.deployer.DeployTranche(ctx, factory, position, big.NewInt(expiration))
	if err != nil {
		return nil, wrapOpError(ErrCodeTransactionFailed, "failed to deploy tranche", err,
			map[string]interface{}{"symbol": symbol, "expiration": expiration})
	}

	donation := req.DonationAddress
	if evm.IsZeroAddress(donation) {
		donation = common.HexToAddress(evm.DefaultDonationAddress)
	}
	book.AddTranche(symbol, addressbook.Tranche{
		Address:         deployment.Address.Hex(),
		Expiration:      expiration,
		TrancheFactory:  evm.NormalizeAddress(book.TrancheFactory),
		DonationAddress: donation.Hex(),
	})
	return t.record(ctx, network, book, deployment)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
