// Package permit builds and signs ERC-20 permits for the user proxy.
package permit

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/element-fi/yieldforgood/go/mechanisms/evm"
)

var (
	// ErrMissingChainID means the signer could not report its chain.
	ErrMissingChainID = errors.New("chain id unavailable")

	// ErrMissingNonce means no permit nonce was supplied.
	ErrMissingNonce = errors.New("permit nonce undefined")

	// ErrMissingDomain means the permit domain has no name or version.
	ErrMissingDomain = errors.New("permit domain name or version undefined")
)

var usdcMainnet = common.HexToAddress(evm.MainnetUSDCAddress)

// Signer is a key holder that knows which chain it signs for.
type Signer interface {
	evm.ClientEvmSigner
	evm.ChainIDReader
}

// Request describes one permit to sign.
type Request struct {
	// Token is the permit-enabled ERC-20 and the domain's verifying contract.
	Token common.Address

	// TokenName is the domain name. It must be supplied by the caller: the
	// tokens' own name() output carries an appended date string and does not
	// match what they hash.
	TokenName string

	Owner   common.Address
	Spender common.Address
	Nonce   *big.Int

	// Version is the domain version, usually from DeterminePermitVersion.
	Version string
}

// DeterminePermitVersion returns the permit domain version for token on chainID.
// Mainnet USDC is the one token that signs with version "2".
func DeterminePermitVersion(token common.Address, chainID *big.Int) string {
	if chainID == nil || chainID.Cmp(evm.ChainIDMainnet) != 0 {
		return evm.PermitVersionDefault
	}
	if token == usdcMainnet {
		return evm.PermitVersionUSDC
	}
	return evm.PermitVersionDefault
}

// Builder signs permits with a single signer.
type Builder struct {
	signer Signer
	logger log.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the builder's logger.
func WithLogger(logger log.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// NewBuilder creates a Builder for signer.
func NewBuilder(signer Signer, opts ...Option) *Builder {
	b := &Builder{
		signer: signer,
		logger: log.Root(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildAndSign signs an infinite, non-expiring permit for req.Spender and
// returns it in proxy call form.
//
// A missing chain id, nonce, domain name or version returns ErrMissingChainID,
// ErrMissingNonce or ErrMissingDomain without asking the signer for anything.
// A signature that is not exactly 65 bytes returns an error wrapping
// evm.ErrMalformedSignature. Signing is never retried.
func (b *Builder) BuildAndSign(ctx context.Context, req Request) (*evm.PermitCallData, error) {
	chainID, err := b.signer.GetChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingChainID, err)
	}
	if chainID == nil {
		return nil, ErrMissingChainID
	}
	if req.Nonce == nil {
		return nil, ErrMissingNonce
	}
	if strings.TrimSpace(req.TokenName) == "" || req.Version == "" {
		return nil, ErrMissingDomain
	}

	domain := evm.PermitDomain(req.TokenName, req.Version, chainID, req.Token)
	message := evm.PermitMessage(req.Owner, req.Spender, req.Nonce)

	b.logger.Debug("requesting permit signature",
		"token", req.Token, "name", req.TokenName, "version", req.Version,
		"chain", chainID, "owner", req.Owner, "spender", req.Spender, "nonce", req.Nonce)

	raw, err := b.signer.SignTypedData(ctx, domain, evm.GetPermitEIP712Types(), evm.PermitPrimaryType, message)
	if err != nil {
		return nil, fmt.Errorf("failed to sign permit: %w", err)
	}

	sig, err := evm.DecodeSignature(evm.BytesToHex(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode permit signature: %w", err)
	}

	return &evm.PermitCallData{
		TokenContract: req.Token,
		Who:           req.Spender,
		Amount:        evm.MaxUint256(),
		Expiration:    evm.MaxUint256(),
		R:             sig.R,
		S:             sig.S,
		V:             sig.V,
	}, nil
}
