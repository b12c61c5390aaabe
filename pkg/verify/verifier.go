// Package verify registers deployed contract source with an Etherscan-style explorer.
package verify

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/time/rate"

	"github.com/element-fi/yieldforgood/go/pkg/artifacts"
)

// ErrVerificationFailed is returned when the explorer rejects a submission.
var ErrVerificationFailed = errors.New("verification failed")

const defaultPollInterval = 5 * time.Second

// ArtifactSource resolves contract artifacts and their compiler input.
type ArtifactSource interface {
	Load(name string) (*artifacts.Artifact, error)
	BuildInfo(artifact *artifacts.Artifact) (*artifacts.BuildInfo, error)
}

// Verifier submits contracts for source verification and tracks outcomes.
type Verifier struct {
	etherscan    *EtherscanClient
	chainID      *big.Int
	artifacts    ArtifactSource
	log          log.Logger
	pollInterval time.Duration

	numVerified int
	numSkipped  int
	numFailed   int
}

// NewVerifier creates a verifier for chainID against the default Etherscan v2 endpoint.
// A nil limiter allows four requests per second.
func NewVerifier(apiKey string, chainID uint64, store ArtifactSource, l log.Logger, limiter *rate.Limiter) (*Verifier, error) {
	return NewVerifierWithURL(apiKey, "https://api.etherscan.io/v2/api", chainID, store, l, limiter)
}

// NewVerifierWithURL is NewVerifier with an explicit explorer API URL.
func NewVerifierWithURL(apiKey, url string, chainID uint64, store ArtifactSource, l log.Logger, limiter *rate.Limiter) (*Verifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("explorer API key is required")
	}
	if store == nil {
		return nil, fmt.Errorf("artifact source is required")
	}
	if l == nil {
		l = log.Root()
	}
	return &Verifier{
		etherscan:    NewEtherscanClient(apiKey, url, limiter),
		chainID:      new(big.Int).SetUint64(chainID),
		artifacts:    store,
		log:          l,
		pollInterval: defaultPollInterval,
	}, nil
}

// Stats reports how many contracts were verified, skipped and failed.
func (v *Verifier) Stats() (verified, skipped, failed int) {
	return v.numVerified, v.numSkipped, v.numFailed
}

// Verify registers the source of contractName deployed at address.
// ctorArgs is the ABI-encoded constructor argument blob, without the selector.
func (v *Verifier) Verify(ctx context.Context, contractName string, address common.Address, ctorArgs []byte) error {
	l := v.log.New("contract", contractName, "address", address)

	verified, err := v.etherscan.IsVerified(ctx, v.chainID, address)
	if err != nil {
		v.numFailed++
		return fmt.Errorf("failed to query verification status of %s: %w", contractName, err)
	}
	if verified {
		l.Info("contract already verified, skipping")
		v.numSkipped++
		return nil
	}

	if err := v.submit(ctx, l, contractName, address, ctorArgs); err != nil {
		v.numFailed++
		return err
	}
	v.numVerified++
	return nil
}

func (v *Verifier) submit(ctx context.Context, l log.Logger, contractName string, address common.Address, ctorArgs []byte) error {
	artifact, err := v.artifacts.Load(contractName)
	if err != nil {
		return fmt.Errorf("failed to load artifact for %s: %w", contractName, err)
	}
	info, err := v.artifacts.BuildInfo(artifact)
	if err != nil {
		return fmt.Errorf("failed to load build info for %s: %w", contractName, err)
	}

	guid, err := v.etherscan.SubmitSource(ctx, v.chainID, SourceSubmission{
		Address:            address,
		StandardJSONInput:  string(info.Input),
		ContractName:       artifact.FullyQualifiedName(),
		CompilerVersion:    compilerVersion(info.SolcLongVersion),
		ConstructorArgsHex: strings.TrimPrefix(hexutil.Encode(ctorArgs), "0x"),
	})
	if err != nil {
		return fmt.Errorf("failed to submit %s for verification: %w", contractName, err)
	}
	if guid == "" {
		l.Info("explorer reports contract already verified")
		return nil
	}
	l.Info("verification submitted", "guid", guid)

	ticker := time.NewTicker(v.pollInterval)
	defer ticker.Stop()
	for {
		status, result, err := v.etherscan.CheckStatus(ctx, v.chainID, guid)
		if err != nil {
			return fmt.Errorf("failed to check verification of %s: %w", contractName, err)
		}
		switch status {
		case StatusPass:
			l.Info("contract verified", "result", result)
			return nil
		case StatusFail:
			return fmt.Errorf("%w: %s: %s", ErrVerificationFailed, contractName, result)
		}
		l.Debug("verification pending", "guid", guid)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func compilerVersion(long string) string {
	if strings.HasPrefix(long, "v") {
		return long
	}
	return "v" + long
}
