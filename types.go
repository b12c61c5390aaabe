package y4g

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/element-fi/yieldforgood/go/mechanisms/evm/mint"
	"github.com/element-fi/yieldforgood/go/pkg/deployer"
)

// MintRequest selects what to mint.
type MintRequest struct {
	// Symbol keys tokens, tranches and wrapped positions in the address book
	Symbol string
	// Expiration is the unix unlock time of the tranche to mint into
	Expiration int64
	// Amount is a human decimal amount, e.g. "1.5"
	Amount string
	// PermitName overrides the configured permit domain name for the token
	PermitName string
}

// PreparedMint is a mint call ready for submission.
type PreparedMint struct {
	AttemptID  uuid.UUID
	Network    string
	ChainID    *big.Int
	Symbol     string
	Token      common.Address
	UserProxy  common.Address
	Decimals   uint8
	Amount     *big.Int
	Expiration time.Time
	Version    string
	Call       *mint.CallArguments
}

// MintResult is a confirmed mint.
type MintResult struct {
	AttemptID   uuid.UUID `json:"attemptId"`
	Symbol      string    `json:"symbol"`
	TxHash      string    `json:"transactionHash"`
	BlockNumber uint64    `json:"blockNumber"`
	Amount      string    `json:"amount"`
	Expiration  time.Time `json:"expiration"`
}

// DeploymentResult is a deployment recorded in a network's address book.
type DeploymentResult struct {
	*deployer.Deployment
	// Network is the address book the deployment was written to
	Network string
}

// TrancheRequest selects the tranche to deploy.
type TrancheRequest struct {
	// Symbol keys the wrapped position and the tranche list
	Symbol string
	// Duration is added to the latest block time to get the expiration
	Duration time.Duration
	// DonationAddress is recorded with the tranche; zero means the default recipient
	DonationAddress common.Address
}
