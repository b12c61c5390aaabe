package y4g

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/element-fi/yieldforgood/go/pkg/addressbook"
	"github.com/element-fi/yieldforgood/go/pkg/deployer"
)

// Deployer creates contracts on the operator's network and returns where they landed.
type Deployer interface {
	DeployUserProxy(ctx context.Context, weth, trancheFactory common.Address) (*deployer.Deployment, error)
	DeployTranche(ctx context.Context, factory, wrappedPosition common.Address, expiration *big.Int) (*deployer.Deployment, error)
}

// AddressBook loads and persists a network's address document.
// The mint flow only reads from it.
type AddressBook interface {
	Load(network string) (*addressbook.Addresses, error)
	Save(network string, addresses *addressbook.Addresses) error
}

// OperatorPrompt collects input from the human running the tool.
type OperatorPrompt interface {
	// Question asks for a free-form answer
	Question(ctx context.Context, question string) (string, error)

	// Select asks the operator to pick one of options and returns its index
	Select(ctx context.Context, question string, options []string) (int, error)
}

// Verifier registers deployed bytecode with a block explorer.
type Verifier interface {
	Verify(ctx context.Context, contractName string, address common.Address, ctorArgs []byte) error
}
