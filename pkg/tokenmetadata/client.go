// Package tokenmetadata reads the ERC-20 permit metadata a mint needs from
// the token contract itself.
package tokenmetadata

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/element-fi/yieldforgood/go/mechanisms/evm"
)

// ErrUnexpectedResult is returned when a token answers with the wrong type.
var ErrUnexpectedResult = errors.New("unexpected token call result")

// TokenMetadata is what the mint flow knows about a token.
type TokenMetadata struct {
	Address  common.Address `json:"tokenAddress"`
	Name     string         `json:"name"`
	Decimals uint8          `json:"decimals"`
}

// Client reads token metadata over a chain client. Decimals and names are
// cached per token; nonces never are.
type Client struct {
	chain evm.ChainClient

	mu    sync.Mutex
	cache map[common.Address]*TokenMetadata
}

// NewClient creates a new token metadata client
func NewClient(chain evm.ChainClient) *Client {
	return &Client{
		chain: chain,
		cache: make(map[common.Address]*TokenMetadata),
	}
}

// Nonce returns owner's current permit nonce on token.
func (c *Client) Nonce(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	out, err := c.chain.ReadContract(ctx, token.Hex(), evm.ERC20PermitABI, evm.FunctionNonces, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to read nonces(%s) on %s: %w", owner.Hex(), token.Hex(), err)
	}
	nonce, ok := out.(*big.Int)
	if !ok || nonce == nil {
		return nil, fmt.Errorf("%w: nonces returned %T", ErrUnexpectedResult, out)
	}
	return new(big.Int).Set(nonce), nil
}

// Decimals returns the token's decimals.
func (c *Client) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	if md := c.cached(token); md != nil {
		return md.Decimals, nil
	}
	out, err := c.chain.ReadContract(ctx, token.Hex(), evm.ERC20PermitABI, evm.FunctionDecimals)
	if err != nil {
		return 0, fmt.Errorf("failed to read decimals on %s: %w", token.Hex(), err)
	}
	decimals, ok := out.(uint8)
	if !ok {
		return 0, fmt.Errorf("%w: decimals returned %T", ErrUnexpectedResult, out)
	}
	c.store(token, func(md *TokenMetadata) { md.Decimals = decimals })
	return decimals, nil
}

// GetMetadata reads name and decimals. The on-chain name of tranche-era
// tokens carries an appended date, so it is informational only and never
// used as a permit domain name.
func (c *Client) GetMetadata(ctx context.Context, token common.Address) (*TokenMetadata, error) {
	if md := c.cached(token); md != nil && md.Name != "" {
		return md, nil
	}
	decimals, err := c.Decimals(ctx, token)
	if err != nil {
		return nil, err
	}
	out, err := c.chain.ReadContract(ctx, token.Hex(), evm.ERC20PermitABI, evm.FunctionName)
	if err != nil {
		return nil, fmt.Errorf("failed to read name on %s: %w", token.Hex(), err)
	}
	name, ok := out.(string)
	if !ok {
		return nil, fmt.Errorf("%w: name returned %T", ErrUnexpectedResult, out)
	}
	name = strings.TrimSpace(name)
	c.store(token, func(md *TokenMetadata) {
		md.Name = name
		md.Decimals = decimals
	})
	return c.cached(token), nil
}

func (c *Client) cached(token common.Address) *TokenMetadata {
	c.mu.Lock()
	defer c.mu.Unlock()
	md, ok := c.cache[token]
	if !ok {
		return nil
	}
	cp := *md
	return &cp
}

func (c *Client) store(token common.Address, update func(*TokenMetadata)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	md, ok := c.cache[token]
	if !ok {
		md = &TokenMetadata{Address: token}
		c.cache[token] = md
	}
	update(md)
}
