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
	"github.com/google/uuid"

	"github.com/element-fi/yieldforgood/go/mechanisms/evm"
	"github.com/element-fi/yieldforgood/go/mechanisms/evm/mint"
	"github.com/element-fi/yieldforgood/go/mechanisms/evm/permit"
	"github.com/element-fi/yieldforgood/go/pkg/addressbook"
	"github.com/element-fi/yieldforgood/go/pkg/prompt"
	"github.com/element-fi/yieldforgood/go/pkg/tokenmetadata"
)

// nativeDecimals is the precision of the chain's native currency.
const nativeDecimals = 18

// MintClient mints tranche positions through the user proxy. Each mint is a
// single linear attempt: read, sign, assemble, submit, confirm. Calls must be
// serialized per owner because the permit nonce is read before signing.
type MintClient struct {
	signer       evm.OperatorEvmSigner
	book         AddressBook
	permits      *permit.Builder
	tokens       *tokenmetadata.Client
	assembler    *mint.Assembler
	permitNames  map[string]string
	allowMainnet bool
	now          func() time.Time
	log          log.Logger

	beforeSignHooks    []BeforeSignHook
	afterSubmitHooks   []AfterSubmitHook
	onMintFailureHooks []OnMintFailureHook
}

// MintClientOption configures the client
type MintClientOption func(*MintClient)

// WithLogger sets the client logger
func WithLogger(l log.Logger) MintClientOption {
	return func(c *MintClient) {
		c.log = l
	}
}

// WithClock replaces time.Now when deciding which tranches are active
func WithClock(now func() time.Time) MintClientOption {
	return func(c *MintClient) {
		c.now = now
	}
}

// WithSchema selects the proxy mint signature
func WithSchema(schema mint.Schema) MintClientOption {
	return func(c *MintClient) {
		c.assembler = mint.NewAssembler(schema)
	}
}

// WithPermitNames sets the permit domain name per token symbol
func WithPermitNames(names map[string]string) MintClientOption {
	return func(c *MintClient) {
		for symbol, name := range names {
			c.permitNames[strings.ToLower(symbol)] = name
		}
	}
}

// WithAllowMainnet lets the network gate accept chain 1
func WithAllowMainnet(allow bool) MintClientOption {
	return func(c *MintClient) {
		c.allowMainnet = allow
	}
}

// NewMintClient creates a client that signs and submits with signer and reads
// addresses from book.
func NewMintClient(signer evm.OperatorEvmSigner, book AddressBook, opts ...MintClientOption) *MintClient {
	c := &MintClient{
		signer:      signer,
		book:        book,
		tokens:      tokenmetadata.NewClient(signer),
		assembler:   mint.NewAssembler(mint.SchemaV1),
		permitNames: make(map[string]string),
		now:         time.Now,
		log:         log.Root(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.permits = permit.NewBuilder(signer, permit.WithLogger(c.log))
	return c
}

// Schema returns the mint signature the client assembles for.
func (c *MintClient) Schema() mint.Schema {
	return c.assembler.Schema()
}

// PrepareMint runs every step of a mint short of submission and returns the
// signed, assembled call.
func (c *MintClient) PrepareMint(ctx context.Context, req MintRequest) (*PreparedMint, error) {
	chainID, err := c.signer.GetChainID(ctx)
	if err != nil {
		return nil, wrapOpError(ErrCodeMissingPrerequisite, "failed to read chain id", fmt.Errorf("%w: %v", permit.ErrMissingChainID, err), nil)
	}
	network, err := GateNetwork(chainID, c.allowMainnet)
	if err != nil {
		return nil, err
	}
	book, err := c.loadBook(network)
	if err != nil {
		return nil, err
	}

	symbol := req.Symbol
	position, err := book.WrappedPosition(symbol)
	if err != nil {
		return nil, leafError(err, "symbol", symbol)
	}
	token, err := book.Token(symbol)
	if err != nil {
		return nil, leafError(err, "symbol", symbol)
	}
	userProxy, err := book.UserProxyAddress()
	if err != nil {
		return nil, leafError(err, "network", network)
	}
	tranche, err := selectTranche(book, symbol, req.Expiration, c.now())
	if err != nil {
		return nil, leafError(err, "symbol", symbol, "expiration", req.Expiration)
	}

	prepared := &PreparedMint{
		AttemptID:  uuid.New(),
		Network:    network,
		ChainID:    chainID,
		Symbol:     symbol,
		Token:      token,
		UserProxy:  userProxy,
		Expiration: tranche.ExpiresAt(),
		Version:    permit.DeterminePermitVersion(token, chainID),
	}
	l := c.log.New("attempt", prepared.AttemptID, "symbol", symbol, "network", network)

	native := evm.IsNativeCurrency(token)
	owner := common.HexToAddress(c.signer.Address())
	var (
		nonce *big.Int
		name  string
	)
	if native {
		prepared.Decimals = nativeDecimals
	} else {
		if name, err = c.permitName(req); err != nil {
			return nil, err
		}
		if nonce, err = c.readNonce(ctx, token, owner); err != nil {
			return nil, err
		}
		if prepared.Decimals, err = c.readDecimals(ctx, token); err != nil {
			return nil, err
		}
	}
	if prepared.Amount, err = parseAmount(req.Amount, prepared.Decimals); err != nil {
		return nil, err
	}
	if err := c.runBeforeSign(ctx, prepared); err != nil {
		return nil, err
	}

	var permits []evm.PermitCallData
	if !native {
		l.Info("requesting permit signature", "token", token, "version", prepared.Version)
		signed, err := c.permits.BuildAndSign(ctx, permit.Request{
			Token:     token,
			TokenName: name,
			Owner:     owner,
			Spender:   userProxy,
			Nonce:     nonce,
			Version:   prepared.Version,
		})
		if err != nil {
			return nil, leafError(err, "token", token.Hex())
		}
		permits = append(permits, *signed)
	}

	call, err := c.assembler.Assemble(mint.Params{
		Amount:          prepared.Amount,
		BaseAsset:       token,
		UnlockTimestamp: big.NewInt(tranche.Expiration),
		Position:        position,
		DonationAddress: donationAddress(tranche),
		Permits:         permits,
	})
	if err != nil {
		return nil, leafError(err, "schema", c.assembler.Schema().String())
	}
	prepared.Call = call
	return prepared, nil
}

// Mint prepares, submits and confirms a mint.
func (c *MintClient) Mint(ctx context.Context, req MintRequest) (*MintResult, error) {
	start := time.Now()

	prepared, err := c.PrepareMint(ctx, req)
	if err != nil {
		c.runMintFailure(ctx, req, nil, err, time.Since(start))
		return nil, err
	}

	result, err := c.submit(ctx, prepared)
	if err != nil {
		c.runMintFailure(ctx, req, prepared, err, time.Since(start))
		return nil, err
	}

	for _, hook := range c.afterSubmitHooks {
		if hookErr := hook(SubmitResultContext{Ctx: ctx, Prepared: prepared, Result: *result, Duration: time.Since(start)}); hookErr != nil {
			c.log.Warn("after submit hook failed", "err", hookErr)
		}
	}
	return result, nil
}

func (c *MintClient) submit(ctx context.Context, prepared *PreparedMint) (*MintResult, error) {
	call := prepared.Call
	l := c.log.New("attempt", prepared.AttemptID)

	txHash, err := c.signer.WriteContract(ctx, prepared.UserProxy.Hex(), call.Schema.ABI(), evm.FunctionMint,
		evm.TxOptions{Value: call.Value()}, call.Args()...)
	if err != nil {
		return nil, wrapOpError(ErrCodeTransactionFailed, "failed to submit mint", err, nil)
	}
	l.Info("mint submitted", "tx", txHash, "proxy", prepared.UserProxy, "value", call.Value())

	receipt, err := c.signer.WaitForTransactionReceipt(ctx, txHash)
	if err != nil {
		return nil, wrapOpError(ErrCodeTransactionFailed, "failed to confirm mint", err,
			map[string]interface{}{"transaction": txHash})
	}
	if receipt.Status != evm.TxStatusSuccess {
		return nil, NewOpError(ErrCodeTransactionFailed, "mint reverted",
			map[string]interface{}{"transaction": txHash, "block": receipt.BlockNumber})
	}
	l.Info("mint confirmed", "tx", txHash, "block", receipt.BlockNumber)

	return &MintResult{
		AttemptID:   prepared.AttemptID,
		Symbol:      prepared.Symbol,
		TxHash:      txHash,
		BlockNumber: receipt.BlockNumber,
		Amount:      evm.FormatUnits(prepared.Amount, prepared.Decimals),
		Expiration:  prepared.Expiration,
	}, nil
}

// InteractiveMint asks the operator for the token, tranche, amount and, when
// not configured, the permit name, then mints.
func (c *MintClient) InteractiveMint(ctx context.Context, p OperatorPrompt) (*MintResult, error) {
	chainID, err := c.signer.GetChainID(ctx)
	if err != nil {
		return nil, wrapOpError(ErrCodeMissingPrerequisite, "failed to read chain id", fmt.Errorf("%w: %v", permit.ErrMissingChainID, err), nil)
	}
	network, err := GateNetwork(chainID, c.allowMainnet)
	if err != nil {
		return nil, err
	}
	book, err := c.loadBook(network)
	if err != nil {
		return nil, err
	}

	symbols := book.WrappedPositionSymbols()
	if len(symbols) == 0 {
		return nil, NewOpError(ErrCodeMissingPrerequisite, "no wrapped positions in address book",
			map[string]interface{}{"network": network})
	}
	idx, err := p.Select(ctx, "select token:", symbols)
	if err != nil {
		return nil, promptError(err)
	}
	symbol := symbols[idx]

	tranches, err := book.ActiveTranches(symbol, c.now())
	if err != nil {
		return nil, leafError(err, "symbol", symbol)
	}
	dates := make([]string, len(tranches))
	for i, t := range tranches {
		dates[i] = t.ExpiresAt().Local().Format(time.DateOnly)
	}
	idx, err = p.Select(ctx, "select tranche expiration:", dates)
	if err != nil {
		return nil, promptError(err)
	}

	amount, err := p.Question(ctx, fmt.Sprintf("how much %s do you want to deposit? ", symbol))
	if err != nil {
		return nil, promptError(err)
	}

	req := MintRequest{Symbol: symbol, Expiration: tranches[idx].Expiration, Amount: amount}
	if _, ok := c.permitNames[strings.ToLower(symbol)]; !ok {
		token, err := book.Token(symbol)
		if err != nil {
			return nil, leafError(err, "symbol", symbol)
		}
		if !evm.IsNativeCurrency(token) {
			question := fmt.Sprintf("permit name for %s: ", symbol)
			if md, err := c.tokens.GetMetadata(ctx, token); err == nil {
				question = fmt.Sprintf("permit name for %s (on-chain name %q): ", symbol, md.Name)
			}
			name, err := p.Question(ctx, question)
			if err != nil {
				return nil, promptError(err)
			}
			req.PermitName = strings.TrimSpace(name)
		}
	}
	return c.Mint(ctx, req)
}

func (c *MintClient) loadBook(network string) (*addressbook.Addresses, error) {
	book, err := c.book.Load(network)
	if err != nil {
		return nil, wrapOpError(ErrCodeMissingPrerequisite, "failed to load address book", err,
			map[string]interface{}{"network": network})
	}
	return book, nil
}

func (c *MintClient) readNonce(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	nonce, err := c.tokens.Nonce(ctx, token, owner)
	if err != nil {
		return nil, wrapOpError(ErrCodeMissingPrerequisite, "failed to read permit nonce",
			fmt.Errorf("%w: %v", permit.ErrMissingNonce, err), map[string]interface{}{"token": token.Hex()})
	}
	return nonce, nil
}

func (c *MintClient) readDecimals(ctx context.Context, token common.Address) (uint8, error) {
	decimals, err := c.tokens.Decimals(ctx, token)
	if err != nil {
		return 0, wrapOpError(ErrCodeMissingPrerequisite, "failed to read token decimals", err,
			map[string]interface{}{"token": token.Hex()})
	}
	return decimals, nil
}

func (c *MintClient) permitName(req MintRequest) (string, error) {
	if name := strings.TrimSpace(req.PermitName); name != "" {
		return name, nil
	}
	if name, ok := c.permitNames[strings.ToLower(req.Symbol)]; ok && name != "" {
		return name, nil
	}
	return "", NewOpError(ErrCodeMissingPrerequisite, "no permit name configured for token",
		map[string]interface{}{"symbol": req.Symbol})
}

func (c *MintClient) runBeforeSign(ctx context.Context, prepared *PreparedMint) error {
	for _, hook := range c.beforeSignHooks {
		result, err := hook(SignContext{Ctx: ctx, Prepared: prepared, Timestamp: c.now()})
		if err != nil {
			return wrapOpError(ErrCodeAborted, "before sign hook failed", err, nil)
		}
		if result != nil && result.Abort {
			return NewOpError(ErrCodeAborted, result.Reason, map[string]interface{}{"attempt": prepared.AttemptID.String()})
		}
	}
	return nil
}

func (c *MintClient) runMintFailure(ctx context.Context, req MintRequest, prepared *PreparedMint, err error, d time.Duration) {
	c.log.Error("mint failed", "symbol", req.Symbol, "err", err)
	for _, hook := range c.onMintFailureHooks {
		hook(MintFailureContext{Ctx: ctx, Request: req, Prepared: prepared, Error: err, Duration: d})
	}
}

func selectTranche(book *addressbook.Addresses, symbol string, expiration int64, now time.Time) (addressbook.Tranche, error) {
	if _, err := book.ActiveTranches(symbol, now); err != nil {
		return addressbook.Tranche{}, err
	}
	t, err := book.FindTranche(symbol, expiration)
	if err != nil {
		return addressbook.Tranche{}, err
	}
	if !t.Active(now) {
		return addressbook.Tranche{}, fmt.Errorf("%w: %s %d is not an active tranche", addressbook.ErrUnknownTranche, symbol, expiration)
	}
	return t, nil
}

func donationAddress(t addressbook.Tranche) common.Address {
	if evm.IsValidAddress(t.DonationAddress) {
		return common.HexToAddress(t.DonationAddress)
	}
	return common.HexToAddress(evm.DefaultDonationAddress)
}

func parseAmount(amount string, decimals uint8) (*big.Int, error) {
	value, err := evm.ParseUnits(amount, decimals)
	if err != nil {
		return nil, wrapOpError(ErrCodeInvalidMintArguments, err.Error(), fmt.Errorf("%w: %v", mint.ErrInvalidArguments, err), nil)
	}
	return value, nil
}

func leafError(err error, kv ...interface{}) error {
	code := classify(err)
	if code == "" {
		return err
	}
	details := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		details[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return wrapOpError(code, err.Error(), err, details)
}

func promptError(err error) error {
	if errors.Is(err, prompt.ErrCancelled) || errors.Is(err, context.Canceled) {
		return wrapOpError(ErrCodeAborted, "cancelled by operator", err, nil)
	}
	return err
}
