package main

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/time/rate"

	y4g "github.com/element-fi/yieldforgood/go"
	"github.com/element-fi/yieldforgood/go/mechanisms/evm"
	"github.com/element-fi/yieldforgood/go/mechanisms/evm/permit"
	"github.com/element-fi/yieldforgood/go/pkg/addressbook"
	"github.com/element-fi/yieldforgood/go/pkg/artifacts"
	"github.com/element-fi/yieldforgood/go/pkg/config"
	"github.com/element-fi/yieldforgood/go/pkg/console"
	"github.com/element-fi/yieldforgood/go/pkg/deployer"
	"github.com/element-fi/yieldforgood/go/pkg/prompt"
	"github.com/element-fi/yieldforgood/go/pkg/verify"
	evmsigner "github.com/element-fi/yieldforgood/go/signers/evm"
)

var chainIDs = map[string]*big.Int{
	"mainnet": evm.ChainIDMainnet,
	"goerli":  evm.ChainIDGoerli,
	"sepolia": evm.ChainIDSepolia,
}

// env is the state every command starts from.
type env struct {
	cfg     *config.Config
	secrets config.Env
	network string
	rpcURL  string
	log     log.Logger
	out     *console.Printer
}

func newEnv(c *cli.Context) (*env, error) {
	cfg, err := config.Load(c.String(ConfigFlagName))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	network := strings.ToLower(c.String(NetworkFlagName))
	rpcURL := c.String(RPCURLFlagName)
	if rpcURL == "" {
		rpcURL = cfg.RPCURL
	}
	return &env{
		cfg:     cfg,
		secrets: config.NetworkEnv(network),
		network: network,
		rpcURL:  rpcURL,
		log:     log.Root(),
		out:     console.NewPrinter(c.App.Writer),
	}, nil
}

func (e *env) dial(ctx context.Context) (*evmsigner.ClientSigner, error) {
	key, err := e.secrets.RequirePrivateKey()
	if err != nil {
		return nil, err
	}
	url, err := e.secrets.RPCURL(e.rpcURL)
	if err != nil {
		return nil, err
	}
	signer, err := evmsigner.Dial(ctx, url, key)
	if err != nil {
		return nil, err
	}
	return signer.WithLogger(e.log), nil
}

func (e *env) addressBook() *addressbook.FileStore {
	return addressbook.NewFileStore(e.cfg.AddressBookDir, e.log)
}

func (e *env) verifier(chainID uint64, store verify.ArtifactSource) (*verify.Verifier, error) {
	if e.secrets.EtherscanAPIKey == "" {
		return nil, fmt.Errorf("set ETHERSCAN_API_KEY to verify contracts")
	}
	limiter := rate.NewLimiter(rate.Limit(e.cfg.GetExplorerRPS()), 1)
	return verify.NewVerifierWithURL(e.secrets.EtherscanAPIKey, e.cfg.GetExplorerURL(), chainID, store, e.log, limiter)
}

func (e *env) permitNames() map[string]string {
	names := make(map[string]string, len(e.cfg.Tokens))
	for symbol := range e.cfg.Tokens {
		if name, ok := e.cfg.PermitName(symbol); ok {
			names[symbol] = name
		}
	}
	return names
}

// MintCLI mints with flags, or interactively when no symbol is given.
func MintCLI(c *cli.Context) error {
	ctx := c.Context
	e, err := newEnv(c)
	if err != nil {
		return err
	}
	signer, err := e.dial(ctx)
	if err != nil {
		return err
	}
	defer signer.Close()

	client := y4g.NewMintClient(signer, e.addressBook(),
		y4g.WithLogger(e.log),
		y4g.WithSchema(e.cfg.Schema()),
		y4g.WithPermitNames(e.permitNames()),
		y4g.WithAllowMainnet(e.cfg.AllowMainnet),
	)

	symbol := c.String(SymbolFlag.Name)
	if symbol == "" {
		term := prompt.NewTerminal(c.App.Writer)
		defer term.Close()
		result, err := client.InteractiveMint(ctx, term)
		if err != nil {
			return err
		}
		e.out.SuccessfulMint(strings.ToUpper(result.Symbol), result.Amount, result.TxHash)
		return nil
	}

	req := y4g.MintRequest{
		Symbol:     symbol,
		Expiration: c.Int64(ExpirationFlag.Name),
		Amount:     c.String(AmountFlag.Name),
		PermitName: c.String(PermitNameFlag.Name),
	}
	if c.Bool(DryRunFlag.Name) {
		prepared, err := client.PrepareMint(ctx, req)
		if err != nil {
			return err
		}
		data, err := prepared.Call.Pack()
		if err != nil {
			return err
		}
		value := prepared.Call.Value()
		if value == nil {
			value = new(big.Int)
		}
		fmt.Fprintf(c.App.Writer, "attempt: %s\nto: %s\nvalue: %s\ndata: %s\n",
			prepared.AttemptID, prepared.UserProxy.Hex(), value, hexutil.Encode(data))
		return nil
	}

	result, err := client.Mint(ctx, req)
	if err != nil {
		return err
	}
	e.out.SuccessfulMint(strings.ToUpper(result.Symbol), result.Amount, result.TxHash)
	return nil
}

// deployOptions wires logging, the mainnet gate and, unless skipped,
// verification after the configured delay.
func (e *env) deployOptions(c *cli.Context, signer *evmsigner.ClientSigner, store verify.ArtifactSource) ([]y4g.DeploymentOption, error) {
	opts := []y4g.DeploymentOption{
		y4g.WithDeploymentLogger(e.log),
		y4g.WithDeploymentMainnet(e.cfg.AllowMainnet),
	}
	if c.Bool(SkipVerifyFlag.Name) {
		return opts, nil
	}
	chainID, err := signer.GetChainID(c.Context)
	if err != nil {
		return nil, err
	}
	v, err := e.verifier(chainID.Uint64(), store)
	if err != nil {
		return nil, err
	}
	return append(opts, y4g.WithVerifier(v, e.cfg.VerifyDelay, func(ctx context.Context, d time.Duration) error {
		return verify.Countdown(ctx, d, c.App.ErrWriter)
	})), nil
}

// DeployUserProxyCLI deploys the user proxy, records it and verifies it.
func DeployUserProxyCLI(c *cli.Context) error {
	ctx := c.Context
	e, err := newEnv(c)
	if err != nil {
		return err
	}
	signer, err := e.dial(ctx)
	if err != nil {
		return err
	}
	defer signer.Close()

	store := artifacts.NewStore(e.cfg.ArtifactsDir)
	term := prompt.NewTerminal(c.App.Writer)
	defer term.Close()
	dep := deployer.New(signer, store, term, deployer.WithLogger(e.log), deployer.WithAnnouncer(e.out))

	opts, err := e.deployOptions(c, signer, store)
	if err != nil {
		return err
	}
	result, err := y4g.NewProxyDeployment(signer, e.addressBook(), dep, opts...).Run(ctx)
	if result != nil {
		e.out.Notice("user proxy recorded in %s", e.addressBook().Path(result.Network))
	}
	return err
}

// DeployTrancheCLI deploys a tranche through the tranche factory, records it
// under its symbol and verifies it. Symbol and duration are asked for when
// not given as flags.
func DeployTrancheCLI(c *cli.Context) error {
	ctx := c.Context
	e, err := newEnv(c)
	if err != nil {
		return err
	}

	var donation common.Address
	if raw := c.String(DonationAddressFlag.Name); raw != "" {
		if err := y4g.ValidateAddresses(raw); err != nil {
			return err
		}
		donation = common.HexToAddress(raw)
	}

	signer, err := e.dial(ctx)
	if err != nil {
		return err
	}
	defer signer.Close()

	store := artifacts.NewStore(e.cfg.ArtifactsDir)
	term := prompt.NewTerminal(c.App.Writer)
	defer term.Close()

	symbol := c.String(SymbolFlag.Name)
	if symbol == "" {
		if symbol, err = term.Question(ctx, "wp underlying symbol: "); err != nil {
			return err
		}
	}
	seconds := c.Int64(DurationFlag.Name)
	if seconds == 0 {
		answer, err := term.Question(ctx, "duration unix seconds: ")
		if err != nil {
			return err
		}
		if seconds, err = strconv.ParseInt(strings.TrimSpace(answer), 10, 64); err != nil {
			return fmt.Errorf("invalid duration %q: %w", answer, err)
		}
	}

	dep := deployer.New(signer, store, term, deployer.WithLogger(e.log), deployer.WithAnnouncer(e.out))
	opts, err := e.deployOptions(c, signer, store)
	if err != nil {
		return err
	}
	result, err := y4g.NewTrancheDeployment(signer, e.addressBook(), dep, opts...).Run(ctx, y4g.TrancheRequest{
		Symbol:          strings.TrimSpace(symbol),
		Duration:        time.Duration(seconds) * time.Second,
		DonationAddress: donation,
	})
	if result != nil {
		e.out.Notice("tranche recorded in %s", e.addressBook().Path(result.Network))
	}
	return err
}

// VerifyCLI verifies one deployed contract.
func VerifyCLI(c *cli.Context) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}
	chainID, ok := chainIDs[e.network]
	if !ok {
		return fmt.Errorf("unknown network %q", e.network)
	}
	address := c.String(AddressFlag.Name)
	if err := y4g.ValidateAddresses(address); err != nil {
		return err
	}
	var ctorArgs []byte
	if raw := c.String(ConstructorArgsFlag.Name); raw != "" {
		if ctorArgs, err = evm.HexToBytes(raw); err != nil {
			return err
		}
	}

	v, err := e.verifier(chainID.Uint64(), artifacts.NewStore(e.cfg.ArtifactsDir))
	if err != nil {
		return err
	}
	err = v.Verify(c.Context, c.String(ContractFlag.Name), common.HexToAddress(address), ctorArgs)
	verified, skipped, failed := v.Stats()
	e.log.Info("verification finished", "verified", verified, "skipped", skipped, "failed", failed)
	return err
}

// TranchesCLI prints the network's tranches.
func TranchesCLI(c *cli.Context) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}
	book, err := e.addressBook().Load(e.network)
	if err != nil {
		return err
	}

	var symbols []string
	if symbol := c.String(SymbolFlag.Name); symbol != "" {
		if _, ok := book.Tranches[symbol]; !ok {
			return fmt.Errorf("%w: %s", addressbook.ErrNoTranches, symbol)
		}
		symbols = []string{symbol}
	} else {
		for symbol := range book.Tranches {
			symbols = append(symbols, symbol)
		}
		sort.Strings(symbols)
	}
	e.out.Tranches(book.Tranches, symbols, time.Now())
	return nil
}

// PermitVersionCLI prints the permit domain version for a token and chain.
func PermitVersionCLI(c *cli.Context) error {
	token := c.String(TokenFlag.Name)
	if err := y4g.ValidateAddresses(token); err != nil {
		return err
	}
	chainID := new(big.Int).SetUint64(c.Uint64(ChainIDFlag.Name))
	_, err := fmt.Fprintln(c.App.Writer, permit.DeterminePermitVersion(common.HexToAddress(token), chainID))
	return err
}
