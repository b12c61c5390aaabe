package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
)

const envPrefix = "Y4G_"

func prefixEnvVars(name string) []string {
	return []string{envPrefix + name}
}

const (
	ConfigFlagName    = "config"
	EnvFileFlagName   = "env-file"
	NetworkFlagName   = "network"
	RPCURLFlagName    = "rpc-url"
	LogLevelFlagName  = "log.level"
	LogFormatFlagName = "log.format"
)

var (
	ConfigFlag = &cli.StringFlag{
		Name:    ConfigFlagName,
		Usage:   "Operator TOML config file.",
		EnvVars: prefixEnvVars("CONFIG"),
		Value:   "y4g.toml",
	}
	EnvFileFlag = &cli.StringFlag{
		Name:    EnvFileFlagName,
		Usage:   "Dotenv file holding deployer keys and API keys.",
		EnvVars: prefixEnvVars("ENV_FILE"),
		Value:   ".env",
	}
	NetworkFlag = &cli.StringFlag{
		Name:    NetworkFlagName,
		Usage:   "Network whose keys and RPC endpoint to use (sepolia, goerli, mainnet).",
		EnvVars: prefixEnvVars("NETWORK"),
		Value:   "sepolia",
	}
	RPCURLFlag = &cli.StringFlag{
		Name:    RPCURLFlagName,
		Usage:   "JSON-RPC endpoint. Overrides rpc_url and the Alchemy endpoint.",
		EnvVars: prefixEnvVars("RPC_URL"),
	}
	LogLevelFlag = &cli.StringFlag{
		Name:    LogLevelFlagName,
		Usage:   "Log level: trace, debug, info, warn, error, crit.",
		EnvVars: prefixEnvVars("LOG_LEVEL"),
		Value:   "info",
	}
	LogFormatFlag = &cli.StringFlag{
		Name:    LogFormatFlagName,
		Usage:   "Log format: terminal or json.",
		EnvVars: prefixEnvVars("LOG_FORMAT"),
		Value:   "terminal",
	}
)

var GlobalFlags = []cli.Flag{
	ConfigFlag,
	EnvFileFlag,
	NetworkFlag,
	RPCURLFlag,
	LogLevelFlag,
	LogFormatFlag,
}

var (
	SymbolFlag = &cli.StringFlag{
		Name:  "symbol",
		Usage: "Token symbol to mint with. Prompts for everything when unset.",
	}
	ExpirationFlag = &cli.Int64Flag{
		Name:  "expiration",
		Usage: "Unix unlock time of the tranche.",
	}
	AmountFlag = &cli.StringFlag{
		Name:  "amount",
		Usage: "Amount to deposit in token units, e.g. 1.5.",
	}
	PermitNameFlag = &cli.StringFlag{
		Name:  "permit-name",
		Usage: "EIP-712 domain name of the token. Overrides the config.",
	}
	DryRunFlag = &cli.BoolFlag{
		Name:  "dry-run",
		Usage: "Sign and assemble the mint but do not submit it.",
	}
	SkipVerifyFlag = &cli.BoolFlag{
		Name:  "skip-verify",
		Usage: "Do not verify the deployed contract.",
	}
	ContractFlag = &cli.StringFlag{
		Name:     "contract",
		Usage:    "Contract name as compiled, e.g. UserProxy.",
		Required: true,
	}
	AddressFlag = &cli.StringFlag{
		Name:     "address",
		Usage:    "Deployed contract address.",
		Required: true,
	}
	ConstructorArgsFlag = &cli.StringFlag{
		Name:  "constructor-args",
		Usage: "ABI-encoded constructor arguments as hex.",
	}
	DurationFlag = &cli.Int64Flag{
		Name:  "duration",
		Usage: "Seconds from the latest block until the tranche unlocks. Prompts when unset.",
	}
	DonationAddressFlag = &cli.StringFlag{
		Name:  "donation-address",
		Usage: "Donation recipient recorded with the tranche. Defaults to the project recipient.",
	}
	TokenFlag = &cli.StringFlag{
		Name:     "token",
		Usage:    "Token address.",
		Required: true,
	}
	ChainIDFlag = &cli.Uint64Flag{
		Name:  "chain-id",
		Usage: "Chain id.",
		Value: 1,
	}
)

var MintFlags = []cli.Flag{SymbolFlag, ExpirationFlag, AmountFlag, PermitNameFlag, DryRunFlag}

var DeployFlags = []cli.Flag{SkipVerifyFlag}

var DeployTrancheFlags = []cli.Flag{
	&cli.StringFlag{Name: "symbol", Usage: "Wrapped position underlying symbol. Prompts when unset."},
	DurationFlag,
	DonationAddressFlag,
	SkipVerifyFlag,
}

var VerifyFlags = []cli.Flag{ContractFlag, AddressFlag, ConstructorArgsFlag}

var TranchesFlags = []cli.Flag{&cli.StringFlag{Name: "symbol", Usage: "Only list this token's tranches."}}

var PermitVersionFlags = []cli.Flag{TokenFlag, ChainIDFlag}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "trace":
		return log.LevelTrace, nil
	case "debug":
		return log.LevelDebug, nil
	case "info":
		return log.LevelInfo, nil
	case "warn":
		return log.LevelWarn, nil
	case "error":
		return log.LevelError, nil
	case "crit":
		return log.LevelCrit, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

// newLogHandler picks a colored terminal handler for TTYs and JSON on request.
func newLogHandler(w io.Writer, format, level string) (slog.Handler, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(format) {
	case "json":
		return log.JSONHandlerWithLevel(w, lvl), nil
	case "terminal", "":
		useColor := false
		if f, ok := w.(interface{ Fd() uintptr }); ok {
			useColor = isatty.IsTerminal(f.Fd())
		}
		return log.NewTerminalHandlerWithLevel(w, lvl, useColor), nil
	}
	return nil, fmt.Errorf("unknown log format %q", format)
}
