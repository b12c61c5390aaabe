package main

import (
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/element-fi/yieldforgood/go/pkg/config"
)

// NewApp creates and configures the operator CLI
func NewApp(version string) *cli.App {
	app := cli.NewApp()
	app.Version = version
	app.Name = "y4g"
	app.Usage = "Operator toolkit for yield-for-good tranche deployments and mints."
	app.Flags = GlobalFlags
	app.Before = func(c *cli.Context) error {
		if err := config.LoadDotEnv(c.String(EnvFileFlagName)); err != nil {
			return err
		}
		handler, err := newLogHandler(c.App.ErrWriter, c.String(LogFormatFlagName), c.String(LogLevelFlagName))
		if err != nil {
			return err
		}
		log.SetDefault(log.NewLogger(handler))
		return nil
	}
	app.Commands = []*cli.Command{
		{
			Name:   "mint",
			Usage:  "mints principal and yield tokens through the user proxy with a signed permit",
			Flags:  MintFlags,
			Action: MintCLI,
		},
		{
			Name:   "deploy-user-proxy",
			Usage:  "deploys the user proxy and records it in the address book",
			Flags:  DeployFlags,
			Action: DeployUserProxyCLI,
		},
		{
			Name:   "deploy-tranche",
			Usage:  "deploys a tranche of a wrapped position and records it in the address book",
			Flags:  DeployTrancheFlags,
			Action: DeployTrancheCLI,
		},
		{
			Name:   "verify",
			Usage:  "verifies a deployed contract on Etherscan",
			Flags:  VerifyFlags,
			Action: VerifyCLI,
		},
		{
			Name:   "tranches",
			Usage:  "lists the tranches recorded for the network",
			Flags:  TranchesFlags,
			Action: TranchesCLI,
		},
		{
			Name:   "permit-version",
			Usage:  "prints the permit domain version a token signs with",
			Flags:  PermitVersionFlags,
			Action: PermitVersionCLI,
		},
	}
	return app
}
