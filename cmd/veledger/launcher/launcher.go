package launcher

import (
	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-veledger/flags"
)

// Version of the veledger binary.
const Version = "0.2.0"

func newApp() *cli.App {
	app := flags.NewApp(Version, "vote-escrow lock ledger")
	app.Flags = flags.Merge(flags.CommonFlags(), flags.LedgerFlags(), flags.HTTPFlags())
	app.Commands = []cli.Command{
		{
			Name:   "serve",
			Usage:  "Run the HTTP API over the ledger",
			Action: serve,
		},
		{
			Name:   "fund",
			Usage:  "Credit an account with the underlying asset (development faucet)",
			Flags:  flags.FundFlags(),
			Action: fund,
		},
		{
			Name:   "lock",
			Usage:  "Create a lock for an account",
			Flags:  flags.LockFlags(),
			Action: lock,
		},
		{
			Name:   "withdraw",
			Usage:  "Withdraw an expired lock",
			Flags:  flags.AccountFlags(),
			Action: withdraw,
		},
		{
			Name:   "balance",
			Usage:  "Show the lock and underlying balance of an account",
			Flags:  flags.AccountFlags(),
			Action: balance,
		},
		{
			Name:   "supply",
			Usage:  "Show the locked supply",
			Action: supply,
		},
		{
			Name:   "rules",
			Usage:  "Print the active token rules",
			Action: printRules,
		},
		{
			Name:   "dumpconfig",
			Usage:  "Print the effective configuration as TOML",
			Action: dumpConfig,
		},
	}
	return app
}

// Launch parses args and runs the selected command.
func Launch(args []string) error {
	return newApp().Run(args)
}
