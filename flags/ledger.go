package flags

import (
	"gopkg.in/urfave/cli.v1"
)

// Names of the per-command flags.
const (
	AccountFlag  = "account"
	AmountFlag   = "amount"
	UnlockFlag   = "unlock"
	DurationFlag = "duration"
	NowFlag      = "now"
)

// AccountFlags identify the account a command acts on.
func AccountFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  AccountFlag,
			Usage: "Account address (0x-prefixed hex)",
		},
		cli.Uint64Flag{
			Name:  NowFlag,
			Usage: "Unix time to act at (0 uses the wall clock)",
		},
	}
}

// LockFlags configure a new lock.
func LockFlags() []cli.Flag {
	return append(AccountFlags(),
		cli.StringFlag{
			Name:  AmountFlag,
			Usage: "Amount in base units (decimal or 0x hex)",
		},
		cli.Uint64Flag{
			Name:  UnlockFlag,
			Usage: "Requested unlock time as unix seconds, rounded down to the epoch",
		},
		cli.DurationFlag{
			Name:  DurationFlag,
			Usage: "Lock duration from now, used when --unlock is not given (e.g. 672h)",
		},
	)
}

// FundFlags credit an account with the underlying asset.
func FundFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  AccountFlag,
			Usage: "Account address (0x-prefixed hex)",
		},
		cli.StringFlag{
			Name:  AmountFlag,
			Usage: "Amount in base units (decimal or 0x hex)",
		},
	}
}
