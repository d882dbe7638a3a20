package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/Sternrassler/rise-explorer-client/pkg/extractor"
	"github.com/Sternrassler/rise-explorer-client/pkg/manifest"
)

// errUsage marks argument errors that were already reported.
var errUsage = errors.New("usage error")

// command is one subcommand. flags registers its flags on fs and returns a
// binder that validates the positional arguments once parsing is done.
type command struct {
	name  string
	flags func(fs *flag.FlagSet) func(args []string) error
	run   func(ctx context.Context, ext *extractor.Extractor) (*manifest.Manifest, error)
	done  func() string
}

var commands = map[string]command{}

func init() {
	for _, c := range []command{
		accountCommand(),
		transactionsCommand(),
		tokenTransfersCommand(),
		contractCommand(),
		blocksCommand(),
		tokenHoldersCommand(),
		statsCommand(),
	} {
		commands[c.name] = c
	}
}

func exactlyOne(name string, args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%s requires exactly one argument, got %d", name, len(args))
	}
	return args[0], nil
}

func accountCommand() command {
	var opts extractor.AccountOptions
	c := command{name: "account"}
	c.flags = func(fs *flag.FlagSet) func([]string) error {
		fs.BoolVar(&opts.Transactions, "transactions", false, "Include transactions")
		fs.BoolVar(&opts.Tokens, "tokens", false, "Include tokens")
		fs.IntVar(&opts.MaxTx, "max-tx", extractor.DefaultMaxTransactions, "Max transactions")
		return func(args []string) (err error) {
			opts.Address, err = exactlyOne("account", args)
			return err
		}
	}
	c.run = func(ctx context.Context, ext *extractor.Extractor) (*manifest.Manifest, error) {
		return ext.Account(ctx, opts)
	}
	c.done = func() string { return "Extracted account data" }
	return c
}

func transactionsCommand() command {
	var (
		addr  string
		limit int
	)
	c := command{name: "transactions"}
	c.flags = func(fs *flag.FlagSet) func([]string) error {
		fs.IntVar(&limit, "limit", extractor.DefaultMaxTransactions, "Max transactions")
		return func(args []string) (err error) {
			addr, err = exactlyOne("transactions", args)
			return err
		}
	}
	c.run = func(ctx context.Context, ext *extractor.Extractor) (*manifest.Manifest, error) {
		return ext.Transactions(ctx, addr, limit)
	}
	c.done = func() string { return "Extracted transactions" }
	return c
}

func tokenTransfersCommand() command {
	var (
		addr, contract string
		limit          int
	)
	c := command{name: "token-transfers"}
	c.flags = func(fs *flag.FlagSet) func([]string) error {
		fs.StringVar(&contract, "contract", "", "Filter by token contract address")
		fs.IntVar(&limit, "limit", extractor.DefaultMaxTransfers, "Max transfers")
		return func(args []string) (err error) {
			addr, err = exactlyOne("token-transfers", args)
			return err
		}
	}
	c.run = func(ctx context.Context, ext *extractor.Extractor) (*manifest.Manifest, error) {
		return ext.TokenTransfers(ctx, addr, contract, limit)
	}
	c.done = func() string { return "Extracted token transfers" }
	return c
}

func contractCommand() command {
	var addr string
	c := command{name: "contract"}
	c.flags = func(fs *flag.FlagSet) func([]string) error {
		return func(args []string) (err error) {
			addr, err = exactlyOne("contract", args)
			return err
		}
	}
	c.run = func(ctx context.Context, ext *extractor.Extractor) (*manifest.Manifest, error) {
		return ext.Contract(ctx, addr)
	}
	c.done = func() string { return "Extracted contract data" }
	return c
}

func blocksCommand() command {
	var start, end int64
	c := command{name: "blocks"}
	c.flags = func(fs *flag.FlagSet) func([]string) error {
		fs.Int64Var(&start, "start", 0, "Start block (required)")
		fs.Int64Var(&end, "end", 0, "End block, inclusive (required)")
		return func(args []string) error {
			set := map[string]bool{}
			fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
			if !set["start"] || !set["end"] {
				return errors.New("blocks requires --start and --end")
			}
			if len(args) != 0 {
				return fmt.Errorf("blocks takes no arguments, got %d", len(args))
			}
			return nil
		}
	}
	c.run = func(ctx context.Context, ext *extractor.Extractor) (*manifest.Manifest, error) {
		return ext.Blocks(ctx, start, end)
	}
	c.done = func() string { return fmt.Sprintf("Extracted blocks %d-%d", start, end) }
	return c
}

func tokenHoldersCommand() command {
	var (
		contract string
		limit    int
	)
	c := command{name: "token-holders"}
	c.flags = func(fs *flag.FlagSet) func([]string) error {
		fs.IntVar(&limit, "limit", extractor.DefaultMaxHolders, "Max holders")
		return func(args []string) (err error) {
			contract, err = exactlyOne("token-holders", args)
			return err
		}
	}
	c.run = func(ctx context.Context, ext *extractor.Extractor) (*manifest.Manifest, error) {
		return ext.TokenHolders(ctx, contract, limit)
	}
	c.done = func() string { return "Extracted token holders" }
	return c
}

func statsCommand() command {
	c := command{name: "stats"}
	c.flags = func(fs *flag.FlagSet) func([]string) error {
		return func(args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("stats takes no arguments, got %d", len(args))
			}
			return nil
		}
	}
	c.run = func(ctx context.Context, ext *extractor.Extractor) (*manifest.Manifest, error) {
		return ext.NetworkStats(ctx)
	}
	c.done = func() string { return "Extracted network stats" }
	return c
}
