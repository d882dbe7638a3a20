package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Sternrassler/rise-explorer-client/pkg/client"
	"github.com/Sternrassler/rise-explorer-client/pkg/explorer"
	"github.com/Sternrassler/rise-explorer-client/pkg/extractor"
	"github.com/Sternrassler/rise-explorer-client/pkg/logging"
	"github.com/Sternrassler/rise-explorer-client/pkg/manifest"
	"github.com/Sternrassler/rise-explorer-client/pkg/metrics"
	"github.com/Sternrassler/rise-explorer-client/pkg/output"
	"github.com/Sternrassler/rise-explorer-client/pkg/pagination"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	exitOK          = 0
	exitError       = 1
	exitInterrupted = 130
)

const usage = `Extract data from the Rise testnet explorer

Usage:
  rise-extract [global flags] <command> [flags] [argument]

Commands:
  account <address>          Balance, optionally --transactions, --tokens, --max-tx N
  transactions <address>     Balance and transactions, --limit N (default 100)
  token-transfers <address>  Token transfers, --contract C, --limit N (default 1000)
  contract <address>         Verified source code and ABI
  blocks --start N --end M   Block rewards for an inclusive range
  token-holders <contract>   Token info and holders, --limit N (default 100)
  stats                      Native supply and coin price

Examples:
  rise-extract account 0x123... --transactions --tokens
  rise-extract -o data blocks --start 1000 --end 2000

Global flags:
`

func main() {
	// A missing .env is fine; the environment and flags still apply.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run parses args, executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg := defaultGlobalConfig()
	fs := flag.NewFlagSet("rise-extract", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg.register(fs)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitError
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return exitError
	}
	if err := cfg.validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
		Output: stderr,
	})

	cmd, ok := commands[fs.Arg(0)]
	if !ok {
		fmt.Fprintf(stderr, "Error: unknown command %q\n\n", fs.Arg(0))
		fs.Usage()
		return exitError
	}

	err := execute(ctx, cfg, cmd, fs.Args()[1:], stdout, stderr)

	if cfg.MetricsFile != "" {
		if merr := metrics.WriteTextfile(cfg.MetricsFile); merr != nil {
			log.Error().Err(merr).Msg("Failed to write metrics")
		}
	}

	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, flag.ErrHelp):
		return exitOK
	case errors.Is(err, errUsage):
		return exitError
	case ctx.Err() != nil && errors.Is(err, context.Canceled):
		fmt.Fprintln(stderr, "\nExtraction cancelled by user")
		return exitInterrupted
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
}

// execute builds the client stack, runs cmd and releases everything it built.
func execute(ctx context.Context, cfg globalConfig, cmd command, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet(cmd.name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	bind := cmd.flags(fs)

	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if err := bind(positional); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		fs.Usage()
		return errUsage
	}

	c, err := client.New(cfg.clientConfig())
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	defer c.Close()

	layout := output.NewLayout(cfg.Output)
	if err := layout.Init(); err != nil {
		return err
	}

	store, closeStore, err := manifestStore(ctx, cfg, layout)
	if err != nil {
		return err
	}
	defer closeStore()

	accCfg := pagination.DefaultConfig()
	accCfg.Strict = cfg.Strict
	api := explorer.New(c, pagination.NewAccumulator(c, accCfg))
	ext := extractor.New(api, layout, extractor.WithManifestStore(store))

	m, err := cmd.run(ctx, ext)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "\n✓ %s. Saved %d files.\n", cmd.done(), len(m.Files))
	for _, role := range m.Roles() {
		fmt.Fprintf(stdout, "  %-18s %s\n", role, m.Files[role])
	}
	return nil
}

// manifestStore assembles the configured manifest backends.
func manifestStore(ctx context.Context, cfg globalConfig, layout *output.Layout) (manifest.Store, func(), error) {
	var stores manifest.MultiStore
	closeFn := func() {}

	if cfg.Manifest {
		stores = append(stores, manifest.NewFileStore(filepath.Join(layout.Root, "manifests")))
	}

	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			redisClient.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		log.Info().Str("addr", cfg.RedisAddr).Msg("Recording manifests in Redis")
		stores = append(stores, manifest.NewRedisStore(redisClient, manifest.DefaultRedisConfig()))
		closeFn = func() { redisClient.Close() }
	}

	if len(stores) == 0 {
		return manifest.NopStore{}, closeFn, nil
	}
	return stores, closeFn, nil
}

// parseInterspersed parses flags that may appear before or after positional
// arguments, e.g. "account 0xabc --tokens".
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}
