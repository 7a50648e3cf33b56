package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/haadi101/lazorpay/pkg/config"
	"github.com/haadi101/lazorpay/pkg/logger"
	"github.com/haadi101/lazorpay/pkg/persistence"
	badgerpersistence "github.com/haadi101/lazorpay/pkg/persistence/badger"
	memorypersistence "github.com/haadi101/lazorpay/pkg/persistence/memory"
	redispersistence "github.com/haadi101/lazorpay/pkg/persistence/redis"
	"github.com/haadi101/lazorpay/pkg/relayer"
	"github.com/haadi101/lazorpay/pkg/wallet"
)

func main() {
	app := &cli.App{
		Name:  "lazorpay",
		Usage: "Passkey wallet demo client",
		Description: `A demo client for a passkey-based Solana smart wallet relayer.

Supported operations:
- Message signing with low-S signature canonicalization
- Gasless transaction submission with retry/backoff/timeout handling
- Local submission history`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "relayer-url",
				Aliases:  []string{"r"},
				Usage:    "Relayer base URL",
				EnvVars:  []string{config.EnvRelayerURL},
				Required: true,
			},
			&cli.StringFlag{
				Name:     "wallet",
				Aliases:  []string{"w"},
				Usage:    "Smart wallet address",
				EnvVars:  []string{config.EnvWalletAddress},
				Required: true,
			},
			&cli.IntFlag{
				Name:    "max-retries",
				Value:   wallet.DefaultConfig.MaxRetries,
				Usage:   "Attempts for rate-limited submissions",
				EnvVars: []string{config.EnvMaxRetries},
			},
			&cli.DurationFlag{
				Name:    "base-delay",
				Value:   wallet.DefaultConfig.BaseDelay,
				Usage:   "Backoff before the second attempt (doubles per attempt)",
				EnvVars: []string{config.EnvBaseDelay},
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Value:   wallet.DefaultConfig.Timeout,
				Usage:   "Per-attempt timeout",
				EnvVars: []string{config.EnvTimeout},
			},
			&cli.StringFlag{
				Name:    "persistence",
				Value:   config.PersistenceTypeMemory.String(),
				Usage:   "Submission history backend: memory, redis or badger",
				EnvVars: []string{config.EnvPersistenceType},
			},
			&cli.StringFlag{
				Name:    "redis-address",
				Usage:   "Redis address (host:port) for redis persistence",
				EnvVars: []string{config.EnvRedisAddress},
			},
			&cli.StringFlag{
				Name:    "badger-path",
				Usage:   "Data directory for badger persistence",
				EnvVars: []string{config.EnvBadgerPath},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable verbose logging",
				EnvVars: []string{config.EnvVerbose},
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "sign-message",
				Usage:     "Sign a message with the wallet passkey and print the canonicalized signature",
				ArgsUsage: "<message>",
				Action:    runSignMessage,
			},
			{
				Name:  "transfer",
				Usage: "Submit a gasless transfer and print the transaction signature",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "to",
						Usage:    "Recipient address",
						Required: true,
					},
					&cli.Uint64Flag{
						Name:     "lamports",
						Usage:    "Amount in lamports",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "memo",
						Usage: "Optional note stored with the history record",
					},
				},
				Action: runTransfer,
			},
			{
				Name:   "history",
				Usage:  "List past submissions",
				Action: runHistory,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

// parseConfig assembles and validates the app config from CLI flags/env.
func parseConfig(c *cli.Context) (*config.AppConfig, error) {
	cfg := &config.AppConfig{
		RelayerURL:    c.String("relayer-url"),
		WalletAddress: c.String("wallet"),
		Wallet: wallet.Config{
			MaxRetries: c.Int("max-retries"),
			BaseDelay:  c.Duration("base-delay"),
			Timeout:    c.Duration("timeout"),
		},
		Persistence:  config.PersistenceType(c.String("persistence")),
		RedisAddress: c.String("redis-address"),
		BadgerPath:   c.String("badger-path"),
		Debug:        c.Bool("verbose"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// buildClient wires logger, relayer and wallet client from config.
func buildClient(cfg *config.AppConfig) (*wallet.Client, *zap.Logger, error) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	remote, err := relayer.NewClient(&relayer.Config{
		BaseURL:       cfg.RelayerURL,
		WalletAddress: cfg.WalletAddress,
	}, l)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create relayer client: %w", err)
	}

	client, err := wallet.NewClient(remote, cfg.Wallet, l)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create wallet client: %w", err)
	}

	return client, l, nil
}

// buildPersistence selects the submission history backend from config.
func buildPersistence(cfg *config.AppConfig, l *zap.Logger) (persistence.ISubmissionPersistence, error) {
	switch cfg.Persistence {
	case config.PersistenceTypeRedis:
		return redispersistence.NewRedisPersistence(&redispersistence.RedisConfig{
			Address: cfg.RedisAddress,
		}, l)
	case config.PersistenceTypeBadger:
		return badgerpersistence.NewBadgerPersistence(cfg.BadgerPath, l)
	default:
		return memorypersistence.NewMemoryPersistence(), nil
	}
}

func runSignMessage(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one argument: the message to sign")
	}

	cfg, err := parseConfig(c)
	if err != nil {
		return err
	}

	client, _, err := buildClient(cfg)
	if err != nil {
		return err
	}

	signed, err := client.SignMessage(c.Context, []byte(c.Args().First()))
	if err != nil {
		return fmt.Errorf("failed to sign message: %w", err)
	}

	fmt.Printf("Signature:      %s\n", signed.Signature)
	fmt.Printf("Signed payload: %s\n", signed.SignedPayload)
	return nil
}

func runTransfer(c *cli.Context) error {
	cfg, err := parseConfig(c)
	if err != nil {
		return err
	}

	client, l, err := buildClient(cfg)
	if err != nil {
		return err
	}

	store, err := buildPersistence(cfg, l)
	if err != nil {
		return fmt.Errorf("failed to open submission history: %w", err)
	}
	defer func() { _ = store.Close() }()

	// The relayer compiles the instruction; this side only describes it.
	instruction, err := json.Marshal(map[string]interface{}{
		"kind":     "transfer",
		"to":       c.String("to"),
		"lamports": c.Uint64("lamports"),
	})
	if err != nil {
		return fmt.Errorf("failed to encode instruction: %w", err)
	}

	sig, attempts, err := client.SignAndSend(c.Context, &wallet.GaslessPayload{
		Instructions: []json.RawMessage{instruction},
	})
	if err != nil {
		return fmt.Errorf("transfer failed: %w", err)
	}

	record := &persistence.SubmissionRecord{
		Signature:   sig,
		Wallet:      cfg.WalletAddress,
		Kind:        "transfer",
		Memo:        c.String("memo"),
		SubmittedAt: time.Now().Unix(),
		Attempts:    attempts,
	}
	if err := store.SaveSubmission(record); err != nil {
		l.Sugar().Warnw("Failed to record submission in history", "signature", sig, "error", err)
	}

	fmt.Printf("Transaction signature: %s\n", sig)
	return nil
}

func runHistory(c *cli.Context) error {
	cfg, err := parseConfig(c)
	if err != nil {
		return err
	}

	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	store, err := buildPersistence(cfg, l)
	if err != nil {
		return fmt.Errorf("failed to open submission history: %w", err)
	}
	defer func() { _ = store.Close() }()

	records, err := store.ListSubmissions()
	if err != nil {
		return fmt.Errorf("failed to list submissions: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("No submissions recorded.")
		return nil
	}

	for _, r := range records {
		ts := time.Unix(r.SubmittedAt, 0).UTC().Format(time.RFC3339)
		fmt.Printf("%s  %-12s  %s", ts, r.Kind, r.Signature)
		if r.Memo != "" {
			fmt.Printf("  (%s)", r.Memo)
		}
		fmt.Println()
	}
	return nil
}
