// Command ledgerctl runs maintenance tasks against the talent ledger:
// schema migration, development seeding and balance reconciliation.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/talent-tree-api/internal/config"
	"github.com/noah-isme/talent-tree-api/internal/database"
	"github.com/noah-isme/talent-tree-api/internal/repository"
	"github.com/noah-isme/talent-tree-api/internal/service"
)

const usage = `usage: ledgerctl <command> [flags]

commands:
  migrate                 create or update the ledger tables
  seed                    provision the development teacher and student
  reconcile [-profile ID] recompute balances from the event log
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "ledgerctl: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Str("service", "ledgerctl").Logger()

	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if command == "migrate" {
		if err := database.Migrate(db); err != nil {
			return err
		}
		logger.Info().Msg("migration complete")
		return nil
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		if redisClient, err = database.ConnectRedis(cfg.RedisURL); err != nil {
			return err
		}
		defer redisClient.Close()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	store := repository.NewStore(db)
	ledger := service.NewLedgerService(store, service.LedgerOptions{
		MaxAttempts: cfg.LedgerMaxAttempts,
		RetryDelay:  cfg.LedgerRetryDelay,
		TxTimeout:   cfg.LedgerTxTimeout,
	}, logger)
	profiles := service.NewProfileService(store, ledger, redisClient, cfg.ProfileCacheTTL, validate, logger)

	switch command {
	case "seed":
		submissions := service.NewActivitySubmissionService(store, ledger, validate, logger)
		seeder := service.NewSeedService(store, profiles, submissions, true, logger)
		result, err := seeder.SeedAccounts(ctx)
		if err != nil {
			return err
		}
		return printJSON(result)
	case "reconcile":
		flags := flag.NewFlagSet("reconcile", flag.ContinueOnError)
		profileID := flags.Uint("profile", 0, "reconcile a single profile")
		if err := flags.Parse(args); err != nil {
			return err
		}

		if *profileID != 0 {
			result, err := ledger.Reconcile(ctx, *profileID)
			if err != nil {
				return err
			}
			return printJSON(result)
		}

		results, err := ledger.ReconcileAll(ctx)
		if printErr := printJSON(results); printErr != nil {
			return printErr
		}
		return err
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func printJSON(value interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
