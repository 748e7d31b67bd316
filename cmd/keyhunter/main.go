package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/screa/keyhunter/internal/config"
	"github.com/screa/keyhunter/internal/crypto"
	logpkg "github.com/screa/keyhunter/internal/logger"
	hunterpkg "github.com/screa/keyhunter/pkg/hunter"
	"github.com/screa/keyhunter/pkg/types"
)

// Exit codes
const (
	exitFound       = 0
	exitError       = 1
	exitNotFound    = 2
	exitInterrupted = 130
)

var (
	configFile string
	logger     *logpkg.Logger
	exitCode   = exitError
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "keyhunter",
		Short: "Parallel private key search over a bounded keyspace",
		Long: `A command line utility that searches a range of secp256k1 private keys
for the one whose address matches a target. The range is split across worker
goroutines and scanned either in order or by deduplicated random sampling.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runHunter,
	}

	config.RegisterFlags(rootCmd.Flags(), config.NewConfig())
	rootCmd.Flags().StringVar(&configFile, "config", "", "Config file (yaml, json or toml)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitError)
	}
	os.Exit(exitCode)
}

func runHunter(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.New(), cmd.Flags(), configFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	searchCfg, err := cfg.ToSearchConfig()
	if err != nil {
		return err
	}

	if err := setupLogging(cfg); err != nil {
		return err
	}
	logger.Printf("Starting key hunter with %d workers...", cfg.Workers)
	logger.Printf("Target: %s", cfg.GetTargetDescription())
	logger.Printf("Keyspace: %s keys", searchCfg.Range.Cardinality().Dec())

	hunter, err := hunterpkg.NewHunter(searchCfg, logger)
	if err != nil {
		return err
	}

	// Set up signal handling for Ctrl+C
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	type runResult struct {
		outcome *types.Outcome
		err     error
	}
	resultChan := make(chan runResult, 1)
	go func() {
		outcome, err := hunter.Run(context.Background())
		resultChan <- runResult{outcome, err}
	}()

	var res runResult
	select {
	case res = <-resultChan:
	case <-sigChan:
		logger.Println("Received interrupt signal. Stopping workers...")
		hunter.Stop()
		res = <-resultChan
	}

	if res.outcome == nil {
		return res.err
	}
	exitCode = report(res.outcome, searchCfg.AddressKind)
	if res.err != nil && exitCode != exitFound {
		return res.err
	}
	return nil
}

// report prints the outcome and returns the process exit code for it.
func report(o *types.Outcome, kind crypto.Kind) int {
	stats := func() {
		logger.Printf("Attempts: %s", humanize.Comma(int64(o.Tested)))
		logger.Printf("Duration: %v", o.Duration)
		logger.Printf("Rate: %.2f keys/sec", o.Rate())
	}

	switch o.Status {
	case types.StatusFound:
		r := o.Result
		found := color.New(color.FgGreen, color.Bold).SprintFunc()
		logger.Printf("%s", found("Found matching key!"))
		logger.Printf("Private key: %s", r.KeyHex())
		if kind.IsBitcoin() {
			if wif, err := crypto.WIF(&r.Key, kind.Compressed()); err == nil {
				logger.Printf("WIF: %s", wif)
			}
		}
		logger.Printf("Address: %s", r.Address)
		logger.Printf("Worker: %d", r.WorkerID)
		stats()
		return exitFound
	case types.StatusNotFound:
		logger.Printf("%s", color.YellowString("Keyspace exhausted, no match found."))
		stats()
		return exitNotFound
	default:
		logger.Printf("%s", color.RedString("Search stopped before completion."))
		stats()
		return exitInterrupted
	}
}

func setupLogging(cfg *config.Config) error {
	if cfg.LogFile != "" {
		// Log to file
		file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logger = logpkg.NewWriter(file)
		logger.SetFlags(log.LstdFlags | log.Lmicroseconds)
		color.NoColor = true
	} else {
		// Log to stdout
		logger = logpkg.New()
		logger.SetFlags(log.LstdFlags)
	}
	logger.SetVerbose(cfg.Verbose)
	return nil
}
