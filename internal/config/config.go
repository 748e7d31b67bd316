package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/screa/keyhunter/internal/crypto"
	"github.com/screa/keyhunter/pkg/keyspace"
	"github.com/screa/keyhunter/pkg/types"
)

// Errors
var (
	ErrNoRange            = errors.New("must specify either --range or --random-range")
	ErrBothRanges         = errors.New("--range and --random-range are mutually exclusive")
	ErrNoTarget           = errors.New("must specify --target")
	ErrInvalidWorkers     = errors.New("--threads must be at least 1")
	ErrInvalidFPRate      = errors.New("--fp-rate must be between 0 and 1")
	ErrInvalidLogInterval = errors.New("--log-interval must be at least 1 second")
)

// Flag names, also used as viper keys and, upper-cased with the env prefix,
// as environment variables (KEYHUNTER_RANDOM_RANGE, ...).
const (
	FlagRange            = "range"
	FlagRandomRange      = "random-range"
	FlagTarget           = "target"
	FlagThreads          = "threads"
	FlagVerbose          = "verbose"
	FlagAddressType      = "address-type"
	FlagLogFile          = "log-file"
	FlagLogInterval      = "log-interval"
	FlagFPRate           = "fp-rate"
	FlagMaxFilterEntries = "max-filter-entries"

	EnvPrefix = "KEYHUNTER"
)

// Config holds the application configuration
type Config struct {
	Range            string // hex "start,end", sequential mode
	RandomRange      string // hex "start,end", random mode
	Target           string
	Workers          int
	Verbose          bool
	AddressType      string
	LogFile          string
	LogInterval      int // Logging interval in seconds
	FPRate           float64
	MaxFilterEntries uint64
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		Workers:          runtime.NumCPU(),
		AddressType:      string(crypto.KindP2PKH),
		LogInterval:      int(types.DefaultReportInterval / time.Second),
		FPRate:           types.DefaultFilterFPRate,
		MaxFilterEntries: types.DefaultMaxFilterEntries,
	}
}

// RegisterFlags defines every configuration flag on fs, using the values in
// defaults as flag defaults.
func RegisterFlags(fs *pflag.FlagSet, defaults *Config) {
	fs.StringP(FlagRange, "r", defaults.Range, "Key range in hex to scan in order (e.g. 1a838b13505b26861,2832ed74f2b5e35ff)")
	fs.StringP(FlagRandomRange, "R", defaults.RandomRange, "Key range in hex to sample at random (e.g. 1a838b13505b26861,2832ed74f2b5e35ff)")
	fs.StringP(FlagTarget, "t", defaults.Target, "Target address")
	fs.IntP(FlagThreads, "T", defaults.Workers, "Number of worker goroutines")
	fs.BoolP(FlagVerbose, "v", defaults.Verbose, "Log every tested key and its address")
	fs.StringP(FlagAddressType, "a", defaults.AddressType, "Address type: p2pkh, p2pkh-uncompressed, p2wpkh, ethereum")
	fs.StringP(FlagLogFile, "l", defaults.LogFile, "Log file for progress tracking (default: stdout)")
	fs.IntP(FlagLogInterval, "i", defaults.LogInterval, "Progress interval in seconds")
	fs.Float64(FlagFPRate, defaults.FPRate, "Dedup filter false-positive rate in random mode")
	fs.Uint64(FlagMaxFilterEntries, defaults.MaxFilterEntries, "Upper bound on dedup filter entries per worker in random mode")
}

// Load resolves the configuration from flags, KEYHUNTER_* environment
// variables and an optional config file, in that order of precedence.
func Load(v *viper.Viper, fs *pflag.FlagSet, file string) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	return &Config{
		Range:            v.GetString(FlagRange),
		RandomRange:      v.GetString(FlagRandomRange),
		Target:           v.GetString(FlagTarget),
		Workers:          v.GetInt(FlagThreads),
		Verbose:          v.GetBool(FlagVerbose),
		AddressType:      v.GetString(FlagAddressType),
		LogFile:          v.GetString(FlagLogFile),
		LogInterval:      v.GetInt(FlagLogInterval),
		FPRate:           v.GetFloat64(FlagFPRate),
		MaxFilterEntries: v.GetUint64(FlagMaxFilterEntries),
	}, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Range == "" && c.RandomRange == "" {
		return ErrNoRange
	}
	if c.Range != "" && c.RandomRange != "" {
		return ErrBothRanges
	}
	if strings.TrimSpace(c.Target) == "" {
		return ErrNoTarget
	}
	if c.Workers < 1 {
		return ErrInvalidWorkers
	}
	if c.FPRate <= 0 || c.FPRate >= 1 {
		return ErrInvalidFPRate
	}
	if c.LogInterval < 1 {
		return ErrInvalidLogInterval
	}
	if _, err := keyspace.ParseKeyRange(c.RangeSpec()); err != nil {
		return fmt.Errorf("invalid range: %w", err)
	}
	if _, err := crypto.ParseKind(c.AddressType); err != nil {
		return err
	}
	return nil
}

// Mode returns the search mode implied by which range flag was given.
func (c *Config) Mode() types.Mode {
	if c.RandomRange != "" {
		return types.Random
	}
	return types.Sequential
}

// RangeSpec returns whichever range string is set.
func (c *Config) RangeSpec() string {
	if c.RandomRange != "" {
		return c.RandomRange
	}
	return c.Range
}

// GetTargetDescription returns a human-readable description of the search
func (c *Config) GetTargetDescription() string {
	return fmt.Sprintf("%s address %s, %s scan of %s", c.AddressType, strings.TrimSpace(c.Target), c.Mode(), c.RangeSpec())
}

// ToSearchConfig converts a validated Config into the core search input.
func (c *Config) ToSearchConfig() (*types.SearchConfig, error) {
	r, err := keyspace.ParseKeyRange(c.RangeSpec())
	if err != nil {
		return nil, fmt.Errorf("invalid range: %w", err)
	}
	kind, err := crypto.ParseKind(c.AddressType)
	if err != nil {
		return nil, err
	}
	return &types.SearchConfig{
		Range:            r,
		Target:           strings.TrimSpace(c.Target),
		AddressKind:      kind,
		Workers:          c.Workers,
		Mode:             c.Mode(),
		Verbose:          c.Verbose,
		FilterFPRate:     c.FPRate,
		MaxFilterEntries: c.MaxFilterEntries,
		FlushInterval:    types.DefaultFlushInterval,
		ReportInterval:   time.Duration(c.LogInterval) * time.Second,
	}, nil
}
