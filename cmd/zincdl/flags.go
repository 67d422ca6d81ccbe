package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ligustah/zincdl/internal/backoff"
	"github.com/ligustah/zincdl/internal/config"
	"github.com/ligustah/zincdl/internal/progress"
	"github.com/ligustah/zincdl/internal/tranche"
)

// cliFlags holds raw flag values. Only flags given on the command line are
// applied on top of the file and environment configuration.
type cliFlags struct {
	configPath string

	subset         string
	mw             string
	logp           string
	reactivity     string
	purchasability string
	reacExclusive  bool
	purchExclusive bool
	ph             string
	charge         string
	format         string
	baseURL        string

	concurrency int
	timeout     time.Duration
	retries     int
	maxPending  int
	rps         float64
	progress    bool
	verbose     bool

	outDir        string
	chunkSize     string
	maxChunkPause time.Duration
}

// newFlagSet registers the tranche selection and engine flags. Download
// flags are only added when download is set.
func newFlagSet(name, usage string, download bool) (*flag.FlagSet, *cliFlags) {
	def := config.Default()
	f := &cliFlags{}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&f.configPath, "config", "", "Path to a YAML configuration file")

	fs.StringVar(&f.subset, "subset", "", "Predefined subset ("+strings.Join(tranche.Subsets(), ", ")+"); replaces -mw and -logp")
	fs.StringVar(&f.mw, "mw", strings.Join(def.Tranche.MW, ","), "Comma-separated molecular weight bins")
	fs.StringVar(&f.logp, "logp", strings.Join(def.Tranche.LogP, ","), "Comma-separated logP bins")
	fs.StringVar(&f.reactivity, "reactivity", def.Tranche.Reactivity, "Reactivity level")
	fs.StringVar(&f.purchasability, "purchasability", def.Tranche.Purchasability, "Purchasability level")
	fs.BoolVar(&f.reacExclusive, "reac-exclusive", def.Tranche.ReacExclusive, "Select only the given reactivity level instead of every level up to it")
	fs.BoolVar(&f.purchExclusive, "purch-exclusive", def.Tranche.PurchExclusive, "Select only the given purchasability level instead of every level up to it")
	fs.StringVar(&f.ph, "ph", strings.Join(def.Tranche.PH, ","), "Comma-separated pH classes (ref, mid, high, low)")
	fs.StringVar(&f.charge, "charge", strings.Join(def.Tranche.Charge, ","), "Comma-separated net charges (-2 to 2)")
	fs.StringVar(&f.format, "fmt", def.Tranche.Format, "File format ("+strings.Join(tranche.Formats(), ", ")+")")
	fs.StringVar(&f.baseURL, "base-url", def.Tranche.BaseURL, "Tranche file server")

	fs.IntVar(&f.concurrency, "concurrency", def.Concurrency, "Maximum number of in-flight requests")
	fs.DurationVar(&f.timeout, "timeout", def.Timeout, "Per-request timeout for availability checks")
	fs.IntVar(&f.retries, "retries", def.MaxRetries, "Max retries per URL")
	fs.IntVar(&f.maxPending, "max-pending", def.MaxPending, "URLs worked on at once (0 means 4 x concurrency)")
	fs.Float64Var(&f.rps, "rps", def.RequestsPerSecond, "Aggregate request rate limit (0 means unlimited)")
	fs.BoolVar(&f.progress, "progress", false, "Show progress output")
	fs.BoolVar(&f.verbose, "verbose", false, "Enable debug logging")

	if download {
		fs.StringVar(&f.outDir, "outdir", def.OutDir, "Output directory or bucket URL (s3://, gs://, mem://)")
		fs.StringVar(&f.chunkSize, "chunk-size", progress.FormatBytes(def.ChunkSize), "Read size when streaming a file")
		fs.DurationVar(&f.maxChunkPause, "max-chunk-pause", def.MaxChunkPause, "Upper bound of the random pause between chunks (0 disables)")
	}

	fs.Usage = func() {
		fmt.Fprintln(stderr, usage+"\n\nOptions:")
		fs.PrintDefaults()
	}
	return fs, f
}

// parseConfig parses args and resolves the configuration: defaults, then
// the -config file, then ZINCDL_ environment variables, then explicit flags.
// A non-negative exit code means the command should stop.
func parseConfig(fs *flag.FlagSet, f *cliFlags, args []string) (config.Config, int) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return config.Config{}, ExitSuccess
		}
		return config.Config{}, ExitInvalidArgs
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "Error: unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
		fs.Usage()
		return config.Config{}, ExitInvalidArgs
	}

	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.LoadFromFile(f.configPath); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return config.Config{}, ExitInvalidArgs
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return config.Config{}, ExitInvalidArgs
	}

	var flagErr error
	fs.Visit(func(fl *flag.Flag) {
		if err := f.apply(&cfg, fl.Name); err != nil && flagErr == nil {
			flagErr = err
		}
	})
	if flagErr != nil {
		fmt.Fprintf(stderr, "Error: %v\n", flagErr)
		return config.Config{}, ExitInvalidArgs
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return config.Config{}, ExitInvalidArgs
	}
	return cfg, -1
}

func (f *cliFlags) apply(cfg *config.Config, name string) error {
	switch name {
	case "subset":
		cfg.Tranche.Subset = f.subset
	case "mw":
		cfg.Tranche.MW = tranche.ParseList(f.mw)
	case "logp":
		cfg.Tranche.LogP = tranche.ParseList(f.logp)
	case "reactivity":
		cfg.Tranche.Reactivity = f.reactivity
	case "purchasability":
		cfg.Tranche.Purchasability = f.purchasability
	case "reac-exclusive":
		cfg.Tranche.ReacExclusive = f.reacExclusive
	case "purch-exclusive":
		cfg.Tranche.PurchExclusive = f.purchExclusive
	case "ph":
		cfg.Tranche.PH = tranche.ParseList(f.ph)
	case "charge":
		cfg.Tranche.Charge = tranche.ParseList(f.charge)
	case "fmt":
		cfg.Tranche.Format = f.format
	case "base-url":
		cfg.Tranche.BaseURL = f.baseURL
	case "concurrency":
		cfg.Concurrency = f.concurrency
	case "timeout":
		cfg.Timeout = f.timeout
	case "retries":
		cfg.MaxRetries = f.retries
	case "max-pending":
		cfg.MaxPending = f.maxPending
	case "rps":
		cfg.RequestsPerSecond = f.rps
	case "progress":
		cfg.Progress = f.progress
	case "verbose":
		cfg.Verbose = f.verbose
	case "outdir":
		cfg.OutDir = f.outDir
	case "chunk-size":
		size, err := progress.ParseBytes(f.chunkSize)
		if err != nil {
			return fmt.Errorf("invalid chunk size: %w", err)
		}
		cfg.ChunkSize = size
	case "max-chunk-pause":
		cfg.MaxChunkPause = f.maxChunkPause
	}
	return nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(stderr, "\n[zincdl] Received interrupt, shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

// generate builds the tranche URLs and logs the selection.
func generate(cfg config.Config, log zerolog.Logger) ([]string, error) {
	p := cfg.Tranche.Params()
	urls, err := tranche.URLs(p)
	if err != nil {
		return nil, err
	}

	mw, logp, _ := p.Grid()
	ev := log.Info()
	if p.Subset != "" {
		ev = ev.Str("subset", p.Subset)
	}
	ev.Strs("mw", mw).
		Strs("logp", logp).
		Str("reactivity", levelLabel(p.Reactivity, p.ReacExclusive)).
		Str("purchasability", levelLabel(p.Purchasability, p.PurchExclusive)).
		Strs("ph", p.PH).
		Strs("charge", p.Charge).
		Str("format", p.Format).
		Int("tranches", len(urls)).
		Msg("encoding ZINC tranches")

	return urls, nil
}

func levelLabel(level string, exclusive bool) string {
	if exclusive {
		return level + " (exclusive)"
	}
	return level
}

func policy(cfg config.Config) *backoff.Policy {
	p := backoff.Default()
	p.MaxRetries = cfg.MaxRetries
	return &p
}

// newReporter returns nil unless progress output is enabled.
func newReporter(cfg config.Config, label string, total int) *progress.Reporter {
	if !cfg.Progress {
		return nil
	}
	return progress.NewReporter(progress.Options{
		Label:          label,
		Total:          total,
		Output:         stderr,
		UpdateInterval: time.Second,
	})
}
