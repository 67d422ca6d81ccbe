package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ligustah/zincdl/internal/config"
	"github.com/ligustah/zincdl/internal/logging"
	"github.com/ligustah/zincdl/internal/prober"
)

// runProbe checks which tranche URLs exist and prints the available ones.
func runProbe(args []string) int {
	fs, flags := newFlagSet("probe", `Usage: zincdl probe [options]

Check which tranche URLs exist with HEAD requests and print the available
ones. URLs whose status could not be determined are left out.`, false)

	cfg, code := parseConfig(fs, flags, args)
	if code >= 0 {
		return code
	}

	ctx, cancel := signalContext()
	defer cancel()

	log := logging.New(stderr, cfg.Verbose)
	urls, err := generate(cfg, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	available := probeURLs(ctx, cfg, urls, &log)
	if ctx.Err() != nil {
		fmt.Fprintln(stderr, "[zincdl] Probe interrupted")
		return ExitGeneralError
	}

	for _, u := range available {
		fmt.Fprintln(stdout, u)
	}
	return ExitSuccess
}

// probeURLs probes urls and returns the available ones in input order.
func probeURLs(ctx context.Context, cfg config.Config, urls []string, log *zerolog.Logger) []string {
	reporter := newReporter(cfg, "Checking availability", len(urls))
	reporter.Start()

	results := prober.ProbeBatch(ctx, urls, prober.Options{
		Concurrency:       cfg.Concurrency,
		Timeout:           cfg.Timeout,
		Policy:            policy(cfg),
		MaxPending:        cfg.MaxPending,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Logger:            log,
		Progress:          reporter,
	})
	reporter.Stop()

	var unknown []string
	for _, r := range results {
		if r.Outcome == prober.Unknown {
			unknown = append(unknown, r.URL)
		}
	}
	if len(unknown) > 0 {
		log.Debug().Strs("urls", unknown).Msgf("%d URLs with unknown status", len(unknown))
	}

	available := prober.Available(results)
	fmt.Fprintf(stderr, "[zincdl] # active URLs: %d / %d\n", len(available), len(urls))
	return available
}
