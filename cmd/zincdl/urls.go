package main

import (
	"fmt"

	"github.com/ligustah/zincdl/internal/logging"
)

// runURLs prints the URLs of the selected tranches, one per line.
func runURLs(args []string) int {
	fs, flags := newFlagSet("urls", `Usage: zincdl urls [options]

Print the tranche URLs for a selection. No requests are made.`, false)

	cfg, code := parseConfig(fs, flags, args)
	if code >= 0 {
		return code
	}

	log := logging.New(stderr, cfg.Verbose)
	urls, err := generate(cfg, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	for _, u := range urls {
		fmt.Fprintln(stdout, u)
	}
	return ExitSuccess
}
