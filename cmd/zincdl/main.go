package main

import (
	"fmt"
	"io"
	"os"
)

// Exit codes
const (
	ExitSuccess         = 0
	ExitGeneralError    = 1
	ExitInvalidArgs     = 2
	ExitSetupFailed     = 3
	ExitDownloadsFailed = 4
)

// Generated URLs go to stdout, everything else to stderr.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return ExitInvalidArgs
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "urls":
		return runURLs(cmdArgs)
	case "probe":
		return runProbe(cmdArgs)
	case "download":
		return runDownload(cmdArgs)
	case "help", "-h", "--help":
		printUsage()
		return ExitSuccess
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		printUsage()
		return ExitInvalidArgs
	}
}

func printUsage() {
	fmt.Fprintln(stderr, `Usage: zincdl <command> [options]

Commands:
  urls      Print the tranche URLs for a selection without touching the network
  probe     Check which tranche URLs exist and print the available ones
  download  Probe tranche URLs and download the available files

Run 'zincdl <command> -h' for command-specific help.`)
}
