package main

import (
	"errors"
	"fmt"

	"github.com/ligustah/zincdl/internal/downloader"
	"github.com/ligustah/zincdl/internal/logging"
	"github.com/ligustah/zincdl/internal/progress"
)

// runDownload probes the selected tranches and downloads the available
// files into the output directory or bucket.
func runDownload(args []string) int {
	fs, flags := newFlagSet("download", `Usage: zincdl download [options]

Check which tranche URLs exist and download the available files.
-outdir may be a local directory or a bucket URL (s3://, gs://, mem://).
Existing files are overwritten.`, true)

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

	pause := cfg.MaxChunkPause
	if pause == 0 {
		pause = -1
	}

	reporter := newReporter(cfg, "Downloading ZINC tranches", len(available))
	reporter.Start()
	results, err := downloader.DownloadBatch(ctx, available, cfg.OutDir, downloader.Options{
		Concurrency:       cfg.Concurrency,
		ChunkSize:         int(cfg.ChunkSize),
		MaxChunkPause:     pause,
		Policy:            policy(cfg),
		MaxPending:        cfg.MaxPending,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Logger:            &log,
		Progress:          reporter,
	})
	reporter.Stop()

	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if errors.Is(err, downloader.ErrSetup) {
			return ExitSetupFailed
		}
		return ExitGeneralError
	}

	var failed int
	var written int64
	for _, r := range results {
		if !r.OK {
			failed++
			continue
		}
		written += r.Bytes
	}

	fmt.Fprintf(stderr, "[zincdl] Downloaded %d/%d tranches (%s) to %s\n",
		len(results)-failed, len(results), progress.FormatBytes(written), cfg.OutDir)

	if ctx.Err() != nil {
		fmt.Fprintln(stderr, "[zincdl] Download interrupted")
		return ExitGeneralError
	}
	if failed > 0 {
		return ExitDownloadsFailed
	}
	return ExitSuccess
}
