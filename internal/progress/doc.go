// Package progress provides progress reporting for probe and download batches.
//
// This package outputs a single self-updating status line, counting URLs
// rather than bytes, plus bytes written for downloads.
//
// # Usage
//
//	reporter := progress.NewReporter(Options{
//	    Label: "Downloading tranches",
//	    Total: len(urls),
//	})
//
//	reporter.Start()
//	defer reporter.Stop()
//
//	reporter.ItemStarted()
//	reporter.ItemCompleted(size)
//
// # Output Format
//
//	[zincdl] Checking availability: 45.0% | 18/40 | 4 in-progress | 1 failed
//	[zincdl] Downloading tranches: 100.0% | 12/12 | 0 in-progress | 0 failed | 3.2 MiB
package progress
