// Package batch implements the concurrent image downloader: it fetches a list
// of URLs with bounded concurrency, validates declared content types, retries
// failures with linear backoff, and writes results to collision-free paths.
package batch

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/tolven/imgrelay/fetchkit"
)

// Defaults for Options fields left at zero.
const (
	DefaultOutputDir   = "downloads"
	DefaultConcurrency = 4
	DefaultRetries     = 2
	DefaultBackoff     = 250 * time.Millisecond
)

// Options configures a batch run.
type Options struct {
	// URLs from the command line. InputFile URLs precede these in the queue.
	URLs      []string
	InputFile string

	OutputDir   string
	Concurrency int
	// Retries is the number of re-attempts after the first failure, so each
	// URL sees at most Retries+1 fetches.
	Retries int
	// Backoff is the linear backoff unit: attempt n waits n*Backoff before
	// the next try.
	Backoff time.Duration

	Headers fetchkit.HeaderOptions

	// Client defaults to a plain http.Client following redirects.
	Client *http.Client
	Logger *zerolog.Logger

	// OnResult, when set, is called for each outcome as it completes. Calls
	// are serialized.
	OnResult func(Outcome)
}

// Outcome records the terminal result for one URL. Immutable once recorded.
type Outcome struct {
	URL  string
	OK   bool
	Path string // output path on success
	Err  string // last error message on failure
}

// Summary tallies a completed run.
type Summary struct {
	Succeeded int
	Failed    int
}

// ErrNoURLs is returned when neither the input file nor the arguments yield
// any URL. Callers treat it as a usage error.
var ErrNoURLs = errors.New("no URLs to download")

func (o Options) normalize() Options {
	if o.OutputDir == "" {
		o.OutputDir = DefaultOutputDir
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.Retries < 0 {
		o.Retries = DefaultRetries
	}
	if o.Backoff <= 0 {
		o.Backoff = DefaultBackoff
	}
	if o.Client == nil {
		o.Client = &http.Client{}
	}
	if o.Logger == nil {
		nop := zerolog.Nop()
		o.Logger = &nop
	}
	return o
}

// Run executes the batch download and returns the outcomes in completion
// order. Per-URL failures are recorded, never fatal; the returned error only
// covers setup problems (no URLs, unreadable input file, output dir).
func Run(ctx context.Context, opts Options) ([]Outcome, Summary, error) {
	opts = opts.normalize()

	urls, err := resolveURLs(opts.InputFile, opts.URLs)
	if err != nil {
		return nil, Summary{}, err
	}
	if len(urls) == 0 {
		return nil, Summary{}, ErrNoURLs
	}

	if err := ensureOutputDir(opts.OutputDir); err != nil {
		return nil, Summary{}, err
	}

	d := &downloader{opts: opts}

	workers := opts.Concurrency
	if workers > len(urls) {
		workers = len(urls)
	}

	// Workers claim the next unclaimed index atomically; the slice itself is
	// never written, so this is the only coordination the queue needs.
	var next atomic.Int64
	var mu sync.Mutex
	outcomes := make([]Outcome, 0, len(urls))
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := next.Add(1) - 1
				if i >= int64(len(urls)) {
					return
				}
				out := d.download(ctx, urls[i])
				mu.Lock()
				outcomes = append(outcomes, out)
				if opts.OnResult != nil {
					opts.OnResult(out)
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	var sum Summary
	for _, out := range outcomes {
		if out.OK {
			sum.Succeeded++
		} else {
			sum.Failed++
		}
	}
	return outcomes, sum, nil
}
