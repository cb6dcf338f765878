// Command imgfetch downloads a list of image URLs concurrently, validating
// content types and writing each to a collision-free file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/tolven/imgrelay/batch"
	"github.com/tolven/imgrelay/fetchkit"
)

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return fmt.Sprint([]string(*s)) }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

const (
	exitOK    = 0
	exitUsage = 1
	exitFail  = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		urls    stringList
		headers stringList
		cookies stringList
	)
	input := flag.String("input", "", "file with URLs (JSON array or one per line)")
	output := flag.String("output", batch.DefaultOutputDir, "output directory")
	concurrency := flag.Int("concurrency", batch.DefaultConcurrency, "max concurrent downloads")
	retry := flag.Int("retry", batch.DefaultRetries, "retries per URL after the first failure")
	auth := flag.String("auth", "", "Authorization token (Bearer-prefixed unless already Bearer/Basic)")
	referer := flag.String("referer", "", "Referer header")
	origin := flag.String("origin", "", "Origin header")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Var(&urls, "url", "URL to download (repeatable)")
	flag.Var(&headers, "header", `extra header as "Name: Value" (repeatable)`)
	flag.Var(&cookies, "cookie", `cookie as "k=v", merged into one Cookie header (repeatable)`)
	flag.Parse()

	logger := zerolog.Nop()
	if *verbose {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, sum, err := batch.Run(ctx, batch.Options{
		URLs:        urls,
		InputFile:   *input,
		OutputDir:   *output,
		Concurrency: *concurrency,
		Retries:     *retry,
		Headers: fetchkit.HeaderOptions{
			Lines:   headers,
			Cookies: cookies,
			Auth:    *auth,
			Referer: *referer,
			Origin:  *origin,
		},
		Logger: &logger,
		OnResult: func(o batch.Outcome) {
			if o.OK {
				fmt.Printf("ok   %s -> %s\n", o.URL, o.Path)
			} else {
				fmt.Fprintf(os.Stderr, "fail %s: %s\n", o.URL, o.Err)
			}
		},
	})
	if err != nil {
		if errors.Is(err, batch.ErrNoURLs) {
			fmt.Fprintln(os.Stderr, "usage error: no URLs given (use --url or --input)")
			flag.Usage()
			return exitUsage
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitFail
	}

	fmt.Printf("done: %d succeeded, %d failed\n", sum.Succeeded, sum.Failed)
	if sum.Failed > 0 {
		return exitFail
	}
	return exitOK
}
