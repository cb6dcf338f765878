package batch

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/tolven/imgrelay/fetchkit"
)

type downloader struct {
	opts Options
}

// download runs the retry loop for a single URL. Attempt n waits n*Backoff
// before the next try; cancellation is observed during the wait.
func (d *downloader) download(ctx context.Context, url string) Outcome {
	attempts := d.opts.Retries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		path, err := d.fetchOnce(ctx, url)
		if err == nil {
			d.opts.Logger.Info().
				Str("url", url).
				Str("path", path).
				Int("attempt", attempt).
				Msg("[batch] downloaded")
			return Outcome{URL: url, OK: true, Path: path}
		}
		lastErr = err
		d.opts.Logger.Warn().
			Err(err).
			Str("url", url).
			Int("attempt", attempt).
			Msg("[batch] attempt failed")

		if ctx.Err() != nil {
			break
		}
		if attempt < attempts {
			select {
			case <-ctx.Done():
				return Outcome{URL: url, OK: false, Err: ctx.Err().Error()}
			case <-time.After(time.Duration(attempt) * d.opts.Backoff):
			}
		}
	}

	return Outcome{URL: url, OK: false, Err: lastErr.Error()}
}

// fetchOnce performs one GET and, on success, streams the body to a
// collision-free file. The declared content type is trusted here: anything
// not image/* is a retryable failure, no sniffing.
func (d *downloader) fetchOnce(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.Wrap(err, "building request")
	}
	req.Header = fetchkit.BuildHeaders(d.opts.Headers)

	resp, err := d.opts.Client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "fetch failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errors.Errorf("unexpected status %d", resp.StatusCode)
	}

	ct := resp.Header.Get(fetchkit.HeaderContentType)
	if !fetchkit.IsImageType(ct) {
		return "", errors.Errorf("not an image: content type %q", ct)
	}

	name := fetchkit.FilenameFromDisposition(resp.Header.Get(fetchkit.HeaderContentDisposition))
	if name == "" {
		name = fetchkit.FilenameFromURL(url)
	}
	name = fetchkit.SanitizeFilename(name)

	path, out, err := createCollisionFree(d.opts.OutputDir, name)
	if err != nil {
		return "", errors.Wrap(err, "creating output file")
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		removeFile(path)
		return "", errors.Wrap(err, "writing "+path)
	}
	if err := out.Close(); err != nil {
		removeFile(path)
		return "", errors.Wrap(err, "closing "+path)
	}
	return path, nil
}
