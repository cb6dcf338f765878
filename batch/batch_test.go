package batch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolven/imgrelay/fetchkit"
)

var jpegBytes = append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, []byte("payload")...)

func imageHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(jpegBytes)
}

func TestRunDownloadsToFile(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Content-Disposition", `attachment; filename="cat pic.jpg"`)
		w.Write(jpegBytes)
	}))
	defer upstream.Close()

	dir := t.TempDir()
	outcomes, sum, err := Run(context.Background(), Options{
		URLs:      []string{upstream.URL + "/img"},
		OutputDir: dir,
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, 1, sum.Succeeded)
	assert.Equal(t, 0, sum.Failed)
	require.True(t, outcomes[0].OK)
	assert.Equal(t, filepath.Join(dir, "cat_pic.jpg"), outcomes[0].Path)

	data, err := os.ReadFile(outcomes[0].Path)
	require.NoError(t, err)
	assert.Equal(t, jpegBytes, data)
}

func TestFilenameFallsBackToURLBasename(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(imageHandler))
	defer upstream.Close()

	dir := t.TempDir()
	outcomes, _, err := Run(context.Background(), Options{
		URLs:      []string{upstream.URL + "/images/photo.jpg"},
		OutputDir: dir,
	})
	require.NoError(t, err)
	require.True(t, outcomes[0].OK)
	assert.Equal(t, filepath.Join(dir, "photo.jpg"), outcomes[0].Path)
}

func TestCollisionFreeNaming(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(imageHandler))
	defer upstream.Close()

	dir := t.TempDir()
	url := upstream.URL + "/same.jpg"
	outcomes, sum, err := Run(context.Background(), Options{
		URLs:        []string{url, url, url},
		OutputDir:   dir,
		Concurrency: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Succeeded)

	paths := make([]string, 0, 3)
	for _, o := range outcomes {
		paths = append(paths, filepath.Base(o.Path))
	}
	assert.ElementsMatch(t, []string{"same.jpg", "same (1).jpg", "same (2).jpg"}, paths)
}

func TestRetryExhaustionCountsAttempts(t *testing.T) {
	var attempts atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer upstream.Close()

	start := time.Now()
	outcomes, sum, err := Run(context.Background(), Options{
		URLs:      []string{upstream.URL + "/x.jpg"},
		OutputDir: t.TempDir(),
		Retries:   2,
		Backoff:   20 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), attempts.Load(), "retries=2 means exactly 3 attempts")
	assert.Equal(t, 1, sum.Failed)
	require.False(t, outcomes[0].OK)
	assert.Contains(t, outcomes[0].Err, "unexpected status 500")
	// Linear backoff: waits of 1x and 2x the unit between the attempts.
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestNonImageContentTypeFails(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	}))
	defer upstream.Close()

	dir := t.TempDir()
	outcomes, sum, err := Run(context.Background(), Options{
		URLs:      []string{upstream.URL + "/x.jpg"},
		OutputDir: dir,
		Retries:   0,
		Backoff:   time.Millisecond,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failed)
	assert.Contains(t, outcomes[0].Err, "not an image")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "failed fetch must not create a file")
}

func TestFailedWriteLeavesNoFile(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Content-Length", "100000")
		w.Write(jpegBytes)
		w.(http.Flusher).Flush()
		panic(http.ErrAbortHandler) // cut the connection mid-body
	}))
	defer upstream.Close()

	dir := t.TempDir()
	_, sum, err := Run(context.Background(), Options{
		URLs:      []string{upstream.URL + "/big.jpg"},
		OutputDir: dir,
		Retries:   0,
		Backoff:   time.Millisecond,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failed)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "partial download must be cleaned up")
}

func TestConcurrencyBound(t *testing.T) {
	var inFlight, peak atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cur := inFlight.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		imageHandler(w, r)
	}))
	defer upstream.Close()

	urls := make([]string, 8)
	for i := range urls {
		urls[i] = upstream.URL + "/img.jpg"
	}
	_, sum, err := Run(context.Background(), Options{
		URLs:        urls,
		OutputDir:   t.TempDir(),
		Concurrency: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 8, sum.Succeeded)
	assert.LessOrEqual(t, peak.Load(), int32(2), "at most Concurrency fetches in flight")
}

func TestOnResultOrderingAndCallbacks(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(imageHandler))
	defer upstream.Close()

	var mu sync.Mutex
	var seen []Outcome
	urls := []string{upstream.URL + "/a.jpg", upstream.URL + "/b.jpg"}
	outcomes, _, err := Run(context.Background(), Options{
		URLs:      urls,
		OutputDir: t.TempDir(),
		OnResult: func(o Outcome) {
			mu.Lock()
			seen = append(seen, o)
			mu.Unlock()
		},
	})
	require.NoError(t, err)
	assert.Equal(t, outcomes, seen, "callback order matches recorded completion order")
}

func TestNoURLsIsUsageError(t *testing.T) {
	_, _, err := Run(context.Background(), Options{OutputDir: t.TempDir()})
	assert.ErrorIs(t, err, ErrNoURLs)
}

func TestForwardsAssembledHeaders(t *testing.T) {
	var got http.Header
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		imageHandler(w, r)
	}))
	defer upstream.Close()

	_, sum, err := Run(context.Background(), Options{
		URLs:      []string{upstream.URL + "/x.jpg"},
		OutputDir: t.TempDir(),
		Headers: fetchkit.HeaderOptions{
			Lines:   []string{"X-Custom: v"},
			Cookies: []string{"a=1", "b=2"},
			Auth:    "tok",
		},
	})
	require.NoError(t, err)
	require.Equal(t, 1, sum.Succeeded)
	assert.Equal(t, "v", got.Get("X-Custom"))
	assert.Equal(t, "a=1; b=2", got.Get("Cookie"))
	assert.Equal(t, "Bearer tok", got.Get("Authorization"))
	// The downloader never injects browser defaults.
	assert.Empty(t, got.Get("Accept"))
}
