package segment

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	httpx "github.com/handiism/spotify-downloader/internal/http"
)

const defaultWorkers = 4

// Fetcher downloads stream payloads.
type Fetcher struct {
	// Client performs the integrated downloads.
	Client *httpx.Client

	// Workers bounds concurrent segment fetches. Zero means a default.
	Workers int

	// Accelerator is the path of an external download binary. Empty
	// means the integrated client handles single-URL downloads too.
	Accelerator string

	// OnProgress is called as segments are written, may be nil.
	OnProgress func(written, total int)
}

// DownloadFile fetches one URL into destPath, creating parent
// directories as needed.
func (f *Fetcher) DownloadFile(ctx context.Context, rawURL, destPath string) error {
	if f.Accelerator != "" {
		return f.downloadWithAccelerator(ctx, rawURL, destPath)
	}
	var onProgress func(written, total int64)
	if f.OnProgress != nil {
		onProgress = func(written, total int64) {
			f.OnProgress(int(written), int(total))
		}
	}
	return f.Client.DownloadFile(ctx, rawURL, destPath, onProgress)
}

func (f *Fetcher) downloadWithAccelerator(ctx context.Context, rawURL, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.Accelerator,
		"--no-conf",
		"--download-result=hide",
		"--console-log-level=error",
		"--summary-interval=0",
		"--file-allocation=none",
		rawURL,
		"--out", filepath.Base(destPath),
		"--dir", filepath.Dir(destPath),
	)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", f.Accelerator, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

type fetched struct {
	index int
	data  []byte
}

// DownloadSegments fetches every URL concurrently and writes the bodies
// to dst strictly in slice order. The first failure cancels the
// remaining fetches.
func (f *Fetcher) DownloadSegments(ctx context.Context, urls []string, dst io.Writer) error {
	if len(urls) == 0 {
		return nil
	}
	workers := f.Workers
	if workers < 1 {
		workers = defaultWorkers
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	results := make(chan fetched, workers)

	// Single writer holds completed segments until their turn comes.
	writerDone := make(chan error, 1)
	go func() {
		pending := make(map[int][]byte)
		next := 0
		for res := range results {
			pending[res.index] = res.data
			for {
				data, ok := pending[next]
				if !ok {
					break
				}
				if _, err := dst.Write(data); err != nil {
					cancel()
					writerDone <- err
					return
				}
				delete(pending, next)
				next++
				if f.OnProgress != nil {
					f.OnProgress(next, len(urls))
				}
			}
		}
		writerDone <- nil
	}()

	for index, rawURL := range urls {
		group.Go(func() error {
			data, err := f.Client.Do(ctx, "segment", http.MethodGet, rawURL, nil, nil, nil)
			if err != nil {
				return fmt.Errorf("segment %d: %w", index, err)
			}
			select {
			case results <- fetched{index: index, data: data}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}
	fetchErr := group.Wait()
	close(results)

	// A write failure cancels the fetches, so it takes precedence over
	// the cancellation errors the fetchers report afterwards.
	if writeErr := <-writerDone; writeErr != nil {
		return writeErr
	}
	return fetchErr
}
