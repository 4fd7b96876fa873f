/*
Copyright 2025 The Packtools authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package fetch downloads files over HTTP and verifies their integrity
// against a self-describing prefixed checksum before making them visible
// at their destination path.
package fetch

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/packtools/pkg/checksum"
)

// ErrFileNotFound is an error type used to signal 404 HTTP status code responses.
var ErrFileNotFound = errors.New("file not found")

// FileFetcher holds the HTTP client that retries with back off when
// the file server is offline.
type FileFetcher struct {
	httpClient      *retryablehttp.Client
	maxDownloadSize int
}

// NewFileFetcher configures the retryable http client used for fetching files.
// A maxDownloadSize of zero or less disables the download size guard.
func NewFileFetcher(retries, maxDownloadSize int) *FileFetcher {
	httpClient := retryablehttp.NewClient()
	httpClient.RetryWaitMin = 5 * time.Second
	httpClient.RetryWaitMax = 30 * time.Second
	httpClient.RetryMax = retries
	httpClient.Logger = nil

	return &FileFetcher{
		httpClient:      httpClient,
		maxDownloadSize: maxDownloadSize,
	}
}

// Fetch downloads the file at fileURL, verifies it against the prefixed
// checksum (e.g. "sha256:3b2a..."), and moves it to destPath. The download
// lands in a temporary file first, so a failed verification never leaves a
// partial or corrupt file at the destination.
// If the file server responds with 5xx errors, the download operation is retried.
// If the file server responds with 404, the returned error is of type ErrFileNotFound.
func (f *FileFetcher) Fetch(fileURL, expected, destPath string) error {
	algo, _, err := checksum.Parse(expected)
	if err != nil {
		return fmt.Errorf("invalid checksum %q: %w", expected, err)
	}

	req, err := retryablehttp.NewRequest(http.MethodGet, fileURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create a new request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download file, error: %w", err)
	}
	defer resp.Body.Close()

	if code := resp.StatusCode; code != http.StatusOK {
		if code == http.StatusNotFound {
			return ErrFileNotFound
		}
		return fmt.Errorf("failed to download file from %s, status: %s", fileURL, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), "fetch.*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	// Save temporary file, but limit download to the max download size.
	if f.maxDownloadSize > 0 {
		// Headers can lie, so instead of trusting resp.ContentLength,
		// limit the download to the max download size and error in case
		// there are still bytes left.
		// Note that discarding of remaining bytes in resp.Body is a
		// requirement for Go to effectively reuse HTTP connections.
		_, err = io.Copy(tmp, io.LimitReader(resp.Body, int64(f.maxDownloadSize)))
		n, _ := io.Copy(io.Discard, resp.Body)
		if n > 0 {
			return fmt.Errorf("file is %d bytes greater than the max download size of %d bytes", n, f.maxDownloadSize)
		}
	} else {
		_, err = io.Copy(tmp, resp.Body)
	}
	if err != nil {
		return fmt.Errorf("failed to copy temp contents: %w", err)
	}

	// We have just filled the file, to be able to read it from
	// the start we must go back to its beginning.
	if _, err := tmp.Seek(0, 0); err != nil {
		return fmt.Errorf("failed to seek back to beginning: %w", err)
	}

	actual, err := checksum.FormatReader(tmp, algo)
	if err != nil {
		return fmt.Errorf("failed to compute checksum: %w", err)
	}
	want, err := checksum.Normalize(expected)
	if err != nil {
		return fmt.Errorf("invalid checksum %q: %w", expected, err)
	}
	if actual != want {
		return fmt.Errorf("failed to verify file: computed checksum '%s' doesn't match provided '%s'", actual, want)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), destPath); err != nil {
		return fmt.Errorf("failed to move file to destination: %w", err)
	}
	return nil
}
