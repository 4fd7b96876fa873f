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

// Package checksum formats, parses and verifies self-describing checksum
// strings of the form "<algorithm>:<hex-value>". Embedding the algorithm
// name in the string means a verifier never needs out-of-band knowledge of
// which algorithm produced a given digest, which matters when checksums
// from different eras or configurations coexist in the same manifest.
package checksum

import (
	"bytes"
	"crypto/md5"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"hash/adler32"
	"io"
	"strings"

	"github.com/go-logr/logr"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"
)

// Algorithm is the name of a supported checksum algorithm.
type Algorithm string

const (
	SHA256  Algorithm = "sha256"
	SHA512  Algorithm = "sha512"
	BLAKE2b Algorithm = "blake2b"
	BLAKE2s Algorithm = "blake2s"
	MD5     Algorithm = "md5"
	Adler32 Algorithm = "adler32"
)

// DefaultAlgorithm is the algorithm used when the caller expresses no preference.
const DefaultAlgorithm = SHA256

var (
	// ErrUnsupportedAlgorithm is returned when a checksum algorithm is not
	// one of the supported names.
	ErrUnsupportedAlgorithm = errors.New("unsupported checksum algorithm")

	// ErrInvalidFormat is returned when a checksum string fails structural
	// parsing.
	ErrInvalidFormat = errors.New("invalid checksum format")
)

var log = logr.Discard()

// SetLogger sets the logger used by this package for debug traces and
// verification warnings. It is not thread-safe, and should be called as
// early as possible in the program's execution.
func SetLogger(logger logr.Logger) {
	log = logger
}

// Supported reports whether a is one of the supported algorithm names.
// The match is case-sensitive and exact.
func (a Algorithm) Supported() bool {
	switch a {
	case SHA256, SHA512, BLAKE2b, BLAKE2s, MD5, Adler32:
		return true
	}
	return false
}

// Strong reports whether a is considered cryptographically strong.
// MD5 and Adler-32 are retained for legacy integrity checks only.
func (a Algorithm) Strong() bool {
	switch a {
	case SHA256, SHA512, BLAKE2b, BLAKE2s:
		return true
	}
	return false
}

func newHasher(algo Algorithm) (hash.Hash, error) {
	switch algo {
	case SHA256:
		return sha256.New(), nil
	case SHA512:
		return sha512.New(), nil
	case BLAKE2b:
		return blake2b.New512(nil)
	case BLAKE2s:
		return blake2s.New256(nil)
	case MD5:
		return md5.New(), nil
	case Adler32:
		return adler32.New(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algo)
}

// Format computes the checksum of data with the given algorithm and returns
// it in the prefixed "<algorithm>:<hex-value>" form. Adler-32 checksums are
// rendered as 8 zero-padded lowercase hex digits; the remaining algorithms
// use the natural lowercase hex output of their digest.
func Format(data []byte, algo Algorithm) (string, error) {
	checksum, err := FormatReader(bytes.NewReader(data), algo)
	if err != nil {
		return "", err
	}
	log.V(1).Info("formatted checksum",
		"algorithm", algo, "bytes", len(data), "checksum", preview(checksum))
	return checksum, nil
}

// FormatReader is the streaming variant of Format. It consumes r to EOF.
func FormatReader(r io.Reader, algo Algorithm) (string, error) {
	hasher, err := newHasher(algo)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(hasher, r); err != nil {
		return "", fmt.Errorf("failed to compute %s checksum: %w", algo, err)
	}
	return string(algo) + ":" + hex.EncodeToString(hasher.Sum(nil)), nil
}

// Parse splits a prefixed checksum into its algorithm and hex value. The
// split is on the first ':' only; the value is returned exactly as supplied,
// without case normalization.
func Parse(checksum string) (Algorithm, string, error) {
	if checksum == "" {
		return "", "", fmt.Errorf("%w: empty string", ErrInvalidFormat)
	}
	name, value, found := strings.Cut(checksum, ":")
	if !found {
		return "", "", fmt.Errorf("%w: missing ':' separator in %q", ErrInvalidFormat, preview(checksum))
	}
	algo := Algorithm(name)
	if !algo.Supported() {
		return "", "", fmt.Errorf("%w: unknown algorithm %q", ErrInvalidFormat, name)
	}
	return algo, value, nil
}

// Verify recomputes the checksum of data with the algorithm embedded in
// expected and compares the hex values case-insensitively. It never returns
// an error: malformed checksums and computation failures degrade to false.
func Verify(data []byte, expected string) bool {
	algo, want, err := Parse(expected)
	if err != nil {
		log.Error(err, "checksum verification failed", "checksum", preview(expected))
		return false
	}
	actual, err := Format(data, algo)
	if err != nil {
		log.Error(err, "checksum verification failed", "checksum", preview(expected))
		return false
	}
	_, got, _ := strings.Cut(actual, ":")
	if !strings.EqualFold(got, want) {
		log.Info("checksum mismatch", "expected", preview(expected), "actual", preview(actual))
		return false
	}
	log.V(1).Info("checksum verified", "algorithm", algo)
	return true
}

// Normalize returns the checksum with its hex value lowercased. Unlike
// Verify, parse failures propagate to the caller.
func Normalize(checksum string) (string, error) {
	algo, value, err := Parse(checksum)
	if err != nil {
		return "", err
	}
	return string(algo) + ":" + strings.ToLower(value), nil
}

// IsStrong reports whether the checksum was produced by a cryptographically
// strong algorithm. Malformed checksums are reported as not strong.
func IsStrong(checksum string) bool {
	algo, _, err := Parse(checksum)
	if err != nil {
		return false
	}
	return algo.Strong()
}

// preview truncates a checksum for log output, so that huge digests are not
// dumped into log lines.
func preview(s string) string {
	const max = 19
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
