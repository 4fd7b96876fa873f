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

package checksum

import (
	"fmt"
	"strings"

	"github.com/opencontainers/go-digest"
)

// Digest converts a prefixed checksum into an OCI digest. Only the
// algorithms go-digest knows about (sha256, sha512) have an equivalent;
// the conversion lowercases the hex value, as OCI digests require.
func Digest(checksum string) (digest.Digest, error) {
	algo, value, err := Parse(checksum)
	if err != nil {
		return "", err
	}
	var alg digest.Algorithm
	switch algo {
	case SHA256:
		alg = digest.SHA256
	case SHA512:
		alg = digest.SHA512
	default:
		return "", fmt.Errorf("%w: %q has no OCI digest equivalent", ErrUnsupportedAlgorithm, algo)
	}
	d := digest.NewDigestFromEncoded(alg, strings.ToLower(value))
	if err := d.Validate(); err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidFormat, err)
	}
	return d, nil
}

// FromDigest converts an OCI digest into a prefixed checksum. The two
// formats share the "<algorithm>:<hex-value>" wire shape, so this is a
// validation step more than a conversion.
func FromDigest(d digest.Digest) (string, error) {
	if err := d.Validate(); err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidFormat, err)
	}
	if algo := Algorithm(d.Algorithm().String()); !algo.Supported() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, d.Algorithm())
	}
	return d.String(), nil
}
