package values

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Digest fingerprints the content of a plugin source, written
// "algorithm:hex". The zero value means the source has no fingerprint,
// which is the case for directories.
type Digest struct {
	algorithm string
	value     string
}

func newHash(algorithm string) (hash.Hash, error) {
	switch algorithm {
	case "sha256":
		return sha256.New(), nil
	case "sha512":
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("unsupported digest algorithm: %s", algorithm)
	}
}

// NewDigest validates a hex value against the algorithm's output size.
func NewDigest(algorithm, hexValue string) (Digest, error) {
	h, err := newHash(algorithm)
	if err != nil {
		return Digest{}, err
	}
	raw, err := hex.DecodeString(hexValue)
	if err != nil {
		return Digest{}, fmt.Errorf("invalid %s digest %q: %w", algorithm, hexValue, err)
	}
	if len(raw) != h.Size() {
		return Digest{}, fmt.Errorf("invalid %s digest %q: want %d bytes, got %d", algorithm, hexValue, h.Size(), len(raw))
	}
	return Digest{algorithm: algorithm, value: strings.ToLower(hexValue)}, nil
}

// ParseDigest parses "algorithm:hex".
func ParseDigest(s string) (Digest, error) {
	algorithm, value, ok := strings.Cut(s, ":")
	if !ok {
		return Digest{}, fmt.Errorf("invalid digest format: %s", s)
	}
	return NewDigest(algorithm, value)
}

func (d Digest) String() string {
	if d.IsZero() {
		return ""
	}
	return d.algorithm + ":" + d.value
}

// Algorithm returns the hash algorithm.
func (d Digest) Algorithm() string {
	return d.algorithm
}

// Value returns the lower-case hex value.
func (d Digest) Value() string {
	return d.value
}

// IsZero reports whether the digest is unset.
func (d Digest) IsZero() bool {
	return d.algorithm == ""
}

// Equals compares algorithm and value.
func (d Digest) Equals(other Digest) bool {
	return d == other
}

// ComputeDigest hashes the reader contents with the given algorithm.
func ComputeDigest(algorithm string, r io.Reader) (Digest, error) {
	h, err := newHash(algorithm)
	if err != nil {
		return Digest{}, err
	}
	if _, err := io.Copy(h, r); err != nil {
		return Digest{}, fmt.Errorf("failed to hash content: %w", err)
	}
	return Digest{algorithm: algorithm, value: hex.EncodeToString(h.Sum(nil))}, nil
}

// DigestPath fingerprints a plugin source with SHA-256. Directories yield
// the zero digest.
func DigestPath(path string) (Digest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Digest{}, err
	}
	if info.IsDir() {
		return Digest{}, nil
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return Digest{}, err
	}
	defer func() { _ = f.Close() }()

	return ComputeDigest("sha256", f)
}
