// Package hash computes content digests used for staleness detection.
// Digests are tagged with an algorithm prefix so stored values from
// different hashing strategies never compare equal by accident.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash/fnv"
)

const (
	// PrefixSHA256 tags digests produced by Content.
	PrefixSHA256 = "sha256:"

	// PrefixFNV tags digests produced by the non-cryptographic fallback.
	PrefixFNV = "fnv1a:"
)

// Content returns the sha256 digest of text, tagged with the algorithm prefix.
func Content(text string) string {
	sum := sha256.Sum256([]byte(text))
	return PrefixSHA256 + hex.EncodeToString(sum[:])
}

// ContentFallback returns a 64-bit FNV-1a digest of text. It carries a
// distinct prefix so it never matches a sha256 digest of the same text.
func ContentFallback(text string) string {
	h := fnv.New64a()
	h.Write([]byte(text))
	return PrefixFNV + fmt.Sprintf("%016x", h.Sum64())
}

// Equal reports whether two stored digests match. An absent digest on
// either side is never treated as a wildcard match.
func Equal(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return a == b
}
