// Package fingerprint computes stable content identities for data
// values and code, and derives the context keys used as cache lookup
// keys for node executions.
//
// Data hashing and code hashing are deliberately separate functions
// over separate domains: data fingerprints use xxhash digests of the
// value's content, while code fingerprints use SHA-256 over the node's
// source representation. The two must never be conflated.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint is an opaque deterministic identity for a data value.
// Equal values yield equal fingerprints under a registered handler.
type Fingerprint string

// Sentinel fingerprints. These are reserved values that can never be
// produced by content hashing.
const (
	// Unhashable is the constant fallback produced when a value cannot
	// be decomposed or hashed at all (e.g., it wraps a live external
	// resource). Hashing is a total function: this is the last branch,
	// never an error.
	Unhashable Fingerprint = "<unhashable>"

	// Sentinel replaces a content hash when a node's policy disables
	// result fingerprinting. It is deterministic, so descendants can
	// still derive keys, at the documented cost that two different
	// outputs of the node are indistinguishable.
	Sentinel Fingerprint = "<sentinel>"

	// Unstable signals that a value's content identity is unknown,
	// typically because the producing node ran with caching disabled.
	// It poisons every context key derived from it.
	Unstable Fingerprint = "<unstable>"
)

// IsUnstable reports whether the fingerprint carries no usable content
// identity. Unhashable counts: a whole value that degraded to the
// constant fallback cannot soundly identify a cache entry for its
// descendants.
func (f Fingerprint) IsUnstable() bool {
	return f == Unstable || f == Unhashable
}

// String returns the fingerprint as a plain string.
func (f Fingerprint) String() string { return string(f) }

// CodeFingerprint identifies a node's code, independent of any data.
// It is computed once per node and stable across runs unless the code
// changes.
type CodeFingerprint string

// String returns the code fingerprint as a plain string.
func (c CodeFingerprint) String() string { return string(c) }

// HashCode derives a code fingerprint from a node's code
// representation (source text or a versioned identifier).
func HashCode(source string) CodeFingerprint {
	sum := sha256.Sum256([]byte(source))
	return CodeFingerprint(hex.EncodeToString(sum[:]))
}

// InputCode derives the synthetic code identity for a top-level input.
// Inputs have no code of their own; the identity is unique to the
// input's name but invariant across runs, so input values participate
// in descendant keys without a code version.
func InputCode(name string) CodeFingerprint {
	return CodeFingerprint(name + "__input")
}

// compact converts a 64-bit digest into a short hex fingerprint.
func compact(sum uint64) Fingerprint {
	return Fingerprint(strconv.FormatUint(sum, 16))
}

// compactDigest finalizes a rolling digest into a fingerprint.
func compactDigest(d *xxhash.Digest) Fingerprint {
	return compact(d.Sum64())
}
