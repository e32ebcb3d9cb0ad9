package fingerprint

import (
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// ContextKey identifies a node execution by content: the node's code
// fingerprint plus the fingerprints of its named inputs. The node's
// name is deliberately absent, so distinct names with identical code
// and inputs collapse to the same cache entry.
//
// A key derived from any unstable input is itself unstable: it cannot
// soundly address a cache entry, and the instability propagates to
// every descendant resolution.
type ContextKey struct {
	digest   string
	unstable bool
}

// String returns the key's digest. Unstable keys carry a distinct
// prefix so they remain identifiable in metadata records.
func (k ContextKey) String() string { return k.digest }

// Unstable reports whether the key was derived from an input whose
// content identity is unknown.
func (k ContextKey) Unstable() bool { return k.unstable }

// ResolveContextKey derives the context key for an execution of code
// with the given named input fingerprints. Inputs are sorted by name
// before hashing, so declaration order never affects the key.
func ResolveContextKey(code CodeFingerprint, inputs map[string]Fingerprint) ContextKey {
	names := make([]string, 0, len(inputs))
	for name := range inputs {
		names = append(names, name)
	}
	sort.Strings(names)

	unstable := false
	d := xxhash.New()
	d.WriteString(string(code))
	d.Write([]byte{0})
	for _, name := range names {
		fp := inputs[name]
		if fp.IsUnstable() {
			unstable = true
		}
		d.WriteString(name)
		d.Write([]byte{0})
		d.WriteString(string(fp))
		d.Write([]byte{0})
	}

	digest := strconv.FormatUint(d.Sum64(), 16)
	if unstable {
		digest = "unstable-" + digest
	}
	return ContextKey{digest: digest, unstable: unstable}
}
