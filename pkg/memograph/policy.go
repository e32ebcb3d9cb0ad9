package memograph

import "fmt"

// Behavior is a node's declared caching behavior, attached at
// graph-construction time.
type Behavior string

// Declared caching behaviors.
const (
	// BehaviorDefault participates fully in caching.
	BehaviorDefault Behavior = "default"

	// BehaviorIgnore opts the node out of caching entirely. Its output
	// identity is unknown, which forces cache misses in every
	// descendant on every run.
	BehaviorIgnore Behavior = "ignore"

	// BehaviorAlwaysRecompute skips retrieval but stores normally.
	// For nodes with hidden non-determinism (clock reads, network).
	BehaviorAlwaysRecompute Behavior = "always_recompute"

	// BehaviorDontFingerprint stores a constant sentinel in place of a
	// content hash. The result stays retrievable only when resuming
	// the specific run that produced it.
	BehaviorDontFingerprint Behavior = "dont_fingerprint"

	// BehaviorDontStoreResult fingerprints normally but never writes
	// the result store. Results written under an earlier stricter
	// policy stay retrievable.
	BehaviorDontStoreResult Behavior = "dont_store_result"
)

// Behaviors lists all valid behaviors.
var Behaviors = []Behavior{
	BehaviorDefault,
	BehaviorIgnore,
	BehaviorAlwaysRecompute,
	BehaviorDontFingerprint,
	BehaviorDontStoreResult,
}

// Valid reports whether b is a known behavior.
func (b Behavior) Valid() bool {
	switch b {
	case BehaviorDefault, BehaviorIgnore, BehaviorAlwaysRecompute,
		BehaviorDontFingerprint, BehaviorDontStoreResult:
		return true
	}
	return false
}

// Flags are the four independent capability flags controlling a node
// execution's cache participation.
type Flags struct {
	// TryRetrieve: query the cache before computing.
	TryRetrieve bool
	// StoreResult: write the computed value to the result store.
	StoreResult bool
	// FingerprintResult: content-hash the output (false substitutes
	// the constant sentinel).
	FingerprintResult bool
	// StoreFingerprint: make the execution findable by content lookup.
	StoreFingerprint bool
}

// behaviorFlags maps each behavior to its flags.
var behaviorFlags = map[Behavior]Flags{
	BehaviorDefault:         {TryRetrieve: true, StoreResult: true, FingerprintResult: true, StoreFingerprint: true},
	BehaviorIgnore:          {TryRetrieve: false, StoreResult: false, FingerprintResult: false, StoreFingerprint: false},
	BehaviorAlwaysRecompute: {TryRetrieve: false, StoreResult: true, FingerprintResult: true, StoreFingerprint: true},
	BehaviorDontFingerprint: {TryRetrieve: true, StoreResult: true, FingerprintResult: false, StoreFingerprint: false},
	BehaviorDontStoreResult: {TryRetrieve: true, StoreResult: false, FingerprintResult: true, StoreFingerprint: false},
}

// FlagsFor returns the capability flags for a behavior. Unknown
// behaviors resolve to the default flags.
func FlagsFor(b Behavior) Flags {
	if f, ok := behaviorFlags[b]; ok {
		return f
	}
	return behaviorFlags[BehaviorDefault]
}

// Overrides are the run-level policy overrides, taking precedence over
// node-declared behaviors.
//
// A nil list means "unspecified". A non-nil empty list is an explicit
// clear: it disables every node-declared tag of that category for the
// run. The distinction matters, so lists are plain slices, not maps.
type Overrides struct {
	Ignore          []string
	AlwaysRecompute []string
	DontFingerprint []string
	DontStoreResult []string
}

// lists pairs each override list with its behavior.
func (o Overrides) lists() []struct {
	behavior Behavior
	nodes    []string
} {
	return []struct {
		behavior Behavior
		nodes    []string
	}{
		{BehaviorIgnore, o.Ignore},
		{BehaviorAlwaysRecompute, o.AlwaysRecompute},
		{BehaviorDontFingerprint, o.DontFingerprint},
		{BehaviorDontStoreResult, o.DontStoreResult},
	}
}

// Validate rejects contradictory overrides: a node named in two
// mutually exclusive lists is a caller error, fatal before any
// execution starts.
func (o Overrides) Validate() error {
	seen := make(map[string]Behavior)
	for _, l := range o.lists() {
		for _, node := range l.nodes {
			if prev, ok := seen[node]; ok && prev != l.behavior {
				return &PolicyConflictError{NodeName: node, Behaviors: []Behavior{prev, l.behavior}}
			}
			seen[node] = l.behavior
		}
	}
	return nil
}

// cleared reports whether the category of a declared behavior was
// explicitly cleared by an empty override list.
func (o Overrides) cleared(declared Behavior) bool {
	for _, l := range o.lists() {
		if l.behavior == declared {
			return l.nodes != nil && len(l.nodes) == 0
		}
	}
	return false
}

// lookup returns the override behavior naming this node, if any.
func (o Overrides) lookup(nodeName string) (Behavior, bool) {
	for _, l := range o.lists() {
		for _, node := range l.nodes {
			if node == nodeName {
				return l.behavior, true
			}
		}
	}
	return "", false
}

// ResolvePolicy resolves the effective behavior and capability flags
// for a node execution.
//
// Precedence, highest first: run-level override naming the node, then
// the node's declared behavior, then the built-in default. An explicit
// empty override list for a category nullifies declared tags of that
// category.
func ResolvePolicy(nodeName string, declared Behavior, overrides Overrides) (Behavior, Flags) {
	if b, ok := overrides.lookup(nodeName); ok {
		return b, FlagsFor(b)
	}
	if declared == "" || declared == BehaviorDefault || overrides.cleared(declared) {
		return BehaviorDefault, FlagsFor(BehaviorDefault)
	}
	return declared, FlagsFor(declared)
}

// PolicyConflictError reports a node named in two mutually exclusive
// run-level override lists.
type PolicyConflictError struct {
	// NodeName is the node with conflicting overrides.
	NodeName string
	// Behaviors are the conflicting behaviors, in list order.
	Behaviors []Behavior
}

// Error implements the error interface.
func (e *PolicyConflictError) Error() string {
	return fmt.Sprintf("conflicting overrides for node %s: %v", e.NodeName, e.Behaviors)
}

// Unwrap returns ErrPolicyConflict for errors.Is support.
func (e *PolicyConflictError) Unwrap() error {
	return ErrPolicyConflict
}
