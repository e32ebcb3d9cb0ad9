package memograph

import "github.com/creative-resort/memograph/pkg/memograph/fingerprint"

// NodeInfo describes a node about to execute, as declared by the
// graph-construction layer.
//
// The name is unique within a graph but is deliberately not part of
// the cache identity: two nodes with identical code and inputs share a
// cache entry regardless of their names.
type NodeInfo struct {
	// Name is the node's unique name within its graph.
	Name string

	// Code is the node's code fingerprint, computed once from its
	// source representation (see fingerprint.HashCode) and stable
	// across runs unless the code changes.
	Code fingerprint.CodeFingerprint

	// Behavior is the node's declared caching behavior. Empty means
	// BehaviorDefault.
	Behavior Behavior

	// Format selects the codec for the node's result. Empty means the
	// registry default (json).
	Format string
}
