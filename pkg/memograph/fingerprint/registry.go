package fingerprint

import (
	"reflect"

	"github.com/cespare/xxhash/v2"

	"github.com/creative-resort/memograph/pkg/memograph/registry"
)

// Handler computes the fingerprint of a value. Handlers must be
// deterministic: equal values yield equal fingerprints.
type Handler func(v any) Fingerprint

// Registry dispatches value hashing to pluggable handlers.
//
// Dispatch order:
//  1. exact handler registered for the value's concrete type
//  2. handler registered for the value's kind (structural category)
//  3. generic structural decomposition (recursive field-set hash)
//  4. the Unhashable constant when decomposition fails
//
// Hashing is a total function: it never returns an error. Degradation
// to Unhashable is reported via HashDetailed so callers can emit a
// diagnostic.
//
// The registry is safe for concurrent use. Registrations are additive
// and expected to happen at process start.
type Registry struct {
	exact *registry.Registry[reflect.Type, Handler]
	kinds *registry.Registry[reflect.Kind, Handler]
}

// NewRegistry creates an empty fingerprint registry.
func NewRegistry() *Registry {
	return &Registry{
		exact: registry.New[reflect.Type, Handler](),
		kinds: registry.New[reflect.Kind, Handler](),
	}
}

// Default is the process-wide registry. It is extended by Register
// calls and shared by orchestrators that are not given their own.
var Default = NewRegistry()

// Register installs a handler for an exact concrete type. It takes
// precedence over kind handlers and the generic fallback.
func (r *Registry) Register(t reflect.Type, h Handler) {
	r.exact.Register(t, h)
}

// RegisterKind installs a handler for a structural category (a
// reflect.Kind), e.g. all maps or all slices. Exact-type handlers win
// over kind handlers.
func (r *Registry) RegisterKind(k reflect.Kind, h Handler) {
	r.kinds.Register(k, h)
}

// RegisterType installs a typed handler for T on the registry.
//
//	fingerprint.RegisterType(reg, func(f MyFrame) fingerprint.Fingerprint {
//	    return fingerprint.HashBytes(f.ContentDigest())
//	})
func RegisterType[T any](r *Registry, h func(T) Fingerprint) {
	var zero T
	r.Register(reflect.TypeOf(zero), func(v any) Fingerprint {
		return h(v.(T))
	})
}

// Hash returns the fingerprint of a value. It never fails; see
// HashDetailed to observe degradation.
func (r *Registry) Hash(v any) Fingerprint {
	fp, _ := r.HashDetailed(v)
	return fp
}

// HashDetailed returns the fingerprint of a value and whether hashing
// degraded to the Unhashable constant.
func (r *Registry) HashDetailed(v any) (Fingerprint, bool) {
	fp, ok := r.hashAny(v, 0)
	return fp, !ok
}

// HashBytes fingerprints raw bytes directly. Useful inside custom
// handlers that already have a content representation.
func HashBytes(b []byte) Fingerprint {
	return compact(xxhash.Sum64(b))
}
