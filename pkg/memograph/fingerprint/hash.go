package fingerprint

import (
	"reflect"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// maxDepth caps recursive structural decomposition. Values nested
// deeper degrade to the constant fallback.
const maxDepth = 3

// Decomposable lets a value supply its own field set for structural
// hashing instead of reflection over exported fields. Implement it for
// types whose identity lives outside their public fields.
type Decomposable interface {
	Decompose() map[string]any
}

// hashPrimitive hashes an already-stringified scalar.
func hashPrimitive(s string) Fingerprint {
	return compact(xxhash.Sum64String(s))
}

// hashAny is the generic fallback: recursively decompose the value and
// hash its content. The boolean is false when the whole value degraded
// to Unhashable. Nested failures contribute the constant to the parent
// digest without failing the parent; only whole-value degradation is
// reported, because that is the point at which the fingerprint stops
// identifying anything.
func (r *Registry) hashAny(v any, depth int) (Fingerprint, bool) {
	if v == nil {
		return hashPrimitive("nil"), true
	}

	// Registered handlers apply at every level of recursion, so a
	// custom handler for an element type is honored inside containers.
	t := reflect.TypeOf(v)
	if h, ok := r.exact.Lookup(t); ok {
		return h(v), true
	}
	if h, ok := r.kinds.Lookup(t.Kind()); ok {
		return h(v), true
	}

	if d, ok := v.(Decomposable); ok && depth < maxDepth {
		return r.hashMapLike(reflect.ValueOf(d.Decompose()), depth+1)
	}

	return r.hashReflected(reflect.ValueOf(v), depth)
}

// hashReflected hashes a value by reflection. Kind prefixes keep
// distinct kinds from colliding on equal string forms.
func (r *Registry) hashReflected(rv reflect.Value, depth int) (Fingerprint, bool) {
	switch rv.Kind() {
	case reflect.String:
		return hashPrimitive("s:" + rv.String()), true
	case reflect.Bool:
		return hashPrimitive("b:" + strconv.FormatBool(rv.Bool())), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return hashPrimitive("i:" + strconv.FormatInt(rv.Int(), 10)), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return hashPrimitive("u:" + strconv.FormatUint(rv.Uint(), 10)), true
	case reflect.Float32, reflect.Float64:
		return hashPrimitive("f:" + strconv.FormatFloat(rv.Float(), 'g', -1, 64)), true
	case reflect.Complex64, reflect.Complex128:
		c := rv.Complex()
		return hashPrimitive("c:" + strconv.FormatComplex(c, 'g', -1, 128)), true

	case reflect.Slice, reflect.Array:
		// Byte slices hash as raw content.
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return compact(xxhash.Sum64(rv.Bytes())), true
		}
		return r.hashSequence(rv, depth)

	case reflect.Map:
		return r.hashMapLike(rv, depth)

	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return hashPrimitive("nil"), true
		}
		return r.hashAny(rv.Elem().Interface(), depth)

	case reflect.Struct:
		return r.hashStruct(rv, depth)

	default:
		// Chan, Func, UnsafePointer: live resources with no content
		// identity.
		return Unhashable, false
	}
}

// hashSequence hashes each element in order. Order matters, as it does
// in the sequence itself.
func (r *Registry) hashSequence(rv reflect.Value, depth int) (Fingerprint, bool) {
	d := xxhash.New()
	d.WriteString("seq:")
	for i := 0; i < rv.Len(); i++ {
		fp, _ := r.hashAny(rv.Index(i).Interface(), depth)
		d.WriteString(string(fp))
		d.Write([]byte{0})
	}
	return compactDigest(d), true
}

// hashMapLike hashes each entry as (key fingerprint, value
// fingerprint), then sorts the entry digests so physical ordering
// never affects the result.
func (r *Registry) hashMapLike(rv reflect.Value, depth int) (Fingerprint, bool) {
	entries := make([]string, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		kfp, _ := r.hashAny(iter.Key().Interface(), depth)
		vfp, _ := r.hashAny(iter.Value().Interface(), depth)
		entries = append(entries, string(kfp)+" "+string(vfp))
	}
	sort.Strings(entries)

	d := xxhash.New()
	d.WriteString("map:")
	for _, e := range entries {
		d.WriteString(e)
		d.Write([]byte{0})
	}
	return compactDigest(d), true
}

// hashStruct decomposes exported fields and hashes them as a sorted
// field set. Depth is capped so cyclic or pathologically deep values
// degrade instead of recursing forever.
func (r *Registry) hashStruct(rv reflect.Value, depth int) (Fingerprint, bool) {
	if depth >= maxDepth {
		return Unhashable, false
	}

	t := rv.Type()
	entries := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		fp, _ := r.hashAny(rv.Field(i).Interface(), depth+1)
		entries = append(entries, f.Name+" "+string(fp))
	}
	sort.Strings(entries)

	d := xxhash.New()
	d.WriteString("struct:" + t.Name() + ":")
	for _, e := range entries {
		d.WriteString(e)
		d.Write([]byte{0})
	}
	return compactDigest(d), true
}
