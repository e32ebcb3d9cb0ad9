// Package codec provides the pluggable result serialization contract.
// A node's declared format tag selects a codec from the registry; the
// engine only requires that Encode/Decode round-trip and that encode
// failures surface as node-level errors rather than silent cache
// skips.
package codec

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/creative-resort/memograph/pkg/memograph/registry"
)

// Codec serializes node results into result store blobs and back.
// Implementations must be safe for concurrent use.
type Codec interface {
	// Name is the format tag nodes use to select this codec.
	Name() string

	// Encode serializes a value into a blob.
	Encode(v any) ([]byte, error)

	// Decode deserializes a blob. The concrete type of the returned
	// value depends on the codec (e.g., JSON objects decode to
	// map[string]any).
	Decode(data []byte) (any, error)
}

// DefaultFormat is the format used when a node declares none.
const DefaultFormat = "json"

// Registry maps format tags to codecs.
type Registry struct {
	codecs *registry.Registry[string, Codec]
}

// NewRegistry creates a registry pre-populated with the built-in
// codecs (json, yaml).
func NewRegistry() *Registry {
	r := &Registry{codecs: registry.New[string, Codec]()}
	r.Register(JSON{})
	r.Register(YAML{})
	return r
}

// Default is the process-wide codec registry.
var Default = NewRegistry()

// Register adds a codec under its name, replacing any existing codec
// with the same name.
func (r *Registry) Register(c Codec) {
	r.codecs.Register(c.Name(), c)
}

// Lookup returns the codec for a format tag. The empty tag resolves to
// DefaultFormat.
func (r *Registry) Lookup(format string) (Codec, error) {
	if format == "" {
		format = DefaultFormat
	}
	c, ok := r.codecs.Lookup(format)
	if !ok {
		return nil, fmt.Errorf("codec: unknown format %q", format)
	}
	return c, nil
}

// JSON encodes values with encoding/json.
type JSON struct{}

// Name implements Codec.
func (JSON) Name() string { return "json" }

// Encode implements Codec.
func (JSON) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Decode implements Codec.
func (JSON) Decode(data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// YAML encodes values with gopkg.in/yaml.v3.
type YAML struct{}

// Name implements Codec.
func (YAML) Name() string { return "yaml" }

// Encode implements Codec.
func (YAML) Encode(v any) ([]byte, error) {
	return yaml.Marshal(v)
}

// Decode implements Codec.
func (YAML) Decode(data []byte) (any, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
