package benchmarks

import (
	"context"
	"fmt"
	"testing"

	"github.com/creative-resort/memograph/pkg/memograph"
	"github.com/creative-resort/memograph/pkg/memograph/fingerprint"
	"github.com/creative-resort/memograph/pkg/memograph/store"
)

// frame is a typical structured node result.
type frame struct {
	Name    string
	Rows    int
	Columns []string
}

// BenchmarkHashPrimitive measures fingerprinting overhead for scalars.
func BenchmarkHashPrimitive(b *testing.B) {
	r := fingerprint.NewRegistry()
	for i := 0; i < b.N; i++ {
		r.Hash(42)
	}
}

// BenchmarkHashStruct measures structural decomposition overhead.
func BenchmarkHashStruct(b *testing.B) {
	r := fingerprint.NewRegistry()
	f := frame{Name: "sales", Rows: 100000, Columns: []string{"region", "amount"}}
	for i := 0; i < b.N; i++ {
		r.Hash(f)
	}
}

// BenchmarkHashMap measures sorted map hashing overhead.
func BenchmarkHashMap(b *testing.B) {
	r := fingerprint.NewRegistry()
	m := map[string]int{}
	for i := 0; i < 100; i++ {
		m[fmt.Sprintf("key-%d", i)] = i
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Hash(m)
	}
}

// BenchmarkResolveContextKey measures key derivation overhead.
func BenchmarkResolveContextKey(b *testing.B) {
	code := fingerprint.HashCode("func f(a, b, c int) int")
	inputs := map[string]fingerprint.Fingerprint{
		"a": "fp-a",
		"b": "fp-b",
		"c": "fp-c",
	}
	for i := 0; i < b.N; i++ {
		fingerprint.ResolveContextKey(code, inputs)
	}
}

// BenchmarkVisitHit measures the full retrieval path against in-memory
// stores.
func BenchmarkVisitHit(b *testing.B) {
	ctx := context.Background()
	engine, err := memograph.NewOrchestrator(
		store.NewMemoryMetadataStore(), store.NewMemoryResultStore())
	if err != nil {
		b.Fatal(err)
	}

	node := memograph.NodeInfo{
		Name: "double",
		Code: fingerprint.HashCode("func(n int) int { return n * 2 }"),
	}
	inputs := map[string]any{"n": 10}

	seed, err := engine.StartRun(ctx, inputs, nil)
	if err != nil {
		b.Fatal(err)
	}
	d, err := seed.Visit(ctx, node, inputs)
	if err != nil {
		b.Fatal(err)
	}
	if err := d.Record(ctx, 20, nil); err != nil {
		b.Fatal(err)
	}

	run, err := engine.StartRun(ctx, inputs, nil)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d, err := run.Visit(ctx, node, inputs)
		if err != nil {
			b.Fatal(err)
		}
		if d.MustCompute {
			b.Fatal("expected a cache hit")
		}
	}
}
