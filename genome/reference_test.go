package genome

import "testing"

func refs(lengths ...int) []Reference {
	out := make([]Reference, len(lengths))
	for i, l := range lengths {
		out[i] = Reference{Name: string(rune('a' + i)), Length: l, Ordinal: i}
	}
	return out
}

func TestBuildChunksPreservesTotalBPAndPartitionsReferences(t *testing.T) {
	in := refs(100, 200, 50, 400, 10, 90)
	chunks, err := BuildChunks(in, ChunkOpts{ChunkTotal: 3})
	if err != nil {
		t.Fatal(err)
	}

	var gotTotal int
	seen := map[string]int{}
	for _, c := range chunks {
		gotTotal += c.TotalBP()
		for _, r := range c.Refs {
			seen[r.Name]++
		}
	}
	var wantTotal int
	for _, r := range in {
		wantTotal += r.Length
	}
	if gotTotal != wantTotal {
		t.Fatalf("chunk bp sum = %d, want %d", gotTotal, wantTotal)
	}
	if len(seen) != len(in) {
		t.Fatalf("got %d distinct references across chunks, want %d", len(seen), len(in))
	}
	for name, n := range seen {
		if n != 1 {
			t.Fatalf("reference %q appears in %d chunks, want exactly 1", name, n)
		}
	}
}

func TestBuildChunksIsDeterministicAcrossRepeatedCalls(t *testing.T) {
	in := refs(100, 200, 50, 400, 10, 90)
	first, err := BuildChunks(in, ChunkOpts{ChunkTotal: 3})
	if err != nil {
		t.Fatal(err)
	}
	second, err := BuildChunks(in, ChunkOpts{ChunkTotal: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if len(first[i].Refs) != len(second[i].Refs) {
			t.Fatalf("chunk %d reference counts differ: %d vs %d", i, len(first[i].Refs), len(second[i].Refs))
		}
		for j := range first[i].Refs {
			if first[i].Refs[j].Name != second[i].Refs[j].Name {
				t.Fatalf("chunk %d ref %d differs: %q vs %q", i, j, first[i].Refs[j].Name, second[i].Refs[j].Name)
			}
		}
	}
}

func TestBuildChunksHonorsSkipSequences(t *testing.T) {
	in := refs(100, 200, 50)
	chunks, err := BuildChunks(in, ChunkOpts{ChunkTotal: 1, SkipSequences: map[string]bool{"b": true}})
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, c := range chunks {
		for _, r := range c.Refs {
			names = append(names, r.Name)
		}
	}
	if len(names) != 2 {
		t.Fatalf("got %d references after skip, want 2: %v", len(names), names)
	}
	for _, n := range names {
		if n == "b" {
			t.Fatal("skipped reference \"b\" still present")
		}
	}
}

func TestBuildChunksTestChunkSelectsOneOrdinal(t *testing.T) {
	in := refs(100, 200, 50, 400)
	all, err := BuildChunks(in, ChunkOpts{ChunkTotal: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(all))
	}
	only, err := BuildChunks(in, ChunkOpts{ChunkTotal: 2, TestChunk: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(only) != 1 || only[0].Ordinal != all[1].Ordinal {
		t.Fatalf("got %+v, want single chunk with ordinal %d", only, all[1].Ordinal)
	}
}

func TestBuildChunksRejectsNonPositiveChunkTotal(t *testing.T) {
	if _, err := BuildChunks(refs(100), ChunkOpts{ChunkTotal: 0}); err == nil {
		t.Fatal("expected an error for chunk_total=0")
	}
}

func TestBuildChunksRejectsOutOfRangeTestChunk(t *testing.T) {
	if _, err := BuildChunks(refs(100), ChunkOpts{ChunkTotal: 1, TestChunk: 5}); err == nil {
		t.Fatal("expected an error for an out-of-range test_chunk")
	}
}
