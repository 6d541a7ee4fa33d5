package artifact

import (
	"context"
	"path/filepath"
	"testing"
)

type record struct {
	Name  string
	Count int
}

func TestWriteAtomicThenReadSingle(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "chunk1.region.artifact")
	in := record{Name: "1:100-200", Count: 5}
	if err := WriteAtomic(ctx, path, in); err != nil {
		t.Fatal(err)
	}
	if !Exists(path) {
		t.Fatal("expected artifact to exist after WriteAtomic")
	}
	var out record
	if err := ReadSingle(ctx, path, &out); err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Fatalf("got %+v, want %+v", out, in)
	}
}

func TestExistsFalseForMissingPath(t *testing.T) {
	if Exists(filepath.Join(t.TempDir(), "nope")) {
		t.Fatal("expected Exists to be false")
	}
}

func TestWriterScanMultipleRecords(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "multi.artifact")
	w, err := Create(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := w.Write(record{Name: "r", Count: i}); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(ctx); err != nil {
		t.Fatal(err)
	}

	r, err := Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close(ctx)
	var got []record
	for {
		var rec record
		ok, err := r.Scan(&rec)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		got = append(got, rec)
	}
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
}
