package downsample

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
)

func makeBAM(t *testing.T, pairs int) []byte {
	t.Helper()
	ref, err := sam.NewReference("1", "", "", 1000, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	h, err := sam.NewHeader(nil, []*sam.Reference{ref})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	w, err := bam.NewWriter(&buf, h, 1)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < pairs; i++ {
		for _, read2 := range []bool{false, true} {
			flags := sam.Paired
			if read2 {
				flags |= sam.Read2
			} else {
				flags |= sam.Read1
			}
			r := &sam.Record{Name: "pair", Ref: ref, Pos: i, Flags: flags, MapQ: 30}
			r.Name = "pair" + string(rune('A'+i))
			if err := w.Write(r); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestRunKeepsBothMatesOfARetainedPair(t *testing.T) {
	data := makeBAM(t, 10)
	var out bytes.Buffer
	rng := rand.New(rand.NewSource(1))
	stats, err := Run(bytes.NewReader(data), &out, 10, 5, Paired, rng)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Kept%2 != 0 {
		t.Fatalf("expected an even number of kept records (mate pairs), got %d", stats.Kept)
	}
	if stats.Seen != 20 {
		t.Fatalf("seen = %d, want 20", stats.Seen)
	}
}

func TestRunRejectsInvalidTargets(t *testing.T) {
	data := makeBAM(t, 1)
	var out bytes.Buffer
	rng := rand.New(rand.NewSource(1))
	if _, err := Run(bytes.NewReader(data), &out, 5, 10, Paired, rng); err == nil {
		t.Fatal("expected error when target exceeds source")
	}
}
