package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/grailbio/detct/region"
	"github.com/grailbio/detct/sample"
)

func TestWriteOrdersByChromosomeThenStart(t *testing.T) {
	idx := sample.NewIndex([]sample.Sample{{Name: "s1", BamFile: "a.bam", Barcode: "AA"}})

	r1 := region.Region{Identity: region.Identity{Start: 500, End: 600, Strand: region.Plus}, Reference: "2", Counts: []int{3}}
	r1.Chosen = region.Absent(region.Plus)
	r2 := region.Region{Identity: region.Identity{Start: 100, End: 200, Strand: region.Plus}, Reference: "1", Counts: []int{9}}
	r2.Chosen = region.Present("1", 150, region.Plus, 9)

	var buf bytes.Buffer
	if err := Write(&buf, idx, []Row{r1, r2}); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3 (header + 2 rows)", len(lines))
	}
	if !strings.HasPrefix(lines[1], "1\t100\t200") {
		t.Fatalf("first data row = %q, want chromosome 1 first", lines[1])
	}
	if !strings.Contains(lines[1], "150") {
		t.Fatalf("expected chosen position 150 in row: %q", lines[1])
	}
	if !strings.Contains(lines[2], "none") {
		t.Fatalf("expected absent chosen end rendered as none: %q", lines[2])
	}
}
