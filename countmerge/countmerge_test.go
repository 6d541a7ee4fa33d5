package countmerge

import (
	"testing"

	"github.com/grailbio/detct/region"
	"github.com/grailbio/detct/sample"
)

func baseRegion() region.Region {
	r := region.Region{Identity: region.Identity{Start: 1, End: 100, Strand: region.Plus}, Reference: "1"}
	r.SetCandidates(nil)
	r.SetChosen(region.Present("1", 50, region.Plus, 5))
	r.SetCounted()
	return r
}

func TestMergeBuildsCanonicalVector(t *testing.T) {
	samples := []sample.Sample{
		{Name: "s1", BamFile: "a.bam", Barcode: "BC1"},
		{Name: "s2", BamFile: "b.bam", Barcode: "BC2"},
	}
	idx := sample.NewIndex(samples)

	inputs := []InputCounts{
		{BamFile: "a.bam", Regions: []region.Region{baseRegion()}, Counts: []map[string]int{{"BC1": 3}}},
		{BamFile: "b.bam", Regions: []region.Region{baseRegion()}, Counts: []map[string]int{{"BC2": 7}}},
	}
	out, err := Merge("chunk1", idx, inputs)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d regions, want 1", len(out))
	}
	if out[0].Counts[0] != 3 || out[0].Counts[1] != 7 {
		t.Fatalf("counts = %+v", out[0].Counts)
	}
	if out[0].State != region.Merged {
		t.Fatalf("state = %s, want MERGED", out[0].State)
	}
}

func TestMergeRejectsUnknownBarcode(t *testing.T) {
	samples := []sample.Sample{{Name: "s1", BamFile: "a.bam", Barcode: "BC1"}}
	idx := sample.NewIndex(samples)
	inputs := []InputCounts{
		{BamFile: "a.bam", Regions: []region.Region{baseRegion()}, Counts: []map[string]int{{"BCX": 1}}},
	}
	if _, err := Merge("chunk1", idx, inputs); err == nil {
		t.Fatal("expected error for unknown barcode")
	}
}
