package counter

import (
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/grailbio/detct/region"
	"github.com/grailbio/detct/tagmatch"
)

func rec(t *testing.T, name string, flags sam.Flags, nm int) *sam.Record {
	t.Helper()
	r := &sam.Record{Name: name, Flags: flags | sam.Paired | sam.Read2}
	aux, err := sam.NewAux(sam.NewTag("NM"), nm)
	if err != nil {
		t.Fatal(err)
	}
	r.AuxFields = append(r.AuxFields, aux)
	return r
}

func chosenRegion(strand region.Strand) *region.Region {
	r := &region.Region{Identity: region.Identity{Strand: strand}}
	r.SetCandidates([]region.Candidate{{Strand: strand, ReadCount: 10}})
	r.SetFiltered(r.Candidates)
	r.SetChosen(region.Present("1", 100, strand, 10))
	return r
}

func TestCountRegionKeepsMatchingStrandTagAndMismatch(t *testing.T) {
	tags, err := tagmatch.NewSet([]string{"NNNNBGAGGC"})
	if err != nil {
		t.Fatal(err)
	}
	r := chosenRegion(region.Plus)
	recs := []*sam.Record{
		rec(t, "READ1#ACGTCGAGGC", 0, 0),        // forward strand, matches
		rec(t, "READ2#ACGTCGAGGC", sam.Reverse, 0), // wrong strand
	}
	counts, stats := CountRegion(recs, r, tags, 0)
	if stats.Kept != 1 || stats.WrongStrand != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if counts["NNNNBGAGGC"] != 1 {
		t.Fatalf("counts = %+v", counts)
	}
}

func TestCountRegionRejectsDuplicateAndOverMismatch(t *testing.T) {
	tags, err := tagmatch.NewSet([]string{"NNNNBGAGGC"})
	if err != nil {
		t.Fatal(err)
	}
	r := chosenRegion(region.Plus)
	recs := []*sam.Record{
		rec(t, "DUP#ACGTCGAGGC", sam.Duplicate, 0),
		rec(t, "MM#ACGTCGAGGC", 0, 5),
	}
	_, stats := CountRegion(recs, r, tags, 1)
	if stats.Duplicate != 1 || stats.OverMismatch != 1 || stats.Kept != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestCountRegionRejectsTagMismatch(t *testing.T) {
	tags, err := tagmatch.NewSet([]string{"NNNNBGAGGC"})
	if err != nil {
		t.Fatal(err)
	}
	r := chosenRegion(region.Plus)
	recs := []*sam.Record{rec(t, "BAD#AAAAAAAAAA", 0, 0)}
	_, stats := CountRegion(recs, r, tags, 0)
	if stats.TagMismatch != 1 || stats.Kept != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestCountAndAdvanceTransitionsToCounted(t *testing.T) {
	tags, err := tagmatch.NewSet([]string{"NNNNBGAGGC"})
	if err != nil {
		t.Fatal(err)
	}
	r := chosenRegion(region.Plus)
	CountAndAdvance(nil, r, tags, 0)
	if r.State != region.Counted {
		t.Fatalf("state = %s, want COUNTED", r.State)
	}
}
