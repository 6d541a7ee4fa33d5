package binner

import (
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/grailbio/detct/tagmatch"
)

func rec(t *testing.T, name string, pos int, flags sam.Flags, cigar sam.Cigar) *sam.Record {
	t.Helper()
	r := &sam.Record{Name: name, Pos: pos, Flags: flags | sam.Paired | sam.Read2, Cigar: cigar}
	aux, err := sam.NewAux(sam.NewTag("NM"), 0)
	if err != nil {
		t.Fatal(err)
	}
	r.AuxFields = append(r.AuxFields, aux)
	return r
}

func TestBinSpansMultipleBins(t *testing.T) {
	tags, err := tagmatch.NewSet([]string{"NNNNBGAGGC"})
	if err != nil {
		t.Fatal(err)
	}
	cigar := sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 150)}
	r := rec(t, "READ1#ACGTCGAGGC", 95, 0, cigar)
	fwd, rev, stats := Bin([]*sam.Record{r}, tags, 0, 100)
	if stats.Kept != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if fwd[0] != 1 || fwd[1] != 1 || fwd[2] != 1 {
		t.Fatalf("fwd = %+v, want bins 0,1,2 each 1 (read spans [95,245))", fwd)
	}
	if len(rev) != 0 {
		t.Fatalf("rev = %+v, want empty", rev)
	}
}

func TestBinRejectsTagMismatch(t *testing.T) {
	tags, err := tagmatch.NewSet([]string{"NNNNBGAGGC"})
	if err != nil {
		t.Fatal(err)
	}
	cigar := sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 10)}
	r := rec(t, "READ1#AAAAAAAAAA", 0, 0, cigar)
	_, _, stats := Bin([]*sam.Record{r}, tags, 0, 100)
	if stats.TagMismatch != 1 || stats.Kept != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}
