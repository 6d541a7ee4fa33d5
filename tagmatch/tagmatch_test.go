package tagmatch

import "testing"

func TestCompileExpandsIUPAC(t *testing.T) {
	m, err := Compile("NNNNBGAGGC")
	if err != nil {
		t.Fatal(err)
	}
	if m.RandomPrefix != 5 {
		t.Fatalf("got prefix %d, want 5 (NNNNB: every ambiguity letter before the first fixed base)", m.RandomPrefix)
	}
	if !m.MatchSuffix("ACGTCGAGGC") {
		t.Fatal("expected match: B expands to C|G|T, here C")
	}
	if m.MatchSuffix("ACGTAGAGGC") {
		t.Fatal("expected no match: B cannot be A")
	}
}

func TestCompileRejectsInvalidBase(t *testing.T) {
	if _, err := Compile("NNNQ"); err == nil {
		t.Fatal("expected error for invalid IUPAC code")
	}
}

func TestSetMatchFirstWins(t *testing.T) {
	s, err := NewSet([]string{"NNNNBGAGGC", "NNNNBAGAAG"})
	if err != nil {
		t.Fatal(err)
	}
	barcode, prefix, ok := s.Match("READ1#ACGTCGAGGC")
	if !ok || barcode != "NNNNBGAGGC" || prefix != 5 {
		t.Fatalf("got (%q,%d,%v)", barcode, prefix, ok)
	}
	_, _, ok = s.Match("READ1#TOOSHORT")
	if ok {
		t.Fatal("expected no match for wrong-length suffix")
	}
}
