package sample

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/grailbio/detct/detcterrors"
)

// bamWithIndex creates an empty BAM file and its sibling .bai in dir, and
// returns the BAM path.
func bamWithIndex(t *testing.T, dir, name string) string {
	t.Helper()
	bam := filepath.Join(dir, name)
	if err := os.WriteFile(bam, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bam+".bai", nil, 0644); err != nil {
		t.Fatal(err)
	}
	return bam
}

func wantConfigInvalid(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	var derr *detcterrors.Error
	if !errors.As(err, &derr) {
		t.Fatalf("error %v is not a *detcterrors.Error", err)
	}
	if derr.Kind != detcterrors.ConfigInvalid {
		t.Fatalf("got kind %s, want ConfigInvalid", derr.Kind)
	}
}

func TestValidateRejectsEmptySampleList(t *testing.T) {
	wantConfigInvalid(t, Validate(nil))
}

func TestValidateRejectsMismatchedGroupCardinality(t *testing.T) {
	dir := t.TempDir()
	bam := bamWithIndex(t, dir, "a.bam")
	samples := []Sample{
		{Name: "s1", BamFile: bam, Barcode: "AAAA", Groups: []string{"batch1"}},
		{Name: "s2", BamFile: bam, Barcode: "TTTT", Groups: []string{"batch1", "rep1"}},
	}
	wantConfigInvalid(t, Validate(samples))
}

func TestValidateRejectsDuplicateInputBarcodePair(t *testing.T) {
	dir := t.TempDir()
	bam := bamWithIndex(t, dir, "a.bam")
	samples := []Sample{
		{Name: "s1", BamFile: bam, Barcode: "AAAA"},
		{Name: "s2", BamFile: bam, Barcode: "AAAA"},
	}
	wantConfigInvalid(t, Validate(samples))
}

func TestValidateRejectsDuplicateSampleName(t *testing.T) {
	dir := t.TempDir()
	bam := bamWithIndex(t, dir, "a.bam")
	samples := []Sample{
		{Name: "dup", BamFile: bam, Barcode: "AAAA"},
		{Name: "dup", BamFile: bam, Barcode: "TTTT"},
	}
	wantConfigInvalid(t, Validate(samples))
}

func TestValidateRejectsMissingBAMIndex(t *testing.T) {
	dir := t.TempDir()
	bam := filepath.Join(dir, "noindex.bam")
	if err := os.WriteFile(bam, nil, 0644); err != nil {
		t.Fatal(err)
	}
	samples := []Sample{{Name: "s1", BamFile: bam, Barcode: "AAAA"}}
	err := Validate(samples)
	if err == nil {
		t.Fatal("expected an error")
	}
	var derr *detcterrors.Error
	if !errors.As(err, &derr) {
		t.Fatalf("error %v is not a *detcterrors.Error", err)
	}
	if derr.Kind != detcterrors.IoUnavailable {
		t.Fatalf("got kind %s, want IoUnavailable", derr.Kind)
	}
}

func TestValidateAcceptsWellFormedSamples(t *testing.T) {
	dir := t.TempDir()
	bamA := bamWithIndex(t, dir, "a.bam")
	bamB := bamWithIndex(t, dir, "b.bam")
	samples := []Sample{
		{Name: "s1", BamFile: bamA, Barcode: "AAAA", Groups: []string{"batch1"}},
		{Name: "s2", BamFile: bamB, Barcode: "TTTT", Groups: []string{"batch2"}},
	}
	if err := Validate(samples); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIndexPositionAndUnknownPair(t *testing.T) {
	samples := []Sample{
		{Name: "s1", BamFile: "a.bam", Barcode: "AAAA"},
		{Name: "s2", BamFile: "a.bam", Barcode: "TTTT"},
	}
	idx := NewIndex(samples)
	if idx.Len() != 2 {
		t.Fatalf("got Len()=%d, want 2", idx.Len())
	}
	pos, err := idx.Position("a.bam", "TTTT")
	if err != nil || pos != 1 {
		t.Fatalf("got (%d, %v), want (1, nil)", pos, err)
	}

	_, err = idx.Position("a.bam", "GGGG")
	if err == nil {
		t.Fatal("expected an error for an unknown (input, barcode) pair")
	}
	var derr *detcterrors.Error
	if !errors.As(err, &derr) {
		t.Fatalf("error %v is not a *detcterrors.Error", err)
	}
	if derr.Kind != detcterrors.StructuralMismatch {
		t.Fatalf("got kind %s, want StructuralMismatch", derr.Kind)
	}
}
