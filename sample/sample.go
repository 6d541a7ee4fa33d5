// Package sample models the experiment design: one Sample per (input BAM,
// barcode) pair, and the canonical sample ordering the count merger indexes
// against (detct spec §3 "Sample", §7 ConfigInvalid invariants).
package sample

import (
	"fmt"
	"os"

	"github.com/grailbio/detct/detcterrors"
)

// Sample is one row of the experiment design (spec §3).
type Sample struct {
	Name      string
	BamFile   string
	Barcode   string
	Condition string
	Groups    []string
}

// inputBarcode is the (input file, barcode) identity that must be unique
// across samples (spec §3).
type inputBarcode struct {
	BamFile, Barcode string
}

// Validate checks the configuration invariants from spec §3 and §7:
//   - all samples share the same group cardinality
//   - no group label is used by more than one sample
//   - (input file, barcode) is unique across samples
//   - sample names are unique
//   - the referenced BAM file has a sibling index
//
// Barcode-population membership (spec §3: "a barcode must be present in the
// referenced input file's read population") is deliberately not checked
// here -- it requires scanning the BAM, which belongs to the orchestrator's
// config-validation job, not this pure struct-level check.
func Validate(samples []Sample) error {
	if len(samples) == 0 {
		return detcterrors.Configf("samples: at least one sample is required")
	}
	groupCard := len(samples[0].Groups)
	names := map[string]bool{}
	pairs := map[inputBarcode]string{}
	groupLabels := map[string]string{}
	for _, s := range samples {
		if s.Name == "" {
			return detcterrors.Configf("sample with bam_file %q has empty name", s.BamFile)
		}
		if names[s.Name] {
			return detcterrors.Configf("duplicate sample name %q", s.Name)
		}
		names[s.Name] = true

		if len(s.Groups) != groupCard {
			return detcterrors.Configf("sample %q has %d groups, expected %d (all samples must share group cardinality)", s.Name, len(s.Groups), groupCard)
		}
		for _, g := range s.Groups {
			// A group label already used by a different sample is rejected;
			// repeating a label within one sample's own groups is allowed.
			if owner, seen := groupLabels[g]; seen && owner != s.Name {
				return detcterrors.Configf("group label %q used by both sample %q and %q", g, owner, s.Name)
			}
			groupLabels[g] = s.Name
		}

		if s.BamFile == "" {
			return detcterrors.Configf("sample %q has empty bam_file", s.Name)
		}
		key := inputBarcode{s.BamFile, s.Barcode}
		if owner, seen := pairs[key]; seen {
			return detcterrors.Configf("(input %q, barcode %q) used by both sample %q and %q", s.BamFile, s.Barcode, owner, s.Name)
		}
		pairs[key] = s.Name

		if _, err := os.Stat(s.BamFile + ".bai"); err != nil {
			return detcterrors.IOf("sample %q: missing index for %q: %v", s.Name, s.BamFile, err)
		}
	}
	return nil
}

// Index assigns each (input file, barcode) pair a stable sample-index
// position, in the order samples were declared (spec §4.12: "a canonical
// sample ordering (each sample indexes one (input, barcode) pair)").
type Index struct {
	samples []Sample
	pos     map[inputBarcode]int
}

// NewIndex builds an Index from the (already-validated) sample list.
func NewIndex(samples []Sample) *Index {
	idx := &Index{samples: samples, pos: map[inputBarcode]int{}}
	for i, s := range samples {
		idx.pos[inputBarcode{s.BamFile, s.Barcode}] = i
	}
	return idx
}

// Len returns the number of samples (the width of every count vector).
func (idx *Index) Len() int { return len(idx.samples) }

// Samples returns the canonical sample list in index order.
func (idx *Index) Samples() []Sample { return idx.samples }

// Position returns the sample index for (bamFile, barcode), or an error if
// the pair is unknown -- a Fatal StructuralMismatch per spec §4.12 ("Unknown
// (input, barcode) pairs encountered in inputs but absent from the sample
// table are fatal").
func (idx *Index) Position(bamFile, barcode string) (int, error) {
	p, ok := idx.pos[inputBarcode{bamFile, barcode}]
	if !ok {
		return 0, detcterrors.Structuralf("", fmt.Sprintf("input=%q barcode=%q", bamFile, barcode), "unknown (input, barcode): not present in sample table")
	}
	return p, nil
}
