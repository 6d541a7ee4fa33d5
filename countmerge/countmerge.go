// Package countmerge combines per-input read counts into the final
// per-sample count matrix (detct spec §4.12 C12 Count merger).
package countmerge

import (
	"fmt"

	"github.com/grailbio/detct/region"
	"github.com/grailbio/detct/sample"
)

// InputCounts is one input BAM's contribution: a region list (already
// through CHOSEN/CHOSEN_NONE/COUNTED) and, parallel to it, a {barcode ->
// count} map per region produced by counter.CountRegion.
type InputCounts struct {
	BamFile string
	Regions []region.Region
	Counts  []map[string]int
}

// Merge zips the region lists of every input (verifying structural
// identity via region.ZipIdentical, spec §9), and for each region builds a
// canonical per-sample count vector by looking up every (input, barcode)
// pair's index through idx. A barcode present in an input's count map but
// absent from the sample table is fatal (spec §4.12: "Unknown (input,
// barcode) pairs encountered in inputs but absent from the sample table are
// fatal").
func Merge(chunkID string, idx *sample.Index, inputs []InputCounts) ([]region.Region, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	lists := make([][]region.Region, len(inputs))
	for i, in := range inputs {
		lists[i] = in.Regions
		if len(in.Counts) != len(in.Regions) {
			return nil, fmt.Errorf("countmerge: input %q has %d regions but %d count maps", in.BamFile, len(in.Regions), len(in.Counts))
		}
	}

	out := make([]region.Region, len(lists[0]))
	err := region.ZipIdentical(chunkID, lists, func(i int, group []region.Region) error {
		vec := make([]int, idx.Len())
		for ii, in := range inputs {
			for barcode, count := range in.Counts[i] {
				pos, err := idx.Position(in.BamFile, barcode)
				if err != nil {
					return fmt.Errorf("countmerge: chunk %s region %d: %w", chunkID, i, err)
				}
				vec[pos] += count
				_ = ii
			}
		}
		merged := group[0]
		merged.SetMerged(vec)
		out[i] = merged
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
