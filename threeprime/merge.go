package threeprime

import (
	"fmt"
	"sort"

	"github.com/grailbio/detct/detcterrors"
	"github.com/grailbio/detct/region"
)

// candidateKey identifies a candidate for fusion (spec §4.8: "Fusion sums
// read counts for identical (reference, position, strand) keys").
type candidateKey struct {
	Reference string
	Position  int
	Strand    region.Strand
}

// fuseCandidates sums read counts for identical (reference,position,strand)
// keys across lists and returns them ordered by descending fused count.
func fuseCandidates(lists [][]region.Candidate) []region.Candidate {
	sums := map[candidateKey]int{}
	var order []candidateKey
	for _, l := range lists {
		for _, c := range l {
			k := candidateKey{c.Reference, c.Position, c.Strand}
			if _, seen := sums[k]; !seen {
				order = append(order, k)
			}
			sums[k] += c.ReadCount
		}
	}
	out := make([]region.Candidate, 0, len(order))
	for _, k := range order {
		out = append(out, region.Candidate{Reference: k.Reference, Position: k.Position, Strand: k.Strand, ReadCount: sums[k]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ReadCount != out[j].ReadCount {
			return out[i].ReadCount > out[j].ReadCount
		}
		return out[i].Position < out[j].Position
	})
	return out
}

// MergeRegionLists fuses per-input region-with-candidates lists for a chunk
// into one list (spec §4.8 C8). Every input list must describe the same
// regions in the same order with identical identity tuples (spec §3
// "Region identity"); any divergence is a StructuralMismatch hard-fail
// (spec §7), reported via region.ZipIdentical, the generic "all-lists-agree
// structurally" predicate spec §9 asks for.
//
// Merging a single input's list (lists of length one) returns that list
// unchanged (spec §8 idempotence property): fuseCandidates over one
// candidate list finds no repeated keys, so every count stays as it is, and
// its descending-count, ascending-position order is the order Extract
// already produces. Passing the same list twice sums every count with
// itself, doubling it.
func MergeRegionLists(chunkID string, lists [][]region.Region) ([]region.Region, error) {
	if len(lists) == 0 {
		return nil, nil
	}
	var merged []region.Region
	err := region.ZipIdentical(chunkID, lists, func(idx int, group []region.Region) error {
		candLists := make([][]region.Candidate, len(group))
		for i, r := range group {
			if r.State < region.HasCandidates {
				return detcterrors.Structuralf(chunkID, fmt.Sprintf("region %d list %d", idx, i), "has not reached HAS_CANDIDATES (state=%s)", r.State)
			}
			candLists[i] = r.Candidates
		}
		out := group[0]
		out.Candidates = fuseCandidates(candLists)
		merged = append(merged, out)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}
