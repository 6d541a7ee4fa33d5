package threeprime

import (
	"math"
	"sort"

	"github.com/grailbio/detct/region"
)

// distanceToRegion returns min(|start-pos|, |end-pos|), the tie-break
// distance metric from spec §4.10. Candidates on a different reference
// from the region sort last by treating their distance as +Inf.
func distanceToRegion(regionReference string, start, end int, c region.Candidate) float64 {
	if c.Reference != regionReference {
		return math.Inf(1)
	}
	d1 := math.Abs(float64(start - c.Position))
	d2 := math.Abs(float64(end - c.Position))
	if d1 < d2 {
		return d1
	}
	return d2
}

// Choose selects the best 3'-end candidate for a region (spec §4.10):
// sort by read_count descending, tie-broken by ascending distance to the
// region, further tied positions broken by ascending genomic position (the
// deterministic lexicographic rule spec §9's Open Question asks us to
// pick). If the chosen position lies strictly inside the region, the
// region is shrunk toward it. If no candidate survives filtering, the
// chosen end falls back to the region's own strand (spec §7's only
// sanctioned fallback).
func Choose(r *region.Region) {
	if len(r.Candidates) == 0 {
		r.SetChosen(region.Absent(r.Identity.Strand))
		return
	}
	cands := make([]region.Candidate, len(r.Candidates))
	copy(cands, r.Candidates)
	start, end := r.Start, r.End
	reference := r.Reference
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].ReadCount != cands[j].ReadCount {
			return cands[i].ReadCount > cands[j].ReadCount
		}
		di := distanceToRegion(reference, start, end, cands[i])
		dj := distanceToRegion(reference, start, end, cands[j])
		if di != dj {
			return di < dj
		}
		return cands[i].Position < cands[j].Position
	})
	best := cands[0]
	chosen := region.Present(best.Reference, best.Position, best.Strand, best.ReadCount)
	r.SetChosen(chosen)

	// Shrink the region toward the chosen end if it lies strictly inside
	// (spec §4.10, §8 invariant 3: a candidate equal to a region bound does
	// not shrink it).
	if best.Reference == reference && best.Position > start && best.Position < end {
		if best.Strand == region.Plus {
			r.End = best.Position
		} else {
			r.Start = best.Position
		}
	}
}
