// Package counter performs per-tag, per-region read counting at chosen
// 3' ends (detct spec §4.11 C11 Read counter).
package counter

import (
	"github.com/biogo/hts/sam"
	"github.com/grailbio/detct/align"
	"github.com/grailbio/detct/region"
	"github.com/grailbio/detct/tagmatch"
)

// CountStats accumulates diagnostic rejection counters (spec §7).
type CountStats struct {
	Seen         int
	WrongStrand  int
	Duplicate    int
	OverMismatch int
	TagMismatch  int
	Kept         int
}

// CountRegion counts read-2 alignments overlapping a region whose strand
// equals the chosen 3'-end strand, not duplicates, under the mismatch
// threshold, and whose tag matches one of the input's barcodes (spec
// §4.11). records is expected to already be restricted to the region's
// span by the caller. Result is a {barcode -> count} map.
func CountRegion(records []*sam.Record, r *region.Region, tags *tagmatch.Set, mismatchThreshold int) (map[string]int, CountStats) {
	counts := map[string]int{}
	var stats CountStats
	chosenStrand := r.Chosen.Strand
	for _, rec := range records {
		stats.Seen++
		if !align.IsRead2(rec) {
			continue
		}
		if region.Strand(align.Strand(rec)) != chosenStrand {
			stats.WrongStrand++
			continue
		}
		if align.IsDuplicate(rec) {
			stats.Duplicate++
			continue
		}
		if align.AboveMismatchThreshold(rec, mismatchThreshold) {
			stats.OverMismatch++
			continue
		}
		barcode, _, ok := tags.Match(rec.Name)
		if !ok {
			stats.TagMismatch++
			continue
		}
		stats.Kept++
		counts[barcode]++
	}
	return counts, stats
}

// CountAndAdvance runs CountRegion and transitions the region to COUNTED
// (spec §4.14). It does not itself store the per-barcode map on the region
// -- that belongs to the per-input caller, which later hands it to
// countmerge.Merge alongside the region's other per-input counterparts.
func CountAndAdvance(records []*sam.Record, r *region.Region, tags *tagmatch.Set, mismatchThreshold int) (map[string]int, CountStats) {
	counts, stats := CountRegion(records, r, tags, mismatchThreshold)
	r.SetCounted()
	return counts, stats
}
