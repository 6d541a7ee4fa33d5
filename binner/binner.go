// Package binner counts read-2 coverage per strand per fixed-width bin
// (detct spec §3 "Bin", §4.4 C4 Read binner).
package binner

import (
	"github.com/biogo/hts/sam"
	"github.com/grailbio/detct/align"
	"github.com/grailbio/detct/tagmatch"
)

// Counts maps a bin index to a read count.
type Counts map[int]int

// Stats accumulates the diagnostic rejection counters named by spec §7
// ("ReadFilterReject... not an error -- diagnostic counter").
type Stats struct {
	Seen            int
	NotRead2        int
	Duplicate       int
	Unmapped        int
	OverMismatch    int
	TagMismatch     int
	Kept            int
}

// Bin builds per-strand bin->count maps for a single reference from an
// ordered stream of records. binWidth is the fixed bin width W; a read
// spanning multiple bins increments each bin it touches (spec §4.4).
func Bin(records []*sam.Record, tags *tagmatch.Set, mismatchThreshold, binWidth int) (forward, reverse Counts, stats Stats) {
	forward = Counts{}
	reverse = Counts{}
	for _, r := range records {
		stats.Seen++
		if !align.IsRead2(r) {
			stats.NotRead2++
			continue
		}
		if align.IsDuplicate(r) {
			stats.Duplicate++
			continue
		}
		if align.IsUnmapped(r) {
			stats.Unmapped++
			continue
		}
		if align.AboveMismatchThreshold(r, mismatchThreshold) {
			stats.OverMismatch++
			continue
		}
		if _, _, ok := tags.Match(r.Name); !ok {
			stats.TagMismatch++
			continue
		}
		stats.Kept++
		counts := forward
		if align.Strand(r) == -1 {
			counts = reverse
		}
		start := r.Pos
		end := r.End() // exclusive, reference-consumed length
		if end <= start {
			end = start + 1
		}
		firstBin := start / binWidth
		lastBin := (end - 1) / binWidth
		for b := firstBin; b <= lastBin; b++ {
			counts[b]++
		}
	}
	return forward, reverse, stats
}
