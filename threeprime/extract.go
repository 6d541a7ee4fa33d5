// Package threeprime implements the 3'-end candidate lifecycle: extraction
// from alignments (C7), merging across inputs (C8), read-count/polyA
// filtering (C9), and tie-broken selection (C10) -- detct spec §4.7-§4.10.
package threeprime

import (
	"sort"

	"github.com/biogo/hts/sam"
	"github.com/grailbio/detct/align"
	"github.com/grailbio/detct/region"
	"github.com/grailbio/detct/tagmatch"
)

// mcTag is the SAM "mate CIGAR" aux tag, used to compute the mate's
// reference-consumed end position from its recorded start (spec §3:
// "mate-reported mate-end is available whenever the mate is on the same
// reference and mapped").
var mcTag = [2]byte{'M', 'C'}

// mateEnd returns the end coordinate of r's mate (exclusive), or ok=false
// if it cannot be determined (mate unmapped, on a different reference, or
// missing an MC tag).
func mateEnd(r *sam.Record) (end int, ok bool) {
	if align.MateUnmapped(r) || r.MateRef == nil || r.Ref == nil || r.MateRef.ID() != r.Ref.ID() {
		return 0, false
	}
	aux, found := r.Tag(mcTag[:])
	if !found {
		return 0, false
	}
	s, isStr := aux.Value().(string)
	if !isStr {
		return 0, false
	}
	cigar, err := sam.ParseCigar([]byte(s))
	if err != nil {
		return 0, false
	}
	refLen, _ := cigar.Lengths()
	return r.MatePos + refLen, true
}

// ExtractOpts configures candidate extraction.
type ExtractOpts struct {
	MismatchThreshold int
	Tags              *tagmatch.Set
}

// ExtractStats accumulates diagnostic rejection counters (spec §7).
type ExtractStats struct {
	Seen         int
	NotRead2     int
	Duplicate    int
	MateUnmapped int
	WrongStrand  int
	OverMismatch int
	TagMismatch  int
	NoMateEnd    int
	Kept         int
}

// Extract scans read-2 alignments overlapping a region on targetStrand and
// derives candidate 3'-end positions from their mates (spec §4.7).
// records need only be records whose alignment overlaps [region.Start,
// region.End); callers are expected to have already restricted the scan to
// that interval (e.g. via a provider shard or interval index), matching the
// performance note in spec §9 about short-circuiting cheap checks first.
func Extract(records []*sam.Record, reference string, targetStrand region.Strand, opts ExtractOpts) ([]region.Candidate, ExtractStats) {
	counts := map[int]int{}
	var stats ExtractStats
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
		if align.MateUnmapped(r) {
			stats.MateUnmapped++
			continue
		}
		// read-2 strand must equal the target strand (equivalently, read-1,
		// the mate, lies on the opposite strand) -- spec §4.7.
		if region.Strand(align.Strand(r)) != targetStrand {
			stats.WrongStrand++
			continue
		}
		if align.AboveMismatchThreshold(r, opts.MismatchThreshold) {
			stats.OverMismatch++
			continue
		}
		if opts.Tags != nil {
			if _, _, ok := opts.Tags.Match(r.Name); !ok {
				stats.TagMismatch++
				continue
			}
		}
		var pos int
		if targetStrand == region.Plus {
			end, ok := mateEnd(r)
			if !ok {
				stats.NoMateEnd++
				continue
			}
			pos = end
		} else {
			pos = r.MatePos
		}
		stats.Kept++
		counts[pos]++
	}

	cands := make([]region.Candidate, 0, len(counts))
	for pos, n := range counts {
		cands = append(cands, region.Candidate{Reference: reference, Position: pos, Strand: targetStrand, ReadCount: n})
	}
	// Ordered by descending read count (spec §4.7); ties broken by
	// ascending position for determinism.
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].ReadCount != cands[j].ReadCount {
			return cands[i].ReadCount > cands[j].ReadCount
		}
		return cands[i].Position < cands[j].Position
	})
	return cands, stats
}
