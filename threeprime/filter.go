package threeprime

import (
	"context"
	"regexp"
	"strings"

	"github.com/grailbio/detct/detcterrors"
	"github.com/grailbio/detct/refio"
	"github.com/grailbio/detct/region"
)

// MinReadCount is the read count at or below which a candidate is dropped
// outright (spec §4.9: "Discard candidates with read count <= 3").
const MinReadCount = 3

// DownstreamWindow is the width of the genomic window inspected for
// polyA-like content immediately downstream of a candidate (spec §4.9).
const DownstreamWindow = 10

// spacedARegexps are the fixed set of spaced-A patterns spec §4.9 names as
// one of the three ways a window can be flagged downstream-polyA, grounded
// on the fixed-alphabet regex-set style of tagmatch.Compile.
var spacedARegexps = []*regexp.Regexp{
	regexp.MustCompile(`^AA.AA.AA`),
	regexp.MustCompile(`^A.AA.AA.A`),
	regexp.MustCompile(`^AA.A.AA.A`),
}

// IsDownstreamPolyA reports whether a 10bp downstream window looks too
// adenine-rich to be a real cleavage site (spec §4.9): it starts with >= 4
// A's, has > 6 A's total, or matches one of the fixed spaced-A patterns.
func IsDownstreamPolyA(window string) bool {
	upper := strings.ToUpper(window)
	if len(upper) == 0 {
		return false
	}
	run := 0
	for run < len(upper) && upper[run] == 'A' {
		run++
	}
	if run >= 4 {
		return true
	}
	total := strings.Count(upper, "A")
	if total > 6 {
		return true
	}
	for _, re := range spacedARegexps {
		if re.MatchString(upper) {
			return true
		}
	}
	return false
}

// FilterStats accumulates C9's diagnostic rejection counters (spec §7,
// the "low-count, polyA" counters SPEC_FULL.md's diagnostics supplement
// names for every filtering stage).
type FilterStats struct {
	Seen     int
	LowCount int
	PolyA    int
	Kept     int
}

// FilterCandidates discards candidates with read count <= MinReadCount,
// then fetches each survivor's downstream window from src and discards
// downstream-polyA candidates (spec §4.9).
func FilterCandidates(ctx context.Context, src refio.Source, cands []region.Candidate) ([]region.Candidate, FilterStats, error) {
	var stats FilterStats
	out := make([]region.Candidate, 0, len(cands))
	for _, c := range cands {
		stats.Seen++
		if c.ReadCount <= MinReadCount {
			stats.LowCount++
			continue
		}
		window, err := refio.GetDownstreamSubsequence(ctx, src, c.Reference, c.Position, int8(c.Strand), DownstreamWindow)
		if err != nil {
			return nil, stats, err
		}
		if IsDownstreamPolyA(window) {
			stats.PolyA++
			continue
		}
		stats.Kept++
		out = append(out, c)
	}
	return out, stats, nil
}

// FilterRegion applies FilterCandidates to one region, transitioning
// HAS_CANDIDATES -> FILTERED (spec §4.14). Calling this on a region not yet
// at HAS_CANDIDATES returns a StructuralMismatch error; calling it on a
// region already at FILTERED or later makes SetFiltered's state-machine
// guard panic.
func FilterRegion(ctx context.Context, src refio.Source, r *region.Region) (FilterStats, error) {
	if r.State < region.HasCandidates {
		return FilterStats{}, detcterrors.Structuralf("", "region "+r.Identity.String(), "has not reached HAS_CANDIDATES (state=%s)", r.State)
	}
	filtered, stats, err := FilterCandidates(ctx, src, r.Candidates)
	if err != nil {
		return stats, err
	}
	r.SetFiltered(filtered)
	return stats, nil
}
