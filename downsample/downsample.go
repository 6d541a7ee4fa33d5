// Package downsample implements mate-pair-aware BAM downsampling (detct
// spec §4.14 C14 Downsampler): stream a source BAM once, decide per
// read-name on first sight whether to keep the pair, and let the sibling
// mate follow the same fate.
//
// Grounded on github.com/grailbio/bio/encoding/converter's BAM streaming
// idiom (bam.NewReader/bam.NewWriter over github.com/biogo/hts/bam,sam).
package downsample

import (
	"fmt"
	"io"
	"math/rand"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/grailbio/detct/align"
)

// PairMode selects which notion of "paired" gates a record's eligibility
// (spec §4.14: "paired in the requested sense: paired / mapped-paired /
// properly-paired").
type PairMode int

const (
	Paired PairMode = iota
	MappedPaired
	ProperlyPaired
)

func eligible(r *sam.Record, mode PairMode) bool {
	switch mode {
	case Paired:
		return align.IsPaired(r)
	case MappedPaired:
		return align.IsPaired(r) && align.MatesMapped(r)
	case ProperlyPaired:
		return align.IsProperlyPaired(r)
	default:
		return false
	}
}

// Stats reports how many records were inspected, kept, and written.
type Stats struct {
	Seen       int
	Ineligible int
	Kept       int
	PairsKept  int
}

// Run streams src once, retaining eligible mate pairs at rate
// target/source, and writes the retained records (with the source header)
// to dst. The random source rng drives first-sight keep decisions; pass a
// seeded *rand.Rand for reproducible output (spec §8: "given the same
// random seed for downsampling").
//
// Once target pairs have been kept, remaining input is drained without
// further writes -- spec's "stop once the target count is reached" is
// honored by ceasing to emit, not by truncating the read of src, since the
// header and any trailing index structures still need a clean close.
func Run(src io.Reader, dst io.Writer, source, target int64, mode PairMode, rng *rand.Rand) (Stats, error) {
	var stats Stats
	if source <= 0 || target <= 0 || target > source {
		return stats, fmt.Errorf("downsample: invalid source=%d target=%d", source, target)
	}
	rate := float64(target) / float64(source)

	r, err := bam.NewReader(src, 1)
	if err != nil {
		return stats, fmt.Errorf("downsample: open reader: %w", err)
	}
	defer r.Close()

	w, err := bam.NewWriter(dst, r.Header(), 1)
	if err != nil {
		return stats, fmt.Errorf("downsample: open writer: %w", err)
	}
	defer w.Close()

	decided := map[string]bool{} // read name -> keep decision, until both mates seen
	var kept int64
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("downsample: read: %w", err)
		}
		stats.Seen++

		if !eligible(rec, mode) {
			stats.Ineligible++
			continue
		}

		keep, seen := decided[rec.Name]
		firstSight := !seen
		if firstSight {
			if kept >= target {
				keep = false
			} else {
				keep = rng.Float64() < rate
			}
			decided[rec.Name] = keep
		} else {
			// second mate: follow the first mate's decision, then evict
			// the memoization entry to bound memory (spec §9).
			delete(decided, rec.Name)
		}

		if keep {
			if firstSight {
				kept++
				stats.PairsKept++
			}
			stats.Kept++
			if err := w.Write(rec); err != nil {
				return stats, fmt.Errorf("downsample: write: %w", err)
			}
		}
	}
	return stats, nil
}
