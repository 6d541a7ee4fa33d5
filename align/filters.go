// Package align provides pure alignment-flag predicates and the
// mismatch-score computation shared by every read-traversal stage (detct
// spec §4.2 C2 Alignment filters).
//
// Grounded on github.com/grailbio/bio/markduplicates (helpers.go,
// mark_duplicates.go), which inspects the same sam.Record flag bits via
// github.com/biogo/hts/sam, and checks cheap flag bits before touching
// CIGAR or aux tags -- the same short-circuit order spec §9 asks for in the
// C7/C11 traversal.
package align

import "github.com/biogo/hts/sam"

// IsRead2 reports whether r is the second mate of a pair.
func IsRead2(r *sam.Record) bool {
	return r.Flags&sam.Read2 != 0
}

// IsDuplicate reports whether r is flagged as an optical or PCR duplicate.
func IsDuplicate(r *sam.Record) bool {
	return r.Flags&sam.Duplicate != 0
}

// IsPaired reports whether r is paired in sequencing.
func IsPaired(r *sam.Record) bool {
	return r.Flags&sam.Paired != 0
}

// IsProperlyPaired reports whether r is mapped in a proper pair.
func IsProperlyPaired(r *sam.Record) bool {
	return r.Flags&sam.ProperPair != 0
}

// IsUnmapped reports whether r itself is unmapped.
func IsUnmapped(r *sam.Record) bool {
	return r.Flags&sam.Unmapped != 0
}

// MateUnmapped reports whether r's mate is unmapped.
func MateUnmapped(r *sam.Record) bool {
	return r.Flags&sam.MateUnmapped != 0
}

// MatesMapped reports whether both r and its mate are mapped.
func MatesMapped(r *sam.Record) bool {
	return !IsUnmapped(r) && !MateUnmapped(r)
}

// Strand returns +1 for a forward-strand alignment, -1 for reverse.
func Strand(r *sam.Record) int8 {
	if r.Flags&sam.Reverse != 0 {
		return -1
	}
	return 1
}

// MateStrand returns the strand of r's mate.
func MateStrand(r *sam.Record) int8 {
	if r.Flags&sam.MateReverse != 0 {
		return -1
	}
	return 1
}

// nmTag is the two-letter SAM tag for edit distance.
var nmTag = [2]byte{'N', 'M'}

// editDistance extracts the NM aux tag as an int, or 0 if absent.
func editDistance(r *sam.Record) int {
	aux, ok := r.Tag(nmTag[:])
	if !ok {
		return 0
	}
	switch v := aux.Value().(type) {
	case int:
		return v
	case int8:
		return int(v)
	case uint8:
		return int(v)
	case int16:
		return int(v)
	case uint16:
		return int(v)
	case int32:
		return int(v)
	case uint32:
		return int(v)
	default:
		return 0
	}
}

// softClipLength sums the lengths of all soft-clipped CIGAR segments.
func softClipLength(c sam.Cigar) int {
	n := 0
	for _, op := range c {
		if op.Type() == sam.CigarSoftClipped {
			n += op.Len()
		}
	}
	return n
}

// MismatchScore returns NM + the number of soft-clipped bases, the
// threshold quantity used throughout the pipeline (spec §3 "Derived").
func MismatchScore(r *sam.Record) int {
	return editDistance(r) + softClipLength(r.Cigar)
}

// AboveMismatchThreshold reports whether r's mismatch score exceeds t.
func AboveMismatchThreshold(r *sam.Record, t int) bool {
	return MismatchScore(r) > t
}
