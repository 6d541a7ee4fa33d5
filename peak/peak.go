// Package peak builds strand-stratified peak intervals from coordinate-
// ordered read-2 alignments by buffered proximity (detct spec §3 "Peak",
// §4.5 C5 Peak builder).
//
// Grounded on the interval-accumulation style of
// github.com/grailbio/bio/interval (bedunion.go), which folds a
// coordinate-ordered stream of intervals into a minimal covering set; here
// the fold rule is the buffered-gap test from spec §4.5 rather than bare
// overlap.
package peak

import (
	"github.com/biogo/hts/sam"
	"github.com/grailbio/detct/align"
)

// Peak is a closed interval on one strand with a read count (spec §3).
type Peak struct {
	Start, End int
	Strand     int8
	Count      int
}

// Builder accumulates peaks for one reference, one strand at a time, in
// coordinate order (spec §4.5, §5 "per-reference traversal is sequential
// and deterministic by ascending coordinate").
type Builder struct {
	bufferWidth int
	cur         map[int8]*Peak // keyed by strand
	out         []Peak
}

// NewBuilder creates a Builder with the given buffer width.
func NewBuilder(bufferWidth int) *Builder {
	return &Builder{bufferWidth: bufferWidth, cur: map[int8]*Peak{}}
}

// Add folds one read-2 interval [start,end) on strand into the builder's
// running peak for that strand (spec §4.5's traversal rule):
//
//	if no current peak, begin one;
//	else if rs - pe < buffer_width, extend pe := max(pe, re), n += 1;
//	else emit the current peak and start a new one.
func (b *Builder) Add(start, end int, strand int8) {
	p := b.cur[strand]
	if p == nil {
		b.cur[strand] = &Peak{Start: start, End: end, Strand: strand, Count: 1}
		return
	}
	if start-p.End < b.bufferWidth {
		if end > p.End {
			p.End = end
		}
		p.Count++
		return
	}
	b.out = append(b.out, *p)
	b.cur[strand] = &Peak{Start: start, End: end, Strand: strand, Count: 1}
}

// Finish emits any peaks still open and returns every peak produced: peaks
// closed during Add come first, in the order they were closed, followed by
// the still-open forward-strand peak and then the reverse-strand one (spec
// §4.5: "Terminate by emitting the last peak of each strand").
func (b *Builder) Finish() []Peak {
	for _, s := range []int8{1, -1} {
		if p := b.cur[s]; p != nil {
			b.out = append(b.out, *p)
			delete(b.cur, s)
		}
	}
	return b.out
}

// BuildFromRecords is a convenience wrapper that filters records to
// surviving read-2 alignments (not duplicate, mapped, under the mismatch
// threshold), then folds them through a Builder. Unlike C4's binner, it
// does not require a tag match.
// records must already be in ascending coordinate order (spec §5).
func BuildFromRecords(records []*sam.Record, mismatchThreshold, bufferWidth int) []Peak {
	b := NewBuilder(bufferWidth)
	for _, r := range records {
		if !align.IsRead2(r) || align.IsDuplicate(r) || align.IsUnmapped(r) {
			continue
		}
		if align.AboveMismatchThreshold(r, mismatchThreshold) {
			continue
		}
		b.Add(r.Pos, r.End(), align.Strand(r))
	}
	return b.Finish()
}
