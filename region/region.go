// Package region defines the Region data model that flows through the
// pipeline from HMM segmentation to the final per-sample count matrix
// (detct spec §3, §4.14).
package region

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// State is a region's position in the pipeline state machine (spec §4.14).
// Transitions are one-directional; advance panics on regression.
type State int

const (
	Created State = iota
	HasCandidates
	Filtered
	Chosen
	ChosenNone
	Counted
	Merged
)

func (s State) String() string {
	switch s {
	case Created:
		return "CREATED"
	case HasCandidates:
		return "HAS_CANDIDATES"
	case Filtered:
		return "FILTERED"
	case Chosen:
		return "CHOSEN"
	case ChosenNone:
		return "CHOSEN_NONE"
	case Counted:
		return "COUNTED"
	case Merged:
		return "MERGED"
	default:
		return "UNKNOWN"
	}
}

// Strand is +1 or -1; there is no "unstranded" region.
type Strand int8

const (
	Plus  Strand = 1
	Minus Strand = -1
)

func (s Strand) String() string {
	if s == Plus {
		return "+"
	}
	return "-"
}

// Identity is the 5-tuple that must match field-for-field across parallel
// branches at every merge boundary (spec §3 "Region identity").
type Identity struct {
	Start         int
	End           int
	MaxReadCount  int
	LogProbSum    float64
	Strand        Strand
}

// EQ reports whether two identities are structurally equal.
func (id Identity) EQ(o Identity) bool {
	return id.Start == o.Start && id.End == o.End &&
		id.MaxReadCount == o.MaxReadCount && id.LogProbSum == o.LogProbSum &&
		id.Strand == o.Strand
}

func (id Identity) String() string {
	return fmt.Sprintf("(%d,%d,maxcount=%d,logprob=%g,strand=%s)", id.Start, id.End, id.MaxReadCount, id.LogProbSum, id.Strand)
}

// Candidate is a 3'-end candidate position (spec §3).
type Candidate struct {
	Reference string
	Position  int
	Strand    Strand
	ReadCount int
}

// ChosenEnd is the sum type Present(ref,pos,strand,count) | Absent(strand)
// from spec §9 Design Notes, modeled as a tagged variant rather than a
// nullable tuple.
type ChosenEnd struct {
	present   bool
	Reference string
	Position  int
	Strand    Strand
	ReadCount int
}

// Present constructs a ChosenEnd with a real candidate.
func Present(reference string, position int, strand Strand, readCount int) ChosenEnd {
	return ChosenEnd{present: true, Reference: reference, Position: position, Strand: strand, ReadCount: readCount}
}

// Absent constructs a ChosenEnd for a region with no surviving candidate;
// strand always falls back to the region's own strand (spec §4.10, §7).
func Absent(strand Strand) ChosenEnd {
	return ChosenEnd{present: false, Strand: strand}
}

// IsPresent reports whether a candidate was chosen.
func (c ChosenEnd) IsPresent() bool { return c.present }

// chosenEndWire is ChosenEnd's gob wire representation: gob drops unexported
// fields silently, which would lose the present/absent tag on every artifact
// round-trip, so ChosenEnd encodes itself through this exported shadow
// instead of relying on gob's default struct encoding.
type chosenEndWire struct {
	Present   bool
	Reference string
	Position  int
	Strand    Strand
	ReadCount int
}

func (c ChosenEnd) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	w := chosenEndWire{c.present, c.Reference, c.Position, c.Strand, c.ReadCount}
	if err := gob.NewEncoder(&buf).Encode(w); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *ChosenEnd) GobDecode(data []byte) error {
	var w chosenEndWire
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return err
	}
	c.present, c.Reference, c.Position, c.Strand, c.ReadCount = w.Present, w.Reference, w.Position, w.Strand, w.ReadCount
	return nil
}

// Region is a candidate transcript footprint, enriched progressively by the
// pipeline stages (spec §3 "Region").
type Region struct {
	Identity

	State State

	Candidates []Candidate // set after HasCandidates
	Chosen     ChosenEnd   // set after Chosen/ChosenNone
	Counts     []int       // set after Counted/Merged, indexed by sample

	// Reference is the chromosome/contig this region lives on. It is not
	// part of Identity because Identity is compared across branches that
	// already share a reference by construction (peaks are built and
	// merged per-reference); keeping it separate avoids a 6th identity
	// field the spec does not name.
	Reference string
}

// advance is the single chokepoint for state transitions; it panics if
// asked to move to a state at or before the current one, enforcing "no
// state regression" (spec §4.14).
func (r *Region) advance(next State) {
	if next <= r.State {
		panic(fmt.Sprintf("region state regression: %s -> %s on region %s", r.State, next, r.Identity))
	}
	r.State = next
}

// SetCandidates transitions CREATED -> HAS_CANDIDATES.
func (r *Region) SetCandidates(cands []Candidate) {
	r.advance(HasCandidates)
	r.Candidates = cands
}

// SetFiltered transitions HAS_CANDIDATES -> FILTERED.
func (r *Region) SetFiltered(cands []Candidate) {
	r.advance(Filtered)
	r.Candidates = cands
}

// SetChosen transitions FILTERED -> CHOSEN or CHOSEN_NONE.
func (r *Region) SetChosen(c ChosenEnd) {
	if c.IsPresent() {
		r.advance(Chosen)
	} else {
		r.advance(ChosenNone)
	}
	r.Chosen = c
}

// SetCounted transitions {CHOSEN,CHOSEN_NONE} -> COUNTED.
func (r *Region) SetCounted() {
	if r.State != Chosen && r.State != ChosenNone {
		panic(fmt.Sprintf("SetCounted requires CHOSEN or CHOSEN_NONE, got %s", r.State))
	}
	r.State = Counted
}

// SetMerged transitions COUNTED -> MERGED, attaching the final per-sample
// count vector.
func (r *Region) SetMerged(counts []int) {
	r.advance(Merged)
	r.Counts = counts
}
