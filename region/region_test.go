package region

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateMachineOrder(t *testing.T) {
	r := &Region{}
	r.SetCandidates([]Candidate{{Reference: "1", Position: 10, Strand: Plus, ReadCount: 5}})
	assert.Equal(t, HasCandidates, r.State)
	r.SetFiltered(r.Candidates)
	r.SetChosen(Present("1", 10, Plus, 5))
	assert.Equal(t, Chosen, r.State)
	r.SetCounted()
	r.SetMerged([]int{1, 0, 2})
	assert.Equal(t, Merged, r.State)
}

func TestStateRegressionPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on state regression")
		}
	}()
	r := &Region{}
	r.SetCandidates(nil)
	r.SetFiltered(nil)
	r.SetCandidates(nil) // regression: FILTERED -> HAS_CANDIDATES
}

func TestChosenEndAbsentFallsBackToRegionStrand(t *testing.T) {
	c := Absent(Minus)
	assert.False(t, c.IsPresent())
	assert.Equal(t, Minus, c.Strand)
}

func TestZipIdenticalDetectsMismatch(t *testing.T) {
	a := []Region{{Identity: Identity{Start: 1, End: 10, Strand: Plus}}}
	b := []Region{{Identity: Identity{Start: 1, End: 11, Strand: Plus}}}
	err := ZipIdentical("chunk1", [][]Region{a, b}, func(idx int, group []Region) error { return nil })
	assert.Error(t, err)
}

func TestZipIdenticalAgreesOnMatchingLists(t *testing.T) {
	a := []Region{{Identity: Identity{Start: 1, End: 10, Strand: Plus}}}
	b := []Region{{Identity: Identity{Start: 1, End: 10, Strand: Plus}}}
	called := false
	err := ZipIdentical("chunk1", [][]Region{a, b}, func(idx int, group []Region) error {
		called = true
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, called)
}
