package region

import (
	"fmt"

	"github.com/grailbio/detct/detcterrors"
)

// ZipIdentical walks N parallel region lists index-by-index and calls fn on
// each group, after verifying every list has the same length and that every
// region at index i shares the same Identity. This is the system's backbone
// invariant (spec §9 Design Notes: "the all-lists-agree structurally
// predicate at every merge point... implement it once as a generic region
// list zip"), used by both the 3'-end merger (C8) and the count merger
// (C12).
//
// chunkID is used only to annotate the returned error.
func ZipIdentical(chunkID string, lists [][]Region, fn func(idx int, group []Region) error) error {
	if len(lists) == 0 {
		return nil
	}
	n := len(lists[0])
	for li, l := range lists {
		if len(l) != n {
			return detcterrors.Structuralf(chunkID, fmt.Sprintf("list %d", li), "region list has %d regions, list 0 has %d", len(l), n)
		}
	}
	for i := 0; i < n; i++ {
		group := make([]Region, len(lists))
		want := lists[0][i].Identity
		for li, l := range lists {
			if !l[i].Identity.EQ(want) {
				return detcterrors.Structuralf(chunkID, fmt.Sprintf("region %d", i),
					"identity mismatch: list 0 has %s, list %d has %s", want, li, l[i].Identity)
			}
			group[li] = l[i]
		}
		if err := fn(i, group); err != nil {
			return err
		}
	}
	return nil
}
