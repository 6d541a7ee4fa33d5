// Package output writes the final per-region, per-sample count table
// (detct spec §6 "Outputs").
package output

import (
	"bufio"
	"fmt"
	"io"
	"sort"

	"github.com/grailbio/detct/region"
	"github.com/grailbio/detct/sample"
)

// Row pairs a merged region with the chromosome it lives on, for ordering
// purposes (region.Region itself already carries Reference).
type Row = region.Region

// Write emits the TSV table: (chr, region_start, region_end, max_read_count,
// log_prob_sum, 3'-end_chr, 3'-end_position, 3'-end_strand,
// 3'-end_read_count, sample_count_1, ..., sample_count_k), ordered by
// chromosome then region_start (spec §6).
func Write(w io.Writer, idx *sample.Index, rows []Row) error {
	sorted := make([]Row, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Reference != sorted[j].Reference {
			return sorted[i].Reference < sorted[j].Reference
		}
		return sorted[i].Start < sorted[j].Start
	})

	bw := bufio.NewWriter(w)
	header := []string{"chr", "region_start", "region_end", "max_read_count", "log_prob_sum",
		"3prime_end_chr", "3prime_end_position", "3prime_end_strand", "3prime_end_read_count"}
	for _, s := range idx.Samples() {
		header = append(header, "sample_count_"+s.Name)
	}
	if _, err := fmt.Fprintln(bw, tabJoin(header)); err != nil {
		return err
	}

	for _, r := range sorted {
		endChr, endPos, endStrand, endCount := "none", "none", r.Chosen.Strand.String(), "none"
		if r.Chosen.IsPresent() {
			endChr = r.Chosen.Reference
			endPos = fmt.Sprintf("%d", r.Chosen.Position)
			endCount = fmt.Sprintf("%d", r.Chosen.ReadCount)
		}
		fields := []string{
			r.Reference,
			fmt.Sprintf("%d", r.Start),
			fmt.Sprintf("%d", r.End),
			fmt.Sprintf("%d", r.MaxReadCount),
			fmt.Sprintf("%g", r.LogProbSum),
			endChr, endPos, endStrand, endCount,
		}
		for i := range idx.Samples() {
			count := 0
			if i < len(r.Counts) {
				count = r.Counts[i]
			}
			fields = append(fields, fmt.Sprintf("%d", count))
		}
		if _, err := fmt.Fprintln(bw, tabJoin(fields)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func tabJoin(fields []string) string {
	out := fields[0]
	for _, f := range fields[1:] {
		out += "\t" + f
	}
	return out
}
