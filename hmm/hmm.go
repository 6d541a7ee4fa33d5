// Package hmm merges per-input peak lists into a single per-chunk peak
// stream, hands binned read counts to the HMM segmentation subprocess, and
// joins the subprocess's per-bin state assignments into Region tuples
// (detct spec §4.6 C6 Peak merger and HMM driver interface).
//
// The subprocess boundary is grounded on github.com/biogo/external, used by
// the pack's kortschak-ins/blast/blast.go to build an exec.Cmd from a
// tagged options struct; Driver is the "in-memory plug point" spec §9
// Design Notes asks for, so tests can substitute a stub without an external
// binary.
package hmm

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sort"

	"github.com/biogo/external"
	"github.com/grailbio/detct/detcterrors"
	"github.com/grailbio/detct/peak"
	"github.com/grailbio/detct/region"
)

// MergePeaks merges peak lists from multiple inputs covering the same
// reference by coordinate-ordered union under the same buffered-proximity
// rule used to build each list (spec §4.6). Each input list must already be
// sorted ascending by Start within a strand, per spec §5.
//
// Peaks that join have their counts summed. Merging a single input's list
// returns the same peaks with the same counts (spec §8's merge-identity
// round-trip property), since no two of its own peaks are within
// bufferWidth of each other by construction; the result lists forward-strand
// peaks first, each strand in ascending Start order.
func MergePeaks(lists [][]peak.Peak, bufferWidth int) []peak.Peak {
	// Collect all peaks, stably sorted by (strand, start), then re-fold
	// through the same buffered-accumulation rule peak.Builder uses, carrying
	// each peak's count instead of counting it as one read.
	var all []peak.Peak
	for _, l := range lists {
		all = append(all, l...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Strand != all[j].Strand {
			return all[i].Strand > all[j].Strand // +1 before -1, arbitrary but stable
		}
		return all[i].Start < all[j].Start
	})

	var out []peak.Peak
	open := map[int8]int{} // strand -> index in out of that strand's open peak
	for _, p := range all {
		if i, ok := open[p.Strand]; ok && p.Start-out[i].End < bufferWidth {
			if p.End > out[i].End {
				out[i].End = p.End
			}
			out[i].Count += p.Count
			continue
		}
		open[p.Strand] = len(out)
		out = append(out, p)
	}
	return out
}

// Summary is the per-reference description hm handed to the HMM
// subprocess alongside binned counts (spec §4.6).
type Summary struct {
	Reference  string
	TotalBP    int
	ReadLength int
	SigLevel   float64
	BinSize    int
}

// Driver runs HMM segmentation over one chunk's binned counts and returns a
// per-bin state label (nonzero == "positive"/in a region) and per-bin log
// probability for each bin in ascending bin order. It is the spec §9
// "in-memory plug point".
type Driver interface {
	Run(ctx context.Context, summary Summary, bins []int, counts []int) (states []int, logProbs []float64, err error)
}

// hmmArgs is the argv template for the external HMM binary, built the same
// way blast.go builds BLAST's argv: a struct of typed fields with buildarg
// tags compiled by github.com/biogo/external.
type hmmArgs struct {
	Cmd      string  `buildarg:"{{.}}"`
	SigLevel float64 `buildarg:"-sig-level{{split}}{{.}}"`
	BinSize  int     `buildarg:"-bin-size{{split}}{{.}}"`
}

// ExternalDriver invokes the configured HMM binary as a subprocess,
// streaming the summary and binned counts on stdin and reading per-bin
// state labels from stdout (spec §6 "HMM subprocess contract"). A non-zero
// exit is fatal (SubprocessFailure, spec §7).
type ExternalDriver struct {
	BinaryPath string
}

func (d *ExternalDriver) Run(ctx context.Context, summary Summary, bins []int, counts []int) ([]int, []float64, error) {
	cl, err := external.Build(hmmArgs{Cmd: d.BinaryPath, SigLevel: summary.SigLevel, BinSize: summary.BinSize})
	if err != nil {
		return nil, nil, detcterrors.Subprocessf(summary.Reference, "building command line: %v", err)
	}
	cmd := exec.CommandContext(ctx, cl[0], cl[1:]...)

	var stdin bytes.Buffer
	fmt.Fprintf(&stdin, "%s\t%d\t%d\t%g\t%d\n", summary.Reference, summary.TotalBP, summary.ReadLength, summary.SigLevel, summary.BinSize)
	for i, b := range bins {
		fmt.Fprintf(&stdin, "%d\t%d\n", b, counts[i])
	}
	cmd.Stdin = &stdin

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, nil, detcterrors.Subprocessf(summary.Reference, "subprocess %s failed: %v (stderr: %s)", d.BinaryPath, err, stderr.String())
	}

	states := make([]int, 0, len(bins))
	logProbs := make([]float64, 0, len(bins))
	sc := bufio.NewScanner(&stdout)
	for sc.Scan() {
		var bin, state int
		var logProb float64
		if _, err := fmt.Sscanf(sc.Text(), "%d\t%d\t%g", &bin, &state, &logProb); err != nil {
			return nil, nil, detcterrors.Subprocessf(summary.Reference, "parsing subprocess output line %q: %v", sc.Text(), err)
		}
		states = append(states, state)
		logProbs = append(logProbs, logProb)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, detcterrors.Subprocessf(summary.Reference, "reading subprocess output: %v", err)
	}
	if len(states) != len(bins) {
		return nil, nil, detcterrors.Subprocessf(summary.Reference, "subprocess emitted %d states for %d bins", len(states), len(bins))
	}
	return states, logProbs, nil
}

// JoinRegions joins contiguous positive-state bins into Region tuples,
// carrying each region's per-bin maximum read count and summed log
// probability (spec §4.6). bins, states, and counts must be parallel
// slices in ascending bin order; logProbs is optional per-bin log
// probability (nil treated as all zero).
func JoinRegions(bins []int, states []int, counts []int, logProbs []float64, binWidth int, strand region.Strand) []region.Region {
	var out []region.Region
	i := 0
	for i < len(bins) {
		if states[i] == 0 {
			i++
			continue
		}
		start := bins[i] * binWidth
		maxCount := counts[i]
		logProbSum := 0.0
		if logProbs != nil {
			logProbSum = logProbs[i]
		}
		j := i
		for j+1 < len(bins) && states[j+1] != 0 && bins[j+1] == bins[j]+1 {
			j++
			if counts[j] > maxCount {
				maxCount = counts[j]
			}
			if logProbs != nil {
				logProbSum += logProbs[j]
			}
		}
		end := (bins[j] + 1) * binWidth
		out = append(out, region.Region{
			Identity: region.Identity{
				Start:        start,
				End:          end,
				MaxReadCount: maxCount,
				LogProbSum:   logProbSum,
				Strand:       strand,
			},
			State: region.Created,
		})
		i = j + 1
	}
	return out
}
