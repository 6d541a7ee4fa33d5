// Package tagmatch compiles IUPAC-bearing molecular barcodes into regular
// expression sets and matches them against the read-name suffix that
// follows a read's terminal "#" (detct spec §3 "Barcode regex set", §4.1
// C1 Tag matcher).
//
// Grounded on github.com/grailbio/bio/umi/correction.go, which treats UMIs
// as fixed-alphabet strings over {A,C,G,T,N} and builds lookup structures
// over them; here the alphabet is the wider IUPAC ambiguity code set named
// by spec §3, and the lookup structure is a compiled regexp set rather than
// a Levenshtein correction table, since the spec's matching rule is exact
// per-base-class containment, not edit-distance snapping.
package tagmatch

import (
	"fmt"
	"regexp"
)

// iupac maps each IUPAC ambiguity code to the base classes it allows.
// 'N' is the wildcard and, like the other ambiguity codes, expands to the
// bases it allows (here all four).
var iupac = map[byte]string{
	'A': "A",
	'C': "C",
	'G': "G",
	'T': "T",
	'R': "AG",
	'Y': "CT",
	'K': "GT",
	'M': "AC",
	'S': "CG",
	'W': "AT",
	'B': "CGT",
	'D': "AGT",
	'H': "ACT",
	'V': "ACG",
	'N': "ACGT",
}

// isFixedBase reports whether c is a single fixed base. Every other IUPAC
// code is an ambiguity letter and counts toward a barcode's random-base
// prefix when it appears before the first fixed base.
func isFixedBase(c byte) bool {
	switch c {
	case 'A', 'C', 'G', 'T':
		return true
	default:
		return false
	}
}

// Matcher holds the compiled regex set for one barcode.
type Matcher struct {
	Barcode      string
	Length       int
	RandomPrefix int // count of ambiguity letters before the first fixed base
	re           *regexp.Regexp
}

// Compile builds a Matcher for a single barcode. Each IUPAC letter expands
// to a character class over its allowed bases; the barcode regex matches a
// read-name suffix of exactly len(barcode) letters drawn from {A,C,G,T}
// (real sequenced bases never contain ambiguity codes themselves).
func Compile(barcode string) (*Matcher, error) {
	if barcode == "" {
		return nil, fmt.Errorf("tagmatch: empty barcode")
	}
	prefix := 0
	counting := true
	var pattern []byte
	pattern = append(pattern, '^')
	for i := 0; i < len(barcode); i++ {
		c := barcode[i]
		classes, ok := iupac[c]
		if !ok {
			return nil, fmt.Errorf("tagmatch: barcode %q has invalid IUPAC base %q at position %d", barcode, c, i)
		}
		if counting {
			if isFixedBase(c) {
				counting = false
			} else {
				prefix++
			}
		}
		if len(classes) == 1 {
			pattern = append(pattern, classes[0])
		} else {
			pattern = append(pattern, '[')
			pattern = append(pattern, classes...)
			pattern = append(pattern, ']')
		}
	}
	pattern = append(pattern, '$')
	re, err := regexp.Compile(string(pattern))
	if err != nil {
		return nil, fmt.Errorf("tagmatch: compiling barcode %q: %w", barcode, err)
	}
	return &Matcher{Barcode: barcode, Length: len(barcode), RandomPrefix: prefix, re: re}, nil
}

// MatchSuffix reports whether suffix (the terminal len(barcode) bases of a
// read name) matches this barcode.
func (m *Matcher) MatchSuffix(suffix string) bool {
	return m.re.MatchString(suffix)
}

// Set is an ordered collection of compiled barcodes; the first matching
// barcode wins (spec §4.1: "the matcher tests... in a stable order; the
// first matching barcode wins").
type Set struct {
	matchers []*Matcher
}

// NewSet compiles every barcode in barcodes, preserving order.
func NewSet(barcodes []string) (*Set, error) {
	s := &Set{}
	for _, b := range barcodes {
		m, err := Compile(b)
		if err != nil {
			return nil, err
		}
		s.matchers = append(s.matchers, m)
	}
	return s, nil
}

// suffixOf extracts the terminal "[ACGT]+" run of a read name -- the bases
// following the last '#' -- of the given length. Reports ok=false if the
// name is too short or has no '#' bases of that length at its tail.
func suffixOf(name string, length int) (string, bool) {
	hash := -1
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '#' {
			hash = i
			break
		}
	}
	if hash < 0 {
		return "", false
	}
	tail := name[hash+1:]
	if len(tail) != length {
		return "", false
	}
	for i := 0; i < len(tail); i++ {
		c := tail[i]
		if c != 'A' && c != 'C' && c != 'G' && c != 'T' {
			return "", false
		}
	}
	return tail, true
}

// Match tests the terminal bases of readName against every barcode in s, in
// order, and returns the first matching barcode plus its random-base prefix
// length (spec §4.1). ok is false if no barcode matches (including the case
// where readName has no "#"-delimited suffix of the right length).
func (s *Set) Match(readName string) (barcode string, randomPrefix int, ok bool) {
	for _, m := range s.matchers {
		suffix, sok := suffixOf(readName, m.Length)
		if !sok {
			continue
		}
		if m.MatchSuffix(suffix) {
			return m.Barcode, m.RandomPrefix, true
		}
	}
	return "", 0, false
}
