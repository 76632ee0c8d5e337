// Package reconcile forces translated blocks back to the line count of their
// source block.
package reconcile

import "strings"

// Fix returns exactly originalLineCount lines built from candidate.
//
// A missing candidate (ok == false) yields blank lines. A short candidate is
// padded with blank lines. A long candidate keeps its first
// originalLineCount-1 lines and joins the rest, space separated, into the last.
func Fix(originalLineCount int, candidate []string, ok bool) []string {
	if originalLineCount <= 0 {
		return []string{}
	}

	ret := make([]string, originalLineCount)
	if !ok {
		return ret
	}

	if len(candidate) <= originalLineCount {
		copy(ret, candidate)
		return ret
	}

	last := originalLineCount - 1
	copy(ret, candidate[:last])
	ret[last] = strings.Join(candidate[last:], " ")
	return ret
}

// Lookup applies Fix to the entry for seq in results.
func Lookup(results map[int][]string, seq, originalLineCount int) []string {
	candidate, ok := results[seq]
	return Fix(originalLineCount, candidate, ok)
}
