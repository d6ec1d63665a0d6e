// Package pagerange parses page selectors such as "1-3, 5, 7-9".
//
// Selectors are lenient: tokens that do not parse are dropped and page
// numbers outside [1, total] are filtered out instead of failing the parse.
package pagerange

import (
	"strconv"
	"strings"
)

// Warning describes a selector token that was dropped during parsing.
type Warning struct {
	Token  string
	Reason string
}

func (w Warning) String() string {
	return strconv.Quote(w.Token) + ": " + w.Reason
}

// Parse turns a selector into ordered groups of 1-indexed page numbers.
// Each comma separated token yields one group; groups that end up empty
// are omitted. No sorting or deduplication happens across tokens.
func Parse(selector string, totalPages int) [][]int {
	groups, _ := ParseWithWarnings(selector, totalPages)
	return groups
}

// ParseWithWarnings is Parse, but also reports every token it dropped
// because it was not a number or a range.
func ParseWithWarnings(selector string, totalPages int) ([][]int, []Warning) {
	var (
		groups   [][]int
		warnings []Warning
	)
	for _, token := range Tokens(selector) {
		var (
			group []int
			err   error
		)
		if strings.Contains(token, "-") {
			group, err = expandRange(token, totalPages)
		} else {
			group, err = single(token, totalPages)
		}
		if err != nil {
			warnings = append(warnings, Warning{Token: token, Reason: err.Error()})
			continue
		}
		if len(group) > 0 {
			groups = append(groups, group)
		}
	}
	return groups, warnings
}

// Tokens splits a selector on commas, trimming each token and dropping
// blank ones.
func Tokens(selector string) []string {
	var tokens []string
	for _, token := range strings.Split(selector, ",") {
		if token = strings.TrimSpace(token); token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// Pages flattens the groups of a selector into one sequence of page
// numbers, keeping token order and duplicates.
func Pages(selector string, totalPages int) []int {
	var pages []int
	for _, g := range Parse(selector, totalPages) {
		pages = append(pages, g...)
	}
	return pages
}

// Indices converts user-facing 1-indexed page numbers into 0-indexed page
// positions. Numbers outside [1, totalPages] are dropped; order and
// duplicates are kept.
func Indices(pageNumbers []int, totalPages int) []int {
	indices := make([]int, 0, len(pageNumbers))
	for _, n := range pageNumbers {
		if n >= 1 && n <= totalPages {
			indices = append(indices, n-1)
		}
	}
	return indices
}

// Complement returns every index in [0, totalPages) that is not in
// indices, in ascending order.
func Complement(indices []int, totalPages int) []int {
	drop := make(map[int]struct{}, len(indices))
	for _, i := range indices {
		drop[i] = struct{}{}
	}
	keep := make([]int, 0, totalPages)
	for i := 0; i < totalPages; i++ {
		if _, ok := drop[i]; !ok {
			keep = append(keep, i)
		}
	}
	return keep
}

func expandRange(token string, totalPages int) ([]int, error) {
	lo, hi, _ := strings.Cut(token, "-")
	start, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return nil, errInvalidStart
	}
	end, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return nil, errInvalidEnd
	}
	start = max(start, 1)
	end = min(end, totalPages)
	if start > end {
		return nil, nil
	}
	pages := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		pages = append(pages, p)
	}
	return pages, nil
}

func single(token string, totalPages int) ([]int, error) {
	n, err := strconv.Atoi(token)
	if err != nil {
		return nil, errNotANumber
	}
	if n < 1 || n > totalPages {
		return nil, nil
	}
	return []int{n}, nil
}

type parseError string

func (e parseError) Error() string { return string(e) }

const (
	errNotANumber   = parseError("not a page number")
	errInvalidStart = parseError("range start is not a number")
	errInvalidEnd   = parseError("range end is not a number")
)
