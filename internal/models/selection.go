package models

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxSelectedItems caps how many items one selection may name once its ranges are expanded.
const MaxSelectedItems = 10000

// ItemSelection is an ordered set of 0-based playlist item indices. A nil selection means every item.
type ItemSelection []int

// All reports whether the selection covers every item.
func (s ItemSelection) All() bool {
	return len(s) == 0
}

// EngineArg renders the selection in the engine's 1-based comma syntax ("1,3,4").
//
// Returns "" for an all-items selection.
func (s ItemSelection) EngineArg() string {
	if s.All() {
		return ""
	}

	parts := make([]string, 0, len(s))
	for _, idx := range s.normalized() {
		parts = append(parts, strconv.Itoa(idx+1))
	}
	return strings.Join(parts, ",")
}

// String renders the selection for display, using the 1-based numbering users type.
func (s ItemSelection) String() string {
	if s.All() {
		return "all"
	}
	return s.EngineArg()
}

// normalized returns the non-negative indices in their original order, keeping the first of any duplicates.
func (s ItemSelection) normalized() []int {
	seen := make(map[int]bool, len(s))
	out := make([]int, 0, len(s))
	for _, idx := range s {
		if idx < 0 || seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, idx)
	}
	return out
}

// ParseItemSelection parses the 1-based selection syntax users type ("1,3,5-7" or "all").
//
// The result is 0-based and keeps the order items were typed in. Empty input and "all" yield a nil selection.
// Selections naming more than [MaxSelectedItems] items are rejected before any range is expanded.
func ParseItemSelection(raw string) (ItemSelection, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "all") {
		return nil, nil
	}

	var (
		sel   ItemSelection
		count int
	)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		lo, hi, isRange := strings.Cut(part, "-")
		start, err := parseItemNumber(lo)
		if err != nil {
			return nil, err
		}
		end := start
		if isRange {
			if end, err = parseItemNumber(hi); err != nil {
				return nil, err
			}
			if end < start {
				return nil, fmt.Errorf("invalid item range %q", part)
			}
		}

		if end-start+1 > MaxSelectedItems-count {
			return nil, fmt.Errorf("item selection %q names more than %d items", raw, MaxSelectedItems)
		}
		count += end - start + 1

		for n := start; n <= end; n++ {
			sel = append(sel, n-1)
		}
	}

	sel = sel.normalized()
	if len(sel) == 0 {
		return nil, nil
	}
	return sel, nil
}

func parseItemNumber(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid item number %q: items are numbered from 1", s)
	}
	return n, nil
}
