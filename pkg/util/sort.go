package util

import (
	"sort"
	"strings"
)

// Less reports whether a must be placed before b.
type Less func(a, b string) bool

// CaseInsensitiveDesc orders names descending, ignoring case. Names equal
// without case fall back to a plain descending comparison so the result does
// not depend on the stability of the sort.
func CaseInsensitiveDesc(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la != lb {
		return la > lb
	}

	return a > b
}

// SortStrings sorts names in place using less.
func SortStrings(names []string, less Less) {
	sort.SliceStable(names, func(i, j int) bool { return less(names[i], names[j]) })
}
