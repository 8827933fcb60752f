// Package classfilter matches class names against a user filter
// Both sides are folded the same way
// 1 Unicode NFKC normalization
// 2 Case folding
// 3 Width fold fullwidth to ASCII
// 4 Trim surrounding whitespace
package classfilter

import (
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(norm.NFKC, cases.Fold(), width.Fold)
	},
}

// Fold returns the comparison form of s
func Fold(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	tr := chainPool.Get().(transform.Transformer)
	out, _, err := transform.String(tr, strings.ToValidUTF8(s, ""))
	tr.Reset()
	chainPool.Put(tr)
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

// Matcher reports whether a class name passes the filter
// the zero value matches everything
type Matcher struct {
	needle string
}

// New compiles pattern into a Matcher; an empty pattern matches everything
func New(pattern string) Matcher { return Matcher{needle: Fold(pattern)} }

// Empty reports whether the matcher accepts every name
func (m Matcher) Empty() bool { return m.needle == "" }

// Match reports whether name contains the filter after folding
func (m Matcher) Match(name string) bool {
	if m.needle == "" {
		return true
	}
	return strings.Contains(Fold(name), m.needle)
}
