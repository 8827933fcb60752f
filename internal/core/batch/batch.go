// Package batch partitions an ordered class list into contiguous query spans
// and stitches per span results back into one positionally aligned slice
package batch

import "math"

// Unbounded means a single span covers the whole list
const Unbounded = math.MaxInt

// Span is a half-open [Begin, End) range over the class list
type Span struct {
	Begin int
	End   int
}

// Len returns the number of items in the span
func (s Span) Len() int { return s.End - s.Begin }

// Plan splits n items into contiguous spans of at most size items, in order
// size <= 0 is treated as Unbounded
func Plan(n, size int) []Span {
	if n <= 0 {
		return nil
	}
	if size <= 0 {
		size = Unbounded
	}
	out := make([]Span, 0, (n-1)/min(size, n)+1)
	for begin := 0; begin < n; {
		end := n
		if n-begin > size {
			end = begin + size
		}
		out = append(out, Span{Begin: begin, End: end})
		begin = end
	}
	return out
}

// Slice returns the span's view of xs
func Slice[T any](xs []T, s Span) []T { return xs[s.Begin:s.End] }

// Concat joins chunks in order; a single chunk is returned as is
func Concat(chunks [][]int64) []int64 {
	switch len(chunks) {
	case 0:
		return []int64{}
	case 1:
		return chunks[0]
	}
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	out := make([]int64, 0, total)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}
