package opt

// Feasible reports whether appending candidate to partial keeps the sequence on
// a path that can still satisfy the dwell rules. Sites are identified by their
// index. The checks run in order:
//
//  1. candidate already occupies MaxOccupancy days anywhere in partial: reject
//  2. partial is empty: accept
//  3. fewer than MinConsecutive days fixed: accept only the last site
//  4. staying at the last site: accept
//  5. changing site: accept only if the last MinConsecutive days are one site
//
// A MinConsecutive below 1 is treated as 1.
func Feasible(p Params, candidate int, partial []int) bool {
	count := 0
	for _, s := range partial {
		if s == candidate {
			count++
		}
	}
	if count >= p.MaxOccupancy {
		return false
	}

	n := len(partial)
	if n == 0 {
		return true
	}
	dwell := max(p.MinConsecutive, 1)
	last := partial[n-1]
	if n < dwell {
		return candidate == last
	}
	if candidate == last {
		return true
	}
	for _, s := range partial[n-dwell:] {
		if s != last {
			return false
		}
	}
	return true
}
