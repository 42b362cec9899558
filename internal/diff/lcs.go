package diff

// keptInOrder returns the elements of a longest common subsequence of a and
// b. Both inputs must hold distinct elements.
//
// Elements for which fixed reports true are always part of the result; the
// caller guarantees they are in the same relative order in a and b. Among
// the remaining choices the longest subsequence wins, and on ties the
// earlier element of a is dropped, so for a=[A,B], b=[B,A] the result keeps
// B. A nil fixed treats every element alike.
//
// Common prefix and suffix are matched directly; the quadratic table only
// covers the middle, which is small for typical edits.
func keptInOrder[T comparable](a, b []T, fixed func(T) bool) map[T]bool {
	kept := make(map[T]bool, min(len(a), len(b)))

	lo := 0
	for lo < len(a) && lo < len(b) && a[lo] == b[lo] {
		kept[a[lo]] = true
		lo++
	}
	ha, hb := len(a), len(b)
	for ha > lo && hb > lo && a[ha-1] == b[hb-1] {
		kept[a[ha-1]] = true
		ha--
		hb--
	}

	ma, mb := a[lo:ha], b[lo:hb]
	if len(ma) == 0 || len(mb) == 0 {
		return kept
	}

	// A fixed element outweighs any number of ordinary ones.
	heavy := len(ma) + 1
	weight := func(v T) int {
		if fixed != nil && fixed(v) {
			return heavy
		}
		return 1
	}

	// dp[i][j] = best weight of a common subsequence of ma[i:] and mb[j:].
	w := len(mb) + 1
	dp := make([]int, (len(ma)+1)*w)
	for i := len(ma) - 1; i >= 0; i-- {
		for j := len(mb) - 1; j >= 0; j-- {
			if ma[i] == mb[j] {
				dp[i*w+j] = dp[(i+1)*w+j+1] + weight(ma[i])
			} else if dp[(i+1)*w+j] >= dp[i*w+j+1] {
				dp[i*w+j] = dp[(i+1)*w+j]
			} else {
				dp[i*w+j] = dp[i*w+j+1]
			}
		}
	}

	i, j := 0, 0
	for i < len(ma) && j < len(mb) {
		switch {
		case ma[i] == mb[j]:
			kept[ma[i]] = true
			i++
			j++
		case dp[(i+1)*w+j] >= dp[i*w+j+1]:
			i++
		default:
			j++
		}
	}
	return kept
}
