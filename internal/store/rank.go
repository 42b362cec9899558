package store

import (
	"errors"
	"strings"
)

// Pin ranks are lowercase base36 strings compared lexicographically.
const rankAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

var errNoRankSpace = errors.New("no space between ranks")

func rankDigit(c byte) (int, bool) {
	i := strings.IndexByte(rankAlphabet, c)
	return i, i >= 0
}

// RankBetween returns a rank strictly between a and b. Either bound may be
// empty, meaning unbounded on that side.
func RankBetween(a, b string) (string, error) {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a != "" && b != "" && a >= b {
		return "", errors.New("RankBetween requires a < b")
	}

	within := func(r string) bool {
		return r != "" && (a == "" || a < r) && (b == "" || r < b)
	}

	prefix := make([]byte, 0, 8)
	for i := 0; i < 256; i++ {
		lo, hi := 0, len(rankAlphabet)-1
		if i < len(a) {
			d, ok := rankDigit(a[i])
			if !ok {
				return "", errors.New("invalid rank character in a")
			}
			lo = d
		}
		if i < len(b) {
			d, ok := rankDigit(b[i])
			if !ok {
				return "", errors.New("invalid rank character in b")
			}
			hi = d
		}

		switch {
		case lo == hi:
			prefix = append(prefix, rankAlphabet[lo])
		case hi-lo > 1:
			r := string(append(prefix, rankAlphabet[lo+(hi-lo)/2]))
			if !within(r) {
				// b extends a by a run of zeros ("y" and "y0").
				return "", errNoRankSpace
			}
			return r, nil
		default:
			// Adjacent digits: keep a's digit and go above the rest of a.
			rest := ""
			if i+1 < len(a) {
				rest = a[i+1:]
			}
			tail, err := RankBetween(rest, "")
			if err != nil {
				return "", err
			}
			r := string(append(prefix, rankAlphabet[lo])) + tail
			if !within(r) {
				return "", errNoRankSpace
			}
			return r, nil
		}
	}
	return "", errors.New("unable to compute rank between")
}

func RankAfter(a string) (string, error) { return RankBetween(a, "") }
func RankInitial() (string, error)       { return RankBetween("", "") }
