package store

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

const threadIDPrefix = "thr"

// newThreadID returns thr-<ulid>, lowercased. ULIDs sort by creation time,
// which gives a stable tie-break for threads touched in the same millisecond.
func newThreadID() string {
	return threadIDPrefix + "-" + strings.ToLower(ulid.Make().String())
}

// IsThreadID reports whether s has the shape produced by newThreadID.
func IsThreadID(s string) bool {
	rest, ok := strings.CutPrefix(s, threadIDPrefix+"-")
	if !ok {
		return false
	}
	_, err := ulid.ParseStrict(strings.ToUpper(rest))
	return err == nil
}
