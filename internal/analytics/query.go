// Package analytics implements a representative slice of the read-only
// analytics endpoints: handlers that turn query parameters into an SQL
// string plus a row-decoding struct against the analytics store, and a
// few that go through the coordinator proxy instead (leaderboard, active
// matches). The full endpoint surface is much larger than what's built
// here; these stand in for the shape every one of them takes.
package analytics

import (
	"fmt"
	"strings"
)

// filterSet accumulates "AND"-joined SQL predicates built from optional
// query parameters, in the order they were added.
type filterSet struct {
	clauses []string
}

func (f *filterSet) add(clause string) {
	f.clauses = append(f.clauses, clause)
}

func (f *filterSet) addUint64(ptr *uint64, format string) {
	if ptr != nil {
		f.add(fmt.Sprintf(format, *ptr))
	}
}

// render joins the accumulated clauses with " AND ", prefixed with the
// given SQL keyword (normally "AND" or "WHERE"), or returns an empty
// string if there are none.
func (f *filterSet) render(prefix string) string {
	if len(f.clauses) == 0 {
		return ""
	}
	return " " + prefix + " " + strings.Join(f.clauses, " AND ")
}

// joined returns the accumulated clauses AND-joined with no prefix, or
// "TRUE" if there are none (a neutral predicate for a HAVING clause).
func (f *filterSet) joined() string {
	if len(f.clauses) == 0 {
		return "TRUE"
	}
	return strings.Join(f.clauses, " AND ")
}
