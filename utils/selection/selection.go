// Package selection holds the pure list operations behind the watchlist
// views and decision games: partitioning, filtering, sorting, random
// picking, the elimination battle and rating statistics. Nothing in here
// mutates its input or touches shared state; randomness is always passed in
// by the caller.
package selection

import (
	"strings"

	"reelnight/models"
)

// FilterAll is the sentinel meaning "no filter" for a filter dimension.
const FilterAll = "ALL"

// Options narrows an entry list. Zero values (or FilterAll) leave the
// corresponding dimension unfiltered; set dimensions compose with AND.
type Options struct {
	Platform string
	Genre    string
}

func wantsAll(value string) bool {
	value = strings.TrimSpace(value)
	return value == "" || strings.EqualFold(value, FilterAll)
}

// Partition splits entries into watched and not-watched subsets, preserving
// relative order.
func Partition(entries []models.Entry) (watched, unwatched []models.Entry) {
	watched = make([]models.Entry, 0, len(entries))
	unwatched = make([]models.Entry, 0, len(entries))
	for _, e := range entries {
		if e.IsWatched {
			watched = append(watched, e)
		} else {
			unwatched = append(unwatched, e)
		}
	}
	return watched, unwatched
}

// Filter returns the entries matching every set dimension of opts: exact
// platform match and genre-list membership.
func Filter(entries []models.Entry, opts Options) []models.Entry {
	filterPlatform := !wantsAll(opts.Platform)
	filterGenre := !wantsAll(opts.Genre)
	if !filterPlatform && !filterGenre {
		return append([]models.Entry(nil), entries...)
	}

	out := make([]models.Entry, 0, len(entries))
	for _, e := range entries {
		if filterPlatform && string(e.Platform) != opts.Platform {
			continue
		}
		if filterGenre && !e.HasGenre(opts.Genre) {
			continue
		}
		out = append(out, e)
	}
	return out
}
