package selection

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"reelnight/models"
)

// SortMode names one of the supported orderings.
type SortMode string

const (
	SortNewest   SortMode = "newest" // addedAt descending, the watchlist default
	SortOldest   SortMode = "oldest"
	SortTitle    SortMode = "title" // locale-aware ascending
	SortYearDesc SortMode = "yearDesc"
	SortYearAsc  SortMode = "yearAsc"
	SortRating   SortMode = "rating"  // rating descending, rated views only
	SortWatched  SortMode = "watched" // watchedAt descending, the rated default
)

// parseYear extracts the leading digit run of a year string. Provider years
// are not always numeric ("N/A", "2010-2015"), so the ok result drives the
// documented tie-break: unparsable years sort after all parsable ones.
func parseYear(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	year, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return year, true
}

// SortWatchlist returns a sorted copy of entries. Unknown modes fall back to
// SortNewest.
func SortWatchlist(entries []models.Entry, mode SortMode) []models.Entry {
	out := append([]models.Entry(nil), entries...)

	switch mode {
	case SortOldest:
		sort.Slice(out, func(i, j int) bool {
			if out[i].AddedAt.Equal(out[j].AddedAt) {
				return out[i].ID < out[j].ID
			}
			return out[i].AddedAt.Before(out[j].AddedAt)
		})
	case SortTitle:
		c := collate.New(language.English, collate.IgnoreCase)
		sort.Slice(out, func(i, j int) bool {
			if cmp := c.CompareString(out[i].Title, out[j].Title); cmp != 0 {
				return cmp < 0
			}
			return out[i].ID < out[j].ID
		})
	case SortYearDesc:
		sortByYear(out, true)
	case SortYearAsc:
		sortByYear(out, false)
	default:
		sort.Slice(out, func(i, j int) bool {
			if out[i].AddedAt.Equal(out[j].AddedAt) {
				return out[i].ID < out[j].ID
			}
			return out[i].AddedAt.After(out[j].AddedAt)
		})
	}

	return out
}

// SortRated returns a sorted copy of entries using the rated-view modes.
// Unknown modes fall back to SortWatched.
func SortRated(entries []models.Entry, mode SortMode) []models.Entry {
	switch mode {
	case SortRating:
		out := append([]models.Entry(nil), entries...)
		sort.Slice(out, func(i, j int) bool {
			if out[i].Rating != out[j].Rating {
				return out[i].Rating > out[j].Rating
			}
			return laterWatched(out[i], out[j])
		})
		return out
	case SortNewest, SortOldest, SortTitle, SortYearDesc, SortYearAsc:
		return SortWatchlist(entries, mode)
	default:
		out := append([]models.Entry(nil), entries...)
		sort.Slice(out, func(i, j int) bool {
			return laterWatched(out[i], out[j])
		})
		return out
	}
}

// laterWatched orders by watchedAt descending, entries without a watch
// timestamp last, ids as the final tie-break.
func laterWatched(a, b models.Entry) bool {
	switch {
	case a.WatchedAt == nil && b.WatchedAt == nil:
		return a.ID < b.ID
	case a.WatchedAt == nil:
		return false
	case b.WatchedAt == nil:
		return true
	case a.WatchedAt.Equal(*b.WatchedAt):
		return a.ID < b.ID
	default:
		return a.WatchedAt.After(*b.WatchedAt)
	}
}

func sortByYear(entries []models.Entry, descending bool) {
	sort.Slice(entries, func(i, j int) bool {
		yi, oki := parseYear(entries[i].Year)
		yj, okj := parseYear(entries[j].Year)
		switch {
		case oki && okj:
			if yi != yj {
				if descending {
					return yi > yj
				}
				return yi < yj
			}
			return entries[i].Title < entries[j].Title
		case oki:
			return true
		case okj:
			return false
		default:
			return entries[i].Title < entries[j].Title
		}
	})
}
