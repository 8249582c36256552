package selection

import "reelnight/models"

// HistogramBucket is one rating's share of the watched entries.
type HistogramBucket struct {
	Rating int `json:"rating"`
	Count  int `json:"count"`
}

// Histogram counts watched entries per rating, reported from 5 stars down
// to 1. Only ratings inside the closed 1..5 range are counted.
func Histogram(entries []models.Entry) []HistogramBucket {
	var counts [6]int
	for _, e := range entries {
		if e.IsWatched && e.Rating >= 1 && e.Rating <= 5 {
			counts[e.Rating]++
		}
	}

	buckets := make([]HistogramBucket, 0, 5)
	for rating := 5; rating >= 1; rating-- {
		buckets = append(buckets, HistogramBucket{Rating: rating, Count: counts[rating]})
	}
	return buckets
}

// AverageRating is the mean rating across all watched entries. Watched
// entries without a rating count as zero contributions rather than being
// excluded, and an empty watched set yields exactly 0.
func AverageRating(entries []models.Entry) float64 {
	sum := 0
	watched := 0
	for _, e := range entries {
		if !e.IsWatched {
			continue
		}
		watched++
		if e.Rating >= 1 && e.Rating <= 5 {
			sum += e.Rating
		}
	}
	if watched == 0 {
		return 0
	}
	return float64(sum) / float64(watched)
}
