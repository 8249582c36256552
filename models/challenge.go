package models

import "time"

// ChallengeRecord is the historical proof of a completed watch challenge.
// Title and image are snapshots taken at completion time so the record
// survives later edits or deletion of the entry itself.
type ChallengeRecord struct {
	ID          string    `json:"id"`
	MovieID     string    `json:"movieId"`
	Title       string    `json:"title"`
	Image       string    `json:"image,omitempty"`
	CompletedAt time.Time `json:"completedAt"`
	RatingGiven int       `json:"ratingGiven"`
}

// ChallengeState describes the challenge machine for API consumers: either
// idle (Entry nil) or active with the designated entry embedded.
type ChallengeState struct {
	Active bool   `json:"active"`
	Entry  *Entry `json:"entry,omitempty"`
}
