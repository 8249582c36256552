package models

import "time"

// Platform identifies where a movie is available to watch.
type Platform string

const (
	PlatformNetflix Platform = "netflix"
	PlatformPrime   Platform = "prime"
	PlatformDisney  Platform = "disney"
	PlatformHBO     Platform = "hbo"
	PlatformHulu    Platform = "hulu"
	PlatformApple   Platform = "apple"
	PlatformCinema  Platform = "cinema"
	PlatformOther   Platform = "other"
)

// Platforms returns the full fixed set in display order.
func Platforms() []Platform {
	return []Platform{
		PlatformNetflix,
		PlatformPrime,
		PlatformDisney,
		PlatformHBO,
		PlatformHulu,
		PlatformApple,
		PlatformCinema,
		PlatformOther,
	}
}

// Valid reports whether p is empty or one of the fixed platform values.
func (p Platform) Valid() bool {
	if p == "" {
		return true
	}
	for _, known := range Platforms() {
		if p == known {
			return true
		}
	}
	return false
}

// PickedBy records which partner queued the movie. It is a three-valued
// field: unset, partner1 or partner2.
type PickedBy string

const (
	PickedByNone     PickedBy = ""
	PickedByPartner1 PickedBy = "partner1"
	PickedByPartner2 PickedBy = "partner2"
)

// Next advances the toggle one step in its cycle: unset -> partner1 ->
// partner2 -> unset.
func (p PickedBy) Next() PickedBy {
	switch p {
	case PickedByNone:
		return PickedByPartner1
	case PickedByPartner1:
		return PickedByPartner2
	default:
		return PickedByNone
	}
}

// Valid reports whether p is one of the three recognized values.
func (p PickedBy) Valid() bool {
	switch p {
	case PickedByNone, PickedByPartner1, PickedByPartner2:
		return true
	}
	return false
}

// Entry is a tracked movie, queued or already watched.
type Entry struct {
	ID          string     `json:"id"`
	ExternalID  string     `json:"externalId,omitempty"` // provider id, used to de-duplicate suggestions
	Title       string     `json:"title"`
	Year        string     `json:"year"` // provider string, may be "N/A"
	Genres      []string   `json:"genres"`
	Description string     `json:"description,omitempty"`
	Image       string     `json:"image,omitempty"` // absolute URL or provider-relative path
	IsWatched   bool       `json:"isWatched"`
	Rating      int        `json:"rating,omitempty"` // 1-5, only meaningful when watched
	UserReview  string     `json:"userReview,omitempty"`
	WatchedAt   *time.Time `json:"watchedAt,omitempty"`
	AddedAt     time.Time  `json:"addedAt"`
	Platform    Platform   `json:"platform,omitempty"`
	PickedBy    PickedBy   `json:"pickedBy,omitempty"`
	Tags        []string   `json:"tags"`
}

// HasGenre reports whether the entry's genre list contains genre exactly.
func (e Entry) HasGenre(genre string) bool {
	for _, g := range e.Genres {
		if g == genre {
			return true
		}
	}
	return false
}

// EntryUpdate captures a partial edit of an entry. Nil fields are left
// untouched by the merge.
type EntryUpdate struct {
	Title       *string   `json:"title,omitempty"`
	Year        *string   `json:"year,omitempty"`
	Genres      *[]string `json:"genres,omitempty"`
	Description *string   `json:"description,omitempty"`
	Image       *string   `json:"image,omitempty"`
	Rating      *int      `json:"rating,omitempty"`
	UserReview  *string   `json:"userReview,omitempty"`
	Platform    *Platform `json:"platform,omitempty"`
	PickedBy    *PickedBy `json:"pickedBy,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
}
