package models

// Candidate is a provider search or suggestion result, the shape new entries
// are created from.
type Candidate struct {
	ExternalID  string   `json:"externalId,omitempty"`
	Title       string   `json:"title"`
	Year        string   `json:"year"`
	Genres      []string `json:"genres"`
	Description string   `json:"description,omitempty"`
	Image       string   `json:"image,omitempty"`
}
