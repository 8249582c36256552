package models

// Backup is the export/import document: the full entry list plus the
// completed-challenge history.
type Backup struct {
	Movies     []Entry           `json:"movies"`
	Challenges []ChallengeRecord `json:"challenges"`
}
