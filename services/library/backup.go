package library

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"reelnight/models"
)

var ErrInvalidBackup = errors.New("unrecognized backup format")

// ParseBackup decodes an uploaded backup. Two shapes are accepted: the
// current export document with a movies field (challenges optional), and the
// legacy export that was a bare entry array. Anything else is a format
// error.
func ParseBackup(data []byte) (models.Backup, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return models.Backup{}, fmt.Errorf("%w: empty document", ErrInvalidBackup)
	}

	switch trimmed[0] {
	case '[':
		var movies []models.Entry
		if err := json.Unmarshal(trimmed, &movies); err != nil {
			return models.Backup{}, fmt.Errorf("%w: decode movie list: %v", ErrInvalidBackup, err)
		}
		return models.Backup{
			Movies:     normalizeEntries(movies),
			Challenges: []models.ChallengeRecord{},
		}, nil
	case '{':
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return models.Backup{}, fmt.Errorf("%w: decode document: %v", ErrInvalidBackup, err)
		}

		moviesRaw, ok := raw["movies"]
		if !ok {
			return models.Backup{}, fmt.Errorf("%w: missing movies field", ErrInvalidBackup)
		}
		var movies []models.Entry
		if err := json.Unmarshal(moviesRaw, &movies); err != nil {
			return models.Backup{}, fmt.Errorf("%w: decode movies field: %v", ErrInvalidBackup, err)
		}

		challenges := []models.ChallengeRecord{}
		if challengesRaw, ok := raw["challenges"]; ok {
			if err := json.Unmarshal(challengesRaw, &challenges); err != nil {
				return models.Backup{}, fmt.Errorf("%w: decode challenges field: %v", ErrInvalidBackup, err)
			}
		}

		return models.Backup{
			Movies:     normalizeEntries(movies),
			Challenges: challenges,
		}, nil
	default:
		return models.Backup{}, fmt.Errorf("%w: expected an object or array", ErrInvalidBackup)
	}
}

// Restore wholesale-replaces both lists with the backup's contents and
// persists them. On a persistence failure the previous in-memory state is
// restored.
func (s *Service) Restore(backup models.Backup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevEntries := s.entries
	prevRecords := s.records

	s.entries = normalizeEntries(backup.Movies)
	s.records = backup.Challenges
	if s.records == nil {
		s.records = []models.ChallengeRecord{}
	}

	if err := s.saveEntriesLocked(); err != nil {
		s.entries = prevEntries
		s.records = prevRecords
		return err
	}
	if err := s.saveRecordsLocked(); err != nil {
		s.entries = prevEntries
		s.records = prevRecords
		if rerr := s.saveEntriesLocked(); rerr != nil {
			log.Printf("[library] failed to restore movies after history persist error: %v", rerr)
		}
		return err
	}

	log.Printf("[library] restored backup with %d movie(s) and %d challenge record(s)", len(s.entries), len(s.records))
	return nil
}

// ExportBackup returns both lists as one document plus a suggested download
// filename carrying the generation timestamp.
func (s *Service) ExportBackup() (models.Backup, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	backup := models.Backup{
		Movies:     append([]models.Entry(nil), s.entries...),
		Challenges: append([]models.ChallengeRecord(nil), s.records...),
	}

	filename := fmt.Sprintf("reelnight-backup-%s.json", time.Now().UTC().Format("20060102-150405"))
	return backup, filename
}
