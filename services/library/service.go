package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"reelnight/internal/kvstore"
	"reelnight/models"
	"reelnight/utils/selection"
)

const (
	moviesKey     = "movies"
	challengesKey = "challenges"
)

var (
	ErrStoreRequired   = errors.New("kv store not provided")
	ErrTitleRequired   = errors.New("title is required")
	ErrEntryNotFound   = errors.New("entry not found")
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
	ErrInvalidPlatform = errors.New("unknown platform")
	ErrInvalidPickedBy = errors.New("unknown pickedBy value")
)

// challengeNotifier lets the service tell the challenge machine that an
// entry disappeared, without depending on the challenge package.
type challengeNotifier interface {
	HandleEntryRemoved(entryID string)
}

// Service owns the movie entry list and the completed-challenge history.
// Entries are kept most-recent-first; every mutation writes the full list
// back to the KV store before returning.
type Service struct {
	mu       sync.RWMutex
	store    kvstore.Store
	entries  []models.Entry
	records  []models.ChallengeRecord
	notifier challengeNotifier
}

// NewService loads both lists from the store, tolerating missing keys.
func NewService(store kvstore.Store) (*Service, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}

	svc := &Service{store: store}
	if err := svc.load(); err != nil {
		return nil, err
	}
	return svc, nil
}

// SetChallengeNotifier wires the challenge machine's removal hook.
func (s *Service) SetChallengeNotifier(n challengeNotifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifier = n
}

func (s *Service) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok, err := s.store.Get(moviesKey)
	if err != nil {
		return fmt.Errorf("load movies: %w", err)
	}
	s.entries = []models.Entry{}
	if ok && len(data) > 0 {
		var entries []models.Entry
		if err := json.Unmarshal(data, &entries); err == nil {
			s.entries = normalizeEntries(entries)
		} else {
			// Older data directories held a full backup document under
			// this key.
			var backup models.Backup
			if err := json.Unmarshal(data, &backup); err != nil {
				return fmt.Errorf("decode movies: %w", err)
			}
			s.entries = normalizeEntries(backup.Movies)
		}
	}

	data, ok, err = s.store.Get(challengesKey)
	if err != nil {
		return fmt.Errorf("load challenge history: %w", err)
	}
	s.records = []models.ChallengeRecord{}
	if ok && len(data) > 0 {
		var records []models.ChallengeRecord
		if err := json.Unmarshal(data, &records); err != nil {
			return fmt.Errorf("decode challenge history: %w", err)
		}
		s.records = records
	}

	return nil
}

func normalizeEntries(entries []models.Entry) []models.Entry {
	out := make([]models.Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, normalizeEntry(e))
	}
	return out
}

func normalizeEntry(e models.Entry) models.Entry {
	if e.Genres == nil {
		e.Genres = []string{}
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}
	return e
}

func (s *Service) saveEntriesLocked() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode movies: %w", err)
	}
	if err := s.store.Set(moviesKey, data); err != nil {
		return fmt.Errorf("persist movies: %w", err)
	}
	return nil
}

func (s *Service) saveRecordsLocked() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode challenge history: %w", err)
	}
	if err := s.store.Set(challengesKey, data); err != nil {
		return fmt.Errorf("persist challenge history: %w", err)
	}
	return nil
}

// Create adds a new unwatched entry built from the candidate at the front of
// the list and returns it.
func (s *Service) Create(candidate models.Candidate) (models.Entry, error) {
	title := strings.TrimSpace(candidate.Title)
	if title == "" {
		return models.Entry{}, ErrTitleRequired
	}

	entry := normalizeEntry(models.Entry{
		ID:          uuid.NewString(),
		ExternalID:  strings.TrimSpace(candidate.ExternalID),
		Title:       title,
		Year:        strings.TrimSpace(candidate.Year),
		Genres:      append([]string(nil), candidate.Genres...),
		Description: candidate.Description,
		Image:       strings.TrimSpace(candidate.Image),
		AddedAt:     time.Now().UTC(),
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.entries
	s.entries = append([]models.Entry{entry}, s.entries...)
	if err := s.saveEntriesLocked(); err != nil {
		s.entries = prev
		return models.Entry{}, err
	}

	return entry, nil
}

// Update merges the non-nil fields of upd into the entry with the given id.
func (s *Service) Update(id string, upd models.EntryUpdate) (models.Entry, error) {
	if upd.Title != nil && strings.TrimSpace(*upd.Title) == "" {
		return models.Entry{}, ErrTitleRequired
	}
	if upd.Rating != nil && (*upd.Rating < 1 || *upd.Rating > 5) {
		return models.Entry{}, ErrInvalidRating
	}
	if upd.Platform != nil && !upd.Platform.Valid() {
		return models.Entry{}, ErrInvalidPlatform
	}
	if upd.PickedBy != nil && !upd.PickedBy.Valid() {
		return models.Entry{}, ErrInvalidPickedBy
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return models.Entry{}, ErrEntryNotFound
	}

	entry := s.entries[idx]
	if upd.Title != nil {
		entry.Title = strings.TrimSpace(*upd.Title)
	}
	if upd.Year != nil {
		entry.Year = strings.TrimSpace(*upd.Year)
	}
	if upd.Genres != nil {
		entry.Genres = append([]string(nil), (*upd.Genres)...)
	}
	if upd.Description != nil {
		entry.Description = *upd.Description
	}
	if upd.Image != nil {
		entry.Image = strings.TrimSpace(*upd.Image)
	}
	if upd.Rating != nil {
		entry.Rating = *upd.Rating
	}
	if upd.UserReview != nil {
		entry.UserReview = *upd.UserReview
	}
	if upd.Platform != nil {
		entry.Platform = *upd.Platform
	}
	if upd.PickedBy != nil {
		entry.PickedBy = *upd.PickedBy
	}
	if upd.Tags != nil {
		entry.Tags = append([]string(nil), (*upd.Tags)...)
	}
	entry = normalizeEntry(entry)

	prev := s.entries
	next := append([]models.Entry(nil), s.entries...)
	next[idx] = entry
	s.entries = next
	if err := s.saveEntriesLocked(); err != nil {
		s.entries = prev
		return models.Entry{}, err
	}

	return entry, nil
}

// Remove deletes the entry with the given id, preserving list order, and
// reports whether anything was deleted. The challenge machine is notified
// afterwards so an active challenge pointing at the entry gets cleared.
func (s *Service) Remove(id string) (bool, error) {
	removed, notifier, err := s.removeEntry(id)
	if err != nil || !removed {
		return removed, err
	}

	if notifier != nil {
		notifier.HandleEntryRemoved(id)
	}
	return true, nil
}

func (s *Service) removeEntry(id string) (bool, challengeNotifier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return false, nil, nil
	}

	prev := s.entries
	next := make([]models.Entry, 0, len(s.entries)-1)
	next = append(next, s.entries[:idx]...)
	next = append(next, s.entries[idx+1:]...)
	s.entries = next
	if err := s.saveEntriesLocked(); err != nil {
		s.entries = prev
		return false, nil, err
	}

	return true, s.notifier, nil
}

// MarkWatched flips the entry to watched with the given rating and review.
func (s *Service) MarkWatched(id string, rating int, review string) (models.Entry, error) {
	if rating < 1 || rating > 5 {
		return models.Entry{}, ErrInvalidRating
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markWatchedLocked(id, rating, review)
}

func (s *Service) markWatchedLocked(id string, rating int, review string) (models.Entry, error) {
	idx := s.indexLocked(id)
	if idx < 0 {
		return models.Entry{}, ErrEntryNotFound
	}

	now := time.Now().UTC()
	entry := s.entries[idx]
	entry.IsWatched = true
	entry.Rating = rating
	entry.UserReview = review
	entry.WatchedAt = &now

	prev := s.entries
	next := append([]models.Entry(nil), s.entries...)
	next[idx] = entry
	s.entries = next
	if err := s.saveEntriesLocked(); err != nil {
		s.entries = prev
		return models.Entry{}, err
	}

	return entry, nil
}

// CyclePickedBy advances the entry's pickedBy toggle one step.
func (s *Service) CyclePickedBy(id string) (models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return models.Entry{}, ErrEntryNotFound
	}

	entry := s.entries[idx]
	entry.PickedBy = entry.PickedBy.Next()

	prev := s.entries
	next := append([]models.Entry(nil), s.entries...)
	next[idx] = entry
	s.entries = next
	if err := s.saveEntriesLocked(); err != nil {
		s.entries = prev
		return models.Entry{}, err
	}

	return entry, nil
}

// CompleteChallenge records a finished challenge for the entry and marks it
// watched in the same critical section. The record snapshots the entry's
// title and image before the watched-state mutation, so a later edit or
// removal never rewrites history.
func (s *Service) CompleteChallenge(id string, rating int, review string) (models.ChallengeRecord, error) {
	if rating < 1 || rating > 5 {
		return models.ChallengeRecord{}, ErrInvalidRating
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return models.ChallengeRecord{}, ErrEntryNotFound
	}

	record := models.ChallengeRecord{
		ID:          uuid.NewString(),
		MovieID:     id,
		Title:       s.entries[idx].Title,
		Image:       s.entries[idx].Image,
		CompletedAt: time.Now().UTC(),
		RatingGiven: rating,
	}

	prevEntries := s.entries
	prevRecords := s.records

	if _, err := s.markWatchedLocked(id, rating, review); err != nil {
		return models.ChallengeRecord{}, err
	}

	s.records = append([]models.ChallengeRecord{record}, s.records...)
	if err := s.saveRecordsLocked(); err != nil {
		s.entries = prevEntries
		s.records = prevRecords
		if rerr := s.saveEntriesLocked(); rerr != nil {
			log.Printf("[library] failed to restore movies after history persist error: %v", rerr)
		}
		return models.ChallengeRecord{}, err
	}

	return record, nil
}

// Get returns the entry with the given id.
func (s *Service) Get(id string) (models.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return models.Entry{}, false
	}
	return s.entries[idx], true
}

// Entries returns a snapshot of the full list, most recent first.
func (s *Service) Entries() []models.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Entry(nil), s.entries...)
}

// Unwatched returns a snapshot of the entries not yet watched.
func (s *Service) Unwatched() []models.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, unwatched := selection.Partition(s.entries)
	return unwatched
}

// Records returns the challenge history, most recent first.
func (s *Service) Records() []models.ChallengeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.ChallengeRecord(nil), s.records...)
}

// Genres returns the distinct genres across all entries, sorted.
func (s *Service) Genres() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	genres := make([]string, 0)
	for _, e := range s.entries {
		for _, g := range e.Genres {
			g = strings.TrimSpace(g)
			if g == "" {
				continue
			}
			if _, ok := seen[g]; ok {
				continue
			}
			seen[g] = struct{}{}
			genres = append(genres, g)
		}
	}

	sort.Strings(genres)
	return genres
}

func (s *Service) indexLocked(id string) int {
	for i, e := range s.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}
