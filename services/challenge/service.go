package challenge

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"reelnight/internal/kvstore"
	"reelnight/models"
	"reelnight/utils/selection"
)

const activeKey = "active_challenge"

var (
	ErrStoreRequired        = errors.New("kv store not provided")
	ErrLibraryRequired      = errors.New("library service not provided")
	ErrChallengeActive      = errors.New("a challenge is already active")
	ErrNoActiveChallenge    = errors.New("no active challenge")
	ErrNoCandidates         = errors.New("no unwatched entries to choose from")
	ErrConfirmationRequired = errors.New("cancelling a challenge requires confirmation")
)

// entryLibrary is the slice of the library service the state machine needs.
type entryLibrary interface {
	Unwatched() []models.Entry
	Get(id string) (models.Entry, bool)
	CompleteChallenge(id string, rating int, review string) (models.ChallengeRecord, error)
	Records() []models.ChallengeRecord
}

// Service is the challenge state machine: idle, or holding the id of the one
// entry the couple has committed to watch next. The reference is persisted
// on every transition so a restart resumes the same challenge.
type Service struct {
	mu       sync.Mutex
	store    kvstore.Store
	library  entryLibrary
	activeID string
	rand     *rand.Rand
}

// NewService loads the persisted reference and drops it if it no longer
// points at a live unwatched entry (the entry may have been removed, or the
// completion may have been interrupted before the reference was cleared).
func NewService(store kvstore.Store, library entryLibrary) (*Service, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if library == nil {
		return nil, ErrLibraryRequired
	}

	svc := &Service{
		store:   store,
		library: library,
		rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	data, ok, err := store.Get(activeKey)
	if err != nil {
		return nil, fmt.Errorf("load active challenge: %w", err)
	}
	if ok && len(data) > 0 {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return nil, fmt.Errorf("decode active challenge: %w", err)
		}
		svc.activeID = id
	}

	if svc.activeID != "" {
		entry, found := library.Get(svc.activeID)
		if !found || entry.IsWatched {
			log.Printf("[challenge] dropping stale active challenge %s", svc.activeID)
			svc.activeID = ""
			if err := svc.persistActiveLocked(); err != nil {
				return nil, err
			}
		}
	}

	return svc, nil
}

func (s *Service) persistActiveLocked() error {
	if s.activeID == "" {
		if err := s.store.Remove(activeKey); err != nil {
			return fmt.Errorf("clear active challenge: %w", err)
		}
		return nil
	}

	data, err := json.Marshal(s.activeID)
	if err != nil {
		return fmt.Errorf("encode active challenge: %w", err)
	}
	if err := s.store.Set(activeKey, data); err != nil {
		return fmt.Errorf("persist active challenge: %w", err)
	}
	return nil
}

// Start designates one uniformly random unwatched entry as the active
// challenge. Only valid while idle and while at least one candidate exists.
func (s *Service) Start() (models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.healLocked()
	if s.activeID != "" {
		return models.Entry{}, ErrChallengeActive
	}

	pool := s.library.Unwatched()
	pick, ok := selection.Pick(pool, s.rand)
	if !ok {
		return models.Entry{}, ErrNoCandidates
	}

	s.activeID = pick.ID
	if err := s.persistActiveLocked(); err != nil {
		s.activeID = ""
		return models.Entry{}, err
	}

	log.Printf("[challenge] started challenge for %q", pick.Title)
	return pick, nil
}

// State reports the machine for API consumers: idle, or active with the
// designated entry embedded.
func (s *Service) State() models.ChallengeState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.healLocked()
	if s.activeID == "" {
		return models.ChallengeState{}
	}

	entry, _ := s.library.Get(s.activeID)
	return models.ChallengeState{Active: true, Entry: &entry}
}

// healLocked clears a reference whose entry no longer exists. Removal
// normally clears it through the library hook; this covers wholesale
// replacement via backup import.
func (s *Service) healLocked() {
	if s.activeID == "" {
		return
	}
	if _, ok := s.library.Get(s.activeID); ok {
		return
	}

	log.Printf("[challenge] active challenge %s no longer exists, clearing", s.activeID)
	s.activeID = ""
	if err := s.persistActiveLocked(); err != nil {
		log.Printf("[challenge] failed to clear stale active challenge: %v", err)
	}
}

// Cancel abandons the active challenge without creating a history record.
// The caller must pass an explicit confirmation.
func (s *Service) Cancel(confirm bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.healLocked()
	if s.activeID == "" {
		return ErrNoActiveChallenge
	}
	if !confirm {
		return ErrConfirmationRequired
	}

	previous := s.activeID
	s.activeID = ""
	if err := s.persistActiveLocked(); err != nil {
		s.activeID = previous
		return err
	}

	log.Printf("[challenge] challenge for %s cancelled", previous)
	return nil
}

// Complete turns the active challenge into a history record and marks the
// entry watched with the given rating, then returns the machine to idle.
// Record creation and the watched-state change happen in one library call so
// the snapshot is taken from pre-mutation state.
func (s *Service) Complete(rating int, review string) (models.ChallengeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.healLocked()
	if s.activeID == "" {
		return models.ChallengeRecord{}, ErrNoActiveChallenge
	}

	record, err := s.library.CompleteChallenge(s.activeID, rating, review)
	if err != nil {
		// The reference is kept so the completion can be retried.
		return models.ChallengeRecord{}, err
	}

	s.activeID = ""
	if err := s.persistActiveLocked(); err != nil {
		// The record and watched state are already durable; the stale
		// reference is dropped again on the next load.
		log.Printf("[challenge] completed but failed to clear active reference: %v", err)
	}

	log.Printf("[challenge] challenge for %q completed with rating %d", record.Title, rating)
	return record, nil
}

// History returns the completed-challenge records, most recent first.
func (s *Service) History() []models.ChallengeRecord {
	return s.library.Records()
}

// HandleEntryRemoved clears the active challenge when its target entry is
// deleted. No history record is created; the challenge simply evaporates.
func (s *Service) HandleEntryRemoved(entryID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeID != entryID {
		return
	}

	s.activeID = ""
	if err := s.persistActiveLocked(); err != nil {
		log.Printf("[challenge] failed to clear active challenge after entry removal: %v", err)
		return
	}
	log.Printf("[challenge] active challenge cleared, entry %s was removed", entryID)
}
