// Package games runs the decision minigames played over the unwatched pool:
// a one-shot random pick and an elimination battle. Sessions are ephemeral,
// nothing here touches the store.
package games

import (
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"reelnight/models"
	"reelnight/utils/selection"
)

var (
	ErrLibraryRequired = errors.New("library is required")
	ErrNoCandidates    = errors.New("no unwatched entries match the filters")
	ErrNoBattle        = errors.New("no battle in progress")
)

type entryLibrary interface {
	Unwatched() []models.Entry
}

// BattleState is a snapshot of the running tournament. Champion is set only
// on the final state.
type BattleState struct {
	Pair      [2]models.Entry `json:"pair"`
	Remaining int             `json:"remaining"`
	Finished  bool            `json:"finished"`
	Champion  *models.Entry   `json:"champion,omitempty"`
}

type Service struct {
	mu      sync.Mutex
	library entryLibrary
	battle  *selection.Battle
	rand    *rand.Rand
}

func NewService(library entryLibrary) (*Service, error) {
	if library == nil {
		return nil, ErrLibraryRequired
	}
	return &Service{
		library: library,
		rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

func (s *Service) pool(opts selection.Options) []models.Entry {
	return selection.Filter(s.library.Unwatched(), opts)
}

// RandomPick draws one uniformly random entry from the filtered unwatched
// pool.
func (s *Service) RandomPick(opts selection.Options) (models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := selection.Pick(s.pool(opts), s.rand)
	if !ok {
		return models.Entry{}, ErrNoCandidates
	}
	return entry, nil
}

// StartBattle opens an elimination tournament over the filtered unwatched
// pool. A battle already in progress is replaced.
func (s *Service) StartBattle(opts selection.Options) (BattleState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pool := s.pool(opts)
	battle, err := selection.NewBattle(pool, s.rand)
	if err != nil {
		return BattleState{}, err
	}
	s.battle = battle
	log.Printf("[games] battle started with %d candidates", len(pool))
	return s.stateLocked(), nil
}

// AdvanceBattle settles the current round. When the tournament concludes the
// returned state carries the champion and the session is cleared.
func (s *Service) AdvanceBattle(winnerID string) (BattleState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.battle == nil {
		return BattleState{}, ErrNoBattle
	}
	if err := s.battle.Advance(winnerID); err != nil {
		return BattleState{}, err
	}

	state := s.stateLocked()
	if state.Finished {
		log.Printf("[games] battle won by %q", state.Champion.Title)
		s.battle = nil
	}
	return state, nil
}

// CurrentBattle returns the running tournament's state.
func (s *Service) CurrentBattle() (BattleState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.battle == nil {
		return BattleState{}, ErrNoBattle
	}
	return s.stateLocked(), nil
}

// AbandonBattle discards the running tournament, if any.
func (s *Service) AbandonBattle() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.battle != nil {
		s.battle = nil
		log.Printf("[games] battle abandoned")
	}
}

func (s *Service) stateLocked() BattleState {
	state := BattleState{
		Pair:      s.battle.Pair(),
		Remaining: s.battle.Remaining(),
		Finished:  s.battle.Finished(),
	}
	if champion, ok := s.battle.Champion(); ok {
		state.Champion = &champion
	}
	return state
}
