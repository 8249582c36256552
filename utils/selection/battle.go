package selection

import (
	"errors"
	"math/rand"

	"reelnight/models"
)

var (
	ErrTooFewCandidates = errors.New("battle needs at least two candidates")
	ErrNotInPair        = errors.New("winner is not part of the current pair")
	ErrBattleFinished   = errors.New("battle already finished")
)

// Pick returns one uniformly random element. ok is false for an empty list.
func Pick(entries []models.Entry, rng *rand.Rand) (models.Entry, bool) {
	if len(entries) == 0 {
		return models.Entry{}, false
	}
	return entries[rng.Intn(len(entries))], true
}

// Battle runs a sequential elimination tournament: two random entries open,
// the caller reports a winner each round, a fresh challenger is drawn from
// the entries not yet fielded, and the last winner standing is the champion.
// Every fielded entry stays excluded, so a pool of N candidates finishes in
// at most N-1 rounds.
type Battle struct {
	rng      *rand.Rand
	pool     []models.Entry
	used     map[string]struct{}
	pair     [2]models.Entry
	finished bool
	champion models.Entry
}

// NewBattle draws the opening pair from pool: a first random index, then a
// second rejection-sampled until distinct.
func NewBattle(pool []models.Entry, rng *rand.Rand) (*Battle, error) {
	if len(pool) < 2 {
		return nil, ErrTooFewCandidates
	}

	b := &Battle{
		rng:  rng,
		pool: append([]models.Entry(nil), pool...),
		used: make(map[string]struct{}, len(pool)),
	}

	first := rng.Intn(len(b.pool))
	second := rng.Intn(len(b.pool))
	for second == first {
		second = rng.Intn(len(b.pool))
	}

	b.pair = [2]models.Entry{b.pool[first], b.pool[second]}
	b.used[b.pool[first].ID] = struct{}{}
	b.used[b.pool[second].ID] = struct{}{}
	return b, nil
}

// Pair returns the current combatants.
func (b *Battle) Pair() [2]models.Entry {
	return b.pair
}

// Remaining reports how many candidates have not yet been fielded.
func (b *Battle) Remaining() int {
	return len(b.pool) - len(b.used)
}

// Finished reports whether the tournament has concluded.
func (b *Battle) Finished() bool {
	return b.finished
}

// Champion returns the final selection once the tournament has finished.
func (b *Battle) Champion() (models.Entry, bool) {
	if !b.finished {
		return models.Entry{}, false
	}
	return b.champion, true
}

// Advance settles the current round: winnerID must identify one of the
// current pair. If unfielded candidates remain, one is drawn uniformly as
// the next challenger; otherwise the winner becomes the champion.
func (b *Battle) Advance(winnerID string) error {
	if b.finished {
		return ErrBattleFinished
	}

	var winner models.Entry
	switch winnerID {
	case b.pair[0].ID:
		winner = b.pair[0]
	case b.pair[1].ID:
		winner = b.pair[1]
	default:
		return ErrNotInPair
	}

	remaining := make([]models.Entry, 0, b.Remaining())
	for _, e := range b.pool {
		if _, fielded := b.used[e.ID]; !fielded {
			remaining = append(remaining, e)
		}
	}

	if len(remaining) == 0 {
		b.finished = true
		b.champion = winner
		return nil
	}

	next := remaining[b.rng.Intn(len(remaining))]
	b.used[next.ID] = struct{}{}
	b.pair = [2]models.Entry{winner, next}
	return nil
}
