package selector

import (
	"math/rand/v2"
	"strings"
	"sync"

	"darwinawards/internal/corpus"
	"darwinawards/internal/shared"
)

// GeneralChance is the probability that the general pool joins the candidates
// of a single selection. It is a policy constant, not a promise of a uniform
// distribution over all eligible templates.
const GeneralChance = 1.0 / 3.0

// CorpusSource supplies the snapshot to select from.
type CorpusSource interface {
	Current() *corpus.TextCorpus
}

type candidate struct {
	category shared.Category
	text     string
}

// Selector picks a message template for a classified death.
type Selector struct {
	corpus        CorpusSource
	generalChance float64

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

func New(source CorpusSource) *Selector {
	return &Selector{
		corpus:        source,
		generalChance: GeneralChance,
		rng:           rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// WithRand replaces the random source, for reproducible selection.
func (s *Selector) WithRand(rng *rand.Rand) *Selector {
	s.rng = rng
	return s
}

// WithGeneralChance overrides the probability of including the general pool.
func (s *Selector) WithGeneralChance(p float64) *Selector {
	s.generalChance = p
	return s
}

// Select builds the candidate pool for categories, picks one uniformly and
// substitutes the placeholders. Candidates needing {enemy} are excluded when
// there is no enemy; an empty pool falls back to "R.I.P. {player}".
func (s *Selector) Select(categories shared.CategorySet, hasEnemy bool, enemyName, playerName string) shared.DeathMessage {
	c := s.corpus.Current()

	s.mu.Lock()
	includeGeneral := s.rng.Float64() < s.generalChance
	s.mu.Unlock()

	var pool []candidate
	if includeGeneral {
		pool = appendCandidates(pool, c, shared.CategoryGeneral, hasEnemy)
	}
	for _, category := range categories.Sorted() {
		pool = appendCandidates(pool, c, category, hasEnemy)
	}

	picked := candidate{category: shared.CategoryGeneral, text: shared.FallbackText}
	if len(pool) > 0 {
		s.mu.Lock()
		picked = pool[s.rng.IntN(len(pool))]
		s.mu.Unlock()
	}

	// one pass, so a name containing a placeholder is never expanded again
	pairs := []string{shared.PlaceholderPlayer, playerName}
	if hasEnemy {
		pairs = append(pairs, shared.PlaceholderEnemy, enemyName)
	}
	text := strings.NewReplacer(pairs...).Replace(picked.text)

	return shared.DeathMessage{Category: picked.category, Text: text}
}

func appendCandidates(pool []candidate, c *corpus.TextCorpus, category shared.Category, hasEnemy bool) []candidate {
	for _, text := range c.Templates(category) {
		if text == "" {
			continue
		}
		if !hasEnemy && strings.Contains(text, shared.PlaceholderEnemy) {
			continue
		}
		pool = append(pool, candidate{category: category, text: text})
	}
	return pool
}
