package selector

import (
	"math/rand/v2"
	"strings"
	"testing"

	"darwinawards/internal/classifier"
	"darwinawards/internal/corpus"
	"darwinawards/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticCorpus struct{ c *corpus.TextCorpus }

func (s staticCorpus) Current() *corpus.TextCorpus { return s.c }

func mustParse(t *testing.T, raw string) staticCorpus {
	t.Helper()
	c, err := corpus.Parse([]byte(raw))
	require.NoError(t, err)
	return staticCorpus{c: c}
}

func seeded(src CorpusSource, seed uint64) *Selector {
	return New(src).WithRand(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

const mixedCorpus = `
general:
  - "{player} tripped over their own ego"
  - "{enemy} sends regards to {player}"
  - ""
death by fire:
  - "Burned to a crisp by {enemy}"
  - "{player} tried to hug a campfire"
death by frost:
  - "{player} became a popsicle"
`

func TestSelect_CreatureFireScenario(t *testing.T) {
	src := mustParse(t, `death by fire: ["Burned to a crisp by {enemy}"]`)
	sig := classifier.DeathSignal{Hit: &classifier.Hit{
		Attacker: &classifier.Attacker{Name: "Troll", Kind: classifier.AttackerCreature},
		Damage:   classifier.Damage{Fire: 5},
	}}

	cats := classifier.Classify(sig)
	require.Equal(t, shared.NewCategorySet("death by creature", "death by fire", "death by elemental"), cats)

	enemy, ok := classifier.Enemy(sig)
	require.True(t, ok)

	// with or without the general draw only the fire template is eligible
	for seed := uint64(0); seed < 20; seed++ {
		got := seeded(src, seed).Select(cats, ok, enemy, "Erik")
		assert.Equal(t, shared.DeathMessage{Category: "death by fire", Text: "Burned to a crisp by Troll"}, got)
	}
}

func TestSelect_EmptyCorpusFallsBack(t *testing.T) {
	s := seeded(staticCorpus{c: corpus.Empty()}, 1)
	cats := shared.NewCategorySet("death by creature", "death by fire")

	for i := 0; i < 10; i++ {
		got := s.Select(cats, true, "Troll", "Erik")
		assert.Equal(t, shared.DeathMessage{Category: "general", Text: "R.I.P. Erik"}, got)
	}
}

func TestSelect_UnresolvedCategoryFallsBackWhenGeneralMisses(t *testing.T) {
	src := mustParse(t, mixedCorpus)
	s := seeded(src, 3).WithGeneralChance(0)

	got := s.Select(shared.NewCategorySet("death by tree"), false, "", "Erik")

	assert.Equal(t, shared.DeathMessage{Category: "general", Text: "R.I.P. Erik"}, got)
}

func TestSelect_NoEnemyExcludesEnemyTemplates(t *testing.T) {
	src := mustParse(t, mixedCorpus)
	s := seeded(src, 7).WithGeneralChance(1)
	cats := shared.NewCategorySet("death by fire", "death by frost")

	seen := map[string]bool{}
	for i := 0; i < 500; i++ {
		got := s.Select(cats, false, "", "Erik")
		assert.NotContains(t, got.Text, "{enemy}")
		assert.NotContains(t, got.Text, "Burned to a crisp")
		assert.NotContains(t, got.Text, "sends regards")
		seen[got.Text] = true
	}

	assert.Equal(t, map[string]bool{
		"Erik tripped over their own ego": true,
		"Erik tried to hug a campfire":    true,
		"Erik became a popsicle":          true,
	}, seen)
}

func TestSelect_NeverLeavesPlaceholders(t *testing.T) {
	src := mustParse(t, mixedCorpus)
	s := seeded(src, 11)
	cats := shared.NewCategorySet("death by fire", "death by frost", "death by boss")

	for i := 0; i < 500; i++ {
		hasEnemy := i%2 == 0
		got := s.Select(cats, hasEnemy, "Moder", "Astrid")
		assert.False(t, strings.Contains(got.Text, "{player}") || strings.Contains(got.Text, "{enemy}"), got.Text)
		assert.NotEmpty(t, got.Text)
	}
}

func TestSelect_SubstitutionIsSinglePass(t *testing.T) {
	src := mustParse(t, `death by boss: ["{enemy} flattened {player}"]`)
	s := seeded(src, 5).WithGeneralChance(0)

	got := s.Select(shared.NewCategorySet("death by boss"), true, "{player}", "Erik")

	assert.Equal(t, "{player} flattened Erik", got.Text)
}

func TestSelect_CategoryLabelsFollowTemplate(t *testing.T) {
	src := mustParse(t, mixedCorpus)
	s := seeded(src, 13)
	cats := shared.NewCategorySet("death by frost")

	for i := 0; i < 200; i++ {
		got := s.Select(cats, false, "", "Erik")
		switch got.Text {
		case "Erik became a popsicle":
			assert.Equal(t, "death by frost", got.Category)
		case "Erik tripped over their own ego":
			assert.Equal(t, "general", got.Category)
		default:
			t.Fatalf("unexpected text %q", got.Text)
		}
	}
}

// The general pool joins on an independent coin flip per call. With one
// general and one specific template, general is picked with probability
// 1/3 * 1/2 = 1/6.
func TestSelect_GeneralDrawIsStatistical(t *testing.T) {
	src := mustParse(t, `
general: ["{player} is general"]
death by poison: ["{player} is specific"]
`)
	s := seeded(src, 42)
	cats := shared.NewCategorySet("death by poison")

	const n = 6000
	general := 0
	for i := 0; i < n; i++ {
		if s.Select(cats, false, "", "Erik").Category == shared.CategoryGeneral {
			general++
		}
	}

	ratio := float64(general) / n
	assert.InDelta(t, 1.0/6.0, ratio, 0.03)
}

func TestSelect_ReadsCurrentSnapshot(t *testing.T) {
	store := corpus.NewStore(nil)
	s := seeded(store, 9).WithGeneralChance(0)
	cats := shared.NewCategorySet("death by gravity")

	assert.Equal(t, "R.I.P. Erik", s.Select(cats, false, "", "Erik").Text)

	store.Rebuild([]byte(`death by gravity: ["{player} forgot about gravity"]`))
	assert.Equal(t, "Erik forgot about gravity", s.Select(cats, false, "", "Erik").Text)

	store.Rebuild([]byte(`death by gravity: [broken`))
	assert.Equal(t, "R.I.P. Erik", s.Select(cats, false, "", "Erik").Text)
}
