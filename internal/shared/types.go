package shared

import "sort"

// shared types across the application
// 1st: death message exchanged between peers and shown in the display queue
// 2nd: category tags produced by cause classification

// Category is a cause-of-death tag, e.g. "death by fire".
// The corpus defines the valid universe, so it is never an enumeration.
type Category = string

const (
	// CategoryGeneral is the reserved corpus key drawn from on a coin flip
	// and used for the synthetic fallback message.
	CategoryGeneral Category = "general"

	// FallbackText is sent when no template matches the classified categories.
	FallbackText = "R.I.P. {player}"

	PlaceholderPlayer = "{player}"
	PlaceholderEnemy  = "{enemy}"
)

// DeathMessage is the unit broadcast to peers and displayed. Immutable once created.
type DeathMessage struct {
	Category Category `json:"category"` // category the template was drawn from
	Text     string   `json:"text"`     // fully substituted text
}

// CategorySet is a deduplicated, order-irrelevant set of categories.
type CategorySet map[Category]struct{}

// NewCategorySet builds a set from the given categories, collapsing duplicates.
func NewCategorySet(categories ...Category) CategorySet {
	set := make(CategorySet, len(categories))
	for _, c := range categories {
		set.Add(c)
	}
	return set
}

func (s CategorySet) Add(c Category) {
	s[c] = struct{}{}
}

func (s CategorySet) Has(c Category) bool {
	_, ok := s[c]
	return ok
}

func (s CategorySet) Len() int {
	return len(s)
}

// Sorted returns the members in lexical order, for deterministic iteration.
func (s CategorySet) Sorted() []Category {
	out := make([]Category, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
