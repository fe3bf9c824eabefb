package corpus

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"
)

var (
	ErrMissingSource   = errors.New("corpus source missing")
	ErrMalformedSource = errors.New("corpus source malformed")
)

// TextCorpus maps a category to its message templates.
// A snapshot is never mutated after Parse returns it.
type TextCorpus struct {
	texts map[string][]string
}

// Empty returns a corpus without categories.
func Empty() *TextCorpus {
	return &TextCorpus{texts: map[string][]string{}}
}

// Parse decodes a YAML document of the form
//
//	death by fire:
//	  - "Burned to a crisp by {enemy}"
//
// Blank input is an empty corpus, not an error.
func Parse(raw []byte) (*TextCorpus, error) {
	var texts map[string][]string
	if err := yaml.Unmarshal(raw, &texts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSource, err)
	}
	if texts == nil {
		texts = map[string][]string{}
	}
	return &TextCorpus{texts: texts}, nil
}

// Templates returns a copy of the templates listed under category.
func (c *TextCorpus) Templates(category string) []string {
	return slices.Clone(c.texts[category])
}

// Has reports whether the category exists in the corpus.
func (c *TextCorpus) Has(category string) bool {
	_, ok := c.texts[category]
	return ok
}

// Categories returns the category names in lexical order.
func (c *TextCorpus) Categories() []string {
	out := make([]string, 0, len(c.texts))
	for k := range c.texts {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of categories.
func (c *TextCorpus) Len() int {
	return len(c.texts)
}
