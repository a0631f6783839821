package enrich

import (
	"math/rand"
	"sort"
	"strings"
)

// Highlight is one "why we love" phrase paired with a themed icon.
type Highlight struct {
	Text string `json:"text"`
	Icon string `json:"icon"`
}

// defaultHighlights pad the list when the provider returns fewer than three
// usable phrases.
var defaultHighlights = []string{"Great prices", "Fast delivery", "Top quality"}

// iconVocabulary maps each icon to the keywords that select it.
var iconVocabulary = map[string][]string{
	"tag":      {"price", "prices", "cheap", "deal", "deals", "save", "discount", "bargain"},
	"truck":    {"delivery", "shipping", "fast", "quick", "free"},
	"star":     {"quality", "premium", "best", "top", "excellent"},
	"leaf":     {"eco", "green", "sustainable", "organic", "natural"},
	"heart":    {"service", "friendly", "support", "care", "loved"},
	"sparkles": {"design", "style", "trendy", "stylish", "unique", "selection", "range"},
}

type iconPicker struct {
	rand *rand.Rand
}

func newIconPicker() *iconPicker {
	return &iconPicker{}
}

// highlights extracts up to three short phrases from provider output and
// assigns each a distinct icon by keyword overlap, falling back to a random
// unused icon.
func (p *iconPicker) highlights(raw string) []Highlight {
	var phrases []string
	for _, line := range strings.Split(raw, "\n") {
		line = bulletPrefix.ReplaceAllString(strings.TrimSpace(line), "")
		line = strings.Trim(strings.TrimSpace(line), ".!")
		if line == "" {
			continue
		}
		if len(strings.Fields(line)) > 3 {
			continue
		}
		phrases = append(phrases, line)
		if len(phrases) == 3 {
			break
		}
	}
	for _, d := range defaultHighlights {
		if len(phrases) == 3 {
			break
		}
		if !containsFold(phrases, d) {
			phrases = append(phrases, d)
		}
	}

	used := make(map[string]bool)
	out := make([]Highlight, 0, len(phrases))
	for _, phrase := range phrases {
		icon := p.pickIcon(phrase, used)
		used[icon] = true
		out = append(out, Highlight{Text: phrase, Icon: icon})
	}
	return out
}

func (p *iconPicker) pickIcon(phrase string, used map[string]bool) string {
	words := strings.Fields(strings.ToLower(phrase))

	icons := make([]string, 0, len(iconVocabulary))
	for icon := range iconVocabulary {
		icons = append(icons, icon)
	}
	sort.Strings(icons)

	bestIcon := ""
	bestScore := 0
	var unused []string
	for _, icon := range icons {
		if used[icon] {
			continue
		}
		unused = append(unused, icon)
		score := 0
		for _, w := range words {
			for _, kw := range iconVocabulary[icon] {
				if w == kw {
					score++
				}
			}
		}
		if score > bestScore {
			bestScore = score
			bestIcon = icon
		}
	}
	if bestScore > 0 {
		return bestIcon
	}

	// No keyword overlap: random unused icon.
	if len(unused) == 0 {
		return "star"
	}
	if p.rand != nil {
		return unused[p.rand.Intn(len(unused))]
	}
	return unused[rand.Intn(len(unused))]
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
