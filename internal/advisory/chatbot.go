package advisory

import (
	goahocorasick "github.com/anknown/ahocorasick"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Fallback is the chatbot reply when no disease name is recognized.
const Fallback = "We are connecting as soon as."

// keywords are matched in this priority order; the first one found wins.
var keywords = []struct {
	word  string
	label Label
}{
	{"healthy", Healthy},
	{"leaf blast", LeafBlast},
	{"brown spot", BrownSpot},
	{"sheath blight", SheathBlight},
}

// Chatbot answers free text with the advisory of the disease it mentions.
type Chatbot struct {
	matcher  *goahocorasick.Machine
	priority map[string]int
}

// NewChatbot builds the keyword automaton.
func NewChatbot() (*Chatbot, error) {
	patterns := make([][]rune, len(keywords))
	priority := make(map[string]int, len(keywords))
	for i, k := range keywords {
		patterns[i] = []rune(k.word)
		priority[k.word] = i
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Chatbot{matcher: m, priority: priority}, nil
}

// Match returns the label of the highest priority keyword contained in text,
// compared case-insensitively.
func (c *Chatbot) Match(text string) (Label, bool) {
	// Casers hold state, so each call gets its own.
	content := []rune(cases.Lower(language.Und).String(text))
	if len(content) == 0 {
		return 0, false
	}

	best := -1
	for _, term := range c.matcher.MultiPatternSearch(content, false) {
		p, ok := c.priority[string(term.Word)]
		if !ok {
			continue
		}
		if best < 0 || p < best {
			best = p
		}
	}
	if best < 0 {
		return 0, false
	}
	return keywords[best].label, true
}

// Reply returns the advisory for the disease mentioned in text, or Fallback.
func (c *Chatbot) Reply(text string) string {
	l, ok := c.Match(text)
	if !ok {
		return Fallback
	}
	return Advice(l)
}
