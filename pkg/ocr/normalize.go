package ocr

import (
	"regexp"
	"strings"

	"github.com/Coxwtwo/gacha-ocr/pkg/gamecfg"
)

// punctFold collapses full-width and typographic punctuation variants
// the engines commonly emit for CJK screenshots.
var punctFold = strings.NewReplacer(
	"：", ":",
	"－", "-",
	"—", "-",
	"–", "-",
	"／", "/",
	"．", ".",
	"，", ",",
	"　", " ",
	"“", "\"",
	"”", "\"",
	"（", "(",
	"）", ")",
)

// Normalizer cleans raw engine output deterministically: whitespace
// collapse, punctuation folding, the game's ordered substitution pairs
// and configured prefix/suffix stripping.
type Normalizer struct {
	subs   [][2]string
	prefix []*regexp.Regexp
	suffix []*regexp.Regexp
}

func NewNormalizer(cfg *gamecfg.GameConfig) *Normalizer {
	return &Normalizer{
		subs:   cfg.Substitutions,
		prefix: cfg.PrefixPatterns,
		suffix: cfg.SuffixPatterns,
	}
}

func (n *Normalizer) Normalize(s string) string {
	s = collapseWhitespace(s)
	s = punctFold.Replace(s)
	for _, sub := range n.subs {
		s = strings.ReplaceAll(s, sub[0], sub[1])
	}
	for _, re := range n.prefix {
		s = strings.TrimSpace(re.ReplaceAllString(s, ""))
	}
	for _, re := range n.suffix {
		s = strings.TrimSpace(re.ReplaceAllString(s, ""))
	}
	return strings.TrimSpace(s)
}

// collapseWhitespace replaces newlines/tabs and squeezes runs of spaces.
func collapseWhitespace(t string) string {
	t = strings.ReplaceAll(t, "\n", " ")
	t = strings.ReplaceAll(t, "\t", " ")
	return strings.Join(strings.Fields(t), " ")
}
