package ocr

import (
	"regexp"
	"testing"

	"github.com/Coxwtwo/gacha-ocr/pkg/gamecfg"
)

func TestNormalizeWhitespaceAndPunct(t *testing.T) {
	n := NewNormalizer(&gamecfg.GameConfig{})
	got := n.Normalize("  2024－05－01　12：30  \n")
	if got != "2024-05-01 12:30" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeSubstitutionOrder(t *testing.T) {
	cfg := &gamecfg.GameConfig{
		Substitutions: [][2]string{
			{"0", "O"},
			{"OO", "00"}, // applied after the first pair, in order
		},
	}
	n := NewNormalizer(cfg)
	if got := n.Normalize("R0se"); got != "ROse" {
		t.Fatalf("got %q", got)
	}
	if got := n.Normalize("10"); got != "1O" {
		t.Fatalf("got %q", got)
	}
	if got := n.Normalize("100"); got != "100" {
		t.Fatalf("ordered pairs must cascade, got %q", got)
	}
}

func TestNormalizeStripsPatterns(t *testing.T) {
	cfg := &gamecfg.GameConfig{
		PrefixPatterns: []*regexp.Regexp{regexp.MustCompile(`^(获得|NEW)\s*`)},
		SuffixPatterns: []*regexp.Regexp{regexp.MustCompile(`\s*x\d+$`)},
	}
	n := NewNormalizer(cfg)
	if got := n.Normalize("获得 Amber x10"); got != "Amber" {
		t.Fatalf("got %q", got)
	}
	if got := n.Normalize("NEW Diluc"); got != "Diluc" {
		t.Fatalf("got %q", got)
	}
}
